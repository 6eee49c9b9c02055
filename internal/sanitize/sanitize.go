// Package sanitize strips markup from user-provided text before it is
// stored. Task titles, descriptions, and checklist items are plain text;
// any HTML that arrives in them (pasted rich text, injection attempts) is
// removed with bluemonday's strict policy.
package sanitize

import (
	"html"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton bluemonday policy for stripping markup.
// Initialized once via sync.Once for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strict policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes all HTML elements and attributes from the input, leaving
// only the text content. The strict policy escapes entities on output, so
// the result is unescaped back to plain text before storage.
//
// This MUST be called on all user-provided text fields before storing them
// in the database.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return html.UnescapeString(getPolicy().Sanitize(input))
}
