package tasks

import (
	"fmt"
	"strings"
)

// Field limits shared by the service and the form layer. The messages below
// are user-facing; keep them in plain language.
const (
	MaxTitleLen         = 100
	MaxDescriptionLen   = 500
	MaxChecklistItemLen = 100
)

// ValidateTitle checks the task title rules: required after trimming, at
// most MaxTitleLen characters. Returns the user-facing message, or "".
func ValidateTitle(title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "task name is required"
	}
	if len([]rune(trimmed)) > MaxTitleLen {
		return fmt.Sprintf("task name must be at most %d characters", MaxTitleLen)
	}
	return ""
}

// ValidateDescription checks the optional description length.
func ValidateDescription(description string) string {
	if len([]rune(strings.TrimSpace(description))) > MaxDescriptionLen {
		return fmt.Sprintf("description must be at most %d characters", MaxDescriptionLen)
	}
	return ""
}

// ValidatePriority checks that a priority was chosen and is one of the
// accepted values.
func ValidatePriority(priority string) string {
	if priority == "" {
		return "priority is required"
	}
	if !ValidPriority(priority) {
		return "priority must be Low, Medium, or High"
	}
	return ""
}

// ValidateStatus checks that a status is one of the accepted values.
func ValidateStatus(status string) string {
	if status == "" {
		return "status is required"
	}
	if !ValidStatus(status) {
		return "status must be To Do, In Progress, or Done"
	}
	return ""
}

// ValidateChecklistItem checks one checklist entry: required content, at
// most MaxChecklistItemLen characters.
func ValidateChecklistItem(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "checklist item must not be empty"
	}
	if len([]rune(trimmed)) > MaxChecklistItemLen {
		return fmt.Sprintf("checklist item must be at most %d characters", MaxChecklistItemLen)
	}
	return ""
}
