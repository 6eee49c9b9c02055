// Package tasks implements the task backlog: per-user tasks with a deadline,
// a priority, a workflow status, and an embedded checklist. It provides CRUD,
// a filtered and paginated list query, and per-status counts.
package tasks

import (
	"time"
)

// Priority values. Stored as-is; the tasks table enforces the same set with
// a CHECK constraint.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Status values for the task workflow.
const (
	StatusTodo       = "To Do"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

// FilterAll is the sentinel filter value meaning "don't filter on this
// dimension". List treats it the same as an empty string.
const FilterAll = "all"

// DefaultPageSize is the page size for list queries that don't ask for one.
const DefaultPageSize = 5

// MaxPageSize caps how large a single page can get.
const MaxPageSize = 100

// ValidPriority reports whether p is one of the accepted priority values.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ValidStatus reports whether s is one of the accepted status values.
func ValidStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// ChecklistItem is one entry of a task's embedded checklist. The whole
// checklist is stored as a JSONB array on the task row.
type ChecklistItem struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// Task is the domain model for a single task.
type Task struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Deadline    time.Time       `json:"deadline"`
	Priority    string          `json:"priority"`
	Status      string          `json:"status"`
	Checklist   []ChecklistItem `json:"checklist"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CreateInput is the payload for creating a task. Deadline is an ISO date
// string (YYYY-MM-DD); new tasks always start in To Do.
type CreateInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Deadline    string          `json:"deadline"`
	Priority    string          `json:"priority"`
	Checklist   []ChecklistItem `json:"checklist"`
}

// UpdateInput is the payload for editing a task. It replaces all mutable
// fields, matching how the edit form submits a full snapshot.
type UpdateInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Deadline    string          `json:"deadline"`
	Priority    string          `json:"priority"`
	Status      string          `json:"status"`
	Checklist   []ChecklistItem `json:"checklist"`
}

// ListFilter describes one list query. All filter dimensions combine with
// AND. Empty string (or FilterAll for status/priority) means "no filter on
// this dimension". Deadline is an exact-date match in ISO form. Search is a
// case-insensitive substring match on the title.
type ListFilter struct {
	Status   string
	Priority string
	Deadline string
	Search   string
	Page     int
	PageSize int
}

// TaskPage is one page of list results plus the total match count across
// all pages, so callers can derive page counts.
type TaskPage struct {
	Items []Task `json:"items"`
	Total int    `json:"total"`
}
