// Package taskform drives the create-task and edit-task screens: per-field
// validation as the user types, checklist editing, deadline parsing in the
// formats people actually enter, and submission through the gateway.
package taskform

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/hoangnv-dev/taskhub/internal/apperror"
	"github.com/hoangnv-dev/taskhub/internal/gateway"
	"github.com/hoangnv-dev/taskhub/internal/tasks"
)

// Mode distinguishes the create form from the edit form. Edit adds the
// status field and the delete flow, and drops the no-past-deadlines rule.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// Notifier receives the outcome of a submit or delete, for toasts or
// banners in whatever renders the form.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier is the fallback Notifier: outcomes go to the log.
type LogNotifier struct{}

func (LogNotifier) Success(msg string) { slog.Info("form notice", slog.String("message", msg)) }
func (LogNotifier) Error(msg string)   { slog.Warn("form notice", slog.String("message", msg)) }

// listRoute is where a successful submit or delete navigates to.
const listRoute = "/tasks"

// Form holds the state of one task form. Field setters validate as they
// go; Submit re-validates everything and only then talks to the gateway.
// Safe for concurrent use.
type Form struct {
	gw       gateway.Gateway
	notifier Notifier
	navigate func(route string)

	mu     sync.Mutex
	mode   Mode
	taskID string

	title       string
	description string
	deadline    string
	priority    string
	status      string
	checklist   []tasks.ChecklistItem

	errors     map[string]string
	submitting bool

	confirmingDelete bool
	deleting         bool
}

// NewCreateForm builds an empty create-mode form. notifier and navigate
// may be nil; outcomes then go to the log and navigation is skipped.
func NewCreateForm(gw gateway.Gateway, notifier Notifier, navigate func(route string)) *Form {
	return newForm(gw, notifier, navigate, ModeCreate, nil)
}

// NewEditForm builds an edit-mode form prefilled from an existing task.
func NewEditForm(gw gateway.Gateway, task *tasks.Task, notifier Notifier, navigate func(route string)) *Form {
	return newForm(gw, notifier, navigate, ModeEdit, task)
}

func newForm(gw gateway.Gateway, notifier Notifier, navigate func(route string), mode Mode, task *tasks.Task) *Form {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if navigate == nil {
		navigate = func(string) {}
	}

	f := &Form{
		gw:        gw,
		notifier:  notifier,
		navigate:  navigate,
		mode:      mode,
		checklist: []tasks.ChecklistItem{},
		errors:    make(map[string]string),
	}

	if task != nil {
		f.taskID = task.ID
		f.title = task.Title
		f.description = task.Description
		f.deadline = task.Deadline.Format(isoDate)
		f.priority = task.Priority
		f.status = task.Status
		f.checklist = append(f.checklist, task.Checklist...)
	}
	return f
}

// --- Field setters (validate on change) ---

// SetTitle updates the title and its validation message.
func (f *Form) SetTitle(title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.title = title
	f.setError("title", tasks.ValidateTitle(title))
}

// SetDescription updates the description and its validation message.
func (f *Form) SetDescription(description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.description = description
	f.setError("description", tasks.ValidateDescription(description))
}

// SetDeadline updates the deadline and its validation message. Any of the
// accepted date forms is fine here; normalization happens at submit.
func (f *Form) SetDeadline(deadline string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadline = deadline
	f.setError("deadline", f.validateDeadline())
}

// SetPriority updates the priority and its validation message.
func (f *Form) SetPriority(priority string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priority = priority
	f.setError("priority", tasks.ValidatePriority(priority))
}

// SetStatus updates the workflow status. Only meaningful in edit mode;
// create-mode tasks always start in To Do.
func (f *Form) SetStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mode != ModeEdit {
		return
	}
	f.status = status
	f.setError("status", tasks.ValidateStatus(status))
}

// --- Checklist editing ---

// AddChecklistItem appends an empty checklist row for the user to fill in.
// The row starts invalid (empty content) but the message only appears once
// the row is touched or the form is submitted.
func (f *Form) AddChecklistItem() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checklist = append(f.checklist, tasks.ChecklistItem{})
}

// SetChecklistContent updates one row's text and its validation message.
// Out-of-range indexes are ignored.
func (f *Form) SetChecklistContent(index int, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.checklist) {
		return
	}
	f.checklist[index].Content = content
	f.setError(checklistKey(index), tasks.ValidateChecklistItem(content))
}

// SetChecklistDone toggles one row's done flag.
func (f *Form) SetChecklistDone(index int, done bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.checklist) {
		return
	}
	f.checklist[index].Done = done
}

// RemoveChecklistItem deletes one row. Messages for the rows after it
// shift down so they stay attached to the right row.
func (f *Form) RemoveChecklistItem(index int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.checklist) {
		return
	}
	f.checklist = append(f.checklist[:index], f.checklist[index+1:]...)

	// Shift every key past the removed row, gaps included. A row with no
	// recorded message clears whatever message its new index carried.
	for i := index; i < len(f.checklist); i++ {
		if next, ok := f.errors[checklistKey(i+1)]; ok {
			f.errors[checklistKey(i)] = next
		} else {
			delete(f.errors, checklistKey(i))
		}
	}
	delete(f.errors, checklistKey(len(f.checklist)))
}

// --- State accessors ---

// FieldError returns the current validation message for a field, "" when
// the field is fine. Checklist rows use keys like "checklist.0".
func (f *Form) FieldError(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors[field]
}

// Checklist returns a copy of the current checklist rows.
func (f *Form) Checklist() []tasks.ChecklistItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]tasks.ChecklistItem, len(f.checklist))
	copy(items, f.checklist)
	return items
}

// IsSubmitting reports whether a submit is in flight.
func (f *Form) IsSubmitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// --- Submit ---

// Submit validates the whole form and, if it's clean, sends it through the
// gateway: an insert in create mode, a full-field update in edit mode. On
// success the notifier hears about it and the user lands back on the list.
// On failure the form keeps its state so nothing typed is lost. A submit
// while one is already in flight is ignored.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil
	}
	if !f.validateAllLocked() {
		f.mu.Unlock()
		return apperror.NewValidation("please fix the highlighted fields")
	}

	deadline, _ := parseDeadline(f.deadline) // validated above
	mode := f.mode
	taskID := f.taskID
	create := tasks.CreateInput{
		Title:       f.title,
		Description: f.description,
		Deadline:    deadline.Format(isoDate),
		Priority:    f.priority,
		Checklist:   append([]tasks.ChecklistItem(nil), f.checklist...),
	}
	update := tasks.UpdateInput{
		Title:       create.Title,
		Description: create.Description,
		Deadline:    create.Deadline,
		Priority:    create.Priority,
		Status:      f.status,
		Checklist:   create.Checklist,
	}

	f.submitting = true
	f.mu.Unlock()

	var err error
	if mode == ModeCreate {
		_, err = f.gw.InsertTask(ctx, create)
	} else {
		_, err = f.gw.UpdateTask(ctx, taskID, update)
	}

	f.mu.Lock()
	f.submitting = false
	f.mu.Unlock()

	if err != nil {
		f.notifier.Error(apperror.SafeMessage(err))
		return err
	}

	if mode == ModeCreate {
		f.notifier.Success("task created")
	} else {
		f.notifier.Success("task updated")
	}
	f.navigate(listRoute)
	return nil
}

// --- Delete flow (edit mode) ---

// RequestDelete opens the delete confirmation. Create-mode forms have
// nothing to delete.
func (f *Form) RequestDelete() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mode != ModeEdit {
		return
	}
	f.confirmingDelete = true
}

// CancelDelete closes the confirmation without deleting.
func (f *Form) CancelDelete() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmingDelete = false
}

// IsConfirmingDelete reports whether the confirmation is open.
func (f *Form) IsConfirmingDelete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmingDelete
}

// IsDeleting reports whether a delete is in flight.
func (f *Form) IsDeleting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleting
}

// ConfirmDelete performs the delete after the user confirmed it. Repeat
// calls while the delete is in flight are ignored. On failure the
// confirmation stays open so the user can retry or cancel.
func (f *Form) ConfirmDelete(ctx context.Context) error {
	f.mu.Lock()
	if f.mode != ModeEdit || !f.confirmingDelete || f.deleting {
		f.mu.Unlock()
		return nil
	}
	f.deleting = true
	taskID := f.taskID
	f.mu.Unlock()

	err := f.gw.DeleteTask(ctx, taskID)

	f.mu.Lock()
	f.deleting = false
	if err == nil {
		f.confirmingDelete = false
	}
	f.mu.Unlock()

	if err != nil {
		f.notifier.Error(apperror.SafeMessage(err))
		return err
	}

	f.notifier.Success("task deleted")
	f.navigate(listRoute)
	return nil
}

// --- internals ---

// setError records or clears one field's message. Callers hold the mutex.
func (f *Form) setError(field, msg string) {
	if msg == "" {
		delete(f.errors, field)
		return
	}
	f.errors[field] = msg
}

// validateAllLocked runs every field rule and reports whether the form is
// clean. Callers hold the mutex.
func (f *Form) validateAllLocked() bool {
	f.setError("title", tasks.ValidateTitle(f.title))
	f.setError("description", tasks.ValidateDescription(f.description))
	f.setError("priority", tasks.ValidatePriority(f.priority))
	f.setError("deadline", f.validateDeadline())
	if f.mode == ModeEdit {
		f.setError("status", tasks.ValidateStatus(f.status))
	}
	for i, item := range f.checklist {
		f.setError(checklistKey(i), tasks.ValidateChecklistItem(item.Content))
	}
	return len(f.errors) == 0
}

// validateDeadline applies the deadline rules for the current mode.
// Callers hold the mutex.
func (f *Form) validateDeadline() string {
	if f.deadline == "" {
		return "deadline is required"
	}
	day, ok := parseDeadline(f.deadline)
	if !ok {
		return "enter the deadline as a date, e.g. 2026-09-15 or 15/9/2026"
	}
	if f.mode == ModeCreate && day.Before(today()) {
		return "deadline cannot be in the past"
	}
	return ""
}

// checklistKey builds the error-map key for one checklist row.
func checklistKey(index int) string {
	return "checklist." + strconv.Itoa(index)
}
