package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hoangnv-dev/taskhub/internal/apperror"
	"github.com/hoangnv-dev/taskhub/internal/sanitize"
)

// deadlineLayout is the ISO date form used on the wire and in the database.
const deadlineLayout = "2006-01-02"

// TaskService defines the business logic contract for tasks. Every method
// takes the acting user's ID; tasks are strictly scoped to their owner.
type TaskService interface {
	Create(ctx context.Context, userID string, input CreateInput) (*Task, error)
	Get(ctx context.Context, userID, id string) (*Task, error)
	List(ctx context.Context, userID string, filter ListFilter) (*TaskPage, error)
	Update(ctx context.Context, userID, id string, input UpdateInput) (*Task, error)
	Delete(ctx context.Context, userID, id string) error
	CountByStatus(ctx context.Context, userID string) (map[string]int, error)
}

// taskService implements TaskService.
type taskService struct {
	repo TaskRepository
}

// NewTaskService creates a new task service with the given repository.
func NewTaskService(repo TaskRepository) TaskService {
	return &taskService{repo: repo}
}

// Create validates and persists a new task. New tasks start in To Do and
// their deadline may not be before today.
func (s *taskService) Create(ctx context.Context, userID string, input CreateInput) (*Task, error) {
	title := sanitize.Text(strings.TrimSpace(input.Title))
	description := sanitize.Text(strings.TrimSpace(input.Description))

	if msg := ValidateTitle(title); msg != "" {
		return nil, apperror.NewValidation(msg)
	}
	if msg := ValidateDescription(description); msg != "" {
		return nil, apperror.NewValidation(msg)
	}
	if msg := ValidatePriority(input.Priority); msg != "" {
		return nil, apperror.NewValidation(msg)
	}

	deadline, err := parseDeadline(input.Deadline)
	if err != nil {
		return nil, err
	}
	if deadline.Before(today()) {
		return nil, apperror.NewValidation("deadline cannot be in the past")
	}

	checklist, appErr := cleanChecklist(input.Checklist)
	if appErr != nil {
		return nil, appErr
	}

	task := &Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Deadline:    deadline,
		Priority:    input.Priority,
		Status:      StatusTodo,
		Checklist:   checklist,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating task: %w", err))
	}

	slog.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("user_id", userID),
	)
	return task, nil
}

// Get returns a single task. Tasks belonging to other users are reported as
// not found rather than forbidden, so IDs reveal nothing about other users' tasks.
func (s *taskService) Get(ctx context.Context, userID, id string) (*Task, error) {
	return s.findOwned(ctx, userID, id)
}

// List returns one page of the user's tasks. Sentinel filter values and
// out-of-range paging are normalized here so the repository only ever sees
// clean filters.
func (s *taskService) List(ctx context.Context, userID string, filter ListFilter) (*TaskPage, error) {
	if filter.Status == FilterAll {
		filter.Status = ""
	}
	if filter.Priority == FilterAll {
		filter.Priority = ""
	}
	if filter.Status != "" && !ValidStatus(filter.Status) {
		return nil, apperror.NewBadRequest("invalid status filter")
	}
	if filter.Priority != "" && !ValidPriority(filter.Priority) {
		return nil, apperror.NewBadRequest("invalid priority filter")
	}
	if filter.Deadline != "" {
		if _, err := time.Parse(deadlineLayout, filter.Deadline); err != nil {
			return nil, apperror.NewBadRequest("deadline filter must be YYYY-MM-DD")
		}
	}
	filter.Search = strings.TrimSpace(filter.Search)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = DefaultPageSize
	}
	if filter.PageSize > MaxPageSize {
		filter.PageSize = MaxPageSize
	}

	items, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing tasks: %w", err))
	}
	if items == nil {
		items = []Task{}
	}
	return &TaskPage{Items: items, Total: total}, nil
}

// Update validates and replaces a task's mutable fields. Unlike Create, the
// deadline may be in the past: an overdue task stays editable.
func (s *taskService) Update(ctx context.Context, userID, id string, input UpdateInput) (*Task, error) {
	task, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	title := sanitize.Text(strings.TrimSpace(input.Title))
	description := sanitize.Text(strings.TrimSpace(input.Description))

	if msg := ValidateTitle(title); msg != "" {
		return nil, apperror.NewValidation(msg)
	}
	if msg := ValidateDescription(description); msg != "" {
		return nil, apperror.NewValidation(msg)
	}
	if msg := ValidatePriority(input.Priority); msg != "" {
		return nil, apperror.NewValidation(msg)
	}
	if msg := ValidateStatus(input.Status); msg != "" {
		return nil, apperror.NewValidation(msg)
	}

	deadline, err := parseDeadline(input.Deadline)
	if err != nil {
		return nil, err
	}

	checklist, appErr := cleanChecklist(input.Checklist)
	if appErr != nil {
		return nil, appErr
	}

	task.Title = title
	task.Description = description
	task.Deadline = deadline
	task.Priority = input.Priority
	task.Status = input.Status
	task.Checklist = checklist

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating task: %w", err))
	}

	slog.Info("task updated",
		slog.String("task_id", task.ID),
		slog.String("user_id", userID),
	)
	return task, nil
}

// Delete removes a task owned by the user. Deleting an already-deleted task
// reports not found.
func (s *taskService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.findOwned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting task: %w", err))
	}

	slog.Info("task deleted",
		slog.String("task_id", id),
		slog.String("user_id", userID),
	)
	return nil
}

// CountByStatus returns the user's task counts keyed by status.
func (s *taskService) CountByStatus(ctx context.Context, userID string) (map[string]int, error) {
	counts, err := s.repo.CountByStatus(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("counting tasks: %w", err))
	}
	return counts, nil
}

// findOwned loads a task and enforces ownership.
func (s *taskService) findOwned(ctx context.Context, userID, id string) (*Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("finding task: %w", err))
	}
	if task == nil || task.UserID != userID {
		return nil, apperror.NewNotFound("task not found")
	}
	return task, nil
}

// parseDeadline parses an ISO date into a midnight-UTC time.
func parseDeadline(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, apperror.NewValidation("deadline is required")
	}
	deadline, err := time.Parse(deadlineLayout, value)
	if err != nil {
		return time.Time{}, apperror.NewValidation("deadline must be YYYY-MM-DD")
	}
	return deadline, nil
}

// today returns midnight UTC of the current day, the floor for new
// deadlines.
func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// cleanChecklist sanitizes and validates every checklist entry. The index
// in the error message is 1-based for display.
func cleanChecklist(items []ChecklistItem) ([]ChecklistItem, *apperror.AppError) {
	cleaned := make([]ChecklistItem, 0, len(items))
	for i, item := range items {
		content := sanitize.Text(strings.TrimSpace(item.Content))
		if msg := ValidateChecklistItem(content); msg != "" {
			return nil, apperror.NewValidation(fmt.Sprintf("checklist item %d: %s", i+1, msg))
		}
		cleaned = append(cleaned, ChecklistItem{Content: content, Done: item.Done})
	}
	return cleaned, nil
}
