package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hoangnv-dev/taskhub/internal/apperror"
)

// --- Mock Repository ---

// mockTaskRepo implements TaskRepository for testing.
type mockTaskRepo struct {
	createFn        func(ctx context.Context, task *Task) error
	findByIDFn      func(ctx context.Context, id string) (*Task, error)
	listFn          func(ctx context.Context, userID string, filter ListFilter) ([]Task, int, error)
	updateFn        func(ctx context.Context, task *Task) error
	deleteFn        func(ctx context.Context, id string) error
	countByStatusFn func(ctx context.Context, userID string) (map[string]int, error)
}

func (m *mockTaskRepo) Create(ctx context.Context, task *Task) error {
	if m.createFn != nil {
		return m.createFn(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id string) (*Task, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockTaskRepo) List(ctx context.Context, userID string, filter ListFilter) ([]Task, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, filter)
	}
	return nil, 0, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *Task) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockTaskRepo) CountByStatus(ctx context.Context, userID string) (map[string]int, error) {
	if m.countByStatusFn != nil {
		return m.countByStatusFn(ctx, userID)
	}
	return map[string]int{}, nil
}

// --- Test Helpers ---

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// futureDate returns an ISO date n days from now.
func futureDate(n int) string {
	return time.Now().UTC().AddDate(0, 0, n).Format("2006-01-02")
}

// ownedTask returns a mock repo holding one task owned by user-123.
func repoWithTask() (*mockTaskRepo, *Task) {
	task := &Task{
		ID:        "task-1",
		UserID:    "user-123",
		Title:     "Write report",
		Deadline:  time.Now().UTC().AddDate(0, 0, 3),
		Priority:  PriorityMedium,
		Status:    StatusTodo,
		Checklist: []ChecklistItem{},
		CreatedAt: time.Now().UTC(),
	}
	repo := &mockTaskRepo{
		findByIDFn: func(ctx context.Context, id string) (*Task, error) {
			if id == task.ID {
				copied := *task
				return &copied, nil
			}
			return nil, nil
		},
	}
	return repo, task
}

// --- Create Tests ---

func TestCreate_Success(t *testing.T) {
	var captured *Task
	repo := &mockTaskRepo{
		createFn: func(ctx context.Context, task *Task) error {
			captured = task
			return nil
		},
	}

	svc := NewTaskService(repo)
	task, err := svc.Create(context.Background(), "user-123", CreateInput{
		Title:    "  Write report  ",
		Deadline: futureDate(3),
		Priority: PriorityHigh,
		Checklist: []ChecklistItem{
			{Content: " outline ", Done: false},
			{Content: "draft", Done: true},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID == "" {
		t.Error("expected task ID to be generated")
	}
	if task.Status != StatusTodo {
		t.Errorf("expected new task in %q, got %q", StatusTodo, task.Status)
	}
	if captured.Title != "Write report" {
		t.Errorf("expected trimmed title, got %q", captured.Title)
	}
	if captured.UserID != "user-123" {
		t.Errorf("expected owner user-123, got %s", captured.UserID)
	}
	if len(captured.Checklist) != 2 || captured.Checklist[0].Content != "outline" {
		t.Errorf("expected trimmed checklist, got %+v", captured.Checklist)
	}
	if !captured.Checklist[1].Done {
		t.Error("expected done flag to be preserved")
	}
}

func TestCreate_EmptyTitle(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	_, err := svc.Create(context.Background(), "user-123", CreateInput{
		Title:    "   ",
		Deadline: futureDate(1),
		Priority: PriorityLow,
	})
	assertAppError(t, err, 422)
}

func TestCreate_TitleTooLong(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	_, err := svc.Create(context.Background(), "user-123", CreateInput{
		Title:    strings.Repeat("a", 101),
		Deadline: futureDate(1),
		Priority: PriorityLow,
	})
	assertAppError(t, err, 422)
}

func TestCreate_TitleStripsMarkup(t *testing.T) {
	var captured *Task
	repo := &mockTaskRepo{
		createFn: func(ctx context.Context, task *Task) error {
			captured = task
			return nil
		},
	}

	svc := NewTaskService(repo)
	_, err := svc.Create(context.Background(), "user-123", CreateInput{
		Title:    `<script>alert(1)</script>Buy groceries`,
		Deadline: futureDate(1),
		Priority: PriorityLow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(captured.Title, "<") {
		t.Errorf("expected markup to be stripped, got %q", captured.Title)
	}
	if !strings.Contains(captured.Title, "Buy groceries") {
		t.Errorf("expected text content to survive, got %q", captured.Title)
	}
}

func TestCreate_DescriptionTooLong(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	_, err := svc.Create(context.Background(), "user-123", CreateInput{
		Title:       "Task",
		Description: strings.Repeat("a", 501),
		Deadline:    futureDate(1),
		Priority:    PriorityLow,
	})
	assertAppError(t, err, 422)
}

func TestCreate_MissingPriority(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	_, err := svc.Create(context.Background(), "user-123", CreateInput{
		Title:    "Task",
		Deadline: futureDate(1),
	})
	assertAppError(t, err, 422)
}

func TestCreate_UnknownPriority(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	_, err := svc.Create(context.Background(), "user-123", CreateInput{
		Title:    "Task",
		Deadline: futureDate(1),
		Priority: "Urgent",
	})
	assertAppError(t, err, 422)
}

func TestCreate_MissingDeadline(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	_, err := svc.Create(context.Background(), "user-123", CreateInput{
		Title:    "Task",
		Priority: PriorityLow,
	})
	assertAppError(t, err, 422)
}

func TestCreate_PastDeadline(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	_, err := svc.Create(context.Background(), "user-123", CreateInput{
		Title:    "Task",
		Deadline: futureDate(-1),
		Priority: PriorityLow,
	})
	assertAppError(t, err, 422)
}

func TestCreate_TodayDeadlineAllowed(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	_, err := svc.Create(context.Background(), "user-123", CreateInput{
		Title:    "Task",
		Deadline: futureDate(0),
		Priority: PriorityLow,
	})
	if err != nil {
		t.Fatalf("expected today to be an acceptable deadline, got: %v", err)
	}
}

func TestCreate_EmptyChecklistItem(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	_, err := svc.Create(context.Background(), "user-123", CreateInput{
		Title:     "Task",
		Deadline:  futureDate(1),
		Priority:  PriorityLow,
		Checklist: []ChecklistItem{{Content: "ok"}, {Content: "   "}},
	})
	assertAppError(t, err, 422)
}

func TestCreate_EmptyChecklistAllowed(t *testing.T) {
	var captured *Task
	repo := &mockTaskRepo{
		createFn: func(ctx context.Context, task *Task) error {
			captured = task
			return nil
		},
	}

	svc := NewTaskService(repo)
	_, err := svc.Create(context.Background(), "user-123", CreateInput{
		Title:    "Task",
		Deadline: futureDate(1),
		Priority: PriorityLow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Checklist == nil {
		t.Error("expected empty checklist, not nil")
	}
}

// --- List Tests ---

func TestList_SentinelFiltersSkipped(t *testing.T) {
	var captured ListFilter
	repo := &mockTaskRepo{
		listFn: func(ctx context.Context, userID string, filter ListFilter) ([]Task, int, error) {
			captured = filter
			return nil, 0, nil
		},
	}

	svc := NewTaskService(repo)
	_, err := svc.List(context.Background(), "user-123", ListFilter{
		Status:   FilterAll,
		Priority: FilterAll,
		Page:     1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Status != "" || captured.Priority != "" {
		t.Errorf("expected sentinel filters to be cleared, got status=%q priority=%q",
			captured.Status, captured.Priority)
	}
}

func TestList_InvalidStatusFilter(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	_, err := svc.List(context.Background(), "user-123", ListFilter{Status: "Archived"})
	assertAppError(t, err, 400)
}

func TestList_InvalidPriorityFilter(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	_, err := svc.List(context.Background(), "user-123", ListFilter{Priority: "Urgent"})
	assertAppError(t, err, 400)
}

func TestList_InvalidDeadlineFilter(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	_, err := svc.List(context.Background(), "user-123", ListFilter{Deadline: "31/12/2026"})
	assertAppError(t, err, 400)
}

func TestList_PagingNormalized(t *testing.T) {
	var captured ListFilter
	repo := &mockTaskRepo{
		listFn: func(ctx context.Context, userID string, filter ListFilter) ([]Task, int, error) {
			captured = filter
			return nil, 0, nil
		},
	}

	svc := NewTaskService(repo)
	_, err := svc.List(context.Background(), "user-123", ListFilter{Page: -3, PageSize: 9999})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Page != 1 {
		t.Errorf("expected page clamped to 1, got %d", captured.Page)
	}
	if captured.PageSize != MaxPageSize {
		t.Errorf("expected page size capped at %d, got %d", MaxPageSize, captured.PageSize)
	}
}

func TestList_EmptyPageNotNil(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	page, err := svc.List(context.Background(), "user-123", ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Items == nil {
		t.Error("expected empty slice, not nil")
	}
	if page.Total != 0 {
		t.Errorf("expected total 0, got %d", page.Total)
	}
}

func TestList_SearchTrimmed(t *testing.T) {
	var captured ListFilter
	repo := &mockTaskRepo{
		listFn: func(ctx context.Context, userID string, filter ListFilter) ([]Task, int, error) {
			captured = filter
			return nil, 0, nil
		},
	}

	svc := NewTaskService(repo)
	if _, err := svc.List(context.Background(), "user-123", ListFilter{Search: "  report  "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Search != "report" {
		t.Errorf("expected trimmed search, got %q", captured.Search)
	}
}

// --- Get / Update / Delete Tests ---

func TestGet_OtherUsersTaskIsNotFound(t *testing.T) {
	repo, _ := repoWithTask()
	svc := NewTaskService(repo)

	_, err := svc.Get(context.Background(), "user-999", "task-1")
	assertAppError(t, err, 404)
}

func TestUpdate_Success(t *testing.T) {
	repo, _ := repoWithTask()
	var captured *Task
	repo.updateFn = func(ctx context.Context, task *Task) error {
		captured = task
		return nil
	}

	svc := NewTaskService(repo)
	task, err := svc.Update(context.Background(), "user-123", "task-1", UpdateInput{
		Title:    "Write final report",
		Deadline: futureDate(5),
		Priority: PriorityHigh,
		Status:   StatusInProgress,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != StatusInProgress {
		t.Errorf("expected status to change, got %q", task.Status)
	}
	if captured.Title != "Write final report" {
		t.Errorf("expected updated title, got %q", captured.Title)
	}
}

func TestUpdate_PastDeadlineAllowed(t *testing.T) {
	repo, _ := repoWithTask()
	svc := NewTaskService(repo)

	// Editing an overdue task must not trip the create-time deadline floor.
	_, err := svc.Update(context.Background(), "user-123", "task-1", UpdateInput{
		Title:    "Overdue task",
		Deadline: futureDate(-10),
		Priority: PriorityLow,
		Status:   StatusTodo,
	})
	if err != nil {
		t.Fatalf("expected past deadline to be allowed on update, got: %v", err)
	}
}

func TestUpdate_InvalidStatus(t *testing.T) {
	repo, _ := repoWithTask()
	svc := NewTaskService(repo)

	_, err := svc.Update(context.Background(), "user-123", "task-1", UpdateInput{
		Title:    "Task",
		Deadline: futureDate(1),
		Priority: PriorityLow,
		Status:   "Archived",
	})
	assertAppError(t, err, 422)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{})
	_, err := svc.Update(context.Background(), "user-123", "no-such-task", UpdateInput{
		Title:    "Task",
		Deadline: futureDate(1),
		Priority: PriorityLow,
		Status:   StatusTodo,
	})
	assertAppError(t, err, 404)
}

func TestDelete_Success(t *testing.T) {
	repo, _ := repoWithTask()
	var deletedID string
	repo.deleteFn = func(ctx context.Context, id string) error {
		deletedID = id
		return nil
	}

	svc := NewTaskService(repo)
	if err := svc.Delete(context.Background(), "user-123", "task-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deletedID != "task-1" {
		t.Errorf("expected task-1 deleted, got %q", deletedID)
	}
}

func TestDelete_OtherUsersTaskIsNotFound(t *testing.T) {
	repo, _ := repoWithTask()
	svc := NewTaskService(repo)
	err := svc.Delete(context.Background(), "user-999", "task-1")
	assertAppError(t, err, 404)
}

// --- Stats Tests ---

func TestCountByStatus(t *testing.T) {
	repo := &mockTaskRepo{
		countByStatusFn: func(ctx context.Context, userID string) (map[string]int, error) {
			return map[string]int{StatusTodo: 3, StatusDone: 7}, nil
		},
	}

	svc := NewTaskService(repo)
	counts, err := svc.CountByStatus(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts[StatusTodo] != 3 || counts[StatusDone] != 7 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestCountByStatus_RepoError(t *testing.T) {
	repo := &mockTaskRepo{
		countByStatusFn: func(ctx context.Context, userID string) (map[string]int, error) {
			return nil, errors.New("db gone")
		},
	}

	svc := NewTaskService(repo)
	_, err := svc.CountByStatus(context.Background(), "user-123")
	assertAppError(t, err, 500)
}
