package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// TaskRepository defines the interface for task data access.
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, userID string, filter ListFilter) ([]Task, int, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, userID string) (map[string]int, error)
}

// postgresTaskRepository implements TaskRepository using PostgreSQL. The
// checklist travels as a JSONB column.
type postgresTaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new PostgreSQL-backed task repository.
func NewTaskRepository(db *sql.DB) TaskRepository {
	return &postgresTaskRepository{db: db}
}

func (r *postgresTaskRepository) Create(ctx context.Context, task *Task) error {
	checklist, err := marshalChecklist(task.Checklist)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (id, user_id, title, description, deadline, priority, status, checklist, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		task.ID, task.UserID, task.Title, task.Description, task.Deadline,
		task.Priority, task.Status, checklist, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *postgresTaskRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	query := `
		SELECT id, user_id, title, description, deadline, priority, status, checklist, created_at
		FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// List returns one page of the user's tasks plus the total match count.
// Filters are conjunctive; empty filter fields are skipped. The count query
// and the page query share the same WHERE clause so the total always
// describes the filtered set.
func (r *postgresTaskRepository) List(ctx context.Context, userID string, filter ListFilter) ([]Task, int, error) {
	where := "WHERE user_id = $1"
	args := []any{userID}
	n := 2

	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, filter.Status)
		n++
	}
	if filter.Priority != "" {
		where += fmt.Sprintf(" AND priority = $%d", n)
		args = append(args, filter.Priority)
		n++
	}
	if filter.Deadline != "" {
		where += fmt.Sprintf(" AND deadline = $%d", n)
		args = append(args, filter.Deadline)
		n++
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND title ILIKE $%d", n)
		args = append(args, "%"+filter.Search+"%")
		n++
	}

	// Count total matches.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM tasks %s", where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tasks: %w", err)
	}

	// Fetch page, newest first.
	selectQuery := fmt.Sprintf(`
		SELECT id, user_id, title, description, deadline, priority, status, checklist, created_at
		FROM tasks
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, n, n+1)

	offset := (filter.Page - 1) * filter.PageSize
	pageArgs := append(args, filter.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, selectQuery, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var items []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *task)
	}
	return items, total, rows.Err()
}

func (r *postgresTaskRepository) Update(ctx context.Context, task *Task) error {
	checklist, err := marshalChecklist(task.Checklist)
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, deadline = $3, priority = $4, status = $5, checklist = $6
		WHERE id = $7`

	_, err = r.db.ExecContext(ctx, query,
		task.Title, task.Description, task.Deadline, task.Priority, task.Status, checklist, task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

func (r *postgresTaskRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// CountByStatus returns a status -> count map for the user's dashboard
// badges. Statuses with no tasks are absent from the map.
func (r *postgresTaskRepository) CountByStatus(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM tasks WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("counting tasks by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask scans a single task row including the JSONB checklist.
func scanTask(row rowScanner) (*Task, error) {
	task := &Task{}
	var checklistRaw []byte
	err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description, &task.Deadline,
		&task.Priority, &task.Status, &checklistRaw, &task.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Checklist = []ChecklistItem{}
	if len(checklistRaw) > 0 {
		if err := json.Unmarshal(checklistRaw, &task.Checklist); err != nil {
			return nil, fmt.Errorf("unmarshaling checklist: %w", err)
		}
	}
	return task, nil
}

// marshalChecklist serializes a checklist for the JSONB column. A nil
// checklist is stored as an empty array, never as SQL NULL.
func marshalChecklist(items []ChecklistItem) ([]byte, error) {
	if items == nil {
		items = []ChecklistItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshaling checklist: %w", err)
	}
	return data, nil
}
