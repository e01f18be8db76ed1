package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tutu-network/swarmpay/internal/domain"
)

// ─── Task Repository ────────────────────────────────────────────────────────

const taskColumns = `id, pool_id, creator, computation_units, reward, status, completion, created_at, updated_at`

// InsertTask creates a new task record.
func (t *txView) InsertTask(ctx context.Context, task domain.Task) error {
	completion, err := domain.MarshalCompletion(task.Completion)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.PoolID, task.Creator.String(), task.ComputationUnits, task.Reward,
		task.Status.String(), nullBytes(completion),
		toUnix(task.CreatedAt), toUnix(task.UpdatedAt),
	)
	return err
}

// UpdateTask writes the mutable task fields (status, completion).
// The completion column is only ever filled, never cleared.
func (t *txView) UpdateTask(ctx context.Context, task domain.Task) error {
	completion, err := domain.MarshalCompletion(task.Completion)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE tasks SET status = ?, completion = COALESCE(completion, ?), updated_at = ?
		 WHERE id = ?`,
		task.Status.String(), nullBytes(completion), toUnix(task.UpdatedAt), task.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// GetTask retrieves a task by ID; (nil, nil) if absent.
func (t *txView) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id,
	)
	return scanTask(row)
}

// ListTasks returns tasks matching the filter, newest first.
func (t *txView) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	var where []string
	var args []any
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, f.Status.String())
	}
	if f.Creator != nil {
		where = append(where, "creator = ?")
		args = append(args, f.Creator.String())
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(s scanner) (*domain.Task, error) {
	var task domain.Task
	var creator, status string
	var completion sql.NullString
	var createdAt, updatedAt int64

	err := s.Scan(&task.ID, &task.PoolID, &creator, &task.ComputationUnits, &task.Reward,
		&status, &completion, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	if task.Creator, err = domain.ParseIdentity(creator); err != nil {
		return nil, fmt.Errorf("task %s: %w", task.ID, err)
	}
	if task.Status, err = domain.ParseTaskStatus(status); err != nil {
		return nil, fmt.Errorf("task %s: %w", task.ID, err)
	}
	if task.Completion, err = domain.UnmarshalCompletion([]byte(completion.String)); err != nil {
		return nil, fmt.Errorf("task %s: %w", task.ID, err)
	}
	task.CreatedAt = fromUnix(createdAt)
	task.UpdatedAt = fromUnix(updatedAt)
	return &task, nil
}

func nullBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
