package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/taskflow/internal/model"
)

// taskColumns はタスク取得クエリで選択するカラム。
const taskColumns = `id, user_id, description, category, priority, completed, created_at, updated_at`

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
// 全クエリがuser_idで絞り込むため、他ユーザーの行は構造的に到達不能。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// ListByOwner は所有者のタスク一覧をフィルタ付きで取得する。
// created_at降順で返す（クライアントは受信後に再ソートする前提）。
func (r *PostgresTaskRepo) ListByOwner(ctx context.Context, ownerID string, filter model.TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{ownerID}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND description ILIKE $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := scanTask(rows, &t); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// Create はタスクを作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, description, category, priority, completed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.ID, task.UserID, task.Description, task.Category, task.Priority,
		task.Completed, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// FindByIDAndOwner は指定IDかつ指定所有者のタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByIDAndOwner(ctx context.Context, taskID, ownerID string) (*model.Task, error) {
	task := &model.Task{}
	err := scanTask(r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`,
		taskID, ownerID,
	), task)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return task, nil
}

// UpdateByIDAndOwner はタスクを部分更新し、更新後のタスクを返す。
// nilフィールドは変更しない。updated_atは常にnow()に更新される。
func (r *PostgresTaskRepo) UpdateByIDAndOwner(ctx context.Context, taskID, ownerID string, update model.TaskUpdate) (*model.Task, error) {
	sets := []string{"updated_at = now()"}
	args := []any{}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Description != nil {
		appendSet("description", *update.Description)
	}
	if update.Category != nil {
		appendSet("category", *update.Category)
	}
	if update.Priority != nil {
		appendSet("priority", *update.Priority)
	}
	if update.Completed != nil {
		appendSet("completed", *update.Completed)
	}

	args = append(args, taskID, ownerID)
	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE id = $%d AND user_id = $%d RETURNING `+taskColumns,
		strings.Join(sets, ", "), len(args)-1, len(args),
	)

	task := &model.Task{}
	err := scanTask(r.db.QueryRowContext(ctx, query, args...), task)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return task, nil
}

// SetCompleted は完了フラグを原子的に設定し、更新後のタスクを返す。
func (r *PostgresTaskRepo) SetCompleted(ctx context.Context, taskID, ownerID string, completed bool) (*model.Task, error) {
	task := &model.Task{}
	err := scanTask(r.db.QueryRowContext(ctx,
		`UPDATE tasks SET completed = $1, updated_at = now()
		 WHERE id = $2 AND user_id = $3 RETURNING `+taskColumns,
		completed, taskID, ownerID,
	), task)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return task, nil
}

// DeleteByIDAndOwner はタスクを削除する。削除した場合はtrueを返す。
func (r *PostgresTaskRepo) DeleteByIDAndOwner(ctx context.Context, taskID, ownerID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
		taskID, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// rowScanner はsql.Rowとsql.Rowsの共通スキャンインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask は1行をmodel.Taskに読み込む。
func scanTask(row rowScanner, t *model.Task) error {
	err := row.Scan(&t.ID, &t.UserID, &t.Description, &t.Category, &t.Priority,
		&t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to scan task: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
