// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/taskflow/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error
}

// TaskRepository はタスクデータの永続化インターフェース。
// 読み取り・更新・削除は必ずタスクIDと所有者IDの両方で絞り込む。
// 存在しないIDと他ユーザー所有のIDは区別できない（どちらもnil/falseを返す）。
type TaskRepository interface {
	// ListByOwner は所有者のタスク一覧をフィルタ付きで取得する。
	// filter.Searchは説明文の部分一致（大文字小文字を区別しない）、
	// filter.Categoryは完全一致で絞り込む。created_at降順で返す。
	ListByOwner(ctx context.Context, ownerID string, filter model.TaskFilter) ([]model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// FindByIDAndOwner は指定IDかつ指定所有者のタスクを取得する。
	// 見つからない場合はnilを返す。
	FindByIDAndOwner(ctx context.Context, taskID, ownerID string) (*model.Task, error)

	// UpdateByIDAndOwner はタスクを部分更新し、更新後のタスクを返す。
	// nilフィールドは変更しない。updated_atは常にnow()に更新される。
	// 見つからない場合はnilを返す。
	UpdateByIDAndOwner(ctx context.Context, taskID, ownerID string, update model.TaskUpdate) (*model.Task, error)

	// SetCompleted は完了フラグを原子的に設定し、更新後のタスクを返す。
	// 見つからない場合はnilを返す。
	SetCompleted(ctx context.Context, taskID, ownerID string, completed bool) (*model.Task, error)

	// DeleteByIDAndOwner はタスクを削除する。削除した場合はtrueを返す。
	DeleteByIDAndOwner(ctx context.Context, taskID, ownerID string) (bool, error)
}
