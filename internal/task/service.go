// Package task はタスク管理のドメインロジックを提供する。
// 全操作が所有者IDでスコープされ、他ユーザーのタスクには到達できない。
package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskflow/internal/model"
	"github.com/hitoshi/taskflow/internal/repository"
)

// Service はタスク管理のサービス層。
type Service struct {
	taskRepo repository.TaskRepository
}

// NewService はServiceを生成する。
func NewService(taskRepo repository.TaskRepository) *Service {
	return &Service{taskRepo: taskRepo}
}

// CreateInput はタスク作成の入力。
type CreateInput struct {
	Description string
	Category    string
	Priority    string
}

// List は所有者のタスク一覧をフィルタ付きで返す。
func (s *Service) List(ctx context.Context, ownerID string, filter model.TaskFilter) ([]model.Task, error) {
	tasks, err := s.taskRepo.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Create はタスクを作成する。
// 説明文はトリム後に空ならバリデーションエラー。
// カテゴリと優先度は省略時にGeneral/Mediumが補われる。
func (s *Service) Create(ctx context.Context, ownerID string, input CreateInput) (*model.Task, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, model.NewEmptyDescriptionError()
	}

	category := input.Category
	if category == "" {
		category = model.CategoryGeneral
	}
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	now := time.Now()
	t := &model.Task{
		ID:          uuid.New().String(),
		UserID:      ownerID,
		Description: description,
		Category:    category,
		Priority:    priority,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return t, nil
}

// Get はタスクを取得する。
// 存在しないIDと他ユーザー所有のIDはどちらも同じ未検出エラーになる。
func (s *Service) Get(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	t, err := s.taskRepo.FindByIDAndOwner(ctx, taskID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if t == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	return t, nil
}

// Update はタスクを部分更新する。nilフィールドは変更しない。
// 説明文を更新する場合はトリム後に空でないことを検証する。
func (s *Service) Update(ctx context.Context, ownerID, taskID string, update model.TaskUpdate) (*model.Task, error) {
	if update.Description != nil {
		trimmed := strings.TrimSpace(*update.Description)
		if trimmed == "" {
			return nil, model.NewEmptyDescriptionError()
		}
		update.Description = &trimmed
	}

	t, err := s.taskRepo.UpdateByIDAndOwner(ctx, taskID, ownerID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if t == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	return t, nil
}

// SetCompleted は完了フラグを原子的に設定する。
func (s *Service) SetCompleted(ctx context.Context, ownerID, taskID string, completed bool) (*model.Task, error) {
	t, err := s.taskRepo.SetCompleted(ctx, taskID, ownerID, completed)
	if err != nil {
		return nil, fmt.Errorf("failed to set completed: %w", err)
	}
	if t == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	return t, nil
}

// Delete はタスクを削除する。
func (s *Service) Delete(ctx context.Context, ownerID, taskID string) error {
	deleted, err := s.taskRepo.DeleteByIDAndOwner(ctx, taskID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return model.NewTaskNotFoundError(taskID)
	}
	return nil
}
