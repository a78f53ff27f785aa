package task

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/taskflow/internal/model"
)

// mockTaskRepo はTaskRepositoryのモック実装。
type mockTaskRepo struct {
	listByOwnerFunc      func(ctx context.Context, ownerID string, filter model.TaskFilter) ([]model.Task, error)
	createFunc           func(ctx context.Context, task *model.Task) error
	findByIDAndOwnerFunc func(ctx context.Context, taskID, ownerID string) (*model.Task, error)
	updateFunc           func(ctx context.Context, taskID, ownerID string, update model.TaskUpdate) (*model.Task, error)
	setCompletedFunc     func(ctx context.Context, taskID, ownerID string, completed bool) (*model.Task, error)
	deleteFunc           func(ctx context.Context, taskID, ownerID string) (bool, error)
}

func (m *mockTaskRepo) ListByOwner(ctx context.Context, ownerID string, filter model.TaskFilter) ([]model.Task, error) {
	return m.listByOwnerFunc(ctx, ownerID, filter)
}

func (m *mockTaskRepo) Create(ctx context.Context, task *model.Task) error {
	return m.createFunc(ctx, task)
}

func (m *mockTaskRepo) FindByIDAndOwner(ctx context.Context, taskID, ownerID string) (*model.Task, error) {
	return m.findByIDAndOwnerFunc(ctx, taskID, ownerID)
}

func (m *mockTaskRepo) UpdateByIDAndOwner(ctx context.Context, taskID, ownerID string, update model.TaskUpdate) (*model.Task, error) {
	return m.updateFunc(ctx, taskID, ownerID, update)
}

func (m *mockTaskRepo) SetCompleted(ctx context.Context, taskID, ownerID string, completed bool) (*model.Task, error) {
	return m.setCompletedFunc(ctx, taskID, ownerID, completed)
}

func (m *mockTaskRepo) DeleteByIDAndOwner(ctx context.Context, taskID, ownerID string) (bool, error) {
	return m.deleteFunc(ctx, taskID, ownerID)
}

func TestCreate_AppliesDefaults(t *testing.T) {
	var created *model.Task
	repo := &mockTaskRepo{
		createFunc: func(ctx context.Context, task *model.Task) error {
			created = task
			return nil
		},
	}
	svc := NewService(repo)

	result, err := svc.Create(context.Background(), "user-1", CreateInput{Description: "  牛乳を買う  "})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created == nil {
		t.Fatal("task was not persisted")
	}
	if result.Description != "牛乳を買う" {
		t.Errorf("description should be trimmed, got %q", result.Description)
	}
	if result.Category != model.CategoryGeneral {
		t.Errorf("expected default category General, got %s", result.Category)
	}
	if result.Priority != model.PriorityMedium {
		t.Errorf("expected default priority Medium, got %s", result.Priority)
	}
	if result.Completed {
		t.Error("new task should not be completed")
	}
	if result.UserID != "user-1" {
		t.Errorf("expected owner user-1, got %s", result.UserID)
	}
	if result.ID == "" || strings.HasPrefix(result.ID, "temp-") {
		t.Errorf("expected server-generated ID, got %q", result.ID)
	}
	if result.CreatedAt.IsZero() || result.UpdatedAt.Before(result.CreatedAt) {
		t.Error("timestamps should satisfy created_at <= updated_at")
	}
}

func TestCreate_KeepsExplicitValues(t *testing.T) {
	repo := &mockTaskRepo{
		createFunc: func(ctx context.Context, task *model.Task) error { return nil },
	}
	svc := NewService(repo)

	result, err := svc.Create(context.Background(), "user-1", CreateInput{
		Description: "レポート作成",
		Category:    model.CategoryWork,
		Priority:    model.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if result.Category != model.CategoryWork || result.Priority != model.PriorityHigh {
		t.Errorf("explicit values should be kept, got %+v", result)
	}
}

func TestCreate_EmptyDescription(t *testing.T) {
	repoCalled := false
	repo := &mockTaskRepo{
		createFunc: func(ctx context.Context, task *model.Task) error {
			repoCalled = true
			return nil
		},
	}
	svc := NewService(repo)

	for _, desc := range []string{"", "   ", "\t\n"} {
		_, err := svc.Create(context.Background(), "user-1", CreateInput{Description: desc})
		apiErr, ok := err.(*model.APIError)
		if !ok || apiErr.Code != model.ErrCodeEmptyDescription {
			t.Errorf("description %q: expected EMPTY_DESCRIPTION, got %v", desc, err)
		}
	}
	if repoCalled {
		t.Error("repo should not be called for invalid input")
	}
}

func TestGet_NotFoundIsUniform(t *testing.T) {
	// 存在しないIDも他ユーザー所有のIDも、リポジトリはnilを返す。
	// サービスはどちらも同じTASK_NOT_FOUNDにする。
	repo := &mockTaskRepo{
		findByIDAndOwnerFunc: func(ctx context.Context, taskID, ownerID string) (*model.Task, error) {
			return nil, nil
		},
	}
	svc := NewService(repo)

	_, err := svc.Get(context.Background(), "user-1", "someone-elses-task")
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeTaskNotFound {
		t.Errorf("expected TASK_NOT_FOUND, got %v", err)
	}
}

func TestUpdate_TrimsDescription(t *testing.T) {
	var gotUpdate model.TaskUpdate
	repo := &mockTaskRepo{
		updateFunc: func(ctx context.Context, taskID, ownerID string, update model.TaskUpdate) (*model.Task, error) {
			gotUpdate = update
			return &model.Task{ID: taskID, UserID: ownerID}, nil
		},
	}
	svc := NewService(repo)

	desc := "  更新後の説明  "
	_, err := svc.Update(context.Background(), "user-1", "task-1", model.TaskUpdate{Description: &desc})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if gotUpdate.Description == nil || *gotUpdate.Description != "更新後の説明" {
		t.Errorf("description should be trimmed, got %+v", gotUpdate.Description)
	}
}

func TestUpdate_EmptyDescriptionRejected(t *testing.T) {
	svc := NewService(&mockTaskRepo{})

	desc := "   "
	_, err := svc.Update(context.Background(), "user-1", "task-1", model.TaskUpdate{Description: &desc})
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeEmptyDescription {
		t.Errorf("expected EMPTY_DESCRIPTION, got %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo := &mockTaskRepo{
		updateFunc: func(ctx context.Context, taskID, ownerID string, update model.TaskUpdate) (*model.Task, error) {
			return nil, nil
		},
	}
	svc := NewService(repo)

	priority := model.PriorityHigh
	_, err := svc.Update(context.Background(), "user-1", "ghost", model.TaskUpdate{Priority: &priority})
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeTaskNotFound {
		t.Errorf("expected TASK_NOT_FOUND, got %v", err)
	}
}

func TestSetCompleted(t *testing.T) {
	repo := &mockTaskRepo{
		setCompletedFunc: func(ctx context.Context, taskID, ownerID string, completed bool) (*model.Task, error) {
			return &model.Task{ID: taskID, UserID: ownerID, Completed: completed, UpdatedAt: time.Now()}, nil
		},
	}
	svc := NewService(repo)

	result, err := svc.SetCompleted(context.Background(), "user-1", "task-1", true)
	if err != nil {
		t.Fatalf("SetCompleted failed: %v", err)
	}
	if !result.Completed {
		t.Error("task should be completed")
	}
}

func TestDelete(t *testing.T) {
	repo := &mockTaskRepo{
		deleteFunc: func(ctx context.Context, taskID, ownerID string) (bool, error) {
			return taskID == "task-1", nil
		},
	}
	svc := NewService(repo)

	if err := svc.Delete(context.Background(), "user-1", "task-1"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}

	err := svc.Delete(context.Background(), "user-1", "ghost")
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeTaskNotFound {
		t.Errorf("expected TASK_NOT_FOUND, got %v", err)
	}
}

func TestList_PassesThroughFilter(t *testing.T) {
	repo := &mockTaskRepo{
		listByOwnerFunc: func(ctx context.Context, ownerID string, filter model.TaskFilter) ([]model.Task, error) {
			if filter.Search != "牛乳" || filter.Category != model.CategoryShopping {
				t.Errorf("unexpected filter: %+v", filter)
			}
			return []model.Task{{ID: "task-1", UserID: ownerID}}, nil
		},
	}
	svc := NewService(repo)

	tasks, err := svc.List(context.Background(), "user-1", model.TaskFilter{Search: "牛乳", Category: model.CategoryShopping})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("expected 1 task, got %d", len(tasks))
	}
}

func TestList_RepoFailureIsWrapped(t *testing.T) {
	repoErr := errors.New("connection lost")
	repo := &mockTaskRepo{
		listByOwnerFunc: func(ctx context.Context, ownerID string, filter model.TaskFilter) ([]model.Task, error) {
			return nil, repoErr
		},
	}
	svc := NewService(repo)

	_, err := svc.List(context.Background(), "user-1", model.TaskFilter{})
	if !errors.Is(err, repoErr) {
		t.Errorf("expected wrapped repo error, got %v", err)
	}
}
