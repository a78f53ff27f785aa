package client

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskflow/internal/model"
)

// TaskAPI はコントローラーが必要とするタスクAPIインターフェース。
type TaskAPI interface {
	ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	CreateTask(ctx context.Context, input CreateTaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, taskID string, update model.TaskUpdate) (*model.Task, error)
	SetTaskCompleted(ctx context.Context, taskID string, completed bool) (*model.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
}

// SessionInvalidator は認証切れ時にローカルセッションを破棄するインターフェース。
type SessionInvalidator interface {
	Logout() error
}

// tempIDPrefix は楽観的追加で採番する仮IDのプレフィックス。
const tempIDPrefix = "temp-"

// OpKind は進行中の変更操作の種別。
type OpKind string

// 変更操作の種別。
const (
	OpAdd      OpKind = "add"
	OpRemove   OpKind = "remove"
	OpEdit     OpKind = "edit"
	OpComplete OpKind = "complete"
)

// OpState は進行中の変更操作の状態。
// pendingからconfirmedまたはrevertedに遷移する。
type OpState string

// 変更操作の状態。
const (
	OpPending   OpState = "pending"
	OpConfirmed OpState = "confirmed"
	OpReverted  OpState = "reverted"
)

// PendingOp は楽観的に適用された進行中の変更を表す。
type PendingOp struct {
	Kind   OpKind
	TaskID string
	State  OpState
}

// SortOrder はタスク一覧の並び順。
type SortOrder string

// 並び順の種類。
const (
	SortNewest       SortOrder = "newest"
	SortOldest       SortOrder = "oldest"
	SortPriority     SortOrder = "priority"
	SortAlphabetical SortOrder = "alphabetical"
)

// ViewOptions はViewの絞り込みと並び替えの条件。
type ViewOptions struct {
	Search   string    // 説明文の部分一致（大文字小文字を区別しない）
	Category string    // カテゴリ完全一致
	Priority string    // 優先度完全一致
	Sort     SortOrder // 省略時はnewest
}

// Summary はタスク件数の集計。
type Summary struct {
	Total     int
	Completed int
	Pending   int
}

// TaskController はクライアント側の正準タスクリストを保持し、
// 変更操作を楽観的に適用する。サーバー確定前にUIへ反映し、
// 失敗時はロールバックまたは再同期で収束させる。
type TaskController struct {
	mu      sync.Mutex
	api     TaskAPI
	session SessionInvalidator

	// onAuthExpired は認証切れでローカルセッションを破棄した後に呼ばれる。
	// UI側のログイン画面遷移フック。nil可。
	onAuthExpired func()

	tasks  []model.Task
	filter model.TaskFilter
	ops    []PendingOp
}

// NewTaskController はTaskControllerを生成する。
func NewTaskController(api TaskAPI, session SessionInvalidator, onAuthExpired func()) *TaskController {
	return &TaskController{
		api:           api,
		session:       session,
		onAuthExpired: onAuthExpired,
	}
}

// SetFilter はRefreshで使うサーバー側絞り込み条件を設定する。
func (c *TaskController) SetFilter(filter model.TaskFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = filter
}

// Refresh はサーバーから現在の絞り込み条件でタスク一覧を取得し、
// 正準リストを置き換える。競合時の最終的な収束手段でもある。
func (c *TaskController) Refresh(ctx context.Context) error {
	c.mu.Lock()
	filter := c.filter
	c.mu.Unlock()

	tasks, err := c.api.ListTasks(ctx, filter)
	if err != nil {
		return c.handleFailure(err)
	}

	c.mu.Lock()
	c.tasks = tasks
	c.mu.Unlock()
	return nil
}

// Add はタスクを楽観的に追加する。
// 仮IDのエントリを即座に挿入し、サーバー確定後に仮IDで照合して
// サーバーレコードに置き換える。失敗時は仮エントリを取り除く。
func (c *TaskController) Add(ctx context.Context, input CreateTaskInput) (*model.Task, error) {
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

	tempID := tempIDPrefix + uuid.New().String()
	now := time.Now()
	temp := model.Task{
		ID:          tempID,
		Description: description,
		Category:    category,
		Priority:    priority,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	c.mu.Lock()
	c.tasks = append([]model.Task{temp}, c.tasks...)
	opIndex := c.trackOp(OpAdd, tempID)
	c.mu.Unlock()

	created, err := c.api.CreateTask(ctx, CreateTaskInput{
		Description: description,
		Category:    category,
		Priority:    priority,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		// 仮エントリを取り除き、追加前の状態に戻す
		if idx := c.indexOf(tempID); idx >= 0 {
			c.tasks = append(c.tasks[:idx], c.tasks[idx+1:]...)
		}
		c.ops[opIndex].State = OpReverted
		return nil, c.handleFailureLocked(err)
	}

	// 仮IDで照合してサーバーレコードに置き換える
	if idx := c.indexOf(tempID); idx >= 0 {
		c.tasks[idx] = *created
	}
	c.ops[opIndex].State = OpConfirmed
	c.ops[opIndex].TaskID = created.ID
	return created, nil
}

// Remove はタスクを楽観的に削除する。
// スナップショットと元の位置を保持し、失敗時は同じ位置に復元する。
func (c *TaskController) Remove(ctx context.Context, taskID string) error {
	c.mu.Lock()
	idx := c.indexOf(taskID)
	if idx < 0 {
		c.mu.Unlock()
		return model.NewTaskNotFoundError(taskID)
	}
	snapshot := c.tasks[idx]
	c.tasks = append(c.tasks[:idx], c.tasks[idx+1:]...)
	opIndex := c.trackOp(OpRemove, taskID)
	c.mu.Unlock()

	err := c.api.DeleteTask(ctx, taskID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		// 元の位置にスナップショットを復元する
		pos := idx
		if pos > len(c.tasks) {
			pos = len(c.tasks)
		}
		c.tasks = append(c.tasks[:pos], append([]model.Task{snapshot}, c.tasks[pos:]...)...)
		c.ops[opIndex].State = OpReverted
		return c.handleFailureLocked(err)
	}

	c.ops[opIndex].State = OpConfirmed
	return nil
}

// Edit はタスクを楽観的に部分更新する。
// 失敗時は部分的なロールバックが曖昧になるため、全体を再同期する。
func (c *TaskController) Edit(ctx context.Context, taskID string, update model.TaskUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	if update.Description != nil {
		trimmed := strings.TrimSpace(*update.Description)
		if trimmed == "" {
			return model.NewEmptyDescriptionError()
		}
		update.Description = &trimmed
	}

	c.mu.Lock()
	idx := c.indexOf(taskID)
	if idx < 0 {
		c.mu.Unlock()
		return model.NewTaskNotFoundError(taskID)
	}
	applyUpdate(&c.tasks[idx], update)
	opIndex := c.trackOp(OpEdit, taskID)
	c.mu.Unlock()

	updated, err := c.api.UpdateTask(ctx, taskID, update)
	if err != nil {
		c.mu.Lock()
		c.ops[opIndex].State = OpReverted
		c.mu.Unlock()
		return c.resyncAfterFailure(ctx, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexOf(taskID); idx >= 0 {
		c.tasks[idx] = *updated
	}
	c.ops[opIndex].State = OpConfirmed
	return nil
}

// SetCompleted は完了状態を楽観的に切り替える。
// 失敗時は全体を再同期する。
func (c *TaskController) SetCompleted(ctx context.Context, taskID string, completed bool) error {
	c.mu.Lock()
	idx := c.indexOf(taskID)
	if idx < 0 {
		c.mu.Unlock()
		return model.NewTaskNotFoundError(taskID)
	}
	c.tasks[idx].Completed = completed
	opIndex := c.trackOp(OpComplete, taskID)
	c.mu.Unlock()

	updated, err := c.api.SetTaskCompleted(ctx, taskID, completed)
	if err != nil {
		c.mu.Lock()
		c.ops[opIndex].State = OpReverted
		c.mu.Unlock()
		return c.resyncAfterFailure(ctx, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexOf(taskID); idx >= 0 {
		c.tasks[idx] = *updated
	}
	c.ops[opIndex].State = OpConfirmed
	return nil
}

// View は絞り込みと並び替えを適用した派生ビューを返す。
// 正準リストは変更しない。
func (c *TaskController) View(opts ViewOptions) []model.Task {
	c.mu.Lock()
	tasks := make([]model.Task, len(c.tasks))
	copy(tasks, c.tasks)
	c.mu.Unlock()

	filtered := tasks[:0]
	search := strings.ToLower(opts.Search)
	for _, t := range tasks {
		if search != "" && !strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		if opts.Category != "" && t.Category != opts.Category {
			continue
		}
		if opts.Priority != "" && t.Priority != opts.Priority {
			continue
		}
		filtered = append(filtered, t)
	}

	switch opts.Sort {
	case SortOldest:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
		})
	case SortPriority:
		sort.SliceStable(filtered, func(i, j int) bool {
			return model.PriorityRank(filtered[i].Priority) < model.PriorityRank(filtered[j].Priority)
		})
	case SortAlphabetical:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Description < filtered[j].Description
		})
	default: // SortNewest
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		})
	}

	return filtered
}

// Summary はタスク件数の集計を返す。
func (c *TaskController) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{Total: len(c.tasks)}
	for _, t := range c.tasks {
		if t.Completed {
			s.Completed++
		} else {
			s.Pending++
		}
	}
	return s
}

// PendingOps は進行中および完了した変更操作の履歴を返す。
func (c *TaskController) PendingOps() []PendingOp {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := make([]PendingOp, len(c.ops))
	copy(ops, c.ops)
	return ops
}

// --- 内部ヘルパー ---

// indexOf はIDに対応するタスクの位置を返す。ロック保持中に呼ぶ。
func (c *TaskController) indexOf(taskID string) int {
	for i, t := range c.tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

// trackOp は進行中の操作を記録しインデックスを返す。ロック保持中に呼ぶ。
func (c *TaskController) trackOp(kind OpKind, taskID string) int {
	c.ops = append(c.ops, PendingOp{Kind: kind, TaskID: taskID, State: OpPending})
	return len(c.ops) - 1
}

// applyUpdate は部分更新をタスクに適用する。
func applyUpdate(t *model.Task, update model.TaskUpdate) {
	if update.Description != nil {
		t.Description = *update.Description
	}
	if update.Category != nil {
		t.Category = *update.Category
	}
	if update.Priority != nil {
		t.Priority = *update.Priority
	}
	if update.Completed != nil {
		t.Completed = *update.Completed
	}
	t.UpdatedAt = time.Now()
}

// handleFailure は認証切れを検出してセッションを破棄し、元のエラーを返す。
func (c *TaskController) handleFailure(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && model.IsAuthError(apiErr) {
		if c.session != nil {
			c.session.Logout()
		}
		if c.onAuthExpired != nil {
			c.onAuthExpired()
		}
	}
	return err
}

// handleFailureLocked はロック保持中に呼べるhandleFailure。
// セッション破棄とコールバックはコントローラーの状態に触れない。
func (c *TaskController) handleFailureLocked(err error) error {
	return c.handleFailure(err)
}

// resyncAfterFailure は失敗後に全体を再同期し、元のエラーを返す。
// 認証切れの場合は再同期せずセッションを破棄する。
func (c *TaskController) resyncAfterFailure(ctx context.Context, err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && model.IsAuthError(apiErr) {
		return c.handleFailure(err)
	}

	// 再同期の失敗は元のエラーを優先する
	if refreshErr := c.Refresh(ctx); refreshErr != nil {
		return err
	}
	return err
}
