// Package model はドメインモデルを定義する。
package model

import "time"

// Task はユーザーが所有するタスクを表す。
// 全ての読み取り・更新・削除はIDと所有者IDの両方で絞り込む。
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Priority    string    `json:"priority"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// カテゴリの既定値と標準セット。
// 未知のカテゴリ値も保存は許可される（特別な表示をしないだけ）。
const (
	CategoryGeneral  = "General"
	CategoryWork     = "Work"
	CategoryPersonal = "Personal"
	CategoryShopping = "Shopping"
	CategoryHealth   = "Health"
)

// 優先度。HighがMediumより、MediumがLowより上位。
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// PriorityRank は優先度の順位を返す。小さいほど上位。
// 未知の値は最下位として扱う。
func PriorityRank(priority string) int {
	switch priority {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// TaskFilter はタスク一覧の絞り込み条件を表す。
// Searchは説明文の部分一致（大文字小文字を区別しない）、Categoryは完全一致。
type TaskFilter struct {
	Search   string
	Category string
}

// TaskUpdate はタスクの部分更新を表す。
// nilフィールドは変更しない。
type TaskUpdate struct {
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// IsEmpty は更新対象フィールドが1つもない場合にtrueを返す。
func (u TaskUpdate) IsEmpty() bool {
	return u.Description == nil && u.Category == nil && u.Priority == nil && u.Completed == nil
}
