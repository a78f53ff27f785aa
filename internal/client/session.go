package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hitoshi/taskflow/internal/model"
)

// AuthAPI はセッションマネージャーが必要とする認証APIインターフェース。
type AuthAPI interface {
	Signup(ctx context.Context, email, password, name string) (*AuthPayload, error)
	Login(ctx context.Context, email, password string) (*AuthPayload, error)
}

// SessionManager はクライアント側の認証状態を管理する。
// トークンとユーザープロフィールを資格情報ストアに永続化し、
// プロセスを再起動してもログイン状態を復元できる。
type SessionManager struct {
	store CredentialStore
	api   AuthAPI
}

// NewSessionManager はSessionManagerを生成する。
func NewSessionManager(store CredentialStore, api AuthAPI) *SessionManager {
	return &SessionManager{store: store, api: api}
}

// IsAuthenticated はトークンがストアに存在するかどうかを返す。
// トークンの有効性はサーバー側でのみ判定される。
func (m *SessionManager) IsAuthenticated() bool {
	token, err := m.store.Get(credentialKeyToken)
	return err == nil && token != ""
}

// CurrentUser はストアに保存されたユーザープロフィールを返す。
// 未ログインの場合はnilを返す。
func (m *SessionManager) CurrentUser() (*model.PublicUser, error) {
	raw, err := m.store.Get(credentialKeyUser)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read stored user: %w", err)
	}

	var user model.PublicUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("failed to decode stored user: %w", err)
	}
	return &user, nil
}

// Signup はアカウントを作成し、返されたトークンとプロフィールを永続化する。
// APIエラーはそのまま呼び出し元に伝播する。
func (m *SessionManager) Signup(ctx context.Context, email, password, name string) (*model.PublicUser, error) {
	payload, err := m.api.Signup(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	if err := m.persist(payload); err != nil {
		return nil, err
	}
	return &payload.User, nil
}

// Login はログインし、返されたトークンとプロフィールを永続化する。
// APIエラーはそのまま呼び出し元に伝播する。
func (m *SessionManager) Login(ctx context.Context, email, password string) (*model.PublicUser, error) {
	payload, err := m.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := m.persist(payload); err != nil {
		return nil, err
	}
	return &payload.User, nil
}

// Logout はローカルの資格情報を削除する。
// トークンはステートレスなため、サーバー側の無効化は行わない。
func (m *SessionManager) Logout() error {
	if err := m.store.Delete(credentialKeyToken); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if err := m.store.Delete(credentialKeyUser); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// AuthHeader は認証済みリクエスト用のヘッダーを返す。
// 未ログインの場合は空のマップを返す。
func (m *SessionManager) AuthHeader() map[string]string {
	token, err := m.store.Get(credentialKeyToken)
	if err != nil || token == "" {
		return map[string]string{}
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// persist はトークンとユーザープロフィールをストアに保存する。
func (m *SessionManager) persist(payload *AuthPayload) error {
	if err := m.store.Set(credentialKeyToken, payload.Token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	userJSON, err := json.Marshal(payload.User)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := m.store.Set(credentialKeyUser, string(userJSON)); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}
