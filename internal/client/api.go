package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hitoshi/taskflow/internal/model"
)

// AuthPayload は認証APIのレスポンスボディ。
type AuthPayload struct {
	Token   string           `json:"token"`
	User    model.PublicUser `json:"user"`
	Message string           `json:"message"`
}

// CreateTaskInput はタスク作成APIの入力。
type CreateTaskInput struct {
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// Client はAPIサーバーへのHTTPクライアント。
// 認証済みリクエストにはストアのトークンをベアラーヘッダーとして付与する。
// サーバーが返す統一エラーフォーマットは*model.APIErrorに復元され、
// 通信自体の失敗はNETWORK_ERRORとして返る。
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      CredentialStore
}

// NewClient はClientを生成する。httpClientがnilの場合はhttp.DefaultClientを使う。
func NewClient(baseURL string, httpClient *http.Client, store CredentialStore) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		store:      store,
	}
}

// Signup はアカウント作成APIを呼び出す。
func (c *Client) Signup(ctx context.Context, email, password, name string) (*AuthPayload, error) {
	body := map[string]string{"email": email, "password": password, "name": name}
	var payload AuthPayload
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", body, false, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Login はログインAPIを呼び出す。
func (c *Client) Login(ctx context.Context, email, password string) (*AuthPayload, error) {
	body := map[string]string{"email": email, "password": password}
	var payload AuthPayload
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, false, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Me は認証済みユーザー自身のプロフィールを取得する。
func (c *Client) Me(ctx context.Context) (*model.PublicUser, error) {
	var user model.PublicUser
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, true, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTasks はタスク一覧を取得する。
func (c *Client) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	query := url.Values{}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	path := "/api/tasks"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var tasks []model.Task
	if err := c.do(ctx, http.MethodGet, path, nil, true, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask はタスクを作成する。
func (c *Client) CreateTask(ctx context.Context, input CreateTaskInput) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", input, true, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask はタスクを部分更新する。
func (c *Client) UpdateTask(ctx context.Context, taskID string, update model.TaskUpdate) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(taskID), update, true, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SetTaskCompleted は完了状態を変更する。
func (c *Client) SetTaskCompleted(ctx context.Context, taskID string, completed bool) (*model.Task, error) {
	body := map[string]bool{"completed": completed}
	var t model.Task
	if err := c.do(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(taskID)+"/complete", body, true, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask はタスクを削除する。
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(taskID), nil, true, nil)
}

// do はリクエストを実行しレスポンスをoutにデコードする。
// authedがtrueの場合はストアのトークンをベアラーヘッダーとして付与する。
func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		token, err := c.store.Get(credentialKeyToken)
		if err != nil && !errors.Is(err, ErrCredentialNotFound) {
			return fmt.Errorf("failed to read token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewNetworkError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.NewNetworkError("レスポンスの解析に失敗しました")
	}
	return nil
}

// decodeAPIError はエラーレスポンスを*model.APIErrorに復元する。
func decodeAPIError(resp *http.Response) error {
	var apiErr model.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Code == "" {
		return model.NewNetworkError(fmt.Sprintf("予期しないレスポンス: status %d", resp.StatusCode))
	}
	return &apiErr
}
