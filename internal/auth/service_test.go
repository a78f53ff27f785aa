package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/taskflow/internal/model"
)

// mockUserRepo はUserRepositoryのモック実装。
type mockUserRepo struct {
	findByIDFunc    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFunc func(ctx context.Context, email string) (*model.User, error)
	createFunc      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.findByEmailFunc(ctx, email)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.createFunc(ctx, user)
}

// mockIssuer はTokenIssuerのモック実装。
type mockIssuer struct {
	issueFunc func(userID, email string) (string, error)
}

func (m *mockIssuer) Issue(userID, email string) (string, error) {
	return m.issueFunc(userID, email)
}

func fixedIssuer() *mockIssuer {
	return &mockIssuer{
		issueFunc: func(userID, email string) (string, error) {
			return "issued-token", nil
		},
	}
}

func TestSignup_Success(t *testing.T) {
	var createdUser *model.User
	repo := &mockUserRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return nil, nil
		},
		createFunc: func(ctx context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}
	svc := NewService(repo, fixedIssuer(), ServiceConfig{BcryptCost: bcrypt.MinCost})

	result, err := svc.Signup(context.Background(), "alice@example.com", "Str0ng!pass", "Alice")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if result.Token != "issued-token" {
		t.Errorf("unexpected token: %s", result.Token)
	}
	if result.User.Email != "alice@example.com" || result.User.Name != "Alice" {
		t.Errorf("unexpected user: %+v", result.User)
	}

	if createdUser == nil {
		t.Fatal("user was not persisted")
	}
	if createdUser.ID == "" {
		t.Error("user ID should be generated")
	}
	if createdUser.PasswordHash == "Str0ng!pass" {
		t.Error("password must not be stored as plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(createdUser.PasswordHash), []byte("Str0ng!pass")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
	if createdUser.CreatedAt.IsZero() || createdUser.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestSignup_InvalidEmail(t *testing.T) {
	svc := NewService(&mockUserRepo{}, fixedIssuer(), ServiceConfig{})

	tests := []string{"", "not-an-email", "a@", "Alice <alice@example.com>"}
	for _, email := range tests {
		_, err := svc.Signup(context.Background(), email, "Str0ng!pass", "Alice")
		apiErr, ok := err.(*model.APIError)
		if !ok || apiErr.Code != model.ErrCodeInvalidEmail {
			t.Errorf("email %q: expected INVALID_EMAIL, got %v", email, err)
		}
	}
}

func TestSignup_WeakPassword(t *testing.T) {
	svc := NewService(&mockUserRepo{}, fixedIssuer(), ServiceConfig{})

	_, err := svc.Signup(context.Background(), "alice@example.com", "weak", "Alice")
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeWeakPassword {
		t.Errorf("expected WEAK_PASSWORD, got %v", err)
	}
}

func TestSignup_EmailTaken(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "existing", Email: email}, nil
		},
	}
	svc := NewService(repo, fixedIssuer(), ServiceConfig{})

	_, err := svc.Signup(context.Background(), "alice@example.com", "Str0ng!pass", "Alice")
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeEmailTaken {
		t.Errorf("expected EMAIL_TAKEN, got %v", err)
	}
}

func loginRepo(t *testing.T, password string) *mockUserRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &model.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	return &mockUserRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, nil
		},
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			if id == user.ID {
				return user, nil
			}
			return nil, nil
		},
	}
}

func TestLogin_Success(t *testing.T) {
	svc := NewService(loginRepo(t, "Str0ng!pass"), fixedIssuer(), ServiceConfig{})

	result, err := svc.Login(context.Background(), "alice@example.com", "Str0ng!pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.Token != "issued-token" || result.User.ID != "user-1" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	svc := NewService(loginRepo(t, "Str0ng!pass"), fixedIssuer(), ServiceConfig{})

	// 未登録メールアドレス
	_, errUnknown := svc.Login(context.Background(), "ghost@example.com", "Str0ng!pass")
	// パスワード不一致
	_, errWrongPass := svc.Login(context.Background(), "alice@example.com", "wrong-password")

	for _, err := range []error{errUnknown, errWrongPass} {
		apiErr, ok := err.(*model.APIError)
		if !ok || apiErr.Code != model.ErrCodeInvalidCredentials {
			t.Errorf("expected INVALID_CREDENTIALS, got %v", err)
		}
	}

	// どちらの失敗も同一のエラー内容（アカウント存在の推測防止）
	if errUnknown.Error() != errWrongPass.Error() {
		t.Error("login failures must be indistinguishable")
	}
}

func TestCurrentUser(t *testing.T) {
	svc := NewService(loginRepo(t, "Str0ng!pass"), fixedIssuer(), ServiceConfig{})

	user, err := svc.CurrentUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if user.ID != "user-1" || user.Email != "alice@example.com" {
		t.Errorf("unexpected user: %+v", user)
	}

	// 存在しないユーザーIDは認証エラー
	_, err = svc.CurrentUser(context.Background(), "ghost")
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeUnauthorized {
		t.Errorf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestSignup_RepoFailureIsWrapped(t *testing.T) {
	repoErr := errors.New("connection lost")
	repo := &mockUserRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return nil, repoErr
		},
	}
	svc := NewService(repo, fixedIssuer(), ServiceConfig{})

	_, err := svc.Signup(context.Background(), "alice@example.com", "Str0ng!pass", "Alice")
	if !errors.Is(err, repoErr) {
		t.Errorf("expected wrapped repo error, got %v", err)
	}
}
