// Package client はAPIサーバーに接続するクライアント側コンポーネントを提供する。
// セッション管理と楽観的更新を行うタスクリストコントローラーを含む。
package client

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// 資格情報ストアの固定キー。
const (
	credentialKeyToken = "token"
	credentialKeyUser  = "user"
)

// ErrCredentialNotFound はキーに対応する資格情報が存在しないことを示す。
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialStore は資格情報の永続化インターフェース。
// 存在しないキーのGetはErrCredentialNotFoundを返す。
type CredentialStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// KeyringStore はOSのキーリングに資格情報を保存するCredentialStore実装。
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore はKeyringStoreを生成する。
func NewKeyringStore(serviceName string) (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/" + serviceName + "/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return &KeyringStore{ring: ring}, nil
}

// Get はキーに対応する資格情報を取得する。
func (s *KeyringStore) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrCredentialNotFound
		}
		return "", fmt.Errorf("failed to get credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set はキーに資格情報を保存する。
func (s *KeyringStore) Set(key, value string) error {
	if err := s.ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("failed to set credential %q: %w", key, err)
	}
	return nil
}

// Delete はキーの資格情報を削除する。存在しないキーはエラーにしない。
func (s *KeyringStore) Delete(key string) error {
	if err := s.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete credential %q: %w", key, err)
	}
	return nil
}

// MemoryStore はテスト用のインメモリCredentialStore実装。
type MemoryStore struct {
	values map[string]string
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get はキーに対応する資格情報を取得する。
func (s *MemoryStore) Get(key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", ErrCredentialNotFound
	}
	return value, nil
}

// Set はキーに資格情報を保存する。
func (s *MemoryStore) Set(key, value string) error {
	s.values[key] = value
	return nil
}

// Delete はキーの資格情報を削除する。
func (s *MemoryStore) Delete(key string) error {
	delete(s.values, key)
	return nil
}

// 実装チェック
var (
	_ CredentialStore = (*KeyringStore)(nil)
	_ CredentialStore = (*MemoryStore)(nil)
)
