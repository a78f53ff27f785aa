package client

import (
	"errors"
	"testing"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Get(credentialKeyToken); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("expected ErrCredentialNotFound, got %v", err)
	}

	if err := store.Set(credentialKeyToken, "value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(credentialKeyToken)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "value" {
		t.Errorf("expected value, got %s", got)
	}

	if err := store.Delete(credentialKeyToken); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(credentialKeyToken); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("expected ErrCredentialNotFound after delete, got %v", err)
	}

	// 存在しないキーの削除はエラーにしない
	if err := store.Delete("missing"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}
