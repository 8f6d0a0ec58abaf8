package securestore

import (
	"testing"

	"solaudit/internal/config"
)

func TestSealAndOpen(t *testing.T) {
	store, err := New(&config.SecureStoreConfig{Secret: "test-encryption-secret"})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	plaintext := "AIzaSy-example-api-key"
	sealed, err := store.Seal(plaintext)
	if err != nil {
		t.Fatalf("Failed to seal: %v", err)
	}

	if sealed == plaintext {
		t.Error("Sealed value should not equal plaintext")
	}

	opened, err := store.Open(sealed)
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	if opened != plaintext {
		t.Errorf("Expected %q, got %q", plaintext, opened)
	}
}

func TestOpenWithWrongSecret(t *testing.T) {
	storeA, err := New(&config.SecureStoreConfig{Secret: "secret-a"})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	storeB, err := New(&config.SecureStoreConfig{Secret: "secret-b"})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	sealed, err := storeA.Seal("value")
	if err != nil {
		t.Fatalf("Failed to seal: %v", err)
	}

	if _, err := storeB.Open(sealed); err == nil {
		t.Error("Opening with a different secret should fail")
	}
}

func TestOpenGarbage(t *testing.T) {
	store, err := New(&config.SecureStoreConfig{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	for _, input := range []string{"", "not-base64!!!", "YWJj"} {
		if _, err := store.Open(input); err == nil {
			t.Errorf("Open(%q) should fail", input)
		}
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New(&config.SecureStoreConfig{}); err == nil {
		t.Error("New should fail without a secret")
	}
}
