package auth

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := &Account{
		Username:     "testuser",
		SessionID:    "test_session_id_12345",
		CSRFToken:    "test_csrf_token_67890",
		UserAgent:    "TestAgent/1.0",
		LastModified: time.Now(),
	}

	err := manager.Store(account)
	if err != nil {
		t.Errorf("Failed to store account: %v", err)
	}

	retrieved, err := manager.Retrieve("testuser")
	if err != nil {
		t.Errorf("Failed to retrieve account: %v", err)
	}

	if retrieved.Username != account.Username {
		t.Errorf("Username mismatch: got %s, want %s", retrieved.Username, account.Username)
	}
	if retrieved.SessionID != account.SessionID {
		t.Errorf("SessionID mismatch: got %s, want %s", retrieved.SessionID, account.SessionID)
	}
	if retrieved.CSRFToken != account.CSRFToken {
		t.Errorf("CSRFToken mismatch: got %s, want %s", retrieved.CSRFToken, account.CSRFToken)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list accounts: %v", err)
	}
	if len(accounts) == 0 {
		t.Error("Expected at least one account in list")
	}

	err = manager.Delete("testuser")
	if err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}

	_, err = manager.Retrieve("testuser")
	if err == nil {
		t.Error("Expected error retrieving deleted account")
	}

	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 accounts after deletion, got %d", mockStore.Count())
	}
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	tests := []struct {
		name    string
		account *Account
	}{
		{"missing username", &Account{SessionID: "sid", CSRFToken: "csrf"}},
		{"missing session ID", &Account{Username: "user", CSRFToken: "csrf"}},
		{"missing CSRF token", &Account{Username: "user", SessionID: "sid"}},
	}

	for _, tt := range tests {
		if err := manager.Store(tt.account); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestManagerFallsBackAcrossStores(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = fmt.Errorf("keychain locked")
	broken.RetrieveError = fmt.Errorf("keychain locked")

	working := NewMockStore()
	manager := NewMockManagerWithStores(broken, working)

	account := &Account{
		Username:  "fallback_user",
		SessionID: "fallback_session",
		CSRFToken: "fallback_csrf",
	}

	if err := manager.Store(account); err != nil {
		t.Fatalf("Store should fall through to the working store: %v", err)
	}
	if working.Count() != 1 {
		t.Errorf("Expected the working store to hold the account, got %d", working.Count())
	}

	retrieved, err := manager.Retrieve("fallback_user")
	if err != nil {
		t.Fatalf("Retrieve should fall through to the working store: %v", err)
	}
	if retrieved.SessionID != account.SessionID {
		t.Errorf("SessionID mismatch: got %s, want %s", retrieved.SessionID, account.SessionID)
	}
}

func TestManagerListMergesByLastModified(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()

	base := time.Now()
	older.Store(&Account{
		Username:     "shared",
		SessionID:    "stale_session",
		CSRFToken:    "stale_csrf",
		LastModified: base.Add(-time.Hour),
	})
	newer.Store(&Account{
		Username:     "shared",
		SessionID:    "fresh_session",
		CSRFToken:    "fresh_csrf",
		LastModified: base,
	})

	manager := NewMockManagerWithStores(older, newer)

	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("Expected 1 merged account, got %d", len(accounts))
	}
	if accounts[0].SessionID != "fresh_session" {
		t.Errorf("Expected the most recently modified version, got %s", accounts[0].SessionID)
	}
}

func TestSanitizeAccount(t *testing.T) {
	account := &Account{
		Username:  "visible_user",
		SessionID: "very_long_session_identifier",
		CSRFToken: "short",
	}

	sanitized := SanitizeAccount(account)
	if sanitized.Username != account.Username {
		t.Error("Username should not be masked")
	}
	if sanitized.SessionID == account.SessionID {
		t.Error("SessionID should be masked")
	}
	if sanitized.SessionID != "very...fier" {
		t.Errorf("Unexpected mask: %s", sanitized.SessionID)
	}
	if sanitized.CSRFToken != "********" {
		t.Errorf("Short values should be fully masked, got %s", sanitized.CSRFToken)
	}

	if SanitizeAccount(nil) != nil {
		t.Error("Sanitizing nil should return nil")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "test_creds.enc")

	t.Setenv("IGFOLLOWERS_PASSPHRASE", "test_passphrase_123")

	store, err := NewEncryptedFileStore(tempFile)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	account := &Account{
		Username:  "encrypted_user",
		SessionID: "encrypted_session",
		CSRFToken: "encrypted_csrf",
	}

	err = store.Store(account)
	if err != nil {
		t.Errorf("Failed to store in encrypted file: %v", err)
	}

	retrieved, err := store.Retrieve("encrypted_user")
	if err != nil {
		t.Errorf("Failed to retrieve from encrypted file: %v", err)
	}

	if retrieved.SessionID != account.SessionID {
		t.Errorf("SessionID mismatch after encryption/decryption")
	}

	// The file on disk must never hold plaintext credentials.
	fileContent, err := os.ReadFile(tempFile)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(fileContent, []byte("encrypted_session")) {
		t.Error("File contains plaintext session ID")
	}
	if bytes.Contains(fileContent, []byte("encrypted_csrf")) {
		t.Error("File contains plaintext CSRF token")
	}

	// Deleting the last account removes the file entirely.
	if err := store.Delete("encrypted_user"); err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}
	if _, err := os.Stat(tempFile); !os.IsNotExist(err) {
		t.Error("Expected credentials file to be removed after last delete")
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("IGFOLLOWERS_SESSION_ID", "env_session")
	t.Setenv("IGFOLLOWERS_CSRF_TOKEN", "env_csrf")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	if err != nil {
		t.Errorf("Failed to retrieve from environment: %v", err)
	}

	if account.SessionID != "env_session" {
		t.Errorf("SessionID mismatch: got %s, want env_session", account.SessionID)
	}
	if account.CSRFToken != "env_csrf" {
		t.Errorf("CSRFToken mismatch: got %s, want env_csrf", account.CSRFToken)
	}

	err = store.Store(&Account{})
	if err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv("IGFOLLOWERS_SESSION_ID", "env_session")
	t.Setenv("IGFOLLOWERS_CSRF_TOKEN", "env_csrf")

	stored := NewMockStore()
	stored.Store(&Account{
		Username:  "stored_user",
		SessionID: "stored_session",
		CSRFToken: "stored_csrf",
	})

	manager := NewMockManagerWithStores(stored, NewEnvironmentStore())

	account, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatalf("Failed to retrieve default account: %v", err)
	}
	if account.SessionID != "env_session" {
		t.Errorf("Environment credentials should win: got %s", account.SessionID)
	}
}

func TestRealManagerWithEncryptedStore(t *testing.T) {
	tempDir := t.TempDir()

	t.Setenv("IGFOLLOWERS_PASSPHRASE", "test_passphrase_real_manager")

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(tempDir, "credentials.enc"))
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	manager := NewMockManagerWithStores(encryptedStore)

	account := &Account{
		Username:     "realuser",
		SessionID:    "real_session_id",
		CSRFToken:    "real_csrf_token",
		UserAgent:    "RealAgent/1.0",
		LastModified: time.Now(),
	}

	err = manager.Store(account)
	if err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Expected 1 account in list, got %d", len(accounts))
	}

	retrieved, err := manager.Retrieve("realuser")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}

	if retrieved.Username != account.Username {
		t.Errorf("Username mismatch: got %s, want %s", retrieved.Username, account.Username)
	}
	if retrieved.SessionID != account.SessionID {
		t.Errorf("SessionID mismatch: got %s, want %s", retrieved.SessionID, account.SessionID)
	}
}

func TestMockStore(t *testing.T) {
	store := NewMockStore()

	accounts, err := store.List()
	if err != nil {
		t.Errorf("Failed to list empty store: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("Expected 0 accounts, got %d", len(accounts))
	}

	account := &Account{
		Username:  "mockuser",
		SessionID: "mock_session",
		CSRFToken: "mock_csrf",
	}

	err = store.Store(account)
	if err != nil {
		t.Errorf("Failed to store account: %v", err)
	}

	if store.Count() != 1 {
		t.Errorf("Expected 1 account, got %d", store.Count())
	}

	if !store.Exists("mockuser") {
		t.Error("Account should exist")
	}

	store.ListError = fmt.Errorf("injected error")
	_, err = store.List()
	if err == nil || err.Error() != "injected error" {
		t.Error("Expected injected error")
	}
}
