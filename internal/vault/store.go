package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/quaynav/quay/internal/model"
)

// CredentialStore persists the single remote-store credential on disk, with
// the password field sealed by the vault. URL and username stay in clear text
// so operators can inspect the file.
type CredentialStore struct {
	path  string
	vault *Vault
	mu    sync.Mutex
}

func NewCredentialStore(path string, v *Vault) *CredentialStore {
	return &CredentialStore{path: path, vault: v}
}

// Save encrypts the password and writes the credential file atomically
func (s *CredentialStore) Save(cred model.RemoteCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := s.vault.Encrypt(cred.Password)
	if err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}

	enc := model.EncryptedCredential{
		URL:      cred.URL,
		Username: cred.Username,
		Password: sealed,
	}
	data, err := json.MarshalIndent(enc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace credential: %w", err)
	}
	return nil
}

// Load returns the decrypted credential, or (nil, nil) when none is
// configured. A decryption failure is returned as-is so callers can
// distinguish vault corruption from the unconfigured steady state.
func (s *CredentialStore) Load() (*model.RemoteCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}

	var enc model.EncryptedCredential
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("parse credential: %w", err)
	}

	password, err := s.vault.Decrypt(enc.Password)
	if err != nil {
		return nil, err
	}
	return &model.RemoteCredential{
		URL:      enc.URL,
		Username: enc.Username,
		Password: password,
	}, nil
}

// Redacted returns the credential with the password blanked, for display.
// Returns (nil, nil) when none is configured.
func (s *CredentialStore) Redacted() (*model.RemoteCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}

	var enc model.EncryptedCredential
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("parse credential: %w", err)
	}
	return &model.RemoteCredential{URL: enc.URL, Username: enc.Username}, nil
}

// Clear removes the stored credential
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
