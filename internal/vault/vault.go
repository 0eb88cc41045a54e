package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"

	"github.com/quaynav/quay/internal/model"
)

// ErrDecrypt is returned when a stored secret cannot be decrypted, either
// because the vault secret changed or the ciphertext was tampered with.
// Callers must not confuse this with "no credential configured".
var ErrDecrypt = errors.New("credential decryption failed")

// kdfSalt is fixed: the vault protects a single local file, not per-user
// secrets, so a per-secret salt buys nothing here.
const kdfSalt = "quay-remote-credential-salt"

// Vault encrypts and decrypts remote-store secrets with a key derived
// from the configured secret.
type Vault struct {
	key []byte
}

// New derives the encryption key from secret. An empty secret still yields
// a working vault, matching the "default secret, please change" behavior
// of a fresh install.
func New(secret string) (*Vault, error) {
	if secret == "" {
		secret = "quay-default-secret-change-me"
	}
	key, err := scrypt.Key([]byte(secret), []byte(kdfSalt), 32768, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}
	return &Vault{key: key}, nil
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random nonce
func (v *Vault) Encrypt(plaintext string) (model.EncryptedSecret, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return model.EncryptedSecret{}, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return model.EncryptedSecret{}, fmt.Errorf("init gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return model.EncryptedSecret{}, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return model.EncryptedSecret{
		Ciphertext: hex.EncodeToString(sealed),
		Nonce:      hex.EncodeToString(nonce),
	}, nil
}

// Decrypt opens a sealed secret. Any authentication or decoding failure is
// reported as ErrDecrypt.
func (v *Vault) Decrypt(s model.EncryptedSecret) (string, error) {
	sealed, err := hex.DecodeString(s.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", ErrDecrypt)
	}
	nonce, err := hex.DecodeString(s.Nonce)
	if err != nil {
		return "", fmt.Errorf("%w: bad nonce encoding", ErrDecrypt)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("init gcm: %w", err)
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("%w: bad nonce length", ErrDecrypt)
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plaintext), nil
}
