package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

const (
	// Argon2id parameters (OWASP recommendations)
	argon2Time      = 3
	argon2Memory    = 64 * 1024 // 64 MB
	argon2Threads   = 2
	argon2KeyLength = 32
	saltLength      = 16
)

// KeyManager derives the local storage and backup encryption keys from
// the configured passphrase. The salt lives in a plain file next to
// the database so the same key can be derived on the next start.
type KeyManager struct {
	storageKey []byte
	backupKey  []byte
}

// NewKeyManager loads or creates the salt file and derives both keys
func NewKeyManager(storagePassphrase, backupPassphrase, saltPath string) (*KeyManager, error) {
	salt, err := loadOrCreateSalt(saltPath)
	if err != nil {
		return nil, err
	}

	return &KeyManager{
		storageKey: deriveKey(storagePassphrase, salt),
		backupKey:  deriveKey(backupPassphrase, salt),
	}, nil
}

// StorageKey returns the hex-encoded key for the SQLCipher pragma
func (km *KeyManager) StorageKey() string {
	return hex.EncodeToString(km.storageKey)
}

// BackupKey returns the raw backup encryption key
func (km *KeyManager) BackupKey() []byte {
	return km.backupKey
}

// deriveKey derives a 32-byte key using Argon2id
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLength)
}

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil && len(salt) == saltLength {
		return salt, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create salt directory: %w", err)
	}

	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	if err := os.WriteFile(path, salt, 0600); err != nil {
		return nil, fmt.Errorf("failed to write salt file: %w", err)
	}

	return salt, nil
}
