// Package backup writes encrypted, compressed copies of the local
// state database and prunes old ones.
package backup

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amirk1998/notedeck/internal/security"
	"github.com/amirk1998/notedeck/internal/storage"
	"github.com/amirk1998/notedeck/pkg/errors"
)

type Manager struct {
	store         *storage.SQLiteStore
	backupDir     string
	encryptor     *security.BackupEncryptor
	retentionDays int
}

// NewManager creates a new backup manager
func NewManager(store *storage.SQLiteStore, backupDir string, encryptionKey []byte, retentionDays int) (*Manager, error) {
	encryptor, err := security.NewBackupEncryptor(encryptionKey)
	if err != nil {
		return nil, err
	}

	// Ensure backup directory exists with secure permissions
	if err := os.MkdirAll(backupDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	return &Manager{
		store:         store,
		backupDir:     backupDir,
		encryptor:     encryptor,
		retentionDays: retentionDays,
	}, nil
}

// CreateBackup writes an encrypted gzip backup and returns its path
func (m *Manager) CreateBackup() (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	rawPath := filepath.Join(m.backupDir, fmt.Sprintf("backup_%s.db", timestamp))

	if err := m.store.VacuumInto(rawPath); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrBackupFailed, err)
	}
	defer os.Remove(rawPath)

	encryptedPath := rawPath + ".enc.gz"
	if err := m.encryptAndCompressFile(rawPath, encryptedPath); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrBackupFailed, err)
	}

	return encryptedPath, nil
}

// encryptAndCompressFile gzips the source then seals it
func (m *Manager) encryptAndCompressFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read backup source: %w", err)
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(data); err != nil {
		return fmt.Errorf("failed to compress backup: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finalize compression: %w", err)
	}

	sealed, err := m.encryptor.EncryptBytes(compressed.Bytes())
	if err != nil {
		return fmt.Errorf("failed to encrypt backup: %w", err)
	}

	if err := os.WriteFile(dst, sealed, 0600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// Restore decrypts a backup into dstPath
func (m *Manager) Restore(backupPath, dstPath string) error {
	sealed, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRestoreFailed, err)
	}

	compressed, err := m.encryptor.DecryptBytes(sealed)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRestoreFailed, err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRestoreFailed, err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRestoreFailed, err)
	}

	if err := os.WriteFile(dstPath, data, 0600); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRestoreFailed, err)
	}
	return nil
}

// CleanupOldBackups removes backups past the retention window
func (m *Manager) CleanupOldBackups() error {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		return fmt.Errorf("failed to read backup directory: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -m.retentionDays)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".enc.gz") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(m.backupDir, entry.Name()))
		}
	}
	return nil
}
