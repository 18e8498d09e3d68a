package storage

import (
	"encoding/json"
	"fmt"

	"github.com/amirk1998/notedeck/pkg/errors"
)

// Store is the durable local key-value store backing client state:
// credentials, preferences, session history, drafts. It is the
// browser-storage equivalent; implementations must be safe for
// concurrent use and must never make network calls.
type Store interface {
	// Get returns the raw value and whether the key exists.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	// SetMany writes all pairs atomically; either every key is
	// written or none are.
	SetMany(pairs map[string][]byte) error
	Delete(key string) error
	Keys() ([]string, error)
	Close() error
}

// GetJSON reads a key and unmarshals it into v. A value that exists
// but cannot be decoded is reported as corrupted.
func GetJSON(s Store, key string, v any) (bool, error) {
	data, ok, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("key %q: %w", key, errors.ErrStorageCorrupted)
	}
	return true, nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %q: %w", key, err)
	}
	return s.Set(key, data)
}
