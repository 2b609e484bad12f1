package secrets

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/99designs/keyring"
)

// serviceName is the service identifier used for all drover credentials.
const serviceName = "drover"

// Config controls where secrets are stored.
type Config struct {
	// FileDir is the directory for the encrypted-file fallback backend,
	// used when no system keyring is available.
	FileDir string

	// FilePassword unlocks the file backend. Defaults to an interactive
	// terminal prompt.
	FilePassword keyring.PromptFunc

	// Backends restricts the keyring backends considered. Empty means every
	// backend available on the platform, with the file backend as the last
	// resort.
	Backends []keyring.BackendType
}

type keyringStore struct {
	ring keyring.Keyring
}

// NewStore opens the system keyring for drover credentials.
func NewStore(cfg Config) (*keyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      serviceName,
		AllowedBackends:  cfg.Backends,
		FileDir:          cfg.FileDir,
		FilePasswordFunc: cfg.FilePassword,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return &keyringStore{ring: ring}, nil
}

func (s *keyringStore) Set(key, secret string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Label: "drover - " + key,
		Data:  []byte(secret),
	})
	if err != nil {
		return fmt.Errorf("store secret %s: %w", key, err)
	}
	return nil
}

func (s *keyringStore) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", key, err)
	}
	return string(item.Data), nil
}

func (s *keyringStore) Delete(key string) error {
	err := s.ring.Remove(key)
	// The file backend reports a missing item as a plain file error rather
	// than ErrKeyNotFound.
	if errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete secret %s: %w", key, err)
	}
	return nil
}

func (s *keyringStore) Keys() ([]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}
