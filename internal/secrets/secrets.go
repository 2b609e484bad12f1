// Package secrets stores SSH credentials in the system keyring, with an
// encrypted-file fallback for hosts without one.
package secrets

import "errors"

// ErrNotFound is returned when a secret is not found in the store.
var ErrNotFound = errors.New("secret not found")

// PasswordKey returns the conventional key for a host's SSH password.
func PasswordKey(host string) string { return "password/" + host }

// PassphraseKey returns the conventional key for a host's private key
// passphrase.
func PassphraseKey(host string) string { return "passphrase/" + host }

// Store provides secure credential storage.
//
//go:generate go run github.com/matryer/moq@latest -pkg mocks -out mocks/store.go . Store
type Store interface {
	// Set stores a secret under key.
	Set(key, secret string) error

	// Get retrieves a secret.
	// Returns ErrNotFound if the secret does not exist.
	Get(key string) (string, error)

	// Delete removes a secret.
	// Returns nil if the secret does not exist.
	Delete(key string) error

	// Keys returns all stored secret keys, sorted.
	Keys() ([]string, error)
}
