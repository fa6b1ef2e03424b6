// Package auth stores and retrieves the API bearer token, with a
// fallback chain across storage backends: system keychain, encrypted
// file, environment.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrNoToken indicates no token is stored in any backend
	ErrNoToken = errors.New("auth: no token stored")

	// ErrInvalidToken indicates the supplied token is empty or malformed
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Credentials holds the API bearer token
type Credentials struct {
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenStore is the interface for storing and retrieving the bearer token
type TokenStore interface {
	// Store saves the credentials
	Store(creds *Credentials) error

	// Retrieve gets the stored credentials
	Retrieve() (*Credentials, error)

	// Delete removes the stored credentials
	Delete() error

	// Exists checks whether credentials are stored
	Exists() bool
}

// Manager handles token storage with fallback across backends
type Manager struct {
	stores []TokenStore
}

// NewManager creates a token manager with the default backend chain:
// system keychain when available, then an encrypted file, then the
// environment as a read-only last resort.
func NewManager() (*Manager, error) {
	var stores []TokenStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "token.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over an explicit backend chain
func NewManagerWithStores(stores ...TokenStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the token using the first backend that accepts it
func (m *Manager) Store(creds *Credentials) error {
	if creds == nil || creds.Token == "" {
		return ErrInvalidToken
	}
	creds.UpdatedAt = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(creds); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("all token stores failed: %w", lastErr)
	}
	return errors.New("no token store available")
}

// Retrieve gets the token from the first backend that has it
func (m *Manager) Retrieve() (*Credentials, error) {
	for _, store := range m.stores {
		creds, err := store.Retrieve()
		if err == nil && creds != nil && creds.Token != "" {
			return creds, nil
		}
	}
	return nil, ErrNoToken
}

// Delete removes the token from every backend
func (m *Manager) Delete() error {
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(); err != nil && !errors.Is(err, ErrNoToken) {
			lastErr = err
		}
	}
	return lastErr
}

// Token returns the bearer token string. It satisfies the request
// builder's TokenSource interface.
func (m *Manager) Token() (string, error) {
	creds, err := m.Retrieve()
	if err != nil {
		return "", err
	}
	return creds.Token, nil
}

func getConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "streamnet")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
