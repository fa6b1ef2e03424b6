package auth

import "sync"

// MockStore is an in-memory TokenStore for testing
type MockStore struct {
	mu    sync.RWMutex
	creds *Credentials

	// Fail forces every mutating call to return this error
	Fail error
}

// NewMockStore creates an empty in-memory token store
func NewMockStore() *MockStore {
	return &MockStore{}
}

// Store saves the credentials in memory
func (m *MockStore) Store(creds *Credentials) error {
	if m.Fail != nil {
		return m.Fail
	}
	if creds == nil || creds.Token == "" {
		return ErrInvalidToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *creds
	m.creds = &copied
	return nil
}

// Retrieve gets the in-memory credentials
func (m *MockStore) Retrieve() (*Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.creds == nil {
		return nil, ErrNoToken
	}
	copied := *m.creds
	return &copied, nil
}

// Delete clears the in-memory credentials
func (m *MockStore) Delete() error {
	if m.Fail != nil {
		return m.Fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return ErrNoToken
	}
	m.creds = nil
	return nil
}

// Exists checks whether credentials are stored
func (m *MockStore) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds != nil
}
