package auth

import (
	"errors"
	"os"
	"time"
)

// tokenEnvVar is the environment variable holding the API token
const tokenEnvVar = "STREAMNET_API_TOKEN"

// EnvironmentStore implements TokenStore using an environment variable.
// It is read-only and serves as the last-resort backend.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed token store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (s *EnvironmentStore) Store(creds *Credentials) error {
	return errors.New("environment store is read-only")
}

// Retrieve reads the token from the environment
func (s *EnvironmentStore) Retrieve() (*Credentials, error) {
	token := os.Getenv(tokenEnvVar)
	if token == "" {
		return nil, ErrNoToken
	}
	return &Credentials{Token: token, UpdatedAt: time.Now()}, nil
}

// Delete is not supported for environment variables
func (s *EnvironmentStore) Delete() error {
	return ErrNoToken
}

// Exists checks whether the environment variable is set
func (s *EnvironmentStore) Exists() bool {
	return os.Getenv(tokenEnvVar) != ""
}
