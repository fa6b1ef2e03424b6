package auth

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerStoreAndRetrieve(t *testing.T) {
	m := NewManagerWithStores(NewMockStore())

	require.NoError(t, m.Store(&Credentials{Token: "tok-123"}))

	creds, err := m.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", creds.Token)
	assert.False(t, creds.UpdatedAt.IsZero())

	token, err := m.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestManagerRejectsEmptyToken(t *testing.T) {
	m := NewManagerWithStores(NewMockStore())

	assert.ErrorIs(t, m.Store(nil), ErrInvalidToken)
	assert.ErrorIs(t, m.Store(&Credentials{}), ErrInvalidToken)
}

func TestManagerFallbackChain(t *testing.T) {
	broken := NewMockStore()
	broken.Fail = errors.New("backend down")
	working := NewMockStore()

	m := NewManagerWithStores(broken, working)
	require.NoError(t, m.Store(&Credentials{Token: "tok-fallback"}))

	creds, err := working.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "tok-fallback", creds.Token)
}

func TestManagerNoToken(t *testing.T) {
	m := NewManagerWithStores(NewMockStore())

	_, err := m.Retrieve()
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = m.Token()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestManagerDelete(t *testing.T) {
	first := NewMockStore()
	second := NewMockStore()
	m := NewManagerWithStores(first, second)

	require.NoError(t, first.Store(&Credentials{Token: "a"}))
	require.NoError(t, second.Store(&Credentials{Token: "b"}))

	require.NoError(t, m.Delete())
	assert.False(t, first.Exists())
	assert.False(t, second.Exists())
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	_, err := store.Retrieve()
	assert.ErrorIs(t, err, ErrNoToken)
	assert.False(t, store.Exists())

	t.Setenv(tokenEnvVar, "env-token")
	creds, err := store.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "env-token", creds.Token)
	assert.True(t, store.Exists())

	assert.Error(t, store.Store(&Credentials{Token: "x"}))
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv(passphraseEnvVar, "test-passphrase")
	path := filepath.Join(t.TempDir(), "token.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credentials{Token: "secret-token"}))
	assert.True(t, store.Exists())

	creds, err := store.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "secret-token", creds.Token)

	// A second instance with the same passphrase can decrypt
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	creds, err = reopened.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "secret-token", creds.Token)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.enc")

	t.Setenv(passphraseEnvVar, "correct horse")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credentials{Token: "secret"}))

	t.Setenv(passphraseEnvVar, "battery staple")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve()
	assert.Error(t, err)
}

func TestEncryptedFileStoreMissingFile(t *testing.T) {
	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "token.enc"))
	require.NoError(t, err)

	_, err = store.Retrieve()
	assert.ErrorIs(t, err, ErrNoToken)
	assert.ErrorIs(t, store.Delete(), ErrNoToken)
	assert.False(t, store.Exists())
}
