package api

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "streamnet/pkg/errors"
)

func TestBuildSetsFixedHeaders(t *testing.T) {
	b := NewBuilder("https://api.example.com", "client-123", StaticToken("tok-abc"))

	env, err := b.Build(EndpointContent, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/api/v1/content", env.URL)
	assert.Equal(t, http.MethodGet, env.Method)
	assert.Equal(t, "Bearer tok-abc", env.Headers.Get("Authorization"))
	assert.Equal(t, "application/json", env.Headers.Get("Accept"))
	assert.Equal(t, "client-123", env.Headers.Get("X-Client-ID"))
	assert.Empty(t, env.Headers.Get("Content-Type"))
	assert.Nil(t, env.Body)
}

func TestBuildWithBodyAndParams(t *testing.T) {
	b := NewBuilder("https://api.example.com", "client-123", StaticToken("tok"))

	params := url.Values{}
	params.Set("category", "nature")
	params.Set("page", "2")
	body := []byte(`{"events":[]}`)

	env, err := b.Build(EndpointAnalytics, params, body)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/api/v1/analytics?category=nature&page=2", env.URL)
	assert.Equal(t, http.MethodPost, env.Method)
	assert.Equal(t, "application/json", env.Headers.Get("Content-Type"))
	assert.Equal(t, body, env.Body)
}

func TestBuildInvalidBaseURL(t *testing.T) {
	tests := []string{"", "not a url", "relative/path", "://missing-scheme"}

	for _, base := range tests {
		t.Run(base, func(t *testing.T) {
			b := NewBuilder(base, "client", StaticToken("tok"))
			_, err := b.Build(EndpointContent, nil, nil)

			var apiErr *errs.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, errs.ErrorTypeInvalidEndpoint, apiErr.Type)
		})
	}
}

func TestBuildGeneratesClientID(t *testing.T) {
	b := NewBuilder("https://api.example.com", "", StaticToken("tok"))
	require.NotEmpty(t, b.ClientID())

	env, err := b.Build(EndpointUpdates, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, b.ClientID(), env.Headers.Get("X-Client-ID"))

	// The generated identifier is stable across builds
	env2, err := b.Build(EndpointContent, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, env.Headers.Get("X-Client-ID"), env2.Headers.Get("X-Client-ID"))
}

func TestBuildTokenSourceErrors(t *testing.T) {
	tokenErr := errors.New("keyring locked")
	b := NewBuilder("https://api.example.com", "client", failingTokens{err: tokenErr})

	_, err := b.Build(EndpointSync, nil, nil)
	assert.ErrorIs(t, err, tokenErr)
}

func TestBuildMissingTokenSource(t *testing.T) {
	b := NewBuilder("https://api.example.com", "client", nil)
	_, err := b.Build(EndpointContent, nil, nil)

	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.ErrorTypeInvalidEndpoint, apiErr.Type)
}

func TestEndpointTable(t *testing.T) {
	eps := Endpoints()
	require.Len(t, eps, 4)
	for _, ep := range eps {
		assert.True(t, ep.RequiresAuth, "all endpoints require auth")
		assert.NotEmpty(t, ep.Path)
		assert.NotEmpty(t, ep.Method)
	}
}

type failingTokens struct{ err error }

func (f failingTokens) Token() (string, error) { return "", f.err }
