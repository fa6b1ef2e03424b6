package api

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	errs "streamnet/pkg/errors"
)

// TokenSource supplies the bearer token for authenticated endpoints
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource backed by a fixed string
type StaticToken string

func (s StaticToken) Token() (string, error) { return string(s), nil }

// RequestEnvelope is a fully-formed request, built once per call. It is
// not reused across retries; each attempt re-derives its http.Request.
type RequestEnvelope struct {
	URL     string
	Method  string
	Headers http.Header
	Body    []byte
}

// Builder translates endpoint descriptors and call-time parameters into
// request envelopes. It is a pure translator with no observable side
// effects and is safe for concurrent use.
type Builder struct {
	baseURL  string
	clientID string
	tokens   TokenSource
}

// NewBuilder creates a request builder. When clientID is empty a random
// identifier is generated once for the builder's lifetime.
func NewBuilder(baseURL, clientID string, tokens TokenSource) *Builder {
	if clientID == "" {
		clientID = uuid.NewString()
	}
	return &Builder{
		baseURL:  baseURL,
		clientID: clientID,
		tokens:   tokens,
	}
}

// ClientID returns the client identifier sent with every request
func (b *Builder) ClientID() string {
	return b.clientID
}

// Build creates a request envelope for the given endpoint. It fails
// with an invalid_endpoint error only when the base address and the
// descriptor path cannot be combined into a well-formed URL.
func (b *Builder) Build(ep EndpointDescriptor, params url.Values, body []byte) (*RequestEnvelope, error) {
	base, err := url.Parse(b.baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errs.InvalidEndpoint(fmt.Sprintf("base address %q is not a valid URL", b.baseURL))
	}

	full := base.JoinPath(ep.Path)
	if len(params) > 0 {
		full.RawQuery = params.Encode()
	}

	headers := make(http.Header)
	headers.Set("Accept", "application/json")
	headers.Set("X-Client-ID", b.clientID)
	if len(body) > 0 {
		headers.Set("Content-Type", "application/json")
	}

	if ep.RequiresAuth {
		if b.tokens == nil {
			return nil, errs.InvalidEndpoint(fmt.Sprintf("endpoint %s requires auth but no token source is configured", ep.Name))
		}
		token, err := b.tokens.Token()
		if err != nil {
			return nil, err
		}
		headers.Set("Authorization", "Bearer "+token)
	}

	return &RequestEnvelope{
		URL:     full.String(),
		Method:  ep.Method,
		Headers: headers,
		Body:    body,
	}, nil
}
