package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	errs "streamnet/pkg/errors"
	"streamnet/pkg/logger"
	"streamnet/pkg/netmon"
)

// ConnectivityChecker reports the current connection state.
// *netmon.Monitor satisfies this.
type ConnectivityChecker interface {
	Current() netmon.ConnectionState
}

// ResponseEnvelope is the outcome of one successful attempt. It is
// consumed immediately by the caller and not retained.
type ResponseEnvelope struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Executor performs one attempt of a network call and classifies the
// outcome. It never mutates the cache; storing successful payloads is
// the caller's job.
type Executor struct {
	httpClient   *http.Client
	connectivity ConnectivityChecker
	userAgent    string
	logger       logger.Logger
}

// NewExecutor creates a request executor. A nil client gets a default
// with a 30 second timeout.
func NewExecutor(client *http.Client, connectivity ConnectivityChecker, userAgent string, log logger.Logger) *Executor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Executor{
		httpClient:   client,
		connectivity: connectivity,
		userAgent:    userAgent,
		logger:       log,
	}
}

// Execute performs one request/response cycle. Callers are expected to
// check connectivity first; the executor re-checks to close the race
// between check and call and fails fast with no_connection.
func (e *Executor) Execute(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
	if e.connectivity != nil && !e.connectivity.Current().IsConnected {
		e.logger.DebugWithFields("skipping request, no connection", map[string]interface{}{
			"method": env.Method,
			"url":    env.URL,
		})
		return nil, errs.NoConnection()
	}

	var bodyReader io.Reader
	if len(env.Body) > 0 {
		bodyReader = bytes.NewReader(env.Body)
	}

	req, err := http.NewRequestWithContext(ctx, env.Method, env.URL, bodyReader)
	if err != nil {
		return nil, errs.InvalidEndpoint(err.Error())
	}
	for key, values := range env.Headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	start := time.Now()
	e.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": env.Method,
		"url":    env.URL,
	})

	resp, err := e.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   env.Method,
			"url":      env.URL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Transport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.InvalidResponse("failed to read response body: " + err.Error())
	}

	e.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   env.Method,
		"url":      env.URL,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.HTTPError(resp.StatusCode)
	}

	// A success response that asked for JSON must at least be valid
	// JSON; anything else cannot parse into the expected shape and a
	// retry would produce the same malformed payload.
	if wantsJSON(env.Headers) && len(body) > 0 && !gjson.ValidBytes(body) {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		e.logger.ErrorWithFields("response body is not valid JSON", map[string]interface{}{
			"url":          env.URL,
			"status":       resp.StatusCode,
			"body_preview": preview,
		})
		return nil, errs.Decoding(errInvalidJSON, resp.StatusCode)
	}

	return &ResponseEnvelope{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}

var errInvalidJSON = errors.New("body is not valid JSON")

func wantsJSON(headers http.Header) bool {
	return strings.Contains(headers.Get("Accept"), "application/json")
}

// DecodeJSON parses a success response body into the expected shape.
// A parse failure classifies as a decoding error, which is never
// retried.
func DecodeJSON[T any](env *ResponseEnvelope) (T, error) {
	var out T
	if err := json.Unmarshal(env.Body, &out); err != nil {
		return out, errs.Decoding(err, env.StatusCode)
	}
	return out, nil
}
