// Package stream is the application-facing entry point of the network
// layer. It wires connectivity monitoring, request building and
// execution, bounded retry, rate limiting and the offline cache
// fallback into one client.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"streamnet/internal/prefetch"
	"streamnet/pkg/api"
	"streamnet/pkg/auth"
	"streamnet/pkg/cache"
	"streamnet/pkg/config"
	errs "streamnet/pkg/errors"
	"streamnet/pkg/logger"
	"streamnet/pkg/models"
	"streamnet/pkg/netmon"
	"streamnet/pkg/offline"
	"streamnet/pkg/ratelimit"
	"streamnet/pkg/retry"
	"streamnet/pkg/syncstate"
)

// defaultPrefetchWorkers bounds cache warm-up concurrency
const defaultPrefetchWorkers = 3

// Client coordinates all components of the network layer. Construct it
// with New and start the background observers with Start.
type Client struct {
	cfg      *config.Config
	logger   logger.Logger
	monitor  *netmon.Monitor
	cache    *cache.Store
	builder  *api.Builder
	executor *api.Executor
	limiter  ratelimit.Limiter
	offline  *offline.Handler
	syncMgr  *syncstate.Manager
	retryCfg *retry.Config
}

// Option customizes client construction, mainly for testing
type Option func(*options)

type options struct {
	httpClient *http.Client
	tokens     api.TokenSource
	prober     netmon.Prober
	logger     logger.Logger
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithTokenSource overrides the bearer token source
func WithTokenSource(tokens api.TokenSource) Option {
	return func(o *options) { o.tokens = tokens }
}

// WithProber overrides the connectivity prober
func WithProber(prober netmon.Prober) Option {
	return func(o *options) { o.prober = prober }
}

// WithLogger overrides the logger
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.logger = log }
}

// New creates a fully wired client from the configuration
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger
	if log == nil {
		var err error
		log, err = logger.New(&cfg.Logging)
		if err != nil {
			return nil, err
		}
	}

	tokens := o.tokens
	if tokens == nil {
		manager, err := auth.NewManager()
		if err != nil {
			return nil, err
		}
		tokens = manager
	}

	prober := o.prober
	if prober == nil {
		prober = netmon.NewSystemProber(cfg.Connectivity.ProbeAddress, cfg.Connectivity.ProbeTimeout)
	}
	monitor := netmon.NewMonitor(prober, cfg.Connectivity.Interval, log)

	store, err := cache.Open(cfg.Cache.Directory, log)
	if err != nil {
		return nil, err
	}

	syncMgr, err := syncstate.NewManager(cfg.Cache.Directory, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.API.Timeout}
	}

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.RateLimit.RequestsPerMinute > 0 {
		limiter = ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute)
	}

	c := &Client{
		cfg:      cfg,
		logger:   log,
		monitor:  monitor,
		cache:    store,
		builder:  api.NewBuilder(cfg.API.BaseURL, cfg.API.ClientID, tokens),
		executor: api.NewExecutor(httpClient, monitor, cfg.API.UserAgent, log),
		limiter:  limiter,
		offline:  offline.NewHandler(monitor, store, log),
		syncMgr:  syncMgr,
		retryCfg: retryConfig(cfg, log),
	}
	return c, nil
}

// retryConfig maps the retry section of the configuration onto a retry
// policy. The delay strategy is pluggable; constant is the default.
func retryConfig(cfg *config.Config, log logger.Logger) *retry.Config {
	var backoff retry.BackoffStrategy
	switch cfg.Retry.Strategy {
	case "exponential":
		backoff = &retry.ExponentialBackoff{
			BaseDelay:  cfg.Retry.Delay,
			MaxDelay:   cfg.Retry.MaxDelay,
			Multiplier: cfg.Retry.Multiplier,
		}
	default:
		backoff = &retry.ConstantBackoff{Delay: cfg.Retry.Delay}
	}

	return &retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff:     backoff,
		RetryIf:     errs.RetryableError,
		Logger:      log,
	}
}

// Start launches the connectivity monitor and the offline handler.
// Both stop when ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	c.monitor.Start(ctx)
	c.offline.Run(ctx)
}

// Close releases the response cache
func (c *Client) Close() error {
	return c.cache.Close()
}

// Monitor exposes the connectivity monitor
func (c *Client) Monitor() *netmon.Monitor { return c.monitor }

// Cache exposes the response cache
func (c *Client) Cache() *cache.Store { return c.cache }

// OfflineMode returns the offline handler's current state
func (c *Client) OfflineMode() offline.Mode { return c.offline.Mode() }

// send performs one logical call with rate limiting and bounded retry.
// The request envelope is re-derived on every attempt.
func (c *Client) send(ctx context.Context, ep api.EndpointDescriptor, params map[string]string, body []byte) (*api.ResponseEnvelope, error) {
	op := func() (*api.ResponseEnvelope, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		env, err := c.builder.Build(ep, toValues(params), body)
		if err != nil {
			return nil, err
		}
		return c.executor.Execute(ctx, env)
	}
	return retry.DoWithResult(ctx, op, c.retryCfg)
}

// FetchRaw retrieves one endpoint's payload. It satisfies the prefetch
// pool's Fetcher interface.
func (c *Client) FetchRaw(ctx context.Context, ep api.EndpointDescriptor, params map[string]string) ([]byte, error) {
	resp, err := c.send(ctx, ep, params, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// FetchContent retrieves the content catalog. Successful payloads are
// cached; when the network fails the cached copy for the same key is
// served instead, so the user sees content rather than a raw error.
func (c *Client) FetchContent(ctx context.Context, params map[string]string) ([]models.ContentItem, error) {
	key := cache.Key(api.EndpointContent.Name, params)

	resp, err := c.send(ctx, api.EndpointContent, params, nil)
	if err != nil {
		return c.contentFromCache(key, err)
	}

	list, err := api.DecodeJSON[models.ContentList](resp)
	if err != nil {
		return nil, err
	}

	// A cache write failure must not fail the request
	if cerr := c.cache.Put(key, resp.Body); cerr != nil {
		c.logger.WarnWithFields("failed to cache content payload", map[string]interface{}{
			"key":   key,
			"error": cerr.Error(),
		})
	}

	return list.Items, nil
}

// contentFromCache serves the cached payload for key, or reports the
// original network error when nothing is cached.
func (c *Client) contentFromCache(key string, cause error) ([]models.ContentItem, error) {
	entry, err := c.cache.Get(key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			c.logger.ErrorWithFields("cache lookup failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return nil, cause
	}

	var list models.ContentList
	if err := json.Unmarshal(entry.Payload, &list); err != nil {
		return nil, cause
	}

	c.logger.InfoWithFields("serving content from cache", map[string]interface{}{
		"key":       key,
		"items":     len(list.Items),
		"stored_at": entry.StoredAt,
	})
	return list.Items, nil
}

// SubmitAnalytics uploads a batch of usage events
func (c *Client) SubmitAnalytics(ctx context.Context, batch *models.AnalyticsBatch) error {
	if batch.SentAt.IsZero() {
		batch.SentAt = time.Now()
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return err
	}

	_, err = c.send(ctx, api.EndpointAnalytics, nil, body)
	return err
}

// Sync uploads a user-data snapshot and persists the returned cursor.
// An empty snapshot cursor resumes from the last persisted one.
func (c *Client) Sync(ctx context.Context, snapshot *models.SyncSnapshot) (*models.SyncResult, error) {
	if snapshot.Cursor == "" {
		if prev, err := c.syncMgr.Load(); err == nil && prev != nil {
			snapshot.Cursor = prev.Cursor
		}
	}
	if snapshot.CapturedAt.IsZero() {
		snapshot.CapturedAt = time.Now()
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, api.EndpointSync, nil, body)
	if err != nil {
		return nil, err
	}

	result, err := api.DecodeJSON[models.SyncResult](resp)
	if err != nil {
		return nil, err
	}

	if serr := c.syncMgr.Save(&syncstate.State{Cursor: result.Cursor, Synced: result.Accepted}); serr != nil {
		c.logger.WarnWithFields("failed to persist sync state", map[string]interface{}{
			"error": serr.Error(),
		})
	}
	return &result, nil
}

// CheckUpdates queries for application updates. The payload is cached
// so the last known update info is available offline.
func (c *Client) CheckUpdates(ctx context.Context) (*models.UpdateInfo, error) {
	key := cache.Key(api.EndpointUpdates.Name, nil)

	resp, err := c.send(ctx, api.EndpointUpdates, nil, nil)
	if err != nil {
		return nil, err
	}

	info, err := api.DecodeJSON[models.UpdateInfo](resp)
	if err != nil {
		return nil, err
	}

	if cerr := c.cache.Put(key, resp.Body); cerr != nil {
		c.logger.WarnWithFields("failed to cache update payload", map[string]interface{}{
			"error": cerr.Error(),
		})
	}
	return &info, nil
}

// OfflineContents decodes the offline handler's active content set.
// It is empty while online.
func (c *Client) OfflineContents() []models.ContentItem {
	var items []models.ContentItem
	for _, entry := range c.offline.Contents() {
		var list models.ContentList
		if err := json.Unmarshal(entry.Payload, &list); err != nil {
			continue
		}
		items = append(items, list.Items...)
	}
	return items
}

// WarmCache prefetches the given endpoints concurrently so their
// payloads are available offline. It blocks until all jobs finish.
func (c *Client) WarmCache(ctx context.Context, jobs []prefetch.Job) []prefetch.Result {
	pool := prefetch.NewPool(defaultPrefetchWorkers, c, c.cache, c.logger)
	pool.Start(ctx)

	go func() {
		for _, job := range jobs {
			if err := pool.Submit(ctx, job); err != nil {
				break
			}
		}
		pool.Stop()
	}()

	results := make([]prefetch.Result, 0, len(jobs))
	for result := range pool.Results() {
		results = append(results, result)
	}
	return results
}

func toValues(params map[string]string) url.Values {
	if len(params) == 0 {
		return nil
	}
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return values
}
