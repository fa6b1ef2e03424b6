// Package offline switches the application's content source to cached
// data when connectivity is lost.
package offline

import (
	"context"
	"sync"

	"streamnet/pkg/cache"
	"streamnet/pkg/logger"
	"streamnet/pkg/netmon"
)

// Mode is the handler's state
type Mode string

const (
	// Online means content requests go through the network as normal
	Online Mode = "online"
	// Offline means content is served from the response cache
	Offline Mode = "offline"
)

// ConnectivitySource provides the current state and a notification
// stream. *netmon.Monitor satisfies this.
type ConnectivitySource interface {
	Current() netmon.ConnectionState
	Subscribe() <-chan netmon.ConnectionState
}

// ContentCache lists the cached response payloads used while offline
type ContentCache interface {
	List() ([]cache.Entry, error)
}

// Handler is the online/offline state machine. It lives for the
// process lifetime, subscribed to the connectivity monitor; there is no
// terminal state.
type Handler struct {
	connectivity ConnectivitySource
	cache        ContentCache
	logger       logger.Logger

	mu       sync.RWMutex
	mode     Mode
	contents []cache.Entry
}

// NewHandler creates the handler with its initial mode derived from the
// monitor's current state. When constructed offline the cached content
// set is hydrated immediately.
func NewHandler(connectivity ConnectivitySource, contentCache ContentCache, log logger.Logger) *Handler {
	if log == nil {
		log = logger.GetLogger()
	}

	h := &Handler{
		connectivity: connectivity,
		cache:        contentCache,
		logger:       log,
		mode:         Online,
	}
	if !connectivity.Current().IsConnected {
		h.enterOffline()
	}
	return h
}

// Run consumes connectivity notifications until ctx is cancelled or the
// monitor closes the subscription.
func (h *Handler) Run(ctx context.Context) {
	sub := h.connectivity.Subscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case state, ok := <-sub:
				if !ok {
					return
				}
				h.apply(state)
			}
		}
	}()
}

// apply performs at most one transition per notification
func (h *Handler) apply(state netmon.ConnectionState) {
	h.mu.RLock()
	mode := h.mode
	h.mu.RUnlock()

	switch {
	case !state.IsConnected && mode == Online:
		h.enterOffline()
	case state.IsConnected && mode == Offline:
		h.enterOnline()
	}
}

// enterOffline loads all cache entries and exposes them as the active
// content set
func (h *Handler) enterOffline() {
	entries, err := h.cache.List()
	if err != nil {
		h.logger.ErrorWithFields("failed to hydrate offline content", map[string]interface{}{
			"error": err.Error(),
		})
		entries = nil
	}

	h.mu.Lock()
	h.mode = Offline
	h.contents = entries
	h.mu.Unlock()

	h.logger.WarnWithFields("entering offline mode", map[string]interface{}{
		"cached_entries": len(entries),
	})
}

// enterOnline switches back to network-served content. No forced
// refetch happens; the next explicit request goes through the executor
// as normal.
func (h *Handler) enterOnline() {
	h.mu.Lock()
	h.mode = Online
	h.contents = nil
	h.mu.Unlock()

	h.logger.Info("connectivity restored, leaving offline mode")
}

// Mode returns the current state
func (h *Handler) Mode() Mode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mode
}

// Contents returns the cached content set active while offline. It is
// empty when online.
func (h *Handler) Contents() []cache.Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]cache.Entry, len(h.contents))
	copy(out, h.contents)
	return out
}
