// Package netmon observes the device's network path and publishes
// connection state changes to subscribers.
package netmon

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"streamnet/pkg/logger"
)

// ConnectionType identifies the active network interface class
type ConnectionType string

const (
	ConnectionWiFi     ConnectionType = "wifi"
	ConnectionCellular ConnectionType = "cellular"
	ConnectionEthernet ConnectionType = "ethernet"
	ConnectionUnknown  ConnectionType = "unknown"
)

// ConnectionState is the latest observation of the network path.
// It is never persisted.
type ConnectionState struct {
	Type        ConnectionType
	IsConnected bool
	ObservedAt  time.Time
}

// Prober performs one observation of the network path
type Prober interface {
	Probe(ctx context.Context) ConnectionState
}

// Monitor continuously observes the network path on a background
// goroutine and notifies subscribers on every transition. Notifications
// are delivered in observation order on each subscriber's channel.
type Monitor struct {
	prober   Prober
	interval time.Duration
	logger   logger.Logger

	mu      sync.RWMutex
	current ConnectionState
	subs    []chan ConnectionState
	stopped bool
}

// subscriberBuffer bounds how many undelivered transitions a slow
// subscriber may accumulate before newer ones are dropped.
const subscriberBuffer = 16

// NewMonitor creates a monitor and performs one synchronous probe so
// Current is meaningful before Start is called.
func NewMonitor(prober Prober, interval time.Duration, log logger.Logger) *Monitor {
	if log == nil {
		log = logger.GetLogger()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	m := &Monitor{
		prober:   prober,
		interval: interval,
		logger:   log,
	}
	m.current = prober.Probe(context.Background())
	return m
}

// Start begins observation. The loop runs until ctx is cancelled, at
// which point all subscriber channels are closed.
func (m *Monitor) Start(ctx context.Context) {
	go m.observe(ctx)
}

func (m *Monitor) observe(ctx context.Context) {
	m.logger.InfoWithFields("connectivity monitor started", map[string]interface{}{
		"interval": m.interval,
	})

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case <-ticker.C:
			state := m.prober.Probe(ctx)
			m.publish(state)
		}
	}
}

func (m *Monitor) publish(state ConnectionState) {
	m.mu.Lock()
	prev := m.current
	if prev.IsConnected == state.IsConnected && prev.Type == state.Type {
		m.current = state // refresh ObservedAt only
		m.mu.Unlock()
		return
	}
	m.current = state
	subs := make([]chan ConnectionState, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	m.logger.InfoWithFields("connectivity changed", map[string]interface{}{
		"type":      string(state.Type),
		"connected": state.IsConnected,
	})

	for _, sub := range subs {
		select {
		case sub <- state:
		default:
			m.logger.Warn("subscriber too slow, dropping connectivity notification")
		}
	}
}

func (m *Monitor) shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	for _, sub := range m.subs {
		close(sub)
	}
	m.subs = nil
	m.logger.Info("connectivity monitor stopped")
}

// Current returns the latest known connection state
func (m *Monitor) Current() ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe registers a new subscriber. The returned channel receives
// every transition in order and is closed when the monitor stops.
func (m *Monitor) Subscribe() <-chan ConnectionState {
	ch := make(chan ConnectionState, subscriberBuffer)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		close(ch)
		return ch
	}
	m.subs = append(m.subs, ch)
	return ch
}

// SystemProber observes the operating system's interfaces and verifies
// reachability with a probe dial
type SystemProber struct {
	ProbeAddress string
	ProbeTimeout time.Duration
}

// NewSystemProber creates a prober that dials addr to verify reachability
func NewSystemProber(addr string, timeout time.Duration) *SystemProber {
	if addr == "" {
		addr = "1.1.1.1:443"
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &SystemProber{ProbeAddress: addr, ProbeTimeout: timeout}
}

// Probe returns the current connection state. If the platform cannot
// report interface information, the type is unknown and the state is
// disconnected.
func (p *SystemProber) Probe(ctx context.Context) ConnectionState {
	state := ConnectionState{
		Type:       p.interfaceType(),
		ObservedAt: time.Now(),
	}

	dialer := net.Dialer{Timeout: p.ProbeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.ProbeAddress)
	if err == nil {
		conn.Close()
		state.IsConnected = true
	}
	return state
}

func (p *SystemProber) interfaceType() ConnectionType {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ConnectionUnknown
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		return classifyInterface(iface.Name)
	}
	return ConnectionUnknown
}

// classifyInterface maps an interface name to a connection type using
// common platform naming conventions.
func classifyInterface(name string) ConnectionType {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "wl"), strings.HasPrefix(lower, "wifi"), strings.HasPrefix(lower, "ath"):
		return ConnectionWiFi
	case strings.HasPrefix(lower, "wwan"), strings.HasPrefix(lower, "rmnet"), strings.HasPrefix(lower, "cell"), strings.HasPrefix(lower, "pdp"):
		return ConnectionCellular
	case strings.HasPrefix(lower, "eth"), strings.HasPrefix(lower, "en"), strings.HasPrefix(lower, "em"):
		return ConnectionEthernet
	default:
		return ConnectionUnknown
	}
}
