package netmon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamnet/pkg/config"
	"streamnet/pkg/logger"
)

// fakeProber returns a scripted sequence of states, repeating the last
// one once the script is exhausted
type fakeProber struct {
	mu     sync.Mutex
	states []ConnectionState
	calls  int
}

func (f *fakeProber) Probe(ctx context.Context) ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.states) {
		i = len(f.states) - 1
	}
	f.calls++
	s := f.states[i]
	s.ObservedAt = time.Now()
	return s
}

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(&config.LoggingConfig{Level: "disabled"})
	require.NoError(t, err)
	return log
}

func connected(ct ConnectionType) ConnectionState {
	return ConnectionState{Type: ct, IsConnected: true}
}

func disconnected() ConnectionState {
	return ConnectionState{Type: ConnectionUnknown, IsConnected: false}
}

func TestCurrentFromInitialProbe(t *testing.T) {
	prober := &fakeProber{states: []ConnectionState{connected(ConnectionWiFi)}}
	m := NewMonitor(prober, time.Minute, testLogger(t))

	state := m.Current()
	assert.True(t, state.IsConnected)
	assert.Equal(t, ConnectionWiFi, state.Type)
	assert.False(t, state.ObservedAt.IsZero())
}

func TestSubscriberReceivesTransitionsInOrder(t *testing.T) {
	prober := &fakeProber{states: []ConnectionState{
		connected(ConnectionWiFi), // initial probe
		disconnected(),
		connected(ConnectionCellular),
	}}
	m := NewMonitor(prober, 5*time.Millisecond, testLogger(t))
	sub := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	first := receiveState(t, sub)
	assert.False(t, first.IsConnected)

	second := receiveState(t, sub)
	assert.True(t, second.IsConnected)
	assert.Equal(t, ConnectionCellular, second.Type)
}

func TestNoNotificationWithoutTransition(t *testing.T) {
	prober := &fakeProber{states: []ConnectionState{connected(ConnectionWiFi)}}
	m := NewMonitor(prober, 5*time.Millisecond, testLogger(t))
	sub := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	select {
	case state, ok := <-sub:
		if ok {
			t.Fatalf("unexpected notification for unchanged state: %+v", state)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriberChannelClosedOnStop(t *testing.T) {
	prober := &fakeProber{states: []ConnectionState{connected(ConnectionWiFi)}}
	m := NewMonitor(prober, time.Millisecond, testLogger(t))
	sub := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscriber channel was not closed after cancellation")
		}
	}
}

func TestSubscribeAfterStop(t *testing.T) {
	prober := &fakeProber{states: []ConnectionState{connected(ConnectionWiFi)}}
	m := NewMonitor(prober, time.Millisecond, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()

	// Wait for shutdown to land
	require.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.stopped
	}, time.Second, 5*time.Millisecond)

	sub := m.Subscribe()
	_, ok := <-sub
	assert.False(t, ok, "late subscription should return a closed channel")
}

func TestClassifyInterface(t *testing.T) {
	tests := []struct {
		name     string
		expected ConnectionType
	}{
		{"wlan0", ConnectionWiFi},
		{"wlp3s0", ConnectionWiFi},
		{"eth0", ConnectionEthernet},
		{"en0", ConnectionEthernet},
		{"wwan0", ConnectionCellular},
		{"rmnet_data0", ConnectionCellular},
		{"tun0", ConnectionUnknown},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, classifyInterface(test.name))
		})
	}
}

func receiveState(t *testing.T, ch <-chan ConnectionState) ConnectionState {
	t.Helper()
	select {
	case state, ok := <-ch:
		require.True(t, ok, "channel closed before expected notification")
		return state
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connectivity notification")
		return ConnectionState{}
	}
}
