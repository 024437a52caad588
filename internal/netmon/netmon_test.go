package netmon_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HISP-Uganda/entrysync/internal/config"
	"github.com/HISP-Uganda/entrysync/internal/netmon"
	"github.com/HISP-Uganda/entrysync/test/testutil"
)

func newMonitor(t *testing.T, probeURL string) *netmon.Monitor {
	t.Helper()

	m := netmon.NewMonitor(&config.NetworkConfig{
		ProbeURL:      probeURL,
		ProbeInterval: 10 * time.Millisecond,
		ProbeTimeout:  time.Second,
	}, testutil.NewTestLogger())
	t.Cleanup(m.Close)
	return m
}

func TestMonitorInitialStateOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
	}))
	defer server.Close()

	m := newMonitor(t, server.URL)
	assert.True(t, m.IsOnline(), "probe succeeds before the loop starts")
}

func TestMonitorInitialStateOffline(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	m := newMonitor(t, server.URL)
	assert.False(t, m.IsOnline())
}

func TestMonitorErrorStatusStillCountsAsOnline(t *testing.T) {
	// A captive portal or a 500 from the probe target still means the
	// network path is up.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	m := newMonitor(t, server.URL)
	assert.True(t, m.IsOnline())
}

func TestMonitorPublishesTransitions(t *testing.T) {
	var failing atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
	}))
	defer server.Close()

	m := newMonitor(t, server.URL)
	require.True(t, m.IsOnline())

	transitions := m.Subscribe()

	failing.Store(true)
	select {
	case online := <-transitions:
		assert.False(t, online)
	case <-time.After(time.Second):
		t.Fatal("offline transition not delivered")
	}
	assert.False(t, m.IsOnline())

	failing.Store(false)
	select {
	case online := <-transitions:
		assert.True(t, online)
	case <-time.After(time.Second):
		t.Fatal("online transition not delivered")
	}
	assert.True(t, m.IsOnline())
}

func TestMonitorCloseStopsSubscribers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	m := netmon.NewMonitor(&config.NetworkConfig{
		ProbeURL:      server.URL,
		ProbeInterval: 10 * time.Millisecond,
		ProbeTimeout:  time.Second,
	}, testutil.NewTestLogger())

	transitions := m.Subscribe()
	m.Close()

	select {
	case _, ok := <-transitions:
		assert.False(t, ok, "subscriber channel closes with the monitor")
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed")
	}

	// Closing twice is safe.
	m.Close()
}

func TestMockSignalTransitions(t *testing.T) {
	signal := netmon.NewMockSignal(false)
	defer signal.Close()

	transitions := signal.Subscribe()

	signal.SetOnline(false)
	select {
	case <-transitions:
		t.Fatal("repeat of the current state must not be delivered")
	default:
	}

	signal.SetOnline(true)
	select {
	case online := <-transitions:
		assert.True(t, online)
	default:
		t.Fatal("transition not delivered")
	}
	assert.True(t, signal.IsOnline())
}
