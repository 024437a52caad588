// Package netmon watches connectivity and reports transitions.
package netmon

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/HISP-Uganda/entrysync/internal/config"
	"github.com/HISP-Uganda/entrysync/internal/events"
)

// Signal is the connectivity contract consumed by the orchestrator.
type Signal interface {
	// IsOnline reports point-in-time connectivity.
	IsOnline() bool

	// Subscribe returns a channel of online/offline transitions. Only
	// changes are delivered, never repeats of the current state.
	Subscribe() <-chan bool

	// Close stops the monitor and closes subscriber channels.
	Close()
}

// Monitor probes an HTTP endpoint on an interval and publishes
// transitions to subscribers.
type Monitor struct {
	probeURL string
	interval time.Duration
	client   *http.Client
	logger   *events.Logger

	mu          sync.Mutex
	online      bool
	subscribers []chan bool
	closed      bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates and starts a connectivity monitor.
func NewMonitor(cfg *config.NetworkConfig, logger *events.Logger) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Monitor{
		probeURL: cfg.ProbeURL,
		interval: cfg.ProbeInterval,
		client:   &http.Client{Timeout: cfg.ProbeTimeout},
		logger:   logger.WithField("component", "netmon"),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	// Establish the initial state before anyone subscribes.
	m.online = m.probe(ctx)

	go m.run(ctx)
	return m
}

// IsOnline reports the last observed connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a transition listener.
func (m *Monitor) Subscribe() <-chan bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan bool, 4)
	if m.closed {
		close(ch)
		return ch
	}
	m.subscribers = append(m.subscribers, ch)
	return ch
}

// Close stops probing and closes subscriber channels.
func (m *Monitor) Close() {
	m.cancel()
	<-m.done

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for _, ch := range m.subscribers {
		close(ch)
	}
	m.subscribers = nil
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.publish(m.probe(ctx))
		}
	}
}

// probe reports whether the endpoint is reachable right now.
func (m *Monitor) probe(ctx context.Context) bool {
	if m.probeURL == "" {
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	// Any response at all means the network path is up.
	return true
}

// publish delivers a state change to subscribers, dropping on slow ones.
func (m *Monitor) publish(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || online == m.online {
		return
	}
	m.online = online

	m.logger.WithField("online", online).Info("Connectivity changed")

	for _, ch := range m.subscribers {
		select {
		case ch <- online:
		default:
		}
	}
}
