package netmon

import "sync"

// MockSignal provides scripted connectivity for testing.
type MockSignal struct {
	mu          sync.Mutex
	online      bool
	subscribers []chan bool
	closed      bool
}

// NewMockSignal creates a mock signal with the given initial state.
func NewMockSignal(online bool) *MockSignal {
	return &MockSignal{online: online}
}

// IsOnline reports the scripted state.
func (m *MockSignal) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a transition listener.
func (m *MockSignal) Subscribe() <-chan bool {
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

// SetOnline changes the state and notifies subscribers on transitions.
func (m *MockSignal) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || online == m.online {
		return
	}
	m.online = online

	for _, ch := range m.subscribers {
		select {
		case ch <- online:
		default:
		}
	}
}

// Close closes subscriber channels.
func (m *MockSignal) Close() {
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
