package realtime

import (
	"context"
	"slices"
	"sync"
)

// Mock delivers messages in process. Messages broadcast while disconnected
// are queued and flushed in order on the next Connect.
type Mock struct {
	mu        sync.Mutex
	connected bool
	listeners []func(Message)
	queue     []Message
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Connect(context.Context) error {
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	m.flush()
	return nil
}

func (m *Mock) Disconnect() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

func (m *Mock) OnEvent(fn func(Message)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Mock) Broadcast(_ context.Context, msg Message) error {
	m.Replay(msg)
	return nil
}

// Replay queues msgs as if they had just been broadcast.
func (m *Mock) Replay(msgs ...Message) {
	m.mu.Lock()
	m.queue = append(m.queue, msgs...)
	m.mu.Unlock()
	m.flush()
}

// Pending returns the queued, undelivered messages.
func (m *Mock) Pending() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.queue)
}

func (m *Mock) flush() {
	m.mu.Lock()
	if !m.connected || len(m.queue) == 0 {
		m.mu.Unlock()
		return
	}
	pending := m.queue
	m.queue = nil
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	for _, msg := range pending {
		for _, fn := range listeners {
			fn(msg)
		}
	}
}
