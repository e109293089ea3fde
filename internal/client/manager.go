package client

import (
	"log"
	"sync"
	"time"

	"github.com/neekaru/opcua-gateway/internal/remote"
)

// Status represents the current state of the controller session
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusFailed
)

// String returns a string representation of the session status
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is a point-in-time view of the controller session
type Session struct {
	Endpoint        string
	Status          Status
	LastError       error
	ConnectedAt     time.Time
	ConnectAttempts int
}

// Manager owns the single session to the controller. Every connect and every
// remote operation runs under opMu, so at most one connect is in flight and
// callers arriving during a reconnect wait for it.
type Manager struct {
	endpoint string
	service  remote.Service
	logger   *log.Logger

	opMu sync.Mutex

	stateMu     sync.RWMutex
	status      Status
	lastErr     error
	connectedAt time.Time
	attempts    int

	observers     map[string][]Observer
	observersLock sync.RWMutex
	closed        bool
	workerPool    chan func()
	workerDone    chan struct{}
}

// NewManager creates a session manager for service. No connection is made
// until the first EnsureConnected or WithSession call.
func NewManager(endpoint string, service remote.Service, logger *log.Logger) *Manager {
	m := &Manager{
		endpoint:   endpoint,
		service:    service,
		logger:     logger,
		status:     StatusDisconnected,
		observers:  make(map[string][]Observer),
		workerPool: make(chan func(), 100),
		workerDone: make(chan struct{}),
	}
	// A single worker keeps observers seeing transitions in order
	go m.worker()
	return m
}

// worker processes tasks from the worker pool
func (m *Manager) worker() {
	defer close(m.workerDone)
	for task := range m.workerPool {
		task()
	}
}

// Endpoint returns the controller endpoint this manager connects to
func (m *Manager) Endpoint() string {
	return m.endpoint
}

// Status returns the current session status
func (m *Manager) Status() Status {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.status
}

// Snapshot returns the session state without waiting for in-flight operations
func (m *Manager) Snapshot() Session {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return Session{
		Endpoint:        m.endpoint,
		Status:          m.status,
		LastError:       m.lastErr,
		ConnectedAt:     m.connectedAt,
		ConnectAttempts: m.attempts,
	}
}

func (m *Manager) setStatus(status Status, err error) {
	m.stateMu.Lock()
	previous := m.status
	m.status = status
	switch status {
	case StatusConnecting:
		m.attempts++
	case StatusConnected:
		m.connectedAt = time.Now()
		m.lastErr = nil
	case StatusDisconnected:
		m.connectedAt = time.Time{}
	}
	if err != nil {
		m.lastErr = err
	}
	m.stateMu.Unlock()

	if previous != status || err != nil {
		m.DispatchEvent(NewStatusEvent(m.endpoint, previous, status, err))
	}
}

// RegisterObserver registers an observer for a specific event type
func (m *Manager) RegisterObserver(eventType string, observer Observer) {
	m.observersLock.Lock()
	defer m.observersLock.Unlock()

	m.observers[eventType] = append(m.observers[eventType], observer)
}

// DispatchEvent hands an event to the registered observers on the worker
func (m *Manager) DispatchEvent(event Event) {
	m.observersLock.RLock()
	defer m.observersLock.RUnlock()

	observers := m.observers[event.GetType()]
	if m.closed || len(observers) == 0 {
		return
	}

	task := func() {
		for _, observer := range observers {
			observer.OnEvent(event)
		}
	}

	select {
	case m.workerPool <- task:
	default:
		m.logger.Printf("Session event queue full, dropping %s event", event.GetType())
	}
}

// Close stops event dispatching after queued events have been delivered.
// It does not disconnect; call Disconnect first.
func (m *Manager) Close() {
	m.observersLock.Lock()
	if m.closed {
		m.observersLock.Unlock()
		return
	}
	m.closed = true
	close(m.workerPool)
	m.observersLock.Unlock()

	<-m.workerDone
}
