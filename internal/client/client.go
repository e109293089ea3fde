package client

import (
	"context"
	"errors"

	"github.com/neekaru/opcua-gateway/internal/remote"
)

// Operation is a remote call issued against a live session
type Operation func(ctx context.Context, svc remote.Service) error

// EnsureConnected returns the live session, connecting first when the session
// is not connected or the liveness probe fails. A failed connect leaves the
// session Failed and returns a *ConnectionError.
func (m *Manager) EnsureConnected(ctx context.Context) (Session, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	err := m.ensureLocked(ctx)
	return m.Snapshot(), err
}

// WithSession runs op against the live session. If op fails the session is
// demoted to Failed so the next caller reconnects; the error is returned to
// this caller without a retry.
func (m *Manager) WithSession(ctx context.Context, op Operation) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.ensureLocked(ctx); err != nil {
		return err
	}

	if err := op(ctx, m.service); err != nil {
		m.setStatus(StatusFailed, err)
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return err
		}
		return &RemoteError{Err: err}
	}
	return nil
}

// Disconnect releases the connection and marks the session Disconnected.
// Release errors are logged, never returned.
func (m *Manager) Disconnect(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.disconnectLocked(ctx)
}

// Restart drops the current connection and connects again.
func (m *Manager) Restart(ctx context.Context) (Session, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.disconnectLocked(ctx)
	err := m.ensureLocked(ctx)
	return m.Snapshot(), err
}

func (m *Manager) ensureLocked(ctx context.Context) error {
	status := m.Status()
	if status == StatusConnected {
		if m.service.IsAlive(ctx) {
			return nil
		}
		m.logger.Printf("Liveness probe against %s failed, reconnecting", m.endpoint)
	}

	if status == StatusConnected || status == StatusFailed {
		m.release(ctx)
	}

	m.setStatus(StatusConnecting, nil)
	m.logger.Printf("Connecting to controller at %s", m.endpoint)

	if err := m.service.Connect(ctx); err != nil {
		m.setStatus(StatusFailed, err)
		m.logger.Printf("Error connecting to controller at %s: %v", m.endpoint, err)
		return &ConnectionError{Endpoint: m.endpoint, Err: err}
	}

	m.setStatus(StatusConnected, nil)
	m.logger.Printf("Connected to controller at %s", m.endpoint)
	return nil
}

func (m *Manager) disconnectLocked(ctx context.Context) {
	if m.Status() != StatusDisconnected {
		m.release(ctx)
		m.logger.Printf("Disconnected from controller at %s", m.endpoint)
	}
	m.setStatus(StatusDisconnected, nil)
}

// release closes the underlying handle, logging failures.
func (m *Manager) release(ctx context.Context) {
	if err := m.service.Disconnect(ctx); err != nil && !errors.Is(err, remote.ErrNotConnected) {
		m.logger.Printf("Error releasing controller connection %s: %v", m.endpoint, err)
	}
}
