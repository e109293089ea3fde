package session

import (
	"context"
	"time"

	"github.com/neekaru/opcua-gateway/internal/app"
	"github.com/neekaru/opcua-gateway/internal/client"
)

// Service handles session-related business logic
type Service struct {
	app *app.App
}

// NewService creates a new session service
func NewService(app *app.App) *Service {
	return &Service{app: app}
}

// Status returns the session state without touching the controller
func (s *Service) Status() StatusResponse {
	return toResponse(s.app.Sessions.Snapshot())
}

// Restart drops the connection and connects again
func (s *Service) Restart(ctx context.Context) (StatusResponse, error) {
	s.app.Logger.Printf("Restarting controller session to %s", s.app.Sessions.Endpoint())
	snap, err := s.app.Sessions.Restart(ctx)
	return toResponse(snap), err
}

// Disconnect releases the connection; the next operation reconnects
func (s *Service) Disconnect(ctx context.Context) StatusResponse {
	s.app.Logger.Printf("Disconnecting controller session to %s", s.app.Sessions.Endpoint())
	s.app.Sessions.Disconnect(ctx)
	return toResponse(s.app.Sessions.Snapshot())
}

func toResponse(snap client.Session) StatusResponse {
	resp := StatusResponse{
		Endpoint:        snap.Endpoint,
		Status:          snap.Status.String(),
		Connected:       snap.Status == client.StatusConnected,
		ConnectAttempts: snap.ConnectAttempts,
		Timestamp:       time.Now().Format(time.RFC3339),
	}
	if !snap.ConnectedAt.IsZero() {
		resp.ConnectedSince = snap.ConnectedAt.Format(time.RFC3339)
	}
	if snap.LastError != nil {
		resp.LastError = snap.LastError.Error()
	}
	return resp
}
