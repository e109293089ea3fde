// Package remote defines the contract of the controller's variable service.
package remote

import (
	"context"
	"errors"
)

// Service is a key-addressed read/write store on the controller.
// Implementations own at most one live connection.
type Service interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	ReadValue(ctx context.Context, identifier string) (float64, error)
	WriteValue(ctx context.Context, identifier string, value float64) error
	IsAlive(ctx context.Context) bool
}

var (
	// ErrNotConnected is returned by operations issued without a live connection.
	ErrNotConnected = errors.New("remote: not connected")
	// ErrAlreadyConnected is returned when Connect is called on a live connection.
	ErrAlreadyConnected = errors.New("remote: already connected")
	// ErrUnknownIdentifier is returned for identifiers the controller does not know.
	ErrUnknownIdentifier = errors.New("remote: unknown identifier")
	// ErrLinkDown is returned by the simulator while the link is down.
	ErrLinkDown = errors.New("remote: link down")
)
