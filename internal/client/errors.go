package client

import (
	"errors"
	"fmt"
)

// ConnectionError indicates the session could not be established or kept.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to controller at %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// RemoteError indicates the remote call itself failed on a live session.
type RemoteError struct {
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote call failed: %v", e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err carries a *ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsRemoteError reports whether err carries a *RemoteError.
func IsRemoteError(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr)
}
