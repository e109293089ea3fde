package machine

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/neekaru/opcua-gateway/internal/client"
	"github.com/neekaru/opcua-gateway/internal/speed"
	"github.com/neekaru/opcua-gateway/internal/variables"
)

// InvalidPathError reports a PATCH /speed operation with an unknown path.
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("Invalid path: %s", e.Path)
}

// OperationError ties a validation failure to its operation index.
type OperationError struct {
	Index int
	Err   error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %d: %v", e.Index, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// statusFor maps an error to the HTTP status reported to the caller.
func statusFor(err error) int {
	var (
		rangeErr *speed.RangeError
		pathErr  *InvalidPathError
	)
	switch {
	case errors.As(err, &rangeErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &pathErr):
		return http.StatusBadRequest
	case variables.IsNotFound(err):
		return http.StatusNotFound
	case client.IsConnectionError(err):
		return http.StatusServiceUnavailable
	case client.IsRemoteError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
