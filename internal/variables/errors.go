package variables

import (
	"errors"
	"fmt"
)

// NotFoundError reports an unknown name, or a name that does not allow the
// requested direction.
type NotFoundError struct {
	Name      string
	Direction Access
}

func (e *NotFoundError) Error() string {
	if e.Direction == 0 {
		return fmt.Sprintf("unknown variable %q", e.Name)
	}
	return fmt.Sprintf("variable %q is not %sable", e.Name, e.Direction)
}

// IsNotFound reports whether err carries a *NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
