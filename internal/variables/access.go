package variables

import (
	"context"
	"fmt"
	"log"

	"github.com/neekaru/opcua-gateway/internal/client"
	"github.com/neekaru/opcua-gateway/internal/remote"
	"github.com/neekaru/opcua-gateway/internal/speed"
)

// Sessions runs operations against the controller session.
type Sessions interface {
	WithSession(ctx context.Context, op client.Operation) error
}

// UnknownLabel is reported to the Recorder in place of names missing from the
// table, which keeps caller-supplied names out of the recorded set.
const UnknownLabel = "unknown"

// Recorder observes completed variable operations.
type Recorder interface {
	ObserveOperation(op, name string, err error)
}

// Write is one entry of a batch write.
type Write struct {
	Name  string
	Value speed.Speed
}

// Accessor reads and writes variables by friendly name.
type Accessor struct {
	table    *Table
	sessions Sessions
	logger   *log.Logger
	recorder Recorder
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithRecorder reports every operation to r.
func WithRecorder(r Recorder) Option {
	return func(a *Accessor) {
		a.recorder = r
	}
}

// NewAccessor creates an accessor over table using sessions for remote calls.
func NewAccessor(table *Table, sessions Sessions, logger *log.Logger, opts ...Option) *Accessor {
	a := &Accessor{
		table:    table,
		sessions: sessions,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Table returns the binding table.
func (a *Accessor) Table() *Table {
	return a.table
}

// ReadVariable reads the current value of name.
func (a *Accessor) ReadVariable(ctx context.Context, name string) (float64, error) {
	b, ok := a.table.Lookup(name)
	if !ok {
		return 0, a.observe("read", UnknownLabel, &NotFoundError{Name: name})
	}
	if !b.Readable() {
		return 0, a.observe("read", name, &NotFoundError{Name: name, Direction: AccessRead})
	}

	var value float64
	err := a.sessions.WithSession(ctx, func(ctx context.Context, svc remote.Service) error {
		v, err := svc.ReadValue(ctx, b.Identifier)
		if err != nil {
			return fmt.Errorf("read %s: %w", b.Identifier, err)
		}
		value = v
		return nil
	})
	if err != nil {
		a.logger.Printf("Error reading %s: %v", name, err)
		return 0, a.observe("read", name, err)
	}
	a.observe("read", name, nil)
	return value, nil
}

// WriteVariable writes value to name.
func (a *Accessor) WriteVariable(ctx context.Context, name string, value speed.Speed) error {
	b, ok := a.table.Lookup(name)
	if !ok {
		return a.observe("write", UnknownLabel, &NotFoundError{Name: name})
	}
	if !b.Writable() {
		return a.observe("write", name, &NotFoundError{Name: name, Direction: AccessWrite})
	}

	err := a.sessions.WithSession(ctx, func(ctx context.Context, svc remote.Service) error {
		if err := svc.WriteValue(ctx, b.Identifier, value.Float64()); err != nil {
			return fmt.Errorf("write %s: %w", b.Identifier, err)
		}
		return nil
	})
	if err != nil {
		a.logger.Printf("Error setting %s to %s: %v", name, value, err)
		return a.observe("write", name, err)
	}
	a.logger.Printf("Set %s (%s) to %s", name, b.Identifier, value)
	a.observe("write", name, nil)
	return nil
}

// WriteMany applies each write independently, in order. The result holds one
// entry per name; a nil entry acknowledges the write. A name repeated in
// writes is written every time and its entry reports the last write, which is
// also the value left on the controller.
func (a *Accessor) WriteMany(ctx context.Context, writes []Write) map[string]error {
	results := make(map[string]error, len(writes))
	for _, w := range writes {
		results[w.Name] = a.WriteVariable(ctx, w.Name, w.Value)
	}
	return results
}

func (a *Accessor) observe(op, name string, err error) error {
	if a.recorder != nil {
		a.recorder.ObserveOperation(op, name, err)
	}
	return err
}
