package machine

import (
	"context"

	"github.com/neekaru/opcua-gateway/internal/app"
	"github.com/neekaru/opcua-gateway/internal/notify"
	"github.com/neekaru/opcua-gateway/internal/speed"
	"github.com/neekaru/opcua-gateway/internal/variables"
)

// Service handles machine speed business logic
type Service struct {
	app *app.App
}

// NewService creates a new machine service
func NewService(app *app.App) *Service {
	return &Service{app: app}
}

// ReadSpeed reads the actual speed of axis.
func (s *Service) ReadSpeed(ctx context.Context, axis Axis) (float64, error) {
	return s.app.Variables.ReadVariable(ctx, axis.Actual)
}

// SetSpeed validates raw and writes it as the target speed of axis.
func (s *Service) SetSpeed(ctx context.Context, axis Axis, raw float64) (speed.Speed, error) {
	value, err := speed.Validate(raw)
	if err != nil {
		return speed.Speed{}, err
	}
	if err := s.app.Variables.WriteVariable(ctx, axis.Target, value); err != nil {
		return speed.Speed{}, err
	}
	s.app.Backend.NotifyStatus(notify.StatusUpdated)
	return value, nil
}

// StopAll writes zero to every writable variable. Each write is independent.
func (s *Service) StopAll(ctx context.Context) []OperationResult {
	names := s.app.Variables.Table().Writable()
	writes := make([]variables.Write, 0, len(names))
	for _, name := range names {
		writes = append(writes, variables.Write{Name: name, Value: speed.Zero})
	}

	errs := s.app.Variables.WriteMany(ctx, writes)
	results := make([]OperationResult, 0, len(names))
	for _, name := range names {
		results = append(results, newResult("", name, 0, errs[name]))
	}
	return results
}

type resolved struct {
	path  string
	axis  Axis
	value speed.Speed
}

// ApplyOperations validates every operation before writing any of them, then
// writes them in order. A validation failure returns an *OperationError and
// nothing is written.
func (s *Service) ApplyOperations(ctx context.Context, ops []Operation) ([]OperationResult, error) {
	plan := make([]resolved, 0, len(ops))
	for i, op := range ops {
		name, ok := legacyPaths[op.Path]
		if !ok {
			return nil, &OperationError{Index: i, Err: &InvalidPathError{Path: op.Path}}
		}
		axis, _ := axisByName(name)
		value, err := speed.Validate(*op.Value)
		if err != nil {
			return nil, &OperationError{Index: i, Err: err}
		}
		plan = append(plan, resolved{path: op.Path, axis: axis, value: value})
	}

	results := make([]OperationResult, 0, len(plan))
	failed := false
	for _, p := range plan {
		err := s.app.Variables.WriteVariable(ctx, p.axis.Target, p.value)
		if err != nil {
			failed = true
		}
		results = append(results, newResult(p.path, p.axis.Target, p.value.Float64(), err))
	}

	if !failed && len(plan) > 0 {
		s.app.Backend.NotifyStatus(notify.StatusUpdated)
	}
	return results, nil
}

func newResult(path, name string, value float64, err error) OperationResult {
	r := OperationResult{Path: path, Name: name, Value: value, OK: err == nil, err: err}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
