// Package monitor polls one variable on a fixed interval and reports
// significant changes.
package monitor

import (
	"context"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultInterval  = time.Second
	DefaultThreshold = 0.1

	// epsilon absorbs float64 rounding so a change of exactly the threshold
	// is still reported.
	epsilon = 1e-9
)

// Reader reads a variable by friendly name.
type Reader interface {
	ReadVariable(ctx context.Context, name string) (float64, error)
}

// Recorder observes the monitor's own activity.
type Recorder interface {
	ObserveRead(err error)
	SetRunning(running bool)
}

// Outcome is the result of a Start or Stop request.
type Outcome string

const (
	Started        Outcome = "started"
	AlreadyRunning Outcome = "already_running"
	Stopped        Outcome = "stopped"
	NotRunning     Outcome = "not_running"
)

// Reading is the last successful read of a run.
type Reading struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

// Status is a point-in-time view of the monitor.
type Status struct {
	Running   bool          `json:"running"`
	RunID     string        `json:"run_id,omitempty"`
	Variable  string        `json:"variable"`
	Interval  time.Duration `json:"interval"`
	Threshold float64       `json:"threshold"`
	Last      *Reading      `json:"last,omitempty"`
}

// Monitor runs at most one polling task at a time.
type Monitor struct {
	parent    context.Context
	reader    Reader
	variable  string
	interval  time.Duration
	threshold float64
	notifier  Notifier
	recorder  Recorder
	logger    *log.Logger

	// ctlMu serializes Start and Stop; mu guards the run fields and is never
	// held while waiting for a run to exit.
	ctlMu  sync.Mutex
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	runID  string

	last atomic.Pointer[Reading]
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		m.interval = d
	}
}

// WithThreshold sets the minimum absolute change that is reported.
func WithThreshold(th float64) Option {
	return func(m *Monitor) {
		m.threshold = th
	}
}

// WithNotifier sets the change hook.
func WithNotifier(n Notifier) Option {
	return func(m *Monitor) {
		m.notifier = n
	}
}

// WithRecorder reports reads and run state to r.
func WithRecorder(r Recorder) Option {
	return func(m *Monitor) {
		m.recorder = r
	}
}

// New creates an idle monitor for variable. Runs end when parent is done,
// which ties them to the process lifetime rather than to a request.
func New(parent context.Context, reader Reader, variable string, logger *log.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		parent:    parent,
		reader:    reader,
		variable:  variable,
		interval:  DefaultInterval,
		threshold: DefaultThreshold,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the polling task unless one is already running.
func (m *Monitor) Start() Outcome {
	m.ctlMu.Lock()
	defer m.ctlMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.runningLocked() {
		return AlreadyRunning
	}

	ctx, cancel := context.WithCancel(m.parent)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.runID = uuid.NewString()
	m.last.Store(nil)

	if m.recorder != nil {
		m.recorder.SetRunning(true)
	}
	m.logger.Printf("Monitor %s started for %s (interval %s, threshold %g)", m.runID, m.variable, m.interval, m.threshold)
	go m.run(ctx, m.runID, m.done)
	return Started
}

// Stop cancels the polling task and waits until it has exited, so no change
// is reported after Stop returns.
func (m *Monitor) Stop() Outcome {
	m.ctlMu.Lock()
	defer m.ctlMu.Unlock()

	m.mu.Lock()
	if m.done == nil {
		m.mu.Unlock()
		return NotRunning
	}
	wasRunning := m.runningLocked()
	cancel, done, runID := m.cancel, m.done, m.runID
	m.mu.Unlock()

	cancel()
	<-done

	m.mu.Lock()
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if !wasRunning {
		return NotRunning
	}
	m.logger.Printf("Monitor %s stopped", runID)
	return Stopped
}

// Running reports whether a polling task is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runningLocked()
}

// Status returns the current monitor state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		Running:   m.runningLocked(),
		Variable:  m.variable,
		Interval:  m.interval,
		Threshold: m.threshold,
		Last:      m.last.Load(),
	}
	if s.Running {
		s.RunID = m.runID
	}
	return s
}

func (m *Monitor) runningLocked() bool {
	if m.done == nil {
		return false
	}
	select {
	case <-m.done:
		// ended with the parent context
		return false
	default:
		return true
	}
}

func (m *Monitor) run(ctx context.Context, runID string, done chan struct{}) {
	defer close(done)
	defer func() {
		if m.recorder != nil {
			m.recorder.SetRunning(false)
		}
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// previous is owned by this task alone
	var previous *float64

	for {
		if ctx.Err() != nil {
			return
		}
		m.iterate(ctx, runID, &previous)

		select {
		case <-ctx.Done():
			m.logger.Printf("Monitor %s received cancellation request", runID)
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) iterate(ctx context.Context, runID string, previous **float64) {
	// The read is not interrupted by Stop; Stop waits for it instead.
	current, err := m.reader.ReadVariable(context.WithoutCancel(ctx), m.variable)
	if m.recorder != nil {
		m.recorder.ObserveRead(err)
	}
	if err != nil {
		m.logger.Printf("Error in scheduled %s monitor: %v", m.variable, err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	now := time.Now()
	m.logger.Printf("Scheduled reading - %s: %g", m.variable, current)

	if p := *previous; p != nil && changed(*p, current, m.threshold) {
		if m.notifier != nil {
			m.notifier.OnChange(ctx, Change{
				RunID:    runID,
				Variable: m.variable,
				Previous: *p,
				Current:  current,
				At:       now,
			})
		}
	}

	*previous = &current
	m.last.Store(&Reading{Value: current, At: now})
}

// changed reports whether current differs from previous by at least threshold.
func changed(previous, current, threshold float64) bool {
	return math.Abs(current-previous) >= threshold-epsilon
}
