package remote

import (
	"context"
	"fmt"
	"sync"
)

// Stats counts calls made against a Simulator.
type Stats struct {
	Connects    int
	Disconnects int
	Reads       int
	Writes      int
}

// Simulator is an in-memory controller. It backs the --simulate mode and the
// package tests of everything built on Service.
type Simulator struct {
	mu         sync.Mutex
	values     map[string]float64
	links      map[string]string
	connected  bool
	down       bool
	connectErr error
	failNext   error
	writeErrs  map[string]error
	readHook   func(identifier string)
	stats      Stats
}

// NewSimulator creates a simulator preloaded with the given identifier values.
func NewSimulator(initial map[string]float64) *Simulator {
	values := make(map[string]float64, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Simulator{
		values:    values,
		links:     make(map[string]string),
		writeErrs: make(map[string]error),
	}
}

// Connect implements Service.
func (s *Simulator) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Connects++
	if s.down {
		return ErrLinkDown
	}
	if s.connectErr != nil {
		return s.connectErr
	}
	if s.connected {
		return ErrAlreadyConnected
	}
	s.connected = true
	return nil
}

// Disconnect implements Service.
func (s *Simulator) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Disconnects++
	if !s.connected {
		return ErrNotConnected
	}
	s.connected = false
	return nil
}

// ReadValue implements Service.
func (s *Simulator) ReadValue(ctx context.Context, identifier string) (float64, error) {
	s.mu.Lock()
	hook := s.readHook
	s.mu.Unlock()

	// The hook runs unlocked so tests can block a read in flight.
	if hook != nil {
		hook(identifier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Reads++
	if err := s.checkLocked(); err != nil {
		return 0, err
	}
	v, ok := s.values[identifier]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownIdentifier, identifier)
	}
	return v, nil
}

// WriteValue implements Service.
func (s *Simulator) WriteValue(ctx context.Context, identifier string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Writes++
	if err := s.checkLocked(); err != nil {
		return err
	}
	if err, ok := s.writeErrs[identifier]; ok {
		return err
	}
	if _, ok := s.values[identifier]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIdentifier, identifier)
	}
	s.values[identifier] = value
	if to, ok := s.links[identifier]; ok {
		s.values[to] = value
	}
	return nil
}

// IsAlive implements Service.
func (s *Simulator) IsAlive(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected && !s.down
}

func (s *Simulator) checkLocked() error {
	if s.down {
		return ErrLinkDown
	}
	if !s.connected {
		return ErrNotConnected
	}
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	return nil
}

// SetDown simulates losing (true) or restoring (false) the link. While down,
// connects and all operations fail.
func (s *Simulator) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// FailConnect makes every Connect return err until called with nil.
func (s *Simulator) FailConnect(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectErr = err
}

// FailNext makes the next read or write fail with err.
func (s *Simulator) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// FailWrites makes every write to identifier fail with err until called with nil.
func (s *Simulator) FailWrites(identifier string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.writeErrs, identifier)
		return
	}
	s.writeErrs[identifier] = err
}

// OnRead installs a hook called at the start of every read.
func (s *Simulator) OnRead(hook func(identifier string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readHook = hook
}

// Link mirrors every successful write to from into to, the way a drive
// follows its setpoint.
func (s *Simulator) Link(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[from] = to
}

// Set stores a value directly, bypassing connection checks.
func (s *Simulator) Set(identifier string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[identifier] = value
}

// Value returns the stored value for identifier.
func (s *Simulator) Value(identifier string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[identifier]
	return v, ok
}

// Connected reports whether the simulator holds a live connection.
func (s *Simulator) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Stats returns a copy of the call counters.
func (s *Simulator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
