package monitor

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 5 * time.Millisecond

// scriptedReader returns the scripted values in order, then repeats the last.
type scriptedReader struct {
	mu     sync.Mutex
	values []float64
	errs   map[int]error
	calls  int
}

func (r *scriptedReader) ReadVariable(ctx context.Context, name string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.calls
	r.calls++
	if err, ok := r.errs[i]; ok {
		return 0, err
	}
	if i >= len(r.values) {
		i = len(r.values) - 1
	}
	return r.values[i], nil
}

func (r *scriptedReader) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type changeLog struct {
	mu      sync.Mutex
	changes []Change
}

func (l *changeLog) OnChange(ctx context.Context, c Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, c)
}

func (l *changeLog) All() []Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Change(nil), l.changes...)
}

type fakeRecorder struct {
	mu      sync.Mutex
	reads   int
	errors  int
	running bool
}

func (r *fakeRecorder) ObserveRead(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if err != nil {
		r.errors++
	}
}

func (r *fakeRecorder) SetRunning(running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = running
}

func newTestMonitor(t *testing.T, reader Reader, opts ...Option) *Monitor {
	t.Helper()
	opts = append([]Option{WithInterval(testInterval)}, opts...)
	m := New(context.Background(), reader, "belt.actual", log.New(io.Discard, "", 0), opts...)
	t.Cleanup(func() { m.Stop() })
	return m
}

func TestStartStopIdempotent(t *testing.T) {
	m := newTestMonitor(t, &scriptedReader{values: []float64{1}})

	assert.Equal(t, Started, m.Start())
	assert.Equal(t, AlreadyRunning, m.Start())
	assert.True(t, m.Running())

	assert.Equal(t, Stopped, m.Stop())
	assert.Equal(t, NotRunning, m.Stop())
	assert.False(t, m.Running())

	assert.Equal(t, Started, m.Start())
	assert.Equal(t, Stopped, m.Stop())
}

func TestChangeDetection(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   [][2]float64
	}{
		{"small step then large step", []float64{50.0, 50.05, 50.2}, [][2]float64{{50.05, 50.2}}},
		{"large step", []float64{50.0, 50.2}, [][2]float64{{50.0, 50.2}}},
		{"exact threshold", []float64{10.0, 10.1}, [][2]float64{{10.0, 10.1}}},
		{"drop", []float64{80, 20, 20}, [][2]float64{{80, 20}}},
		{"steady", []float64{5, 5, 5.05, 5.09}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &scriptedReader{values: tt.values}
			changes := &changeLog{}
			m := newTestMonitor(t, reader, WithNotifier(changes))

			require.Equal(t, Started, m.Start())
			require.Eventually(t, func() bool {
				return reader.Calls() > len(tt.values)
			}, 2*time.Second, testInterval)
			require.Equal(t, Stopped, m.Stop())

			var got [][2]float64
			for _, c := range changes.All() {
				assert.Equal(t, "belt.actual", c.Variable)
				assert.NotEmpty(t, c.RunID)
				got = append(got, [2]float64{c.Previous, c.Current})
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFailedReadsDoNotStopLoop(t *testing.T) {
	boom := errors.New("BadCommunicationError")
	reader := &scriptedReader{
		values: []float64{10, 10, 10, 40},
		errs:   map[int]error{1: boom, 2: boom},
	}
	changes := &changeLog{}
	rec := &fakeRecorder{}
	m := newTestMonitor(t, reader, WithNotifier(changes), WithRecorder(rec))

	m.Start()
	require.Eventually(t, func() bool {
		return len(changes.All()) == 1
	}, 2*time.Second, testInterval)
	m.Stop()

	// the failed reads did not reset the previous value
	c := changes.All()[0]
	assert.Equal(t, 10.0, c.Previous)
	assert.Equal(t, 40.0, c.Current)
	assert.InDelta(t, 30.0, c.Delta(), 1e-9)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.errors)
	assert.False(t, rec.running)
}

// blockingReader blocks every read until released.
type blockingReader struct {
	entered chan struct{}
	release chan struct{}
	value   float64
}

func (r *blockingReader) ReadVariable(ctx context.Context, name string) (float64, error) {
	select {
	case r.entered <- struct{}{}:
	default:
	}
	<-r.release
	r.value += 10
	return r.value, nil
}

func TestStopWaitsForInFlightRead(t *testing.T) {
	reader := &blockingReader{entered: make(chan struct{}, 1), release: make(chan struct{})}
	changes := &changeLog{}
	m := newTestMonitor(t, reader, WithNotifier(changes))

	m.Start()

	// let the first read complete so the second one can produce a change
	<-reader.entered
	reader.release <- struct{}{}
	<-reader.entered

	stopped := make(chan Outcome)
	go func() { stopped <- m.Stop() }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a read was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(reader.release)

	select {
	case outcome := <-stopped:
		assert.Equal(t, Stopped, outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the read finished")
	}

	// the read finished after cancellation, so it is not reported
	assert.Empty(t, changes.All())
	time.Sleep(5 * testInterval)
	assert.Empty(t, changes.All())
}

func TestStatusDoesNotWaitForStop(t *testing.T) {
	reader := &blockingReader{entered: make(chan struct{}, 1), release: make(chan struct{})}
	m := newTestMonitor(t, reader)

	m.Start()
	<-reader.entered

	stopped := make(chan Outcome, 1)
	go func() { stopped <- m.Stop() }()
	time.Sleep(20 * time.Millisecond)

	answered := make(chan Status, 1)
	go func() {
		m.Running()
		answered <- m.Status()
	}()
	select {
	case s := <-answered:
		assert.True(t, s.Running)
	case <-time.After(time.Second):
		t.Fatal("Status blocked while Stop waited for the read")
	}

	started := make(chan Outcome, 1)
	go func() { started <- m.Start() }()
	select {
	case <-started:
		t.Fatal("Start ran while Stop was in progress")
	case <-time.After(20 * time.Millisecond):
	}

	close(reader.release)
	assert.Equal(t, Stopped, <-stopped)
	assert.Equal(t, Started, <-started)
	assert.Equal(t, Stopped, m.Stop())
}

func TestChanged(t *testing.T) {
	assert.True(t, changed(10.0, 10.1, 0.1))
	assert.True(t, changed(0.3, 0.2, 0.1))
	assert.True(t, changed(50.1, 50.0, 0.1))
	assert.False(t, changed(10.0, 10.09, 0.1))
	assert.False(t, changed(5, 5, 0.1))
}

func TestParentCancellationEndsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &scriptedReader{values: []float64{1}}
	m := New(ctx, reader, "belt.actual", log.New(io.Discard, "", 0), WithInterval(testInterval))

	require.Equal(t, Started, m.Start())
	cancel()

	require.Eventually(t, func() bool { return !m.Running() }, time.Second, testInterval)
	assert.Equal(t, NotRunning, m.Stop())
}

func TestStatus(t *testing.T) {
	reader := &scriptedReader{values: []float64{42}}
	m := newTestMonitor(t, reader, WithThreshold(0.5))

	s := m.Status()
	assert.False(t, s.Running)
	assert.Empty(t, s.RunID)
	assert.Equal(t, 0.5, s.Threshold)

	m.Start()
	require.Eventually(t, func() bool { return m.Status().Last != nil }, time.Second, testInterval)

	s = m.Status()
	assert.True(t, s.Running)
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, 42.0, s.Last.Value)
}
