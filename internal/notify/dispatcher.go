// Package notify delivers gateway events to systems outside the process.
package notify

import (
	"log"
	"sync"
)

// Dispatcher runs notification tasks on a fixed pool of workers so a slow
// receiver never holds up the caller.
type Dispatcher struct {
	tasks  chan func()
	logger *log.Logger
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts workers goroutines draining a queue of the given size.
func NewDispatcher(workers, queue int, logger *log.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		tasks:  make(chan func(), queue),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for task := range d.tasks {
		task()
	}
}

// Submit queues task. It reports false when the queue is full or the
// dispatcher is closed; the task is then dropped.
func (d *Dispatcher) Submit(name string, task func()) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}
	select {
	case d.tasks <- task:
		return true
	default:
		d.logger.Printf("Notification queue full, dropping %s", name)
		return false
	}
}

// Close waits for queued tasks to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	d.wg.Wait()
}
