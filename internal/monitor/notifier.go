package monitor

import (
	"context"
	"time"
)

// Change is a reading that differs from the previous one by at least the
// monitor's threshold.
type Change struct {
	RunID    string    `json:"run_id"`
	Variable string    `json:"variable"`
	Previous float64   `json:"previous"`
	Current  float64   `json:"current"`
	At       time.Time `json:"at"`
}

// Delta returns Current - Previous.
func (c Change) Delta() float64 {
	return c.Current - c.Previous
}

// Notifier receives change events. OnChange is called from the polling task,
// at most once per iteration and never concurrently with itself.
type Notifier interface {
	OnChange(ctx context.Context, c Change)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, c Change)

// OnChange calls f.
func (f NotifierFunc) OnChange(ctx context.Context, c Change) {
	f(ctx, c)
}

// Notifiers fans a change out to each notifier in order.
type Notifiers []Notifier

// OnChange implements Notifier.
func (ns Notifiers) OnChange(ctx context.Context, c Change) {
	for _, n := range ns {
		n.OnChange(ctx, c)
	}
}
