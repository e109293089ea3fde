package client

import "log"

// Observer is the interface for event observers
type Observer interface {
	OnEvent(event Event)
}

// ObserverFunc is a function that implements the Observer interface
type ObserverFunc func(event Event)

// OnEvent calls the observer function
func (f ObserverFunc) OnEvent(event Event) {
	f(event)
}

// LoggingObserver logs session status transitions
type LoggingObserver struct {
	logger *log.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *log.Logger) *LoggingObserver {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent logs the event
func (o *LoggingObserver) OnEvent(event Event) {
	statusEvent, ok := event.(*StatusEvent)
	if !ok {
		o.logger.Printf("Session event: type=%s, endpoint=%s", event.GetType(), event.GetEndpoint())
		return
	}
	if statusEvent.Err != nil {
		o.logger.Printf("Session %s: %s -> %s (%v)", statusEvent.Endpoint, statusEvent.Previous, statusEvent.Status, statusEvent.Err)
		return
	}
	o.logger.Printf("Session %s: %s -> %s", statusEvent.Endpoint, statusEvent.Previous, statusEvent.Status)
}
