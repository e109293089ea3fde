package client

// Event is the interface for all session events
type Event interface {
	GetType() string
	GetEndpoint() string
	GetData() interface{}
}

// BaseEvent is the base implementation of Event
type BaseEvent struct {
	Type     string
	Endpoint string
	Data     interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() string {
	return e.Type
}

// GetEndpoint returns the controller endpoint
func (e *BaseEvent) GetEndpoint() string {
	return e.Endpoint
}

// GetData returns the event data
func (e *BaseEvent) GetData() interface{} {
	return e.Data
}

// Event types
const (
	EventTypeStatus = "status"
)

// StatusEvent represents a session status transition
type StatusEvent struct {
	BaseEvent
	Previous Status
	Status   Status
	Err      error
}

// NewStatusEvent creates a new status event
func NewStatusEvent(endpoint string, previous, status Status, err error) *StatusEvent {
	return &StatusEvent{
		BaseEvent: BaseEvent{
			Type:     EventTypeStatus,
			Endpoint: endpoint,
			Data:     status,
		},
		Previous: previous,
		Status:   status,
		Err:      err,
	}
}
