package notify

import (
	"context"
	"log"

	"github.com/neekaru/opcua-gateway/internal/monitor"
)

// LogNotifier writes an alert line for every change.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a notifier that logs to logger.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// OnChange implements monitor.Notifier.
func (n *LogNotifier) OnChange(ctx context.Context, c monitor.Change) {
	n.logger.Printf("ALERT: %s changed from %g to %g", c.Variable, c.Previous, c.Current)
}
