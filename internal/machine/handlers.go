package machine

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neekaru/opcua-gateway/internal/app"
	"github.com/neekaru/opcua-gateway/internal/monitor"
	"github.com/neekaru/opcua-gateway/internal/notify"
)

// Handlers contains HTTP handlers for machine speeds, variables and the
// speed monitor
type Handlers struct {
	app     *app.App
	service *Service
}

// NewHandlers creates a new machine handlers instance
func NewHandlers(app *app.App) *Handlers {
	return &Handlers{
		app:     app,
		service: NewService(app),
	}
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.app.Logger.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// GetSpeedHandler returns a handler reading the actual speed of axis
func (h *Handlers) GetSpeedHandler(axis Axis) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := h.service.ReadSpeed(c.Request.Context(), axis)
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.app.Logger.Printf("Retrieved %s speed: %g", axis.Name, value)
		c.JSON(http.StatusOK, gin.H{axis.Key: value})
	}
}

// SetSpeedHandler returns a handler writing the target speed of axis
func (h *Handlers) SetSpeedHandler(axis Axis) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SpeedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		value, err := h.service.SetSpeed(c.Request.Context(), axis, *req.Speed)
		if err != nil {
			h.respondError(c, err)
			return
		}

		b, _ := h.app.Variables.Table().Lookup(axis.Target)
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Speed set to %s for node %s", value, b.Identifier),
		})
	}
}

// StopHandler sets every writable speed to zero
func (h *Handlers) StopHandler(c *gin.Context) {
	h.app.Logger.Printf("Stop requested, setting all speeds to 0")
	results := h.service.StopAll(c.Request.Context())

	c.JSON(batchStatus(results), gin.H{
		"message": "All machine speeds have been set to 0.",
		"details": results,
	})
}

// PatchSpeedHandler applies a list of speed operations
func (h *Handlers) PatchSpeedHandler(c *gin.Context) {
	var req PatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	results, err := h.service.ApplyOperations(c.Request.Context(), req.Operations)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := batchStatus(results)
	if status == http.StatusOK {
		c.JSON(status, gin.H{
			"message": "200 OK",
			"data":    gin.H{"status": notify.StatusUpdated},
			"results": results,
		})
		return
	}
	c.JSON(status, gin.H{
		"error":   "Not all operations succeeded",
		"results": results,
	})
}

// batchStatus is 200 when every entry succeeded, 207 when some did, and the
// status of the first failure when none did.
func batchStatus(results []OperationResult) int {
	var firstErr error
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.err
			}
		}
	}
	switch {
	case failed == 0:
		return http.StatusOK
	case failed < len(results):
		return http.StatusMultiStatus
	default:
		return statusFor(firstErr)
	}
}

// StartMonitorHandler starts the belt speed monitor
func (h *Handlers) StartMonitorHandler(c *gin.Context) {
	outcome := h.app.Monitor.Start()
	msg := "Monitor started"
	if outcome == monitor.AlreadyRunning {
		msg = "Monitor is already running"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "outcome": outcome})
}

// StopMonitorHandler stops the belt speed monitor
func (h *Handlers) StopMonitorHandler(c *gin.Context) {
	outcome := h.app.Monitor.Stop()
	msg := "Monitor stopped"
	if outcome == monitor.NotRunning {
		msg = "Monitor is not running"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "outcome": outcome})
}

// MonitorStatusHandler reports the monitor state
func (h *Handlers) MonitorStatusHandler(c *gin.Context) {
	s := h.app.Monitor.Status()
	c.JSON(http.StatusOK, gin.H{
		"running":   s.Running,
		"run_id":    s.RunID,
		"variable":  s.Variable,
		"interval":  s.Interval.String(),
		"threshold": s.Threshold,
		"last":      s.Last,
	})
}
