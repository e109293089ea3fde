package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neekaru/opcua-gateway/internal/app"
	"github.com/neekaru/opcua-gateway/internal/client"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// Handlers contains HTTP handlers for health checks
type Handlers struct {
	app *app.App
}

// NewHandlers creates a new health handlers instance
func NewHandlers(app *app.App) *Handlers {
	return &Handlers{app: app}
}

// RootHandler handles the root endpoint for Docker health checks
func (h *Handlers) RootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(h.app.StartTime).String(),
		"session": h.app.Sessions.Status().String(),
		"version": Version,
	})
}

// HealthCheckHandler handles the health check endpoint. It never touches the
// controller, so it answers even while a reconnect is in flight.
func (h *Handlers) HealthCheckHandler(c *gin.Context) {
	snap := h.app.Sessions.Snapshot()

	h.app.Logger.Printf("Health check requested from %s", c.ClientIP())

	// Always return 200 OK status
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"uptime":          time.Since(h.app.StartTime).String(),
		"endpoint":        snap.Endpoint,
		"session":         snap.Status.String(),
		"connected":       snap.Status == client.StatusConnected,
		"monitor_running": h.app.Monitor.Running(),
		"ws_clients":      h.app.Stream.ClientCount(),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}
