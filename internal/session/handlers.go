package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neekaru/opcua-gateway/internal/app"
)

// Handlers contains HTTP handlers for the controller session
type Handlers struct {
	app     *app.App
	service *Service
}

// NewHandlers creates a new session handlers instance
func NewHandlers(app *app.App) *Handlers {
	return &Handlers{
		app:     app,
		service: NewService(app),
	}
}

// StatusHandler reports the controller session state
func (h *Handlers) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Status())
}

// RestartHandler reconnects the controller session
func (h *Handlers) RestartHandler(c *gin.Context) {
	status, err := h.service.Restart(c.Request.Context())
	if err != nil {
		h.app.Logger.Printf("Failed to restart session: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  "Failed to connect: " + err.Error(),
			"status": status,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":    "Session restarted and connected successfully",
		"status": status,
	})
}

// DisconnectHandler releases the controller session
func (h *Handlers) DisconnectHandler(c *gin.Context) {
	status := h.service.Disconnect(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"msg":    "Session disconnected",
		"status": status,
	})
}
