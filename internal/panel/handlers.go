package panel

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/neekaru/opcua-gateway/internal/app"
)

// Handlers contains HTTP handlers for the operator panel
type Handlers struct {
	app     *app.App
	service *Service
}

// NewHandlers creates a new panel handlers instance. The QR code points at
// the configured public URL's health page.
func NewHandlers(app *app.App) *Handlers {
	target := ""
	if base := strings.TrimRight(app.Config.PublicURL, "/"); base != "" {
		target = base + "/health"
	}
	return &Handlers{
		app:     app,
		service: NewService(target),
	}
}

// QRHandler returns the panel QR code. ?format=base64 returns a JSON data URL
// instead of the PNG.
func (h *Handlers) QRHandler(c *gin.Context) {
	size := DefaultSize
	if s := c.Query("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > 1024 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 64 and 1024"})
			return
		}
		size = n
	}

	if h.service.Target() == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No public URL configured"})
		return
	}

	if c.Query("format") == "base64" {
		dataURL, err := h.service.DataURL(size)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"qrcode": dataURL, "target": h.service.Target()})
		return
	}

	png, err := h.service.PNG(size)
	if err != nil {
		h.app.Logger.Printf("QR generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
