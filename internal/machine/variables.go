package machine

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neekaru/opcua-gateway/internal/speed"
)

// ListVariablesHandler lists the binding table
func (h *Handlers) ListVariablesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"variables": h.app.Variables.Table().Bindings()})
}

// GetVariableHandler reads one variable by name
func (h *Handlers) GetVariableHandler(c *gin.Context) {
	name := c.Param("name")
	value, err := h.app.Variables.ReadVariable(c.Request.Context(), name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "value": value})
}

// PutVariableHandler writes one variable by name
func (h *Handlers) PutVariableHandler(c *gin.Context) {
	name := c.Param("name")

	var req VariableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	value, err := speed.Validate(*req.Value)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.app.Variables.WriteVariable(c.Request.Context(), name, value); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "value": value.Float64()})
}
