package server

import (
	"github.com/gin-gonic/gin"
	"github.com/neekaru/opcua-gateway/internal/app"
	"github.com/neekaru/opcua-gateway/internal/health"
	"github.com/neekaru/opcua-gateway/internal/machine"
	"github.com/neekaru/opcua-gateway/internal/panel"
	"github.com/neekaru/opcua-gateway/internal/session"
)

// SetupRoutes configures all the routes for the application
func (s *Server) SetupRoutes() {
	Register(s.router, s.app)
}

// Register mounts every gateway route on r
func Register(r gin.IRouter, a *app.App) {
	// Register health check handlers
	healthHandlers := health.NewHandlers(a)
	r.GET("/", healthHandlers.RootHandler)
	r.GET("/health", healthHandlers.HealthCheckHandler)

	// Register machine speed handlers
	machineHandlers := machine.NewHandlers(a)
	for _, axis := range machine.Axes {
		r.GET("/"+axis.Key, machineHandlers.GetSpeedHandler(axis))
		r.PATCH("/"+axis.Key, machineHandlers.SetSpeedHandler(axis))
	}
	r.GET("/speed", machineHandlers.GetSpeedHandler(machine.Belt()))
	r.PATCH("/speed", machineHandlers.PatchSpeedHandler)
	r.POST("/stop", machineHandlers.StopHandler)

	// Register monitor handlers
	r.POST("/startBeltSpeedMonitor", machineHandlers.StartMonitorHandler)
	r.POST("/stopBeltSpeedMonitor", machineHandlers.StopMonitorHandler)
	r.GET("/monitor/status", machineHandlers.MonitorStatusHandler)

	// Register variable handlers
	r.GET("/variables", machineHandlers.ListVariablesHandler)
	r.GET("/variables/:name", machineHandlers.GetVariableHandler)
	r.PUT("/variables/:name", machineHandlers.PutVariableHandler)

	// Register session handlers
	sessionHandlers := session.NewHandlers(a)
	r.GET("/session/status", sessionHandlers.StatusHandler)
	r.POST("/session/restart", sessionHandlers.RestartHandler)
	r.POST("/session/disconnect", sessionHandlers.DisconnectHandler)

	// Register panel and streaming handlers
	panelHandlers := panel.NewHandlers(a)
	r.GET("/panel/qr", panelHandlers.QRHandler)
	r.GET("/ws", a.Stream.Handler)
	r.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
}
