package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/neekaru/opcua-gateway/internal/app"
	"github.com/neekaru/opcua-gateway/internal/config"
	"github.com/neekaru/opcua-gateway/pkg/logger"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	app    *app.App
	config *config.Config
	srv    *http.Server
}

// NewServer creates a new server instance
func NewServer(app *app.App, config *config.Config) *Server {
	// Set up gin to log to the same log file
	gin.DefaultWriter = io.MultiWriter(os.Stdout, logger.GetWriter(app.Logger))
	gin.DefaultErrorWriter = io.MultiWriter(os.Stderr, logger.GetWriter(app.Logger))

	r := gin.Default()

	// Configure CORS
	corsConfig := config.GetCorsConfig()
	r.Use(cors.New(corsConfig))

	s := &Server{
		router: r,
		app:    app,
		config: config,
	}
	s.srv = &http.Server{
		Addr:    ":" + config.ServerPort,
		Handler: r,
	}
	return s
}

// Start starts the HTTP server. Listen errors are sent on the returned
// channel.
func (s *Server) Start() <-chan error {
	errs := make(chan error, 1)
	go func() {
		s.app.Logger.Printf("Gateway listening on :%s", s.config.ServerPort)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.app.Logger.Printf("Server error: %v", err)
			errs <- err
		}
		close(errs)
	}()
	return errs
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Println("Shutting down server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		s.app.Logger.Printf("Server forced to shutdown: %v", err)
		if cerr := s.srv.Close(); cerr != nil {
			s.app.Logger.Printf("Error killing server: %v", cerr)
		}
		return fmt.Errorf("server forced to shutdown: %v", err)
	}

	s.app.Logger.Println("Server exited")
	return nil
}
