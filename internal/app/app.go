package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/neekaru/opcua-gateway/internal/client"
	"github.com/neekaru/opcua-gateway/internal/config"
	"github.com/neekaru/opcua-gateway/internal/metrics"
	"github.com/neekaru/opcua-gateway/internal/monitor"
	"github.com/neekaru/opcua-gateway/internal/notify"
	"github.com/neekaru/opcua-gateway/internal/remote"
	"github.com/neekaru/opcua-gateway/internal/stream"
	"github.com/neekaru/opcua-gateway/internal/variables"
)

// App holds shared application state and resources
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	StartTime time.Time // Track startup time for health checks

	Sessions  *client.Manager
	Variables *variables.Accessor
	Monitor   *monitor.Monitor

	Backend    *notify.Backend
	Redis      *notify.RedisPublisher // nil unless configured
	Stream     *stream.Broadcaster
	Metrics    *metrics.Metrics
	dispatcher *notify.Dispatcher
}

// NewApp wires the gateway around service. ctx bounds the lifetime of
// background work such as monitor runs.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, service remote.Service) (*App, error) {
	table, err := cfg.Table()
	if err != nil {
		return nil, fmt.Errorf("variable table: %w", err)
	}
	if _, ok := table.Lookup(cfg.Monitor.Variable); !ok {
		return nil, fmt.Errorf("monitor variable %q is not bound", cfg.Monitor.Variable)
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		StartTime:  time.Now(),
		Metrics:    metrics.New(),
		dispatcher: notify.NewDispatcher(2, 100, logger),
	}

	a.Sessions = client.NewManager(cfg.OPCUA.Endpoint, service, logger)
	a.Stream = stream.NewBroadcaster(a.Sessions.Status, logger)
	a.Sessions.RegisterObserver(client.EventTypeStatus, client.NewLoggingObserver(logger))
	a.Sessions.RegisterObserver(client.EventTypeStatus, a.Metrics)
	a.Sessions.RegisterObserver(client.EventTypeStatus, a.Stream)

	a.Variables = variables.NewAccessor(table, a.Sessions, logger, variables.WithRecorder(a.Metrics))
	a.Backend = notify.NewBackend(cfg.Backend.URL, cfg.Backend.MachineID, a.dispatcher, logger)

	notifiers := monitor.Notifiers{notify.NewLogNotifier(logger), a.Metrics, a.Stream}
	if cfg.Redis.Addr != "" {
		a.Redis = notify.NewRedisPublisher(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel, a.dispatcher, logger)
		notifiers = append(notifiers, a.Redis)
		logger.Printf("Publishing speed changes to redis %s channel %s", cfg.Redis.Addr, a.Redis.Channel())
	}

	a.Monitor = monitor.New(ctx, a.Variables, cfg.Monitor.Variable, logger,
		monitor.WithInterval(cfg.Monitor.Interval),
		monitor.WithThreshold(cfg.Monitor.Threshold),
		monitor.WithNotifier(notifiers),
		monitor.WithRecorder(a.Metrics),
	)
	return a, nil
}

// Connect opens the controller session eagerly. A failure is logged and the
// next request retries.
func (a *App) Connect(ctx context.Context) {
	if _, err := a.Sessions.EnsureConnected(ctx); err != nil {
		a.Logger.Printf("Initial connection to %s failed: %v", a.Config.OPCUA.Endpoint, err)
	}
}

// Close stops the monitor, releases the session and drains notifications.
func (a *App) Close(ctx context.Context) {
	a.Monitor.Stop()
	a.Sessions.Disconnect(ctx)
	a.Sessions.Close()
	a.Stream.Close()
	a.dispatcher.Close()
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Printf("Error closing redis client: %v", err)
		}
	}
}
