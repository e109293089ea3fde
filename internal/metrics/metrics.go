// Package metrics exposes gateway activity as prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/neekaru/opcua-gateway/internal/client"
	"github.com/neekaru/opcua-gateway/internal/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gateway"

// Metrics holds every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	sessionStatus  *prometheus.GaugeVec
	connects       *prometheus.CounterVec
	operations     *prometheus.CounterVec
	changes        *prometheus.CounterVec
	monitorReads   *prometheus.CounterVec
	monitorRunning prometheus.Gauge
}

// New registers the gateway collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_status",
				Help:      "1 for the current controller session status, 0 otherwise.",
			},
			[]string{"status"},
		),
		connects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_connects_total",
				Help:      "Connect attempts against the controller by result.",
			},
			[]string{"result"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "variable_operations_total",
				Help:      "Variable reads and writes by variable and result.",
			},
			[]string{"op", "variable", "result"},
		),
		changes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "monitor_changes_total",
				Help:      "Significant changes reported by the speed monitor.",
			},
			[]string{"variable"},
		),
		monitorReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "monitor_reads_total",
				Help:      "Scheduled monitor reads by result.",
			},
			[]string{"result"},
		),
		monitorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_running",
			Help:      "1 while the speed monitor is running.",
		}),
	}

	m.registry.MustRegister(m.sessionStatus, m.connects, m.operations, m.changes, m.monitorReads, m.monitorRunning)
	m.setSessionStatus(client.StatusDisconnected)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) setSessionStatus(current client.Status) {
	for _, s := range []client.Status{client.StatusDisconnected, client.StatusConnecting, client.StatusConnected, client.StatusFailed} {
		v := 0.0
		if s == current {
			v = 1
		}
		m.sessionStatus.WithLabelValues(s.String()).Set(v)
	}
}

// OnEvent implements client.Observer.
func (m *Metrics) OnEvent(event client.Event) {
	e, ok := event.(*client.StatusEvent)
	if !ok {
		return
	}
	m.setSessionStatus(e.Status)

	if e.Previous != client.StatusConnecting {
		return
	}
	switch e.Status {
	case client.StatusConnected:
		m.connects.WithLabelValues("success").Inc()
	case client.StatusFailed:
		m.connects.WithLabelValues("error").Inc()
	}
}

// ObserveOperation implements variables.Recorder.
func (m *Metrics) ObserveOperation(op, name string, err error) {
	m.operations.WithLabelValues(op, name, result(err)).Inc()
}

// OnChange implements monitor.Notifier.
func (m *Metrics) OnChange(_ context.Context, c monitor.Change) {
	m.changes.WithLabelValues(c.Variable).Inc()
}

// ObserveRead implements monitor.Recorder.
func (m *Metrics) ObserveRead(err error) {
	m.monitorReads.WithLabelValues(result(err)).Inc()
}

// SetRunning implements monitor.Recorder.
func (m *Metrics) SetRunning(running bool) {
	if running {
		m.monitorRunning.Set(1)
		return
	}
	m.monitorRunning.Set(0)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
