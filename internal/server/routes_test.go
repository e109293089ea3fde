package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neekaru/opcua-gateway/internal/app"
	"github.com/neekaru/opcua-gateway/internal/config"
	"github.com/neekaru/opcua-gateway/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gateway struct {
	app    *app.App
	sim    *remote.Simulator
	router *gin.Engine
}

func newGateway(t *testing.T, configure ...func(*config.Config)) *gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.NewConfig()
	cfg.Monitor.Interval = 5 * time.Millisecond
	for _, f := range configure {
		f(cfg)
	}
	table, err := cfg.Table()
	require.NoError(t, err)

	sim := app.NewSimulator(table)
	a, err := app.NewApp(context.Background(), cfg, log.New(io.Discard, "", 0), sim)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	r := gin.New()
	Register(r, a)
	return &gateway{app: a, sim: sim, router: r}
}

func (g *gateway) identifier(name string) string {
	b, _ := g.app.Variables.Table().Lookup(name)
	return b.Identifier
}

func (g *gateway) do(method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec, decoded
}

func TestGetSpeed(t *testing.T) {
	g := newGateway(t)
	g.sim.Set(g.identifier("belt.actual"), 55.5)

	rec, body := g.do(http.MethodGet, "/speedOfBelt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 55.5, body["speedOfBelt"])
}

func TestGetLegacySpeed(t *testing.T) {
	g := newGateway(t)
	g.sim.Set(g.identifier("belt.actual"), 61.5)

	rec, body := g.do(http.MethodGet, "/speed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 61.5, body["speedOfBelt"])
}

func TestSetSpeed(t *testing.T) {
	g := newGateway(t)

	rec, body := g.do(http.MethodPatch, "/speedOfDrum", `{"speed": 42.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `Speed set to 42.5% for node ns=3;s="OPC_Daten"."Sollwert Magnettrommel"`, body["message"])

	v, _ := g.sim.Value(g.identifier("drum.target"))
	assert.Equal(t, 42.5, v)

	rec, body = g.do(http.MethodGet, "/speedOfDrum", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 42.5, body["speedOfDrum"])
}

func TestSetSpeed_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"above range", `{"speed": 150}`, http.StatusUnprocessableEntity, "Speeds above 100% are not allowed!"},
		{"below range", `{"speed": -1}`, http.StatusUnprocessableEntity, "Speeds below 0% are not allowed!"},
		{"just above", `{"speed": 100.0001}`, http.StatusUnprocessableEntity, "Speeds above 100% are not allowed!"},
		{"missing speed", `{}`, http.StatusBadRequest, "Invalid request"},
		{"not json", `speed=5`, http.StatusBadRequest, "Invalid request"},
		{"string speed", `{"speed": "fast"}`, http.StatusBadRequest, "Invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGateway(t)
			rec, body := g.do(http.MethodPatch, "/speedOfFeeder", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, body["error"])
			assert.Zero(t, g.sim.Stats().Writes)
			assert.Zero(t, g.sim.Stats().Connects)
		})
	}
}

func TestSetSpeed_Boundaries(t *testing.T) {
	g := newGateway(t)
	for _, body := range []string{`{"speed": 0}`, `{"speed": 100}`} {
		rec, _ := g.do(http.MethodPatch, "/speedOfBelt", body)
		assert.Equal(t, http.StatusOK, rec.Code, body)
	}
}

func TestSetSpeed_NotifiesBackend(t *testing.T) {
	got := make(chan string, 1)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Method + " " + r.URL.Path
	}))
	defer backend.Close()

	g := newGateway(t, func(c *config.Config) {
		c.Backend.URL = backend.URL
		c.Backend.MachineID = "machine-1"
	})

	rec, _ := g.do(http.MethodPatch, "/speedOfBelt", `{"speed": 10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case call := <-got:
		assert.Equal(t, "PATCH /api/machines/machine-1", call)
	case <-time.After(2 * time.Second):
		t.Fatal("backend not notified")
	}
}

func TestErrorMapping(t *testing.T) {
	g := newGateway(t)

	g.sim.SetDown(true)
	rec, _ := g.do(http.MethodGet, "/speedOfBelt", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	g.sim.SetDown(false)
	g.sim.FailNext(errors.New("BadCommunicationError"))
	rec, body := g.do(http.MethodGet, "/speedOfBelt", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, body["error"], "BadCommunicationError")

	// the failed read demoted the session; this one reconnects
	rec, _ = g.do(http.MethodGet, "/speedOfBelt", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStop(t *testing.T) {
	g := newGateway(t)
	for _, name := range []string{"belt.target", "drum.target", "feeder.target"} {
		g.sim.Set(g.identifier(name), 70)
	}

	rec, body := g.do(http.MethodPost, "/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "All machine speeds have been set to 0.", body["message"])
	assert.Len(t, body["details"], 3)

	for _, name := range []string{"belt.target", "drum.target", "feeder.target"} {
		v, _ := g.sim.Value(g.identifier(name))
		assert.Zero(t, v, name)
	}
}

func TestStop_PartialFailure(t *testing.T) {
	g := newGateway(t)
	g.sim.FailWrites(g.identifier("drum.target"), errors.New("BadNotWritable"))

	rec, body := g.do(http.MethodPost, "/stop", "")
	require.Equal(t, http.StatusMultiStatus, rec.Code)

	details := body["details"].([]interface{})
	require.Len(t, details, 3)
	byName := make(map[string]map[string]interface{})
	for _, d := range details {
		entry := d.(map[string]interface{})
		byName[entry["name"].(string)] = entry
	}
	assert.Equal(t, true, byName["belt.target"]["ok"])
	assert.Equal(t, false, byName["drum.target"]["ok"])
	assert.Contains(t, byName["drum.target"]["error"], "BadNotWritable")
	assert.Equal(t, true, byName["feeder.target"]["ok"])
}

func TestPatchSpeedOperations(t *testing.T) {
	g := newGateway(t)

	rec, body := g.do(http.MethodPatch, "/speed", `{"operations":[
		{"path":"/SpeedOfBelt","value":20},
		{"path":"/SpeedOfVibration","value":35}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "200 OK", body["message"])
	assert.Equal(t, map[string]interface{}{"status": "Speed updated successfully"}, body["data"])

	belt, _ := g.sim.Value(g.identifier("belt.target"))
	feeder, _ := g.sim.Value(g.identifier("feeder.target"))
	assert.Equal(t, 20.0, belt)
	assert.Equal(t, 35.0, feeder)
}

func TestPatchSpeedOperations_ValidatesBeforeWriting(t *testing.T) {
	g := newGateway(t)

	rec, body := g.do(http.MethodPatch, "/speed", `{"operations":[
		{"path":"/SpeedOfBelt","value":20},
		{"path":"/SpeedOfDrum","value":101}
	]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "operation 1: Speeds above 100% are not allowed!", body["error"])

	rec, body = g.do(http.MethodPatch, "/speed", `{"operations":[
		{"path":"/SpeedOfBelt","value":20},
		{"path":"/SpeedOfPress","value":10}
	]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "operation 1: Invalid path: /SpeedOfPress", body["error"])

	assert.Zero(t, g.sim.Stats().Writes)
}

func TestVariables(t *testing.T) {
	g := newGateway(t)

	rec, body := g.do(http.MethodGet, "/variables", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["variables"], 6)

	rec, body = g.do(http.MethodPut, "/variables/feeder.target", `{"value": 12.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 12.5, body["value"])

	rec, body = g.do(http.MethodGet, "/variables/feeder.actual", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 12.5, body["value"])

	rec, body = g.do(http.MethodGet, "/variables/press.actual", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, `unknown variable "press.actual"`, body["error"])

	rec, body = g.do(http.MethodPut, "/variables/belt.actual", `{"value": 10}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, `variable "belt.actual" is not writeable`, body["error"])
}

func TestSessionRoutes(t *testing.T) {
	g := newGateway(t)

	rec, body := g.do(http.MethodGet, "/session/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disconnected", body["status"])

	rec, body = g.do(http.MethodPost, "/session/restart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := body["status"].(map[string]interface{})
	assert.Equal(t, "connected", status["status"])
	assert.Equal(t, true, status["connected"])

	rec, body = g.do(http.MethodPost, "/session/disconnect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disconnected", body["status"].(map[string]interface{})["status"])

	g.sim.FailConnect(errors.New("connection refused"))
	rec, body = g.do(http.MethodPost, "/session/restart", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "failed", body["status"].(map[string]interface{})["status"])
}

func TestMonitorRoutes(t *testing.T) {
	g := newGateway(t)

	rec, body := g.do(http.MethodPost, "/startBeltSpeedMonitor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Monitor started", body["message"])

	_, body = g.do(http.MethodPost, "/startBeltSpeedMonitor", "")
	assert.Equal(t, "Monitor is already running", body["message"])

	_, body = g.do(http.MethodGet, "/monitor/status", "")
	assert.Equal(t, true, body["running"])
	assert.Equal(t, "belt.actual", body["variable"])
	assert.NotEmpty(t, body["run_id"])

	_, body = g.do(http.MethodPost, "/stopBeltSpeedMonitor", "")
	assert.Equal(t, "Monitor stopped", body["message"])

	_, body = g.do(http.MethodPost, "/stopBeltSpeedMonitor", "")
	assert.Equal(t, "Monitor is not running", body["message"])
}

func TestHealthAndMetrics(t *testing.T) {
	g := newGateway(t)

	rec, body := g.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "disconnected", body["session"])

	rec, body = g.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	g.do(http.MethodGet, "/speedOfBelt", "")
	rec, _ = g.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gateway_variable_operations_total{op="read",result="success",variable="belt.actual"} 1`)
}

func TestMetricsUnknownVariablesShareOneSeries(t *testing.T) {
	g := newGateway(t)
	for i := 0; i < 20; i++ {
		rec, _ := g.do(http.MethodGet, fmt.Sprintf("/variables/junk%d", i), "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	rec, _ := g.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.NotContains(t, out, "junk")
	assert.Contains(t, out, `gateway_variable_operations_total{op="read",result="error",variable="unknown"} 20`)
}

func TestPanelQR(t *testing.T) {
	g := newGateway(t)
	rec, _ := g.do(http.MethodGet, "/panel/qr", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	g = newGateway(t, func(c *config.Config) { c.PublicURL = "http://gateway.local:8000/" })
	rec, _ = g.do(http.MethodGet, "/panel/qr", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec, body := g.do(http.MethodGet, "/panel/qr?format=base64&size=128", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://gateway.local:8000/health", body["target"])
	assert.Contains(t, body["qrcode"], "data:image/png;base64,")

	rec, _ = g.do(http.MethodGet, "/panel/qr?size=9", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthWhileMonitorStopWaits(t *testing.T) {
	g := newGateway(t)
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	g.sim.OnRead(func(string) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	})
	defer close(release)

	rec, _ := g.do(http.MethodPost, "/startBeltSpeedMonitor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	<-entered

	go g.do(http.MethodPost, "/stopBeltSpeedMonitor", "")
	time.Sleep(20 * time.Millisecond)

	answered := make(chan map[string]interface{}, 2)
	go func() {
		_, body := g.do(http.MethodGet, "/health", "")
		answered <- body
		_, body = g.do(http.MethodGet, "/monitor/status", "")
		answered <- body
	}()

	for i := 0; i < 2; i++ {
		select {
		case body := <-answered:
			assert.NotNil(t, body)
		case <-time.After(time.Second):
			t.Fatal("request blocked while the monitor stop waited for a read")
		}
	}
}
