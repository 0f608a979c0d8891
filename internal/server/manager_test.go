package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "tokenfsm_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(3)
	return reg
}

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ":9464", cfg.Addr)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestHandler_Metrics(t *testing.T) {
	h := NewHandler(testRegistry(t), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tokenfsm_test_total 3")
}

func TestHandler_Healthz(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]HealthCheck
		code   int
		body   map[string]string
	}{
		{name: "no checks", code: http.StatusOK, body: map[string]string{}},
		{
			name:   "all healthy",
			checks: map[string]HealthCheck{"redis": func(context.Context) error { return nil }},
			code:   http.StatusOK,
			body:   map[string]string{"redis": "ok"},
		},
		{
			name: "one failing",
			checks: map[string]HealthCheck{
				"redis":   func(context.Context) error { return nil },
				"history": func(context.Context) error { return errors.New("db down") },
			},
			code: http.StatusServiceUnavailable,
			body: map[string]string{"redis": "ok", "history": "db down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(prometheus.NewRegistry(), tt.checks)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.code, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestManager_StartAndShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	m := NewManager(NewHandler(testRegistry(t), nil), cfg, zap.NewNop())
	assert.False(t, m.IsRunning())

	require.NoError(t, m.Start())
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	assert.True(t, m.IsRunning())
	assert.Error(t, m.Start(), "second start")

	resp, err := http.Get("http://" + m.ListenAddr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tokenfsm_test_total")

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
	assert.False(t, m.IsRunning())
	assert.Error(t, m.Start(), "start after shutdown")
}

func TestManager_StartInvalidAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "256.0.0.1:bad"
	m := NewManager(http.NewServeMux(), cfg, nil)
	assert.Error(t, m.Start())
}
