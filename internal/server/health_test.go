package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func serveHealth(t *testing.T, h http.Handler) (int, DetailedHealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body DetailedHealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec.Code, body
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil)

	code, body := serveHealth(t, h.LivenessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, healthStatusOK, body.Status)
}

func TestHealthChecker_Readiness(t *testing.T) {
	tests := []struct {
		name      string
		ready     bool
		shutdown  bool
		pingErr   error
		wantCode  int
		wantCheck string
		wantValue string
	}{
		{name: "ready", ready: true, wantCode: http.StatusOK, wantCheck: "store", wantValue: healthStatusOK},
		{name: "not ready", ready: false, wantCode: http.StatusServiceUnavailable, wantCheck: "ready", wantValue: healthStatusNotReady},
		{name: "shutting down", ready: true, shutdown: true, wantCode: http.StatusServiceUnavailable, wantCheck: "shutdown", wantValue: healthStatusShuttingDown},
		{name: "store down", ready: true, pingErr: errors.New("disk I/O error"), wantCode: http.StatusServiceUnavailable, wantCheck: "store", wantValue: healthStatusUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := NewServerContext(context.Background(), nil, nil)
			defer func() { _ = sc.Shutdown() }()
			h := NewHealthChecker(sc)
			h.SetReady(tt.ready)
			h.AddDependency("store", pingerFunc(func(context.Context) error { return tt.pingErr }))
			if tt.shutdown {
				require.NoError(t, sc.Shutdown())
			}

			code, body := serveHealth(t, h.ReadinessHandler())
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantValue, body.Checks[tt.wantCheck])
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, healthStatusOK, body.Status)
			} else {
				assert.Equal(t, healthStatusNotReady, body.Status)
			}
		})
	}
}

func TestHealthChecker_Detailed(t *testing.T) {
	sc := NewServerContext(context.Background(), nil, nil)
	defer func() { _ = sc.Shutdown() }()

	h := NewHealthChecker(sc)
	h.SetVersion("1.2.3")
	h.AddDependency("store", pingerFunc(func(context.Context) error { return nil }))

	code, body := serveHealth(t, h.DetailedHealthHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, healthStatusOK, body.Checks["store"])
	assert.NotEmpty(t, body.Uptime)
}
