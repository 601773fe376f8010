package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wingolabs/roundcore/internal/hub"
	"github.com/wingolabs/roundcore/internal/integrity"
	"github.com/wingolabs/roundcore/internal/storage"
	"github.com/wingolabs/roundcore/pkg/healthprobe"
	"github.com/wingolabs/roundcore/pkg/types"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, mutate func(cfg *Config)) *Server {
	t.Helper()

	cfg := &Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
	}
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg)
}

// newIdleHub returns a hub that has never been started; its state is
// still fully readable, which is all the handlers need.
func newIdleHub() *hub.Hub {
	return hub.New(hub.Config{
		URL:    "ws://127.0.0.1:0/rt",
		Logger: zap.NewNop(),
	})
}

func TestNew(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	cfg := &Config{
		Port:          "8080",
		Logger:        logger,
		HealthChecker: healthChecker,
	}

	server := New(cfg)
	if server == nil {
		t.Fatal("New() returned nil server")
	}
	if server.server == nil {
		t.Error("New() server.server is nil")
	}
	if server.logger != logger {
		t.Error("New() logger not set correctly")
	}
	if server.healthChecker != healthChecker {
		t.Error("New() healthChecker not set correctly")
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestHealthEndpoint_Degraded(t *testing.T) {
	hc := healthprobe.New()
	hc.SetHealthFunc(func() bool { return false })

	server := newTestServer(t, func(cfg *Config) {
		cfg.HealthChecker = hc
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Degraded health status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		setReady       bool
		expectedStatus int
	}{
		{
			name:           "ready_when_set",
			setReady:       true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not_ready_initially",
			setReady:       false,
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := healthprobe.New()
			if tt.setReady {
				hc.SetReady(true)
			}

			server := newTestServer(t, func(cfg *Config) {
				cfg.HealthChecker = hc
			})

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()

			server.server.Handler.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Ready endpoint status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Metrics endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics response body: %v", err)
	}
	if len(body) == 0 {
		t.Error("Metrics endpoint returned empty body")
	}
}

func TestCurrentRoundHandler_MissingDuration(t *testing.T) {
	server := newTestServer(t, func(cfg *Config) {
		cfg.EventHub = newIdleHub()
	})

	req := httptest.NewRequest(http.MethodGet, "/api/rounds/current", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Missing duration status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errResp.Error == "" {
		t.Error("Error response missing error message")
	}
}

func TestCurrentRoundHandler_BadDuration(t *testing.T) {
	server := newTestServer(t, func(cfg *Config) {
		cfg.EventHub = newIdleHub()
	})

	for _, raw := range []string{"abc", "-3", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/api/rounds/current?duration="+raw, nil)
		w := httptest.NewRecorder()

		server.server.Handler.ServeHTTP(w, req)

		resp := w.Result()
		resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("duration=%q status = %d, want %d", raw, resp.StatusCode, http.StatusBadRequest)
		}
	}
}

func TestCurrentRoundHandler_NoRoundTracked(t *testing.T) {
	server := newTestServer(t, func(cfg *Config) {
		cfg.EventHub = newIdleHub()
	})

	req := httptest.NewRequest(http.MethodGet, "/api/rounds/current?duration=3", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("No round tracked status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestCurrentRoundHandler_ReturnsRound(t *testing.T) {
	h := newIdleHub()
	h.PublishLocal(&types.Envelope{
		Type:     types.EventRoundStarted,
		Duration: 3,
		Game: &types.Round{
			ID:       "r1",
			Duration: 3,
			Status:   types.RoundActive,
			EndTime:  time.Now().Add(3 * time.Minute),
		},
	})

	server := newTestServer(t, func(cfg *Config) {
		cfg.EventHub = h
	})

	req := httptest.NewRequest(http.MethodGet, "/api/rounds/current?duration=3", nil)
	w := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Current round status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var round types.Round
	if err := json.NewDecoder(resp.Body).Decode(&round); err != nil {
		t.Fatalf("Failed to decode round response: %v", err)
	}
	if round.ID != "r1" {
		t.Errorf("Round ID = %q, want %q", round.ID, "r1")
	}
}

func TestSyncStatusHandler(t *testing.T) {
	h := newIdleHub()

	server := newTestServer(t, func(cfg *Config) {
		cfg.EventHub = h
	})

	// Nothing received yet.
	req := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("Empty sync status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}

	h.PublishLocal(&types.Envelope{
		Type:   types.EventRoundSyncStatus,
		Status: &types.RoundSyncStatus{Healthy: true},
	})

	req = httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	w = httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Sync status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var status types.RoundSyncStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode sync status: %v", err)
	}
	if !status.Healthy {
		t.Error("Sync status Healthy = false, want true")
	}
}

func TestValidationEndpoints(t *testing.T) {
	store := storage.NewMemoryStore(zap.NewNop())
	store.PutRound(types.Round{
		ID:          "r1",
		Duration:    1,
		Status:      types.RoundCompleted,
		EndTime:     time.Now(),
		Result:      func() *int { v := 7; return &v }(),
		ResultColor: types.ColorGreen,
		ResultSize:  types.SizeBig,
	})

	validator := integrity.New(integrity.Config{Logger: zap.NewNop()}, store, nil)

	server := newTestServer(t, func(cfg *Config) {
		cfg.Validator = validator
	})

	// Trigger a sweep.
	req := httptest.NewRequest(http.MethodPost, "/api/validation/run", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Validation run status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var report types.ValidationReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("Failed to decode validation report: %v", err)
	}
	if report.TotalChecks == 0 {
		t.Error("Validation run performed no checks")
	}
	if !report.Healthy {
		t.Error("Validation report Healthy = false, want true")
	}

	// The report endpoint reflects the same cumulative state.
	req = httptest.NewRequest(http.MethodGet, "/api/validation/report", nil)
	w = httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp2 := w.Result()
	defer resp2.Body.Close()

	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("Validation report status = %d, want %d", resp2.StatusCode, http.StatusOK)
	}

	var report2 types.ValidationReport
	if err := json.NewDecoder(resp2.Body).Decode(&report2); err != nil {
		t.Fatalf("Failed to decode validation report: %v", err)
	}
	if report2.TotalChecks != report.TotalChecks {
		t.Errorf("Report TotalChecks = %d, want %d", report2.TotalChecks, report.TotalChecks)
	}
}

func TestAPIEndpoints_OnlyWithComponents(t *testing.T) {
	server := newTestServer(t, nil)

	for _, path := range []string{"/api/rounds/current?duration=3", "/api/sync/status", "/api/validation/report"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()

		server.server.Handler.ServeHTTP(w, req)

		resp := w.Result()
		resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s status = %d, want %d (route absent)", path, resp.StatusCode, http.StatusNotFound)
		}
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := newTestServer(t, nil)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-serverDone:
		if err != nil {
			t.Errorf("Start() returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}

func TestServer_Timeouts(t *testing.T) {
	server := newTestServer(t, nil)

	if server.server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want %v", server.server.ReadTimeout, 15*time.Second)
	}
	if server.server.ReadHeaderTimeout != 10*time.Second {
		t.Errorf("ReadHeaderTimeout = %v, want %v", server.server.ReadHeaderTimeout, 10*time.Second)
	}
	if server.server.WriteTimeout != 15*time.Second {
		t.Errorf("WriteTimeout = %v, want %v", server.server.WriteTimeout, 15*time.Second)
	}
	if server.server.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want %v", server.server.IdleTimeout, 60*time.Second)
	}
}
