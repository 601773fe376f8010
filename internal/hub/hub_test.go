package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/wingolabs/roundcore/pkg/types"
	"go.uber.org/zap"
)

// newWSServer starts a test WebSocket server that hands each accepted
// connection to handler and counts accepted connections.
func newWSServer(t *testing.T, handler func(conn *websocket.Conn)) (url string, dials *atomic.Int32) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	dials = &atomic.Int32{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		dials.Add(1)
		handler(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), dials
}

func newTestHub(t *testing.T, url string) *Hub {
	t.Helper()

	return New(Config{
		URL:         url,
		DialTimeout: 2 * time.Second,
		Backoff: BackoffPolicy{
			BaseDelay:   10 * time.Millisecond,
			CapDelay:    40 * time.Millisecond,
			LongDelay:   100 * time.Millisecond,
			CapAttempts: 3,
		},
		MessageBufferSize: 64,
		MetricsWindow:     2 * time.Second,
		OddsWindow:        1 * time.Second,
		Logger:            zap.NewNop(),
	})
}

func waitForState(t *testing.T, h *Hub, want ConnState) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub never reached state %s (currently %s)", want, h.State())
}

func TestHub_ReceivesAndAppliesEvents(t *testing.T) {
	payload, _ := json.Marshal(types.Envelope{
		Type: types.EventRoundStarted,
		Game: &types.Round{ID: "r-1", Duration: 3, Status: types.RoundActive},
	})

	url, _ := newWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, payload)
		// Keep the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	h := newTestHub(t, url)
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer h.Close()

	waitForState(t, h, StateConnected)

	select {
	case env := <-h.Events():
		if env.Type != types.EventRoundStarted {
			t.Errorf("expected round-started, got %s", env.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	if got := h.CurrentRound(3); got == nil || got.ID != "r-1" {
		t.Errorf("expected current round r-1 for duration 3, got %+v", got)
	}
}

func TestHub_UnparseableMessageDoesNotDropConnection(t *testing.T) {
	valid, _ := json.Marshal(types.Envelope{
		Type:     types.EventAgentActivity,
		Activity: &types.AgentActivity{ID: "act-1", AgentID: "agent-1"},
	})

	url, _ := newWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		conn.WriteMessage(websocket.TextMessage, valid)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	h := newTestHub(t, url)
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer h.Close()

	select {
	case env := <-h.Events():
		if env.Type != types.EventAgentActivity {
			t.Errorf("expected agent-activity after garbage, got %s", env.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("valid message after garbage never arrived")
	}

	if h.State() != StateConnected {
		t.Errorf("connection must survive a malformed message, state %s", h.State())
	}
}

func TestHub_ReconnectsAfterServerDrop(t *testing.T) {
	var dials *atomic.Int32
	url, dials := newWSServer(t, func(conn *websocket.Conn) {
		if dials.Load() == 1 {
			conn.Close() // first connection dropped immediately
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	h := newTestHub(t, url)
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer h.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if dials.Load() >= 2 && h.State() == StateConnected {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("hub never reconnected: %d dials, state %s", dials.Load(), h.State())
}

func TestHub_IntentionalCloseSuppressesReconnect(t *testing.T) {
	url, dials := newWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	h := newTestHub(t, url)
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	waitForState(t, h, StateConnected)

	if err := h.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// Give a would-be reconnect loop ample time to misbehave.
	time.Sleep(200 * time.Millisecond)

	if got := dials.Load(); got != 1 {
		t.Errorf("expected exactly 1 dial after intentional close, got %d", got)
	}
	if h.State() != StateDisconnected {
		t.Errorf("expected disconnected after close, got %s", h.State())
	}
}

func TestHub_PublishLocal(t *testing.T) {
	// No server needed: local publishes bypass the transport.
	h := newTestHub(t, "ws://127.0.0.1:1/never-dialed")

	report := &types.ValidationReport{TotalChecks: 12, PassedChecks: 12, Healthy: true}
	h.PublishLocal(&types.Envelope{Type: types.EventValidationReport, Report: report})

	select {
	case env := <-h.Events():
		if env.Type != types.EventValidationReport {
			t.Errorf("expected validation-report, got %s", env.Type)
		}
		if env.Report.TotalChecks != 12 {
			t.Errorf("expected 12 checks, got %d", env.Report.TotalChecks)
		}
	default:
		t.Fatal("expected locally published event on observer channel")
	}

	if got := h.LastValidationReport(); got == nil || !got.Healthy {
		t.Errorf("expected last report retained, got %+v", got)
	}
}

func TestHub_PublishLocalAfterCloseDoesNotPanic(t *testing.T) {
	url, _ := newWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	h := newTestHub(t, url)
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	waitForState(t, h, StateConnected)

	if err := h.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// The validator's sweep loop can race teardown and push one last
	// report into an already-closed hub.
	report := &types.ValidationReport{TotalChecks: 3, PassedChecks: 3, Healthy: true}
	h.PublishLocal(&types.Envelope{Type: types.EventValidationReport, Report: report})

	if got := h.LastValidationReport(); got == nil || got.TotalChecks != 3 {
		t.Errorf("expected report applied after close, got %+v", got)
	}
}

func TestHub_BackoffGrowsWhileServerUnreachable(t *testing.T) {
	// Dial a port nobody listens on; count failures via state flapping.
	h := newTestHub(t, "ws://127.0.0.1:1/nope")
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	if h.State() == StateConnected {
		t.Error("hub cannot be connected to a dead endpoint")
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}
