package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/jagan969646/My-Jarvis-Assistant/config"
	"github.com/jagan969646/My-Jarvis-Assistant/messages"
	"github.com/jagan969646/My-Jarvis-Assistant/metrics"
	"github.com/jagan969646/My-Jarvis-Assistant/session"
)

type fakeController struct {
	state *session.State

	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
	stopErr  error
}

func newFakeController() *fakeController {
	return &fakeController{state: session.NewState(session.DefaultLogCapacity)}
}

func (f *fakeController) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.startErr
}

func (f *fakeController) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.stopErr
}

func (f *fakeController) Snapshot() session.Snapshot { return f.state.Snapshot() }

func (f *fakeController) Subscribe(buffer int) (<-chan session.Event, func()) {
	return f.state.Subscribe(buffer)
}

func (f *fakeController) SessionID() string { return "test-session" }

func (f *fakeController) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

type received struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Payload   json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T, ctl Controller, origins ...string) (*Server, *httptest.Server) {
	t.Helper()
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cfg := &config.Config{HUDPort: 0, AllowedOrigins: origins}
	srv := NewServerWebsocket(cfg, ctl, metrics.New())
	srv.metricsInterval = 20 * time.Millisecond
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readType reads until a message of the given type arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string) received {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		var msg received
		if err := sonic.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func sendControl(t *testing.T, conn *websocket.Conn, action string) {
	t.Helper()
	msg := map[string]any{
		"type":    messages.TypeControl,
		"payload": messages.ControlPayload{Action: action},
	}
	data, err := sonic.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ctl := newFakeController()
	ctl.state.SetStatus(session.StatusSpeaking)
	_, ts := newTestServer(t, ctl)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	want := `{"status":"ok","active":false,"state":"SPEAKING"}`
	if string(body) != want {
		t.Errorf("health = %s, want %s", body, want)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, newFakeController())

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "jarvis_") {
		t.Errorf("metrics output missing jarvis counters")
	}
}

func TestStateOnConnect(t *testing.T) {
	ctl := newFakeController()
	ctl.state.AddLog(session.SourceSystem, "Initializing JARVIS Neural Link...")
	_, ts := newTestServer(t, ctl)
	conn := dial(t, ts)

	msg := readType(t, conn, messages.TypeState)
	var state messages.StatePayload
	if err := sonic.Unmarshal(msg.Payload, &state); err != nil {
		t.Fatal(err)
	}
	if state.Status != "IDLE" || state.Active {
		t.Errorf("state = %+v", state.StatusPayload)
	}
	if state.Label != "Protocols Offline" {
		t.Errorf("label = %q", state.Label)
	}
	if len(state.Logs) != 1 || state.Logs[0].Source != "SYSTEM" {
		t.Errorf("logs = %+v", state.Logs)
	}
}

func TestEventsForwarded(t *testing.T) {
	ctl := newFakeController()
	_, ts := newTestServer(t, ctl)
	conn := dial(t, ts)
	readType(t, conn, messages.TypeState)

	ctl.state.AddLog(session.SourceUser, "what's the weather")
	msg := readType(t, conn, messages.TypeLog)
	var entry messages.LogPayload
	if err := sonic.Unmarshal(msg.Payload, &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Source != "USER" || entry.Message != "what's the weather" {
		t.Errorf("log = %+v", entry)
	}
	if msg.SessionID != "test-session" {
		t.Errorf("session id = %q", msg.SessionID)
	}

	ctl.state.SetActive(true)
	msg = readType(t, conn, messages.TypeStatus)
	var status messages.StatusPayload
	if err := sonic.Unmarshal(msg.Payload, &status); err != nil {
		t.Fatal(err)
	}
	if !status.Active || status.Label != "System Standing By..." {
		t.Errorf("status = %+v", status)
	}

	ctl.state.PublishFrame([]byte{0xff, 0xd8})
	msg = readType(t, conn, messages.TypeFrame)
	var frame messages.FramePayload
	if err := sonic.Unmarshal(msg.Payload, &frame); err != nil {
		t.Fatal(err)
	}
	if frame.Data != "/9g=" || frame.MimeType != "image/jpeg" {
		t.Errorf("frame = %+v", frame)
	}
}

func TestControlMessages(t *testing.T) {
	ctl := newFakeController()
	_, ts := newTestServer(t, ctl)
	conn := dial(t, ts)
	readType(t, conn, messages.TypeState)

	sendControl(t, conn, messages.ActionPing)
	readType(t, conn, messages.TypePong)

	sendControl(t, conn, messages.ActionStart)
	sendControl(t, conn, messages.ActionStop)

	deadline := time.Now().Add(2 * time.Second)
	for {
		starts, stops := ctl.counts()
		if starts == 1 && stops == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("starts=%d stops=%d", starts, stops)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestControlErrors(t *testing.T) {
	tests := []struct {
		name     string
		startErr error
		stopErr  error
		send     func(t *testing.T, conn *websocket.Conn)
		wantCode string
	}{
		{
			name:     "start while active",
			startErr: session.ErrSessionActive,
			send:     func(t *testing.T, c *websocket.Conn) { sendControl(t, c, messages.ActionStart) },
			wantCode: messages.ErrCodeSessionActive,
		},
		{
			name:     "start failure",
			startErr: io.ErrUnexpectedEOF,
			send:     func(t *testing.T, c *websocket.Conn) { sendControl(t, c, messages.ActionStart) },
			wantCode: messages.ErrCodeSessionFailed,
		},
		{
			name:     "stop while idle",
			stopErr:  session.ErrNotActive,
			send:     func(t *testing.T, c *websocket.Conn) { sendControl(t, c, messages.ActionStop) },
			wantCode: messages.ErrCodeNotActive,
		},
		{
			name:     "unknown action",
			send:     func(t *testing.T, c *websocket.Conn) { sendControl(t, c, "launch") },
			wantCode: messages.ErrCodeInvalidMessage,
		},
		{
			name: "bad json",
			send: func(t *testing.T, c *websocket.Conn) {
				if err := c.WriteMessage(websocket.TextMessage, []byte("{")); err != nil {
					t.Fatal(err)
				}
			},
			wantCode: messages.ErrCodeInvalidMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := newFakeController()
			ctl.startErr = tt.startErr
			ctl.stopErr = tt.stopErr
			_, ts := newTestServer(t, ctl)
			conn := dial(t, ts)
			readType(t, conn, messages.TypeState)

			tt.send(t, conn)
			msg := readType(t, conn, messages.TypeError)
			var payload messages.ErrorPayload
			if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
				t.Fatal(err)
			}
			if payload.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", payload.Code, tt.wantCode)
			}
		})
	}
}

func TestMetricsPushed(t *testing.T) {
	ctl := newFakeController()
	_, ts := newTestServer(t, ctl)
	conn := dial(t, ts)

	msg := readType(t, conn, messages.TypeMetrics)
	var m messages.MetricsPayload
	if err := sonic.Unmarshal(msg.Payload, &m); err != nil {
		t.Fatal(err)
	}
	if m.Goroutines == 0 || m.Uptime != "00:00:00" {
		t.Errorf("metrics = %+v", m)
	}
}

func TestOriginRejected(t *testing.T) {
	_, ts := newTestServer(t, newFakeController(), "http://hud.local")

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("dial succeeded with a disallowed origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v", resp)
	}
}
