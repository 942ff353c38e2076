package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-time.Second, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61 * time.Minute, "01:01:00"},
		{25*time.Hour + 2*time.Second, "25:00:02"},
	}
	for _, tc := range tests {
		if got := FormatUptime(tc.in); got != tc.want {
			t.Errorf("FormatUptime(%v) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestCounters(t *testing.T) {
	c := New()
	c.AudioSent(8192)
	c.AudioSent(8192)
	c.AudioDropped()
	c.FrameSent(1000)
	c.ToolCall()

	if got := testutil.ToFloat64(c.audioSent); got != 2 {
		t.Errorf("audio sent = %v; want 2", got)
	}
	if got := testutil.ToFloat64(c.audioDropped); got != 1 {
		t.Errorf("audio dropped = %v; want 1", got)
	}
	if got := testutil.ToFloat64(c.bytesSent); got != 17384 {
		t.Errorf("bytes sent = %v; want 17384", got)
	}
	if got := testutil.ToFloat64(c.toolCalls); got != 1 {
		t.Errorf("tool calls = %v; want 1", got)
	}
}

func TestSnapshotUptimeAndNetwork(t *testing.T) {
	c := New()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	sys := c.Snapshot(start)
	if sys.Uptime != "00:00:00" {
		t.Errorf("inactive uptime = %q", sys.Uptime)
	}

	c.LinkOpened(start)
	c.AudioSent(2048)
	sys = c.Snapshot(start.Add(2 * time.Second))
	if sys.Uptime != "00:00:02" {
		t.Errorf("uptime = %q; want 00:00:02", sys.Uptime)
	}
	if sys.Network != 1 {
		t.Errorf("network = %v KiB/s; want 1", sys.Network)
	}

	c.LinkClosed()
	sys = c.Snapshot(start.Add(3 * time.Second))
	if sys.Uptime != "00:00:00" {
		t.Errorf("uptime after close = %q", sys.Uptime)
	}
	if sys.Network != 0 {
		t.Errorf("network after idle = %v; want 0", sys.Network)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.AudioSent(1)
	c.FrameDropped()
	c.LinkOpened(time.Now())
	if sys := c.Snapshot(time.Now()); sys.Uptime != "00:00:00" {
		t.Errorf("nil uptime = %q", sys.Uptime)
	}
}

func TestHandler(t *testing.T) {
	c := New()
	c.Interrupted()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "jarvis_interruptions_total 1") {
		t.Errorf("metrics output missing interruption counter:\n%s", rec.Body.String())
	}
}
