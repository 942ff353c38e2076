// Package metrics counts link traffic for prometheus and produces the
// system readout shown on the HUD.
package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jarvis"

// System is the HUD readout. Memory is heap in use in MiB, Network is
// upstream KiB/s since the previous snapshot and Uptime is HH:MM:SS of the
// current link.
type System struct {
	Memory     float64 `json:"memory"`
	Goroutines int     `json:"goroutines"`
	Network    float64 `json:"network"`
	Uptime     string  `json:"uptime"`
}

// Collector owns the prometheus registry. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	audioSent      prometheus.Counter
	audioDropped   prometheus.Counter
	framesSent     prometheus.Counter
	framesDropped  prometheus.Counter
	bytesSent      prometheus.Counter
	playbackChunks prometheus.Counter
	interruptions  prometheus.Counter
	toolCalls      prometheus.Counter
	sessions       prometheus.Counter

	mu         sync.Mutex
	startedAt  time.Time
	active     bool
	totalBytes int64
	lastBytes  int64
	lastSample time.Time
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	})
}

// New creates a collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry:       prometheus.NewRegistry(),
		audioSent:      counter("audio_chunks_sent_total", "Microphone blocks sent to the model."),
		audioDropped:   counter("audio_chunks_dropped_total", "Microphone blocks dropped or rejected."),
		framesSent:     counter("frames_sent_total", "Camera frames sent to the model."),
		framesDropped:  counter("frames_dropped_total", "Camera frames that failed to encode or send."),
		bytesSent:      counter("bytes_sent_total", "Media bytes sent to the model."),
		playbackChunks: counter("playback_chunks_total", "Model audio chunks scheduled for playback."),
		interruptions:  counter("interruptions_total", "Playback interruptions."),
		toolCalls:      counter("tool_calls_total", "Tool invocations answered."),
		sessions:       counter("sessions_total", "Links opened."),
	}
	c.registry.MustRegister(
		c.audioSent, c.audioDropped, c.framesSent, c.framesDropped, c.bytesSent,
		c.playbackChunks, c.interruptions, c.toolCalls, c.sessions,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) addBytes(n int) {
	c.bytesSent.Add(float64(n))
	c.mu.Lock()
	c.totalBytes += int64(n)
	c.mu.Unlock()
}

// AudioSent records a microphone block of n bytes.
func (c *Collector) AudioSent(n int) {
	if c == nil {
		return
	}
	c.audioSent.Inc()
	c.addBytes(n)
}

// AudioDropped records a lost microphone block.
func (c *Collector) AudioDropped() {
	if c == nil {
		return
	}
	c.audioDropped.Inc()
}

// FrameSent records a camera frame of n bytes.
func (c *Collector) FrameSent(n int) {
	if c == nil {
		return
	}
	c.framesSent.Inc()
	c.addBytes(n)
}

// FrameDropped records a lost camera frame.
func (c *Collector) FrameDropped() {
	if c == nil {
		return
	}
	c.framesDropped.Inc()
}

// PlaybackScheduled records an inbound audio chunk.
func (c *Collector) PlaybackScheduled() {
	if c == nil {
		return
	}
	c.playbackChunks.Inc()
}

// Interrupted records a barge-in.
func (c *Collector) Interrupted() {
	if c == nil {
		return
	}
	c.interruptions.Inc()
}

// ToolCall records an answered tool invocation.
func (c *Collector) ToolCall() {
	if c == nil {
		return
	}
	c.toolCalls.Inc()
}

// LinkOpened starts the uptime clock.
func (c *Collector) LinkOpened(now time.Time) {
	if c == nil {
		return
	}
	c.sessions.Inc()
	c.mu.Lock()
	c.startedAt = now
	c.active = true
	c.mu.Unlock()
}

// LinkClosed stops the uptime clock.
func (c *Collector) LinkClosed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

// Snapshot returns the HUD readout at now.
func (c *Collector) Snapshot(now time.Time) System {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	sys := System{
		Memory:     float64(ms.HeapInuse) / (1 << 20),
		Goroutines: runtime.NumGoroutine(),
		Uptime:     "00:00:00",
	}
	if c == nil {
		return sys
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		sys.Uptime = FormatUptime(now.Sub(c.startedAt))
	}
	if !c.lastSample.IsZero() {
		if elapsed := now.Sub(c.lastSample).Seconds(); elapsed > 0 {
			sys.Network = float64(c.totalBytes-c.lastBytes) / 1024 / elapsed
		}
	}
	c.lastBytes = c.totalBytes
	c.lastSample = now
	return sys
}

// FormatUptime renders d as HH:MM:SS.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}
