package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/jagan969646/My-Jarvis-Assistant/audio"
	"github.com/jagan969646/My-Jarvis-Assistant/capture"
	"github.com/jagan969646/My-Jarvis-Assistant/gemini"
	"github.com/jagan969646/My-Jarvis-Assistant/playback"
)

type fakeSource struct {
	mu      sync.Mutex
	at      float64
	buf     *audio.Buffer
	onEnded func()
	stopped bool
}

func (s *fakeSource) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func (s *fakeSource) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// end simulates the source playing out.
func (s *fakeSource) end() { s.onEnded() }

type fakeOutput struct {
	mu      sync.Mutex
	now     float64
	sources []*fakeSource
	closed  bool
}

func (o *fakeOutput) CurrentTime() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

func (o *fakeOutput) Start(buf *audio.Buffer, at float64, onEnded func()) playback.Source {
	src := &fakeSource{at: at, buf: buf, onEnded: onEnded}
	o.mu.Lock()
	o.sources = append(o.sources, src)
	o.mu.Unlock()
	return src
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}

func (o *fakeOutput) setTime(t float64) {
	o.mu.Lock()
	o.now = t
	o.mu.Unlock()
}

func (o *fakeOutput) started() []*fakeSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*fakeSource(nil), o.sources...)
}

func (o *fakeOutput) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

type toolResponse struct {
	id, name string
	response map[string]any
}

type fakeLink struct {
	mu       sync.Mutex
	handlers gemini.Handlers
	audio    [][]byte
	images   [][]byte
	tools    []toolResponse
	closed   bool
	closeErr error
}

func (l *fakeLink) Listen(h gemini.Handlers) {
	l.mu.Lock()
	l.handlers = h
	l.mu.Unlock()
}

func (l *fakeLink) h() gemini.Handlers {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handlers
}

func (l *fakeLink) SendAudio(pcm []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return gemini.ErrClosed
	}
	l.audio = append(l.audio, pcm)
	return nil
}

func (l *fakeLink) SendImage(jpeg []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return gemini.ErrClosed
	}
	l.images = append(l.images, jpeg)
	return nil
}

func (l *fakeLink) SendToolResponse(id, name string, response map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tools = append(l.tools, toolResponse{id, name, response})
	return nil
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return l.closeErr
}

func (l *fakeLink) counts() (audio, images int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.audio), len(l.images)
}

func (l *fakeLink) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

type fakeMic struct {
	mu       sync.Mutex
	onBlock  func([]byte)
	startErr error
	closed   bool
}

func (m *fakeMic) Start(onBlock func([]byte)) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.mu.Lock()
	m.onBlock = onBlock
	m.mu.Unlock()
	return nil
}

func (m *fakeMic) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *fakeMic) emit(pcm []byte) {
	m.mu.Lock()
	fn := m.onBlock
	m.mu.Unlock()
	if fn != nil {
		fn(pcm)
	}
}

func (m *fakeMic) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type fakeCamera struct {
	mu     sync.Mutex
	img    image.Image
	closed bool
}

func newFakeCamera() *fakeCamera {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < 8; i++ {
		img.Set(i, i, color.RGBA{R: 255, A: 255})
	}
	return &fakeCamera{img: img}
}

func (c *fakeCamera) Snapshot() (image.Image, bool) { return c.img, true }

func (c *fakeCamera) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeCamera) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// rig wires a Manager to fresh fakes for each Start.
type rig struct {
	mu      sync.Mutex
	outputs []*fakeOutput
	links   []*fakeLink
	mics    []*fakeMic
	cameras []*fakeCamera
	dialErr error
	micErr  error
}

func (r *rig) devices(withCamera bool) Devices {
	d := Devices{
		OpenOutput: func() (playback.Output, error) {
			out := &fakeOutput{}
			r.mu.Lock()
			r.outputs = append(r.outputs, out)
			r.mu.Unlock()
			return out, nil
		},
		OpenMicrophone: func() (Microphone, error) {
			if r.micErr != nil {
				return nil, r.micErr
			}
			mic := &fakeMic{}
			r.mu.Lock()
			r.mics = append(r.mics, mic)
			r.mu.Unlock()
			return mic, nil
		},
		Dial: func(ctx context.Context) (Link, error) {
			if r.dialErr != nil {
				return nil, r.dialErr
			}
			link := &fakeLink{}
			r.mu.Lock()
			r.links = append(r.links, link)
			r.mu.Unlock()
			return link, nil
		},
	}
	if withCamera {
		d.OpenCamera = func() (capture.Camera, error) {
			cam := newFakeCamera()
			r.mu.Lock()
			r.cameras = append(r.cameras, cam)
			r.mu.Unlock()
			return cam, nil
		}
	}
	return d
}

func (r *rig) last() (*fakeOutput, *fakeLink, *fakeMic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outputs[len(r.outputs)-1], r.links[len(r.links)-1], r.mics[len(r.mics)-1]
}

func newTestManager(t *testing.T, r *rig, withCamera bool, journal Journal) *Manager {
	t.Helper()
	m := NewManager(Options{
		Devices:       r.devices(withCamera),
		FrameInterval: 5 * time.Millisecond,
		JPEGQuality:   0.4,
	}, DefaultLogCapacity, journal)
	t.Cleanup(m.Shutdown)
	return m
}

// pcmChunk returns n frames of 16-bit mono silence.
func pcmChunk(frames int) []byte {
	return make([]byte, frames*2)
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func lastLog(m *Manager) LogEntry {
	logs := m.Snapshot().Logs
	if len(logs) == 0 {
		return LogEntry{}
	}
	return logs[len(logs)-1]
}

var errBoom = errors.New("boom")
