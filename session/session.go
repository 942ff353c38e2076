// Package session drives one assistant link at a time: it opens the local
// devices, dials the model, routes link events into playback and the HUD
// state, and tears everything down again.
package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/jagan969646/My-Jarvis-Assistant/audio"
	"github.com/jagan969646/My-Jarvis-Assistant/capture"
	"github.com/jagan969646/My-Jarvis-Assistant/functions"
	"github.com/jagan969646/My-Jarvis-Assistant/gemini"
	"github.com/jagan969646/My-Jarvis-Assistant/metrics"
	"github.com/jagan969646/My-Jarvis-Assistant/playback"
)

// HUD log lines.
const (
	msgInitializing = "Initializing HUD link..."
	msgOnline       = "Tactical link online. Ready, Sir."
	msgInitFailed   = "INITIALIZATION_FAILED"
	msgFailure      = "CRITICAL_PROTOCOL_FAILURE"
	msgClosed       = "NEURAL_LINK_CLOSED"
)

// Link is an open model connection.
type Link interface {
	// Listen starts delivering events; OnClose fires once at the end.
	Listen(h gemini.Handlers)
	SendAudio(pcm []byte) error
	SendImage(jpeg []byte) error
	SendToolResponse(id, name string, response map[string]any) error
	Close() error
}

// Microphone delivers PCM blocks to onBlock once started.
type Microphone interface {
	Start(onBlock func(pcm []byte)) error
	Close() error
}

// Devices opens the resources a session needs. OpenCamera may be nil to
// run without video.
type Devices struct {
	OpenOutput     func() (playback.Output, error)
	OpenMicrophone func() (Microphone, error)
	OpenCamera     func() (capture.Camera, error)
	Dial           func(ctx context.Context) (Link, error)
}

// Options configures sessions created by a Manager.
type Options struct {
	Devices          Devices
	OutputSampleRate int
	FrameInterval    time.Duration
	JPEGQuality      float64
	Metrics          *metrics.Collector
}

// Session is one link lifetime, from Start to the link closing.
type Session struct {
	ID        string
	CreatedAt time.Time

	state *State
	opts  Options

	output    playback.Output
	scheduler *playback.Scheduler
	mic       Microphone
	camera    capture.Camera
	link      Link
	forwarder *capture.Forwarder

	// playMu orders status changes made by playback against each other.
	playMu sync.Mutex

	// gate is held for reading while a link event touches shared state.
	// Once retired, the session no longer owns that state.
	gate    sync.RWMutex
	retired bool

	mu          sync.Mutex
	frames      *capture.FrameLoop
	linkClosed  bool
	stopped     bool
	inputsOnce  sync.Once
	releaseOnce sync.Once
}

func newSession(id string, state *State, opts Options) *Session {
	if opts.OutputSampleRate <= 0 {
		opts.OutputSampleRate = audio.OutputSampleRate
	}
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		state:     state,
		opts:      opts,
	}
}

// start acquires devices, dials and brings the link online. On failure
// every acquired resource is released again.
func (s *Session) start(ctx context.Context) error {
	s.state.AddLog(SourceSystem, msgInitializing)

	if err := s.open(ctx); err != nil {
		log.Printf("❌ [%s] Initialization failed: %v", s.ID[:8], err)
		s.release()
		s.state.AddLog(SourceSystem, msgInitFailed)
		s.state.SetStatus(StatusError)
		return err
	}
	return nil
}

func (s *Session) open(ctx context.Context) error {
	d := s.opts.Devices

	output, err := d.OpenOutput()
	if err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	s.output = output
	s.scheduler = playback.NewScheduler(output, output, s.playbackIdle)

	mic, err := d.OpenMicrophone()
	if err != nil {
		return fmt.Errorf("failed to open microphone: %w", err)
	}
	s.mic = mic

	if d.OpenCamera != nil {
		camera, err := d.OpenCamera()
		if err != nil {
			return fmt.Errorf("failed to open camera: %w", err)
		}
		s.camera = camera
	}

	link, err := d.Dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect link: %w", err)
	}
	s.link = link

	if err := s.handleOpen(); err != nil {
		return err
	}
	link.Listen(s.handlers())
	return nil
}

func (s *Session) handlers() gemini.Handlers {
	return gemini.Handlers{
		OnAudio:            s.handleAudio,
		OnToolCall:         s.handleToolCalls,
		OnInterrupted:      s.handleInterrupted,
		OnInputTranscript:  s.handleInputTranscript,
		OnOutputTranscript: s.handleOutputTranscript,
		OnError:            s.handleError,
		OnClose:            s.handleClose,
	}
}

func (s *Session) handleOpen() error {
	s.forwarder = capture.NewForwarder(s.link, s.opts.Metrics, 0)
	if err := s.mic.Start(func(pcm []byte) { s.forwarder.Push(pcm) }); err != nil {
		s.forwarder.Stop()
		return fmt.Errorf("failed to start microphone: %w", err)
	}

	s.state.AddLog(SourceSystem, msgOnline)
	s.state.SetStatus(StatusIdle)
	s.state.SetActive(true)
	s.opts.Metrics.LinkOpened(time.Now())

	if s.camera != nil {
		loop := capture.StartFrameLoop(s.camera, s.link, capture.FrameLoopConfig{
			Interval: s.opts.FrameInterval,
			Quality:  s.opts.JPEGQuality,
			Metrics:  s.opts.Metrics,
			Preview:  s.publishFrame,
		})
		s.mu.Lock()
		s.frames = loop
		s.mu.Unlock()
	}

	log.Printf("✅ [%s] Link online", s.ID[:8])
	return nil
}

// retire detaches the session from the shared state. Events still in
// flight from its link are dropped after it returns.
func (s *Session) retire() {
	s.gate.Lock()
	s.retired = true
	s.gate.Unlock()
}

func (s *Session) publishFrame(jpeg []byte) {
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.retired {
		return
	}
	s.state.PublishFrame(jpeg)
}

func (s *Session) handleAudio(pcm []byte) {
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.retired {
		return
	}

	buf, err := audio.BytesToBuffer(pcm, s.opts.OutputSampleRate, 1)
	if err != nil || buf.Frames() == 0 {
		return
	}

	s.playMu.Lock()
	defer s.playMu.Unlock()
	s.state.SetStatus(StatusSpeaking)
	s.scheduler.Schedule(buf)
	s.opts.Metrics.PlaybackScheduled()
}

// playbackIdle runs on the audio thread when the last source ends.
func (s *Session) playbackIdle() {
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.retired {
		return
	}

	s.playMu.Lock()
	defer s.playMu.Unlock()
	if s.scheduler.Active() == 0 {
		s.state.SetStatus(StatusIdle)
	}
}

func (s *Session) handleToolCalls(calls []gemini.ToolCall) {
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.retired {
		return
	}

	for _, fc := range calls {
		args := fc.Args
		if args == nil {
			args = map[string]any{}
		}
		encoded, err := sonic.MarshalString(args)
		if err != nil {
			encoded = "{}"
		}
		s.state.AddLog(SourceSystem, fmt.Sprintf("EXEC_PROTOCOL: %s -> %s", strings.ToUpper(fc.Name), encoded))
		log.Printf("🔧 [%s] Function call: %s (id: %s)", s.ID[:8], fc.Name, fc.ID)

		response := functions.Execute(fc.Name, fc.Args)
		if err := s.link.SendToolResponse(fc.ID, fc.Name, response); err != nil {
			log.Printf("❌ [%s] Failed to send tool response: %v", s.ID[:8], err)
			continue
		}
		s.opts.Metrics.ToolCall()
	}
}

func (s *Session) handleInterrupted() {
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.retired {
		return
	}

	s.playMu.Lock()
	defer s.playMu.Unlock()
	s.scheduler.StopAll()
	s.state.SetStatus(StatusIdle)
	s.opts.Metrics.Interrupted()
}

func (s *Session) handleInputTranscript(text string) {
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.retired {
		return
	}
	s.state.AddLog(SourceUser, text)
	s.state.SetStatus(StatusThinking)
}

func (s *Session) handleOutputTranscript(text string) {
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.retired {
		return
	}
	s.state.AddLog(SourceJarvis, text)
}

func (s *Session) handleError(err error) {
	log.Printf("❌ [%s] Link error: %v", s.ID[:8], err)

	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.retired {
		return
	}
	s.state.SetStatus(StatusError)
	s.state.AddLog(SourceSystem, msgFailure)
}

func (s *Session) handleClose() {
	s.mu.Lock()
	s.linkClosed = true
	frames := s.frames
	s.mu.Unlock()

	if frames != nil {
		frames.Stop()
	}
	s.forwarder.Stop()
	log.Printf("🔌 [%s] Link closed", s.ID[:8])

	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.retired {
		return
	}
	s.state.SetActive(false)
	s.state.SetStatus(StatusIdle)
	s.state.AddLog(SourceSystem, msgClosed)
	s.opts.Metrics.LinkClosed()
}

// live reports whether the link is still open and not stopped by the user.
func (s *Session) live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.linkClosed && !s.stopped
}

// stop ends the link at the user's request. Scheduled playback is left
// to drain.
func (s *Session) stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	frames := s.frames
	s.mu.Unlock()

	if err := s.link.Close(); err != nil {
		log.Printf("⚠️ [%s] Error closing link: %v", s.ID[:8], err)
	}
	if frames != nil {
		frames.Stop()
	}
	s.state.SetActive(false)
	s.state.SetStatus(StatusIdle)
	s.closeInputs()
}

func (s *Session) closeInputs() {
	s.inputsOnce.Do(func() {
		if s.forwarder != nil {
			s.forwarder.Stop()
		}
		if s.mic != nil {
			if err := s.mic.Close(); err != nil {
				log.Printf("⚠️ [%s] Error closing microphone: %v", s.ID[:8], err)
			}
		}
		if s.camera != nil {
			if err := s.camera.Close(); err != nil {
				log.Printf("⚠️ [%s] Error closing camera: %v", s.ID[:8], err)
			}
		}
	})
}

// release frees everything the session holds, including the audio output.
func (s *Session) release() {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		frames := s.frames
		s.stopped = true
		s.mu.Unlock()

		if s.link != nil {
			_ = s.link.Close()
		}
		if frames != nil {
			frames.Stop()
		}
		s.closeInputs()
		if s.scheduler != nil {
			s.scheduler.StopAll()
		}
		if s.output != nil {
			if err := s.output.Close(); err != nil {
				log.Printf("⚠️ [%s] Error closing audio output: %v", s.ID[:8], err)
			}
		}
	})
}
