package playback

import (
	"sync"

	"github.com/jagan969646/My-Jarvis-Assistant/audio"
)

// Mixer renders scheduled buffers into interleaved float frames. Its clock
// is the number of frames rendered so far, so scheduling against it is
// frame accurate no matter how the device callback is sized.
type Mixer struct {
	rate     int
	channels int

	mu     sync.Mutex
	gain   float32
	frame  int64
	voices []*voice
}

type voice struct {
	mixer   *Mixer
	buf     *audio.Buffer
	start   int64
	length  int64
	stopped bool
	onEnded func()
}

// NewMixer creates a mixer producing frames at rate with the given number of
// interleaved output channels.
func NewMixer(rate, channels int) *Mixer {
	if channels <= 0 {
		channels = 1
	}
	return &Mixer{rate: rate, channels: channels, gain: 1}
}

// SetGain sets the linear output gain.
func (m *Mixer) SetGain(g float32) {
	m.mu.Lock()
	m.gain = g
	m.mu.Unlock()
}

// CurrentTime implements Clock.
func (m *Mixer) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.frame) / float64(m.rate)
}

// Start implements Sink. A start time the clock has already passed plays
// from the beginning at the next rendered frame. onEnded is always called
// from Render, never from Start itself.
func (m *Mixer) Start(buf *audio.Buffer, at float64, onEnded func()) Source {
	v := &voice{
		mixer:   m,
		buf:     buf,
		start:   int64(at*float64(m.rate) + 0.5),
		onEnded: onEnded,
	}
	if buf != nil && buf.SampleRate > 0 {
		v.length = (int64(buf.Frames())*int64(m.rate) + int64(buf.SampleRate) - 1) / int64(buf.SampleRate)
	}

	m.mu.Lock()
	if v.start < m.frame {
		v.start = m.frame
	}
	m.voices = append(m.voices, v)
	m.mu.Unlock()
	return v
}

// Stop implements Source.
func (v *voice) Stop() {
	v.mixer.mu.Lock()
	v.stopped = true
	v.mixer.mu.Unlock()
}

// sample returns the voice's sample for output channel ch at output frame
// offset idx from its start.
func (v *voice) sample(idx int64, ch int) float32 {
	srcIdx := idx
	if v.buf.SampleRate != v.mixer.rate {
		srcIdx = idx * int64(v.buf.SampleRate) / int64(v.mixer.rate)
	}
	if srcIdx >= int64(v.buf.Frames()) {
		return 0
	}
	if ch >= len(v.buf.Data) {
		ch = 0
	}
	return v.buf.Data[ch][srcIdx]
}

// Render fills out with the next len(out)/channels frames and advances the
// clock. End callbacks of finished voices run after the mixer lock is
// released.
func (m *Mixer) Render(out []float32) {
	for i := range out {
		out[i] = 0
	}
	n := int64(len(out) / m.channels)

	m.mu.Lock()
	from, to := m.frame, m.frame+n
	var ended []func()
	kept := m.voices[:0]
	for _, v := range m.voices {
		if v.stopped {
			continue
		}
		end := v.start + v.length
		lo, hi := max(from, v.start), min(to, end)
		for f := lo; f < hi; f++ {
			base := int(f-from) * m.channels
			for ch := 0; ch < m.channels; ch++ {
				out[base+ch] += v.sample(f-v.start, ch) * m.gain
			}
		}
		if end <= to {
			if v.onEnded != nil {
				ended = append(ended, v.onEnded)
			}
			continue
		}
		kept = append(kept, v)
	}
	for i := len(kept); i < len(m.voices); i++ {
		m.voices[i] = nil
	}
	m.voices = kept
	m.frame = to
	m.mu.Unlock()

	for _, fn := range ended {
		fn()
	}
}

// Pending returns the number of voices not yet finished or stopped.
func (m *Mixer) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}
