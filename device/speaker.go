package device

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/jagan969646/My-Jarvis-Assistant/playback"
)

const speakerFramesPerBuffer = 1024

// Speaker drives a playback.Mixer from the default portaudio output device.
type Speaker struct {
	*playback.Mixer

	stream *portaudio.Stream

	mu     sync.Mutex
	closed bool
}

// OpenSpeaker opens and starts the default output device.
func OpenSpeaker(rate, channels int, gain float32) (*Speaker, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	if channels <= 0 {
		channels = 1
	}
	d := &Speaker{Mixer: playback.NewMixer(rate, channels)}
	d.SetGain(gain)

	stream, err := portaudio.OpenDefaultStream(0, channels, float64(rate), speakerFramesPerBuffer, d.Render)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start output stream: %w", err)
	}
	d.stream = stream

	log.Printf("🔊 Speaker open (%d Hz, %d ch)", rate, channels)
	return d, nil
}

// Close stops the stream and releases portaudio.
func (d *Speaker) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var err error
	if stopErr := d.stream.Stop(); stopErr != nil {
		err = stopErr
	}
	if closeErr := d.stream.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	portaudio.Terminate()
	return err
}
