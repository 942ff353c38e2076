// Package device binds the default portaudio input and output devices to
// the capture and playback pipelines.
package device

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/jagan969646/My-Jarvis-Assistant/audio"
)

// Microphone reads the default input device in fixed-size blocks.
type Microphone struct {
	stream  *portaudio.Stream
	onBlock atomic.Pointer[func([]byte)]

	mu     sync.Mutex
	closed bool
}

// OpenMicrophone acquires the default input device at rate, delivering
// blockSize frames per callback. Capture starts with Start.
func OpenMicrophone(rate, blockSize int) (*Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	m := &Microphone{}
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(rate), blockSize, m.process)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open microphone: %w", err)
	}
	m.stream = stream

	log.Printf("🎤 Microphone open (%d Hz, %d frames per block)", rate, blockSize)
	return m, nil
}

// process runs on the portaudio thread for every full block.
func (m *Microphone) process(in []float32) {
	fn := m.onBlock.Load()
	if fn == nil {
		return
	}
	(*fn)(audio.SamplesToPCM(in))
}

// Start begins delivering blocks to onBlock.
func (m *Microphone) Start(onBlock func(pcm []byte)) error {
	m.onBlock.Store(&onBlock)
	if err := m.stream.Start(); err != nil {
		return fmt.Errorf("failed to start microphone: %w", err)
	}
	return nil
}

// Close stops capture and releases the device.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.onBlock.Store(nil)

	// Stop fails on a stream that was never started; that is fine.
	_ = m.stream.Stop()
	err := m.stream.Close()
	portaudio.Terminate()
	return err
}
