// Package capture turns live microphone and camera input into PCM blocks
// and JPEG frames for the Live link.
package capture

import (
	"sync"

	"github.com/jagan969646/My-Jarvis-Assistant/metrics"
)

const defaultQueueDepth = 64

// AudioSender accepts PCM blocks. Errors are reported but never retried.
type AudioSender interface {
	SendAudio(pcm []byte) error
}

// Forwarder hands microphone blocks to the link in capture order. Push
// never blocks the audio thread: when the queue is full the block is
// dropped.
type Forwarder struct {
	sender  AudioSender
	metrics *metrics.Collector

	queue    chan []byte
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewForwarder starts a forwarder with the given queue depth.
func NewForwarder(sender AudioSender, m *metrics.Collector, depth int) *Forwarder {
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	f := &Forwarder{
		sender:  sender,
		metrics: m,
		queue:   make(chan []byte, depth),
		done:    make(chan struct{}),
	}
	f.wg.Add(1)
	go f.run()
	return f
}

func (f *Forwarder) run() {
	defer f.wg.Done()
	for {
		select {
		case <-f.done:
			return
		case pcm := <-f.queue:
			if err := f.sender.SendAudio(pcm); err != nil {
				f.metrics.AudioDropped()
				continue
			}
			f.metrics.AudioSent(len(pcm))
		}
	}
}

// Push queues a block. It reports whether the block was accepted.
func (f *Forwarder) Push(pcm []byte) bool {
	select {
	case <-f.done:
		return false
	default:
	}
	select {
	case f.queue <- pcm:
		return true
	default:
		f.metrics.AudioDropped()
		return false
	}
}

// Stop ends forwarding. Blocks still queued are discarded.
func (f *Forwarder) Stop() {
	f.stopOnce.Do(func() {
		close(f.done)
	})
	f.wg.Wait()
}
