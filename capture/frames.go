package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/jagan969646/My-Jarvis-Assistant/metrics"
)

// ImageSender accepts encoded JPEG frames.
type ImageSender interface {
	SendImage(jpeg []byte) error
}

// FrameLoopConfig configures a FrameLoop.
type FrameLoopConfig struct {
	Interval time.Duration
	// Quality is in [0, 1], matching canvas.toBlob.
	Quality float64
	Metrics *metrics.Collector
	// Preview, if set, receives every encoded frame.
	Preview func(jpeg []byte)
}

// FrameLoop samples the camera on a fixed interval and sends each frame
// asynchronously. A slow encode never delays or cancels the next tick.
type FrameLoop struct {
	camera Camera
	sender ImageSender
	cfg    FrameLoopConfig

	ticker   *time.Ticker
	stop     chan struct{}
	stopOnce sync.Once
}

// StartFrameLoop starts sampling immediately.
func StartFrameLoop(cam Camera, sender ImageSender, cfg FrameLoopConfig) *FrameLoop {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	l := &FrameLoop{
		camera: cam,
		sender: sender,
		cfg:    cfg,
		ticker: time.NewTicker(cfg.Interval),
		stop:   make(chan struct{}),
	}
	go l.run()
	return l
}

// FrameInterval converts a frame rate in Hz to a tick interval.
func FrameInterval(rate float64) time.Duration {
	if rate <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / rate)
}

func (l *FrameLoop) run() {
	for {
		select {
		case <-l.stop:
			return
		case <-l.ticker.C:
			img, ok := l.camera.Snapshot()
			if !ok {
				continue
			}
			go l.send(img)
		}
	}
}

func (l *FrameLoop) send(img image.Image) {
	data, err := EncodeJPEG(img, l.cfg.Quality)
	if err != nil {
		l.cfg.Metrics.FrameDropped()
		return
	}
	if l.cfg.Preview != nil {
		l.cfg.Preview(data)
	}
	if err := l.sender.SendImage(data); err != nil {
		l.cfg.Metrics.FrameDropped()
		return
	}
	l.cfg.Metrics.FrameSent(len(data))
}

// Stop halts the ticker. Frames already being encoded still go out.
func (l *FrameLoop) Stop() {
	l.stopOnce.Do(func() {
		l.ticker.Stop()
		close(l.stop)
	})
}

// JPEGQuality maps a [0, 1] quality to the encoder's 1..100 scale.
func JPEGQuality(q float64) int {
	v := int(q*100 + 0.5)
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

// EncodeJPEG compresses img at quality q in [0, 1].
func EncodeJPEG(img image.Image, q float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality(q)}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
