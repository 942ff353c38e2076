package capture

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

// Camera exposes the most recent video frame.
type Camera interface {
	// Snapshot returns the current frame, or false before the first one.
	Snapshot() (image.Image, bool)
	Close() error
}

// CameraOptions configures FFmpegCamera. Empty Format and Device pick the
// platform default.
type CameraOptions struct {
	FFmpegPath string
	Format     string
	Device     string
	Width      int
	Height     int
	FPS        int
}

// FFmpegCamera reads rgb24 frames from an ffmpeg child process and keeps
// the latest one.
type FFmpegCamera struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	width  int
	height int

	mu     sync.RWMutex
	latest *image.RGBA
	closed bool
	done   chan struct{}
}

// OpenFFmpegCamera starts ffmpeg and begins reading frames.
func OpenFFmpegCamera(opts CameraOptions) (*FFmpegCamera, error) {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if _, err := exec.LookPath(opts.FFmpegPath); err != nil {
		return nil, errors.New("ffmpeg is required for camera capture (install ffmpeg and ensure it is in PATH)")
	}
	args, err := cameraArgs(runtime.GOOS, opts)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(opts.FFmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg camera capture: %w", err)
	}

	c := &FFmpegCamera{
		cmd:    cmd,
		stdout: stdout,
		width:  opts.Width,
		height: opts.Height,
		done:   make(chan struct{}),
	}
	go c.readFrames()

	log.Printf("📷 Camera capture started (%dx%d)", opts.Width, opts.Height)
	return c, nil
}

func cameraArgs(goos string, opts CameraOptions) ([]string, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid camera size %dx%d", opts.Width, opts.Height)
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = 15
	}

	format, device := opts.Format, opts.Device
	switch goos {
	case "darwin":
		format, device = orDefault(format, "avfoundation"), orDefault(device, "0")
	case "linux":
		format, device = orDefault(format, "v4l2"), orDefault(device, "/dev/video0")
	case "windows":
		format = orDefault(format, "dshow")
		if device == "" {
			return nil, errors.New("CAMERA_DEVICE is required on windows (e.g. video=Integrated Camera)")
		}
	default:
		if format == "" || device == "" {
			return nil, fmt.Errorf("camera capture has no default for %s; set CAMERA_FORMAT and CAMERA_DEVICE", goos)
		}
	}

	size := strconv.Itoa(opts.Width) + "x" + strconv.Itoa(opts.Height)
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", format,
		"-framerate", strconv.Itoa(fps),
		"-video_size", size,
		"-i", device,
		"-vf", fmt.Sprintf("scale=%d:%d", opts.Width, opts.Height),
		"-pix_fmt", "rgb24",
		"-f", "rawvideo", "-",
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (c *FFmpegCamera) readFrames() {
	defer close(c.done)

	raw := make([]byte, c.width*c.height*3)
	for {
		if _, err := io.ReadFull(c.stdout, raw); err != nil {
			if !c.isClosed() {
				log.Printf("⚠️ Camera stream ended: %v", err)
			}
			return
		}
		c.mu.Lock()
		c.latest = rgb24ToRGBA(raw, c.width, c.height)
		c.mu.Unlock()
	}
}

func rgb24ToRGBA(raw []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i+2 < len(raw) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = raw[i]
		img.Pix[j+1] = raw[i+1]
		img.Pix[j+2] = raw[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

func (c *FFmpegCamera) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Snapshot implements Camera.
func (c *FFmpegCamera) Snapshot() (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latest == nil {
		return nil, false
	}
	return c.latest, true
}

// Close stops ffmpeg.
func (c *FFmpegCamera) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	<-c.done
	_ = c.cmd.Wait()
	return nil
}
