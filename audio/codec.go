// Package audio converts between float samples, 16-bit little-endian PCM
// and the base64 text used on JSON transports.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// InputSampleRate is the microphone rate expected by the Live API.
	InputSampleRate = 16000
	// OutputSampleRate is the rate of model audio.
	OutputSampleRate = 24000

	pcmScale = 32768
)

// Buffer holds de-interleaved float samples, one slice per channel.
type Buffer struct {
	SampleRate int
	Channels   int
	Data       [][]float32
}

// Frames returns the number of sample frames in the buffer.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the playback length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// PCMMimeType returns the MIME type for raw PCM16 at the given rate.
func PCMMimeType(rate int) string {
	return fmt.Sprintf("audio/pcm;rate=%d", rate)
}

// SamplesToPCM scales each sample by 32768 and stores it as a little-endian
// int16. Values are truncated toward zero and wrap modulo 2^16; nothing is
// clamped, so 1.0 becomes -32768.
func SamplesToPCM(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(toInt16(float64(s)*pcmScale)))
	}
	return out
}

func toInt16(v float64) int16 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(v), 65536)
	return int16(int32(m))
}

// BytesToBuffer decodes interleaved little-endian PCM16 into a Buffer.
// A trailing partial frame is dropped.
func BytesToBuffer(data []byte, sampleRate, channels int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}

	frames := len(data) / (2 * channels)
	buf := &Buffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Data:       make([][]float32, channels),
	}
	for ch := range buf.Data {
		buf.Data[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(data[off : off+2]))
			buf.Data[ch][i] = float32(sample) / pcmScale
		}
	}
	return buf, nil
}

// EncodeText encodes raw bytes as standard base64.
func EncodeText(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeText reverses EncodeText.
func DecodeText(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return data, nil
}
