package device

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Info describes one audio device.
type Info struct {
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	SampleRate        float64
	DefaultInput      bool
	DefaultOutput     bool
}

// List returns the audio devices portaudio can see.
func List() ([]Info, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	// Missing defaults are not an error; the flags just stay false.
	defIn, _ := portaudio.DefaultInputDevice()
	defOut, _ := portaudio.DefaultOutputDevice()

	infos := make([]Info, 0, len(devices))
	for _, d := range devices {
		info := Info{
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			SampleRate:        d.DefaultSampleRate,
			DefaultInput:      defIn != nil && d.Name == defIn.Name,
			DefaultOutput:     defOut != nil && d.Name == defOut.Name,
		}
		if d.HostApi != nil {
			info.HostAPI = d.HostApi.Name
		}
		infos = append(infos, info)
	}
	return infos, nil
}
