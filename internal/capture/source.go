package capture

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Source is one live audio input delivering mono PCM16 buffers.
type Source interface {
	// Read blocks until the next buffer of samples is available. The
	// returned slice is only valid until the next Read.
	Read() ([]int16, error)
	Close() error
}

// framesPerBuffer matches roughly 64ms of audio at 16kHz, small enough
// to keep the stop latency unnoticeable.
const framesPerBuffer = 1024

var paInit sync.Once

// micSource wraps a PortAudio capture stream on one input device.
type micSource struct {
	stream *portaudio.Stream
	buf    []int16
}

func initPortAudio() error {
	var err error
	paInit.Do(func() {
		err = portaudio.Initialize()
	})
	return err
}

// openDefaultInput opens the default microphone.
func openDefaultInput(sampleRate int) (Source, error) {
	if err := initPortAudio(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	buf := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), framesPerBuffer, buf)
	if err != nil {
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start microphone: %w", err)
	}
	return &micSource{stream: stream, buf: buf}, nil
}

// openNamedInput opens the first input device whose name contains the
// given substring (case-insensitive), typically a loopback/monitor
// device carrying system audio.
func openNamedInput(name string, sampleRate int) (Source, error) {
	if err := initPortAudio(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	var device *portaudio.DeviceInfo
	for _, d := range devices {
		if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), strings.ToLower(name)) {
			device = d
			break
		}
	}
	if device == nil {
		return nil, fmt.Errorf("no input device matching %q", name)
	}

	params := portaudio.HighLatencyParameters(device, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = framesPerBuffer

	buf := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("open device %q: %w", device.Name, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start device %q: %w", device.Name, err)
	}
	return &micSource{stream: stream, buf: buf}, nil
}

func (s *micSource) Read() ([]int16, error) {
	if err := s.stream.Read(); err != nil {
		return nil, err
	}
	return s.buf, nil
}

func (s *micSource) Close() error {
	_ = s.stream.Stop()
	return s.stream.Close()
}
