package capture

import (
	"errors"
	"io"
	"testing"
	"time"
)

// fakeSource yields a fixed set of buffers, then blocks until closed
// (or fails immediately after, when failAfter is set).
type fakeSource struct {
	buffers   [][]int16
	failAfter bool
	closed    chan struct{}
	reads     int
}

func newFakeSource(buffers ...[]int16) *fakeSource {
	return &fakeSource{buffers: buffers, closed: make(chan struct{})}
}

func (f *fakeSource) Read() ([]int16, error) {
	if f.reads < len(f.buffers) {
		buf := f.buffers[f.reads]
		f.reads++
		return buf, nil
	}
	if f.failAfter {
		return nil, io.EOF
	}

	select {
	case <-f.closed:
		return nil, io.EOF
	case <-time.After(10 * time.Millisecond):
		return []int16{0, 0}, nil
	}
}

func (f *fakeSource) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}

func openerFor(mic, system Source, warnings []string, err error) Opener {
	return func(Mode, int) (Source, Source, []string, error) {
		return mic, system, warnings, err
	}
}

func TestSoloCaptureProducesWAV(t *testing.T) {
	mic := newFakeSource([]int16{1, 2, 3}, []int16{4, 5})
	engine := NewEngine(openerFor(mic, nil, nil, nil), 16000)

	warnings, err := engine.Start(ModeSolo)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	time.Sleep(30 * time.Millisecond)

	result, err := engine.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if len(result.WAV) <= 44 {
		t.Fatalf("expected WAV payload beyond header, got %d bytes", len(result.WAV))
	}
	if string(result.WAV[:4]) != "RIFF" || string(result.WAV[8:12]) != "WAVE" {
		t.Fatalf("expected RIFF/WAVE container, got %q", result.WAV[:12])
	}
	if result.SampleRate != 16000 {
		t.Fatalf("unexpected sample rate %d", result.SampleRate)
	}
}

func TestStartWhileActiveRejected(t *testing.T) {
	engine := NewEngine(openerFor(newFakeSource(), nil, nil, nil), 16000)

	if _, err := engine.Start(ModeSolo); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _, _ = engine.Stop() }()

	if _, err := engine.Start(ModeSolo); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
}

func TestStopWithoutSession(t *testing.T) {
	engine := NewEngine(openerFor(nil, nil, nil, nil), 16000)

	if _, err := engine.Stop(); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestAcquisitionFailureLeavesNoSession(t *testing.T) {
	engine := NewEngine(openerFor(nil, nil, nil, errors.New("permission denied")), 16000)

	if _, err := engine.Start(ModeSolo); err == nil {
		t.Fatal("expected acquisition error")
	}

	active, _ := engine.Active()
	if active {
		t.Fatal("expected no active session after failed start")
	}
}

func TestMixedModeDegradedWarning(t *testing.T) {
	mic := newFakeSource([]int16{1, 2})
	warning := "system audio unavailable, recording microphone only"
	engine := NewEngine(openerFor(mic, nil, []string{warning}, nil), 16000)

	warnings, err := engine.Start(ModeMixed)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(warnings) != 1 || warnings[0] != warning {
		t.Fatalf("expected degradation warning before recording, got %v", warnings)
	}

	result, err := engine.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if len(result.WAV) == 0 {
		t.Fatal("expected a final blob despite missing system audio")
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected warning carried on result, got %v", result.Warnings)
	}
}

func TestMixedModeMergesStreams(t *testing.T) {
	mic := newFakeSource([]int16{100, 100})
	system := newFakeSource([]int16{25, -50})
	engine := NewEngine(openerFor(mic, system, nil, nil), 16000)

	if _, err := engine.Start(ModeMixed); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	result, err := engine.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// First two samples after the 44-byte header are the mixed values.
	s0 := int16(uint16(result.WAV[44]) | uint16(result.WAV[45])<<8)
	s1 := int16(uint16(result.WAV[46]) | uint16(result.WAV[47])<<8)
	if s0 != 125 || s1 != 50 {
		t.Fatalf("expected mixed samples 125, 50, got %d, %d", s0, s1)
	}
}

func TestSourceFailureAutoFinalizes(t *testing.T) {
	mic := newFakeSource([]int16{7, 8})
	mic.failAfter = true
	engine := NewEngine(openerFor(mic, nil, nil, nil), 16000)

	results := make(chan Result, 1)
	engine.SetAutoStopHandler(func(r Result) { results <- r })

	if _, err := engine.Start(ModeSolo); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case result := <-results:
		if len(result.WAV) <= 44 {
			t.Fatalf("expected auto-finalized WAV, got %d bytes", len(result.WAV))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected auto-stop after source failure")
	}

	if _, err := engine.Stop(); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected session already finalized, got %v", err)
	}
}
