// Package capture acquires live audio, optionally mixes a system-audio
// stream into the microphone stream, and produces a single WAV blob
// plus the elapsed duration.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Mode selects what a capture session records.
type Mode string

const (
	// ModeSolo records the microphone only.
	ModeSolo Mode = "solo"
	// ModeMixed merges a system-audio (loopback) stream with the
	// microphone into one output stream.
	ModeMixed Mode = "mixed"
)

var (
	ErrSessionActive   = errors.New("a capture session is already active")
	ErrNoActiveSession = errors.New("no active capture session")
)

// Result is a finalized capture: a WAV container plus the wall-clock
// duration in seconds, sampled once per second while the session ran.
type Result struct {
	WAV        []byte
	Duration   float64
	SampleRate int
	Warnings   []string
}

// Opener acquires the input sources for a mode. system is nil in solo
// mode and in a degraded mixed session; warnings carries the one-time
// degradation notice. On error no source remains acquired.
type Opener func(mode Mode, sampleRate int) (mic, system Source, warnings []string, err error)

// DeviceOpener returns an Opener backed by the platform's audio
// devices. systemDevice is a substring matching the loopback/monitor
// input that carries system audio in mixed mode.
func DeviceOpener(systemDevice string) Opener {
	return func(mode Mode, sampleRate int) (Source, Source, []string, error) {
		mic, err := openDefaultInput(sampleRate)
		if err != nil {
			return nil, nil, nil, err
		}

		if mode != ModeMixed {
			return mic, nil, nil, nil
		}

		system, err := openNamedInput(systemDevice, sampleRate)
		if err != nil {
			// Proceeding microphone-only is deliberate: a missing
			// system-audio source degrades the session, it does not
			// abort it.
			warning := fmt.Sprintf("system audio unavailable, recording microphone only: %v", err)
			return mic, nil, []string{warning}, nil
		}

		return mic, system, nil, nil
	}
}

// Engine owns at most one active capture session.
type Engine struct {
	opener     Opener
	sampleRate int

	mu         sync.Mutex
	current    *session
	onAutoStop func(Result)
}

func NewEngine(opener Opener, sampleRate int) *Engine {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Engine{opener: opener, sampleRate: sampleRate}
}

// SetAutoStopHandler registers the callback invoked with the finalized
// result when a session ends out-of-band (a source closing underneath
// it, e.g. the user revoking system-audio sharing).
func (e *Engine) SetAutoStopHandler(fn func(Result)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onAutoStop = fn
}

// Start acquires the sources for mode and begins recording. The
// returned warnings must be surfaced to the caller before any audio is
// trusted (degraded mixed mode).
func (e *Engine) Start(mode Mode) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil {
		return nil, ErrSessionActive
	}

	mic, system, warnings, err := e.opener(mode, e.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("acquire capture sources: %w", err)
	}

	sess := newSession(mic, system, e.sampleRate, warnings)
	e.current = sess

	go e.watch(sess)
	return warnings, nil
}

// Stop finalizes the active session and returns the capture result.
func (e *Engine) Stop() (Result, error) {
	e.mu.Lock()
	sess := e.current
	e.current = nil
	e.mu.Unlock()

	if sess == nil {
		return Result{}, ErrNoActiveSession
	}
	return sess.finalize()
}

// Cancel tears down the active session and discards its audio.
func (e *Engine) Cancel() error {
	e.mu.Lock()
	sess := e.current
	e.current = nil
	e.mu.Unlock()

	if sess == nil {
		return ErrNoActiveSession
	}
	sess.discard()
	return nil
}

// Active reports whether a session is recording, and its elapsed
// seconds so far.
func (e *Engine) Active() (bool, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return false, 0
	}
	return true, float64(atomic.LoadInt64(&e.current.seconds))
}

// watch auto-finalizes a session whose sources ended out-of-band.
func (e *Engine) watch(sess *session) {
	<-sess.done

	e.mu.Lock()
	if e.current != sess {
		// Already finalized through Stop or Cancel.
		e.mu.Unlock()
		return
	}
	e.current = nil
	handler := e.onAutoStop
	e.mu.Unlock()

	result, err := sess.finalize()
	if err != nil || handler == nil {
		return
	}
	handler(result)
}

type session struct {
	mic        Source
	system     Source
	sampleRate int
	warnings   []string
	lock       *wakeLock

	seconds int64 // atomic, sampled once per second

	mu         sync.Mutex
	micSamples []int16
	sysSamples []int16

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	ticker   *time.Ticker
}

func newSession(mic, system Source, sampleRate int, warnings []string) *session {
	s := &session{
		mic:        mic,
		system:     system,
		sampleRate: sampleRate,
		warnings:   warnings,
		lock:       newWakeLock(),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		ticker:     time.NewTicker(time.Second),
	}

	var readers sync.WaitGroup
	readers.Add(1)
	go s.readLoop(mic, &s.micSamples, &readers)
	if system != nil {
		readers.Add(1)
		go s.readLoop(system, &s.sysSamples, &readers)
	}

	go func() {
		for {
			select {
			case <-s.stop:
				return
			case <-s.ticker.C:
				atomic.AddInt64(&s.seconds, 1)
			}
		}
	}()

	go func() {
		readers.Wait()
		close(s.done)
	}()

	return s
}

// readLoop accumulates buffers from one source in arrival order until
// the session stops or the source fails (auto-finalize).
func (s *session) readLoop(src Source, dst *[]int16, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		buf, err := src.Read()
		if err != nil {
			s.requestStop()
			return
		}

		s.mu.Lock()
		*dst = append(*dst, buf...)
		s.mu.Unlock()
	}
}

func (s *session) requestStop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// finalize stops every acquired source, tears down the session, and
// returns the mixed WAV plus the elapsed duration.
func (s *session) finalize() (Result, error) {
	samples := s.teardown()

	wav, err := encodeWAV(samples, s.sampleRate)
	if err != nil {
		return Result{}, fmt.Errorf("encode capture: %w", err)
	}

	return Result{
		WAV:        wav,
		Duration:   float64(atomic.LoadInt64(&s.seconds)),
		SampleRate: s.sampleRate,
		Warnings:   s.warnings,
	}, nil
}

func (s *session) discard() {
	_ = s.teardown()
}

func (s *session) teardown() []int16 {
	s.requestStop()
	<-s.done
	s.ticker.Stop()

	// Every acquired source is stopped, not just the mixed output.
	_ = s.mic.Close()
	if s.system != nil {
		_ = s.system.Close()
	}
	s.lock.Release()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.system == nil {
		return s.micSamples
	}
	return mixInt16(s.micSamples, s.sysSamples)
}
