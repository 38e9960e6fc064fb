package capture

import (
	"log"
	"os/exec"
	"runtime"
	"sync"
)

// wakeLock keeps the machine from suspending while a capture session is
// active. It is best-effort: it shells out to whatever inhibitor the
// platform offers, reacquires if the inhibitor process dies while the
// session is still recording, and is silently a no-op when none exists.
type wakeLock struct {
	mu       sync.Mutex
	cmd      *exec.Cmd
	released bool
}

func newWakeLock() *wakeLock {
	w := &wakeLock{}
	w.acquire()
	return w
}

func (w *wakeLock) acquire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released || w.cmd != nil {
		return
	}

	cmd := inhibitCommand()
	if cmd == nil {
		return
	}
	if err := cmd.Start(); err != nil {
		log.Printf("warning: wake lock unavailable: %v", err)
		return
	}
	w.cmd = cmd

	go func() {
		_ = cmd.Wait()
		w.mu.Lock()
		w.cmd = nil
		released := w.released
		w.mu.Unlock()
		if !released {
			// Inhibitor died out from under us; take it again.
			w.acquire()
		}
	}()
}

// Release terminates the inhibitor. Safe to call more than once.
func (w *wakeLock) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return
	}
	w.released = true
	if w.cmd != nil && w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	w.cmd = nil
}

func inhibitCommand() *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		if _, err := exec.LookPath("caffeinate"); err == nil {
			return exec.Command("caffeinate", "-i")
		}
	case "linux":
		if _, err := exec.LookPath("systemd-inhibit"); err == nil {
			return exec.Command("systemd-inhibit", "--what=idle:sleep", "--who=voxnote", "--why=recording", "sleep", "infinity")
		}
	}
	return nil
}
