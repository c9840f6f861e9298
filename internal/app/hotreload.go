package app

import (
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// HotReloader watches the running binary and triggers a callback when a
// newer build is detected, so a development session can prompt for restart
// after recompilation.
type HotReloader struct {
	execPath      string
	baseline      time.Time
	checkInterval time.Duration
	stopCh        chan struct{}
	onTick        func()
	onNewBinary   func()
}

// NewHotReloader creates a reloader watching the current executable.
// Returns nil if the executable path cannot be determined.
func NewHotReloader(checkInterval time.Duration) *HotReloader {
	execPath, err := os.Executable()
	if err != nil {
		return nil
	}
	if realPath, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = realPath
	}

	info, err := os.Stat(execPath)
	if err != nil {
		return nil
	}

	return &HotReloader{
		execPath:      execPath,
		baseline:      info.ModTime(),
		checkInterval: checkInterval,
		stopCh:        make(chan struct{}),
	}
}

// OnTick sets a callback invoked on every poll, e.g. to flush preferences.
func (h *HotReloader) OnTick(callback func()) {
	h.onTick = callback
}

// OnNewBinary sets the callback invoked when a newer binary is detected.
// Called from a background goroutine; marshal onto the UI thread before
// touching widgets.
func (h *HotReloader) OnNewBinary(callback func()) {
	h.onNewBinary = callback
}

// Start begins watching in a background goroutine.
func (h *HotReloader) Start() {
	h.stopCh = make(chan struct{})
	go h.watchLoop()
}

// Stop stops the watcher goroutine.
func (h *HotReloader) Stop() {
	close(h.stopCh)
}

func (h *HotReloader) watchLoop() {
	ticker := time.NewTicker(h.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			if h.onTick != nil {
				h.onTick()
			}
			if h.modified() && h.onNewBinary != nil {
				h.onNewBinary()
				return
			}
		}
	}
}

func (h *HotReloader) modified() bool {
	info, err := os.Stat(h.execPath)
	if err != nil {
		return false
	}
	return info.ModTime().After(h.baseline)
}

// ExecPath returns the path to the watched executable.
func (h *HotReloader) ExecPath() string {
	return h.execPath
}

// ResetBaseline updates the baseline to the current binary's mod time, for
// when the user declines a restart.
func (h *HotReloader) ResetBaseline() {
	if info, err := os.Stat(h.execPath); err == nil {
		h.baseline = info.ModTime()
	}
}

// Restart replaces the current process with a new instance of the binary,
// preserving arguments and environment. Does not return on success.
func (h *HotReloader) Restart() error {
	return syscall.Exec(h.execPath, os.Args, os.Environ())
}
