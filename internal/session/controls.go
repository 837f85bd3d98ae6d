package session

import (
	"sync"
	"time"
)

// DefaultControlsTimeout is how long controls stay visible after the last pointer movement
const DefaultControlsTimeout = 3 * time.Second

// ControlsTimer tracks control visibility with a restartable hide timer.
// Only the most recently armed timer can hide the controls.
type ControlsTimer struct {
	mu       sync.Mutex
	timeout  time.Duration
	timer    *time.Timer
	token    uint64
	visible  bool
	stopped  bool
	onChange func(visible bool)
}

// NewControlsTimer creates a timer that reports visibility changes to onChange
func NewControlsTimer(timeout time.Duration, onChange func(visible bool)) *ControlsTimer {
	if timeout <= 0 {
		timeout = DefaultControlsTimeout
	}
	return &ControlsTimer{timeout: timeout, onChange: onChange}
}

// Show makes the controls visible and restarts the hide countdown
func (t *ControlsTimer) Show() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}

	t.token++
	token := t.token
	if t.timer != nil {
		t.timer.Stop()
	}
	changed := !t.visible
	t.visible = true
	t.timer = time.AfterFunc(t.timeout, func() { t.hide(token) })
	t.mu.Unlock()

	if changed && t.onChange != nil {
		t.onChange(true)
	}
}

func (t *ControlsTimer) hide(token uint64) {
	t.mu.Lock()
	if token != t.token || t.stopped || !t.visible {
		t.mu.Unlock()
		return
	}
	t.visible = false
	t.timer = nil
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(false)
	}
}

// Visible reports whether the controls are currently shown
func (t *ControlsTimer) Visible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

// Stop cancels any pending hide and ignores later calls to Show
func (t *ControlsTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.token++
	t.visible = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
