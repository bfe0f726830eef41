// Package confirm is a reusable yes/no gate for destructive actions.
package confirm

import (
	"sync"
	"time"
)

// BusyDelay is how long the dialog stays busy after Confirm.
const BusyDelay = 300 * time.Millisecond

// Config is what the dialog shows. Empty button labels fall back to
// "Confirm" and "Cancel".
type Config struct {
	Title       string
	Message     string
	ConfirmText string
	CancelText  string
}

func (c Config) withDefaults() Config {
	if c.ConfirmText == "" {
		c.ConfirmText = "Confirm"
	}
	if c.CancelText == "" {
		c.CancelText = "Cancel"
	}
	return c
}

// State is a snapshot for rendering.
type State struct {
	Open   bool
	Busy   bool
	Config Config
}

// Dialog holds at most one pending invocation.
type Dialog struct {
	busyDelay time.Duration

	mu      sync.Mutex
	open    bool
	busy    bool
	cfg     Config
	pending chan bool
	timer   *time.Timer
}

// New creates a dialog. A busyDelay of 0 uses BusyDelay.
func New(busyDelay time.Duration) *Dialog {
	if busyDelay <= 0 {
		busyDelay = BusyDelay
	}
	return &Dialog{busyDelay: busyDelay}
}

// Open shows the dialog. The returned channel receives exactly one value
// and is then closed. Opening while another invocation is pending
// resolves that one false first.
func (d *Dialog) Open(cfg Config) <-chan bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resolveLocked(false)

	ch := make(chan bool, 1)
	d.pending = ch
	d.cfg = cfg.withDefaults()
	d.open = true
	d.busy = false
	return ch
}

// Confirm goes busy for the busy delay, then resolves true and hides.
// It does nothing when the dialog is hidden or already busy.
func (d *Dialog) Confirm() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open || d.busy {
		return
	}
	d.busy = true
	ch := d.pending
	d.timer = time.AfterFunc(d.busyDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.pending != ch {
			return
		}
		d.resolveLocked(true)
	})
}

// Cancel resolves false and hides. The buttons are disabled while busy,
// so Cancel does nothing then.
func (d *Dialog) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open || d.busy {
		return
	}
	d.resolveLocked(false)
}

// State returns a snapshot of the dialog.
func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{Open: d.open, Busy: d.busy, Config: d.cfg}
}

// Close tears the dialog down, resolving any pending invocation false.
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolveLocked(false)
}

func (d *Dialog) resolveLocked(v bool) {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.pending != nil {
		d.pending <- v
		close(d.pending)
		d.pending = nil
	}
	d.open = false
	d.busy = false
}
