// Package modal holds the single process-wide modal slot shared by the
// item list and the item form.
package modal

import (
	"slices"
	"sync"
	"sync/atomic"
)

type subscription struct {
	fn     func(open bool)
	since  uint64
	active atomic.Bool
}

// delivery is one queued notification. A delivery with a target goes to
// that subscriber only.
type delivery struct {
	seq    uint64
	open   bool
	target *subscription
}

// Coordinator tracks whether the item modal is open and tells subscribers
// about every transition. The zero value is a closed modal.
//
// Transitions are delivered in order. A handler may call back into the
// coordinator; the nested transition is delivered after the current one
// reaches every subscriber.
type Coordinator struct {
	mu         sync.Mutex
	open       bool
	seq        uint64
	subs       []*subscription
	queue      []delivery
	delivering bool
}

// New returns a closed coordinator.
func New() *Coordinator {
	return &Coordinator{}
}

// Open opens the modal. Opening an open modal does nothing.
func (c *Coordinator) Open() { c.set(true) }

// Close closes the modal. Closing a closed modal does nothing.
func (c *Coordinator) Close() { c.set(false) }

// IsOpen reports the current state.
func (c *Coordinator) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Subscribe calls fn with the current state, then on every later
// transition until the returned function is called. The current state is
// queued behind transitions already pending, so fn never sees a stale
// value after a newer one. Called from inside a handler, the first call
// to fn happens once the running delivery finishes.
func (c *Coordinator) Subscribe(fn func(open bool)) (unsubscribe func()) {
	s := &subscription{fn: fn}
	s.active.Store(true)

	c.mu.Lock()
	c.seq++
	s.since = c.seq
	c.subs = append(c.subs, s)
	c.queue = append(c.queue, delivery{seq: c.seq, open: c.open, target: s})
	c.drain()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.active.Store(false)
			c.mu.Lock()
			c.subs = slices.DeleteFunc(c.subs, func(x *subscription) bool { return x == s })
			c.mu.Unlock()
		})
	}
}

func (c *Coordinator) set(open bool) {
	c.mu.Lock()
	if c.open == open {
		c.mu.Unlock()
		return
	}
	c.open = open
	c.seq++
	c.queue = append(c.queue, delivery{seq: c.seq, open: open})
	c.drain()
}

// drain delivers queued notifications. It is called with c.mu held and
// releases it. Only one goroutine delivers at a time; others enqueue and
// return.
func (c *Coordinator) drain() {
	if c.delivering {
		c.mu.Unlock()
		return
	}

	c.delivering = true
	for len(c.queue) > 0 {
		d := c.queue[0]
		c.queue = c.queue[1:]
		subs := []*subscription{d.target}
		if d.target == nil {
			subs = slices.Clone(c.subs)
		}
		c.mu.Unlock()

		for _, s := range subs {
			// A subscriber only hears transitions queued after it joined.
			if s.active.Load() && d.seq >= s.since {
				s.fn(d.open)
			}
		}

		c.mu.Lock()
	}
	c.delivering = false
	c.mu.Unlock()
}
