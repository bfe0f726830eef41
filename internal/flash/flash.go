// Package flash shows one transient banner that clears itself.
package flash

import (
	"sync"
	"time"
)

// DefaultTTL is how long a banner stays visible.
const DefaultTTL = 3 * time.Second

// Kind distinguishes success banners from error banners.
type Kind string

// Banner kinds.
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Message is the visible banner. The zero value means nothing is shown.
type Message struct {
	Kind Kind
	Text string
}

// IsZero reports whether nothing is shown.
func (m Message) IsZero() bool {
	return m.Text == ""
}

// Banner holds the current message and its clear timer.
type Banner struct {
	ttl time.Duration

	mu      sync.Mutex
	current Message
	seq     uint64
	timer   *time.Timer
	stopped bool
}

// New creates a banner whose messages clear after ttl. A ttl of 0 uses
// DefaultTTL.
func New(ttl time.Duration) *Banner {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Banner{ttl: ttl}
}

// Success shows a success message.
func (b *Banner) Success(text string) { b.show(Message{Kind: KindSuccess, Text: text}) }

// Error shows an error message.
func (b *Banner) Error(text string) { b.show(Message{Kind: KindError, Text: text}) }

func (b *Banner) show(m Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}

	b.stopTimerLocked()
	b.current = m
	b.seq++
	seq := b.seq
	b.timer = time.AfterFunc(b.ttl, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.seq == seq {
			b.current = Message{}
			b.timer = nil
		}
	})
}

// Current returns the visible message.
func (b *Banner) Current() Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Clear hides the banner now.
func (b *Banner) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopTimerLocked()
	b.seq++
	b.current = Message{}
}

// Stop clears the banner and ignores later messages.
func (b *Banner) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopTimerLocked()
	b.seq++
	b.current = Message{}
	b.stopped = true
}

func (b *Banner) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
