// Package notify holds the single status banner shown to a user.
//
// The slot is last-write-wins. Every Show arms its own expiry timer and a later
// Show does not cancel it; a timer whose notification was already replaced
// fires without effect.
package notify

import (
	"sync"
	"time"
)

type Kind string

const (
	KindPending Kind = "pending"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notification struct {
	Kind    Kind
	Message string
	Seq     uint64
	ShownAt time.Time
}

// Delays is how long each kind stays visible.
type Delays struct {
	Pending time.Duration
	Success time.Duration
	Error   time.Duration
}

var DefaultDelays = Delays{
	Pending: 1500 * time.Millisecond,
	Success: 2 * time.Second,
	Error:   3 * time.Second,
}

func (d Delays) For(k Kind) time.Duration {
	switch k {
	case KindPending:
		return d.Pending
	case KindSuccess:
		return d.Success
	default:
		return d.Error
	}
}

type Notifier struct {
	mu       sync.Mutex
	delays   Delays
	current  *Notification
	seq      uint64
	timers   map[uint64]*time.Timer
	closed   bool
	onExpire func(Notification)
	now      func() time.Time
}

type Option func(*Notifier)

// WithOnExpire registers fn to run after a timer clears the slot. fn receives
// the notification that was cleared and runs outside the notifier's lock.
func WithOnExpire(fn func(Notification)) Option {
	return func(n *Notifier) { n.onExpire = fn }
}

func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

func New(delays Delays, opts ...Option) *Notifier {
	n := &Notifier{
		delays: delays,
		timers: make(map[uint64]*time.Timer),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Show replaces the slot and arms an expiry timer for kind.
func (n *Notifier) Show(kind Kind, message string) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.seq++
	note := Notification{Kind: kind, Message: message, Seq: n.seq, ShownAt: n.now()}
	n.current = &note
	if n.closed {
		return note
	}

	seq := n.seq
	n.timers[seq] = time.AfterFunc(n.delays.For(kind), func() { n.expire(seq) })
	return note
}

func (n *Notifier) expire(seq uint64) {
	n.mu.Lock()
	delete(n.timers, seq)
	if n.closed {
		n.mu.Unlock()
		return
	}
	if n.current == nil || n.current.Seq != seq {
		n.mu.Unlock()
		return
	}
	cleared := *n.current
	n.current = nil
	hook := n.onExpire
	n.mu.Unlock()

	if hook != nil {
		hook(cleared)
	}
}

func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}

// Dismiss clears the slot now. Armed timers keep running.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = nil
}

// Close stops every armed timer. The slot keeps its last value.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for seq, t := range n.timers {
		t.Stop()
		delete(n.timers, seq)
	}
}
