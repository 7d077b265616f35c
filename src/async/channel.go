// Package async provides the in-process broadcast primitives the sequencer
// surface is built from: a typed fan-out channel and a payloadless
// notification.
package async

import "sync"

// Channel broadcasts values of type T to its subscribers. Delivery is
// synchronous on the sender's goroutine; there is no buffering and no
// replay, so a subscriber added after a Send never sees that value.
type Channel[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func(T)
}

// NewChannel creates an empty broadcast channel.
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{subs: make(map[uint64]func(T))}
}

// OnReceive subscribes fn to future sends and returns a cancel function.
// Cancel is idempotent. A send running concurrently with cancel may invoke
// fn one last time.
func (c *Channel[T]) OnReceive(fn func(T)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Send delivers v to every current subscriber, in unspecified order. The
// subscriber list is snapshotted first, so callbacks may subscribe or
// cancel without deadlocking.
func (c *Channel[T]) Send(v T) {
	c.mu.Lock()
	fns := make([]func(T), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// Notification broadcasts a payloadless signal.
type Notification struct {
	ch *Channel[struct{}]
}

// NewNotification creates a notification with no subscribers.
func NewNotification() *Notification {
	return &Notification{ch: NewChannel[struct{}]()}
}

// Notify signals every current subscriber.
func (n *Notification) Notify() { n.ch.Send(struct{}{}) }

// OnNotify subscribes fn to future signals and returns a cancel function.
func (n *Notification) OnNotify(fn func()) (cancel func()) {
	return n.ch.OnReceive(func(struct{}) { fn() })
}
