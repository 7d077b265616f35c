package bridge

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/rubato-audio/seqrpc/src/rpc"
)

const memoryQueueSize = 256

// MemoryEndpoint is one side of a direct in-process rpc channel. Messages
// sent on one side are queued and delivered, in order, to the listeners on
// the other side by that side's pump goroutine. Payloads pass by
// reference, so live handles survive the trip.
type MemoryEndpoint struct {
	side      string
	listeners *listenerTable
	inbox     chan rpc.Msg
	peer      *MemoryEndpoint

	done   chan struct{}
	once   *sync.Once
	logger zerolog.Logger
}

// NewMemoryPair returns two connected in-process endpoints. Closing either
// endpoint stops both.
func NewMemoryPair(logger zerolog.Logger) (*MemoryEndpoint, *MemoryEndpoint) {
	done := make(chan struct{})
	once := &sync.Once{}
	a := newMemoryEndpoint("a", done, once, logger)
	b := newMemoryEndpoint("b", done, once, logger)
	a.peer, b.peer = b, a
	go a.pump()
	go b.pump()
	return a, b
}

func newMemoryEndpoint(side string, done chan struct{}, once *sync.Once, logger zerolog.Logger) *MemoryEndpoint {
	return &MemoryEndpoint{
		side:      side,
		listeners: newListenerTable(),
		inbox:     make(chan rpc.Msg, memoryQueueSize),
		done:      done,
		once:      once,
		logger: logger.With().
			Str("component", "memory-channel").
			Str("side", side).
			Logger(),
	}
}

// pump drains the inbox on a dedicated goroutine, which keeps inbound
// dispatch off the sender's stack and serialized per endpoint.
func (e *MemoryEndpoint) pump() {
	for {
		select {
		case msg := <-e.inbox:
			e.listeners.deliver(msg)
		case <-e.done:
			return
		}
	}
}

// Send queues msg for delivery to the peer endpoint's listeners. The queue
// is bounded; when it is full the message is dropped rather than blocking
// the sender.
func (e *MemoryEndpoint) Send(msg rpc.Msg) error {
	select {
	case <-e.done:
		return rpc.ErrChannelClosed
	default:
	}
	select {
	case e.peer.inbox <- msg:
		return nil
	default:
		e.logger.Warn().Str("method", string(msg.Method)).Msg("peer queue full, dropping message")
		return nil
	}
}

// Listen registers fn for every message arriving at this endpoint.
func (e *MemoryEndpoint) Listen(fn func(rpc.Msg)) rpc.ListenID {
	return e.listeners.add(fn)
}

// Unlisten removes a listener.
func (e *MemoryEndpoint) Unlisten(id rpc.ListenID) {
	e.listeners.remove(id)
}

// IsSerialized reports false: messages pass through by reference.
func (e *MemoryEndpoint) IsSerialized() bool { return false }

// Close stops both sides of the pair. Messages still queued are discarded.
func (e *MemoryEndpoint) Close() {
	e.once.Do(func() { close(e.done) })
}
