package rpc

import "errors"

// Target identifies a logical endpoint sharing an rpc channel. Exactly one
// listener per target per process should own inbound dispatch; the channel
// does not enforce this.
type Target string

// TargetSequencer is the well-known target of the audio sequencing engine.
const TargetSequencer Target = "sequencer"

// Method names an inbound event or outbound command. Names are
// case-sensitive and compared by equality.
type Method string

// Msg is an addressed method call envelope. It is immutable once built.
type Msg struct {
	Target Target `json:"target"`
	Method Method `json:"method"`
	Args   Args   `json:"args"`
}

// NewMsg builds a message for the given target and method. Argument values
// are canonicalized; see NewArgs.
func NewMsg(target Target, method Method, vals ...any) Msg {
	return Msg{Target: target, Method: method, Args: NewArgs(vals...)}
}

// ListenID identifies a listener registered on a Channel.
type ListenID string

// ErrSerializedChannel reports an operation whose payload cannot cross a
// channel that serializes messages.
var ErrSerializedChannel = errors.New("rpc: not implemented over a serialized channel")

// ErrChannelClosed reports a send on a channel that is no longer running.
var ErrChannelClosed = errors.New("rpc: channel closed")

// Channel is the message transport between a bridge proxy and the remote
// engine. Implementations may cross thread or process boundaries.
//
// Listeners receive every message that reaches the endpoint, whatever its
// target; filtering by target is the listener's own job. Messages sent
// through an endpoint are never delivered back to that endpoint's own
// listeners. The goroutine a listener runs on is implementation-defined.
type Channel interface {
	// Send dispatches a message to the other endpoints of the channel.
	// Fire-and-forget: a nil error means the message was accepted for
	// delivery, not that anything received it.
	Send(msg Msg) error

	// Listen registers fn for every inbound message.
	Listen(fn func(Msg)) ListenID

	// Unlisten removes a listener. Safe to call with an ID that was
	// already removed.
	Unlisten(id ListenID)

	// IsSerialized reports whether messages are encoded to bytes in
	// transit. A serialized channel cannot carry live in-process handles.
	IsSerialized() bool
}

// Conn abstracts a socket connection carrying JSON frames, for testability.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}
