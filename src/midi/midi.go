// Package midi holds the MIDI data types carried over the sequencer rpc
// surface.
package midi

import "github.com/rubato-audio/seqrpc/src/async"

// Tick is a position in MIDI ticks.
type Tick uint32

// Event is a single timed MIDI event.
type Event struct {
	Tick     Tick  `json:"tick"`
	Type     uint8 `json:"type"`
	Channel  uint8 `json:"channel"`
	Note     uint8 `json:"note"`
	Velocity uint8 `json:"velocity"`
}

// Status byte values for Event.Type, channel bits zeroed.
const (
	NoteOff       uint8 = 0x80
	NoteOn        uint8 = 0x90
	ControlChange uint8 = 0xB0
	ProgramChange uint8 = 0xC0
)

// Data is a self-contained chunk of MIDI material.
type Data struct {
	Division uint16  `json:"division"`
	Events   []Event `json:"events"`
}

// Stream is a live MIDI source attached to a track. The initial chunk is
// available up front; later chunks arrive on Chunks. A Stream is an
// in-process handle and cannot cross a serialized rpc channel.
type Stream struct {
	Init   Data
	Chunks *async.Channel[Data]
}

// NewStream creates a stream seeded with init.
func NewStream(init Data) *Stream {
	return &Stream{Init: init, Chunks: async.NewChannel[Data]()}
}
