// Package sequencer defines the control surface of an audio sequencing
// engine and the rpc proxy that drives a remote one.
package sequencer

import (
	"fmt"

	"github.com/rubato-audio/seqrpc/src/async"
	"github.com/rubato-audio/seqrpc/src/audio"
	"github.com/rubato-audio/seqrpc/src/midi"
)

// Status is the playback state of a sequencer.
type Status uint8

const (
	StatusStopped Status = iota
	StatusPlaying
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// TrackID identifies a track within a sequencer.
type TrackID uint32

// Sequencer is the control and observation surface of an audio sequencing
// engine. Engine implementations expose it directly; RpcSequencer
// implements it against an engine on the far side of an rpc channel.
type Sequencer interface {
	// Status returns the current playback state.
	Status() Status
	// StatusChanged broadcasts every playback state change.
	StatusChanged() *async.Channel[Status]

	// PlaybackPosition returns elapsed playback time in seconds.
	PlaybackPosition() float64
	// PositionChanged signals playback position updates. It carries no
	// payload; readers poll PlaybackPosition.
	PositionChanged() *async.Notification

	InitMIDITrack(id TrackID)
	InitAudioTrack(id TrackID)

	// SetMIDITrack attaches a live MIDI stream to a track.
	SetMIDITrack(id TrackID, stream *midi.Stream) error
	// SetAudioTrack attaches a live audio stream to a track.
	SetAudioTrack(id TrackID, stream audio.Stream) error

	Play()
	Pause()
	Stop()
	Rewind()
	// Seek moves playback to positionMs. Range validation is the
	// engine's job.
	Seek(positionMs uint64)
	// SetLoop loops playback between fromMs and toMs.
	SetLoop(fromMs, toMs uint64)
	UnsetLoop()

	// InstantlyPlayMidi plays data immediately, outside any track. No
	// handle to the resulting playback is returned, so it cannot be
	// paused or stopped individually.
	InstantlyPlayMidi(data midi.Data) error

	// MidiTickPlayed returns the broadcast of played ticks for a track.
	MidiTickPlayed(id TrackID) *async.Channel[midi.Tick]
}
