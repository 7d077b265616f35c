package sequencer

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rubato-audio/seqrpc/src/async"
	"github.com/rubato-audio/seqrpc/src/audio"
	"github.com/rubato-audio/seqrpc/src/midi"
	"github.com/rubato-audio/seqrpc/src/rpc"
)

// RpcSequencer drives a remote sequencing engine over an rpc channel and
// mirrors its observable state locally. Commands are fire-and-forget;
// state and events flow back as inbound messages addressed to the proxy's
// target.
type RpcSequencer struct {
	target rpc.Target
	ch     rpc.Channel
	logger zerolog.Logger

	// calls is built in the constructor and read-only afterwards.
	calls map[rpc.Method]func(rpc.Args)

	dispatchMu sync.Mutex   // serializes inbound dispatch
	stateMu    sync.RWMutex // guards mirrored state and the tick registry

	status   Status
	position float64

	statusChanged   *async.Channel[Status]
	positionChanged *async.Notification
	midiTickPlayed  map[TrackID]*async.Channel[midi.Tick]

	listenID  rpc.ListenID
	listening bool
}

// NewRpcSequencer creates a proxy for the engine listening as target on ch.
// Call Setup to start receiving events.
func NewRpcSequencer(target rpc.Target, ch rpc.Channel, logger zerolog.Logger) *RpcSequencer {
	s := &RpcSequencer{
		target: target,
		ch:     ch,
		logger: logger.With().
			Str("component", "rpc-sequencer").
			Str("target", string(target)).
			Logger(),
		statusChanged:   async.NewChannel[Status](),
		positionChanged: async.NewNotification(),
		midiTickPlayed:  make(map[TrackID]*async.Channel[midi.Tick]),
	}
	s.calls = map[rpc.Method]func(rpc.Args){
		"statusChanged":   s.onStatusChanged,
		"positionChanged": s.onPositionChanged,
		"midiTickPlayed":  s.onMidiTickPlayed,
	}
	return s
}

// Setup registers the proxy on the channel and starts dispatching inbound
// events. Calling it again is a no-op.
func (s *RpcSequencer) Setup() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.listening {
		return
	}
	s.listenID = s.ch.Listen(s.dispatch)
	s.listening = true
}

// Close unregisters the proxy from the channel. Mirrored state stays
// readable but no longer updates.
func (s *RpcSequencer) Close() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if !s.listening {
		return
	}
	s.ch.Unlisten(s.listenID)
	s.listening = false
}

// dispatch routes one inbound message. Messages for other targets pass by
// untouched; unknown methods for this target are logged and dropped.
func (s *RpcSequencer) dispatch(msg rpc.Msg) {
	if msg.Target != s.target {
		return
	}
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	call, ok := s.calls[msg.Method]
	if !ok {
		s.logger.Error().Str("method", string(msg.Method)).Msg("unknown method")
		return
	}
	call(msg.Args)
}

func (s *RpcSequencer) onStatusChanged(args rpc.Args) {
	status := rpc.Arg[Status](args, 0)
	s.stateMu.Lock()
	s.status = status
	s.stateMu.Unlock()
	s.statusChanged.Send(status)
}

func (s *RpcSequencer) onPositionChanged(args rpc.Args) {
	position := rpc.Arg[float64](args, 0)
	s.stateMu.Lock()
	s.position = position
	s.stateMu.Unlock()
	// The notification carries no payload; readers poll PlaybackPosition.
	s.positionChanged.Notify()
}

func (s *RpcSequencer) onMidiTickPlayed(args rpc.Args) {
	id := rpc.Arg[TrackID](args, 0)
	tick := rpc.Arg[midi.Tick](args, 1)
	s.stateMu.Lock()
	ch, ok := s.midiTickPlayed[id]
	if !ok {
		// A tick can arrive before anyone asked for this track's stream.
		ch = async.NewChannel[midi.Tick]()
		s.midiTickPlayed[id] = ch
	}
	s.stateMu.Unlock()
	ch.Send(tick)
}

// Status returns the last playback state reported by the engine,
// StatusStopped before the first report.
func (s *RpcSequencer) Status() Status {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.status
}

// StatusChanged broadcasts every playback state change reported by the
// engine.
func (s *RpcSequencer) StatusChanged() *async.Channel[Status] { return s.statusChanged }

// PlaybackPosition returns the last position reported by the engine, in
// seconds.
func (s *RpcSequencer) PlaybackPosition() float64 {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.position
}

// PositionChanged signals position updates reported by the engine.
func (s *RpcSequencer) PositionChanged() *async.Notification { return s.positionChanged }

// send fires a command at the engine. Transport errors are logged and
// swallowed; callers of fire-and-forget commands have nothing to handle.
func (s *RpcSequencer) send(method rpc.Method, vals ...any) {
	if err := s.ch.Send(rpc.NewMsg(s.target, method, vals...)); err != nil {
		s.logger.Error().Err(err).Str("method", string(method)).Msg("send failed")
	}
}

// InitMIDITrack registers a MIDI track with the engine.
func (s *RpcSequencer) InitMIDITrack(id TrackID) { s.send("initMIDITrack", id) }

// InitAudioTrack registers an audio track with the engine.
func (s *RpcSequencer) InitAudioTrack(id TrackID) { s.send("initAudioTrack", id) }

// SetMIDITrack attaches a live MIDI stream to a track. The stream handle
// cannot cross a serialized channel; in that mode nothing is sent and
// ErrSerializedChannel is returned.
func (s *RpcSequencer) SetMIDITrack(id TrackID, stream *midi.Stream) error {
	if s.ch.IsSerialized() {
		return fmt.Errorf("setMIDITrack: %w", rpc.ErrSerializedChannel)
	}
	s.send("setMIDITrack", id, stream)
	return nil
}

// SetAudioTrack attaches a live audio stream to a track. Serialized
// channels cannot carry the handle; see SetMIDITrack.
func (s *RpcSequencer) SetAudioTrack(id TrackID, stream audio.Stream) error {
	if s.ch.IsSerialized() {
		return fmt.Errorf("setAudioTrack: %w", rpc.ErrSerializedChannel)
	}
	s.send("setAudioTrack", id, stream)
	return nil
}

func (s *RpcSequencer) Play()   { s.send("play") }
func (s *RpcSequencer) Pause()  { s.send("pause") }
func (s *RpcSequencer) Stop()   { s.send("stop") }
func (s *RpcSequencer) Rewind() { s.send("rewind") }

// Seek moves playback to positionMs. The engine validates the range.
func (s *RpcSequencer) Seek(positionMs uint64) { s.send("seek", positionMs) }

// SetLoop loops playback between fromMs and toMs. The engine validates the
// range.
func (s *RpcSequencer) SetLoop(fromMs, toMs uint64) { s.send("setLoop", fromMs, toMs) }

// UnsetLoop clears the loop region.
func (s *RpcSequencer) UnsetLoop() { s.send("unsetLoop") }

// InstantlyPlayMidi plays data immediately, outside any track. No handle to
// the resulting playback is returned in either mode, so it cannot be
// paused or stopped individually; stopping it would need the command
// vocabulary to grow a remote-assigned playback ID.
func (s *RpcSequencer) InstantlyPlayMidi(data midi.Data) error {
	if s.ch.IsSerialized() {
		return fmt.Errorf("instantlyPlayMidi: %w", rpc.ErrSerializedChannel)
	}
	s.send("instantlyPlayMidi", data)
	return nil
}

// MidiTickPlayed returns the broadcast of played ticks for track id. The
// first call for an id asks the engine to start reporting ticks for it;
// later calls return the same channel without a second request. A channel
// created by inbound traffic counts as already requested.
func (s *RpcSequencer) MidiTickPlayed(id TrackID) *async.Channel[midi.Tick] {
	s.stateMu.Lock()
	ch, ok := s.midiTickPlayed[id]
	if !ok {
		ch = async.NewChannel[midi.Tick]()
		s.midiTickPlayed[id] = ch
	}
	s.stateMu.Unlock()
	if !ok {
		s.send("bindMidiTickPlayed", id)
	}
	return ch
}
