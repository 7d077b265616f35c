package engine

import (
	"sync"
	"time"

	"github.com/rubato-audio/seqrpc/src/async"
	"github.com/rubato-audio/seqrpc/src/audio"
	"github.com/rubato-audio/seqrpc/src/midi"
	"github.com/rubato-audio/seqrpc/src/sequencer"
)

const (
	simAdvanceInterval = 25 * time.Millisecond
	simTicksPerSecond  = 960
)

// Simulator is a transport-faithful stand-in for a real sequencing engine.
// It keeps playback state, advances the position on a wall-clock ticker
// while playing, honors seek and loop commands, and synthesizes per-track
// tick reports. No audio is produced.
type Simulator struct {
	mu       sync.Mutex
	status   sequencer.Status
	position float64 // seconds
	loopFrom float64
	loopTo   float64
	hasLoop  bool

	midiTracks  map[sequencer.TrackID]*midi.Stream
	audioTracks map[sequencer.TrackID]audio.Stream
	instant     []midi.Data

	statusChanged   *async.Channel[sequencer.Status]
	positionChanged *async.Notification
	ticks           map[sequencer.TrackID]*async.Channel[midi.Tick]

	done chan struct{}
	once sync.Once
}

// NewSimulator creates a stopped simulator and starts its clock goroutine.
func NewSimulator() *Simulator {
	s := &Simulator{
		midiTracks:      make(map[sequencer.TrackID]*midi.Stream),
		audioTracks:     make(map[sequencer.TrackID]audio.Stream),
		statusChanged:   async.NewChannel[sequencer.Status](),
		positionChanged: async.NewNotification(),
		ticks:           make(map[sequencer.TrackID]*async.Channel[midi.Tick]),
		done:            make(chan struct{}),
	}
	go s.run()
	return s
}

// Close stops the clock goroutine. State remains readable.
func (s *Simulator) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Simulator) run() {
	t := time.NewTicker(simAdvanceInterval)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case now := <-t.C:
			s.advance(now.Sub(last).Seconds())
			last = now
		case <-s.done:
			return
		}
	}
}

// advance moves playback forward by dt seconds when playing, wrapping at
// the loop boundary and reporting position and ticks.
func (s *Simulator) advance(dt float64) {
	s.mu.Lock()
	if s.status != sequencer.StatusPlaying {
		s.mu.Unlock()
		return
	}
	s.position += dt
	if s.hasLoop && s.position >= s.loopTo {
		s.position = s.loopFrom
	}
	tick := midi.Tick(s.position * simTicksPerSecond)
	chans := make([]*async.Channel[midi.Tick], 0, len(s.midiTracks))
	for id := range s.midiTracks {
		if ch, ok := s.ticks[id]; ok {
			chans = append(chans, ch)
		}
	}
	s.mu.Unlock()

	s.positionChanged.Notify()
	for _, ch := range chans {
		ch.Send(tick)
	}
}

func (s *Simulator) setStatus(status sequencer.Status) {
	s.mu.Lock()
	if s.status == status {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.mu.Unlock()
	s.statusChanged.Send(status)
}

// Status returns the current playback state.
func (s *Simulator) Status() sequencer.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// StatusChanged broadcasts every playback state change.
func (s *Simulator) StatusChanged() *async.Channel[sequencer.Status] {
	return s.statusChanged
}

// PlaybackPosition returns elapsed playback time in seconds.
func (s *Simulator) PlaybackPosition() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// PositionChanged signals playback position updates.
func (s *Simulator) PositionChanged() *async.Notification {
	return s.positionChanged
}

// InitMIDITrack registers a MIDI track. Registering a track again is a
// no-op that keeps any attached stream.
func (s *Simulator) InitMIDITrack(id sequencer.TrackID) {
	s.mu.Lock()
	if _, ok := s.midiTracks[id]; !ok {
		s.midiTracks[id] = nil
	}
	s.mu.Unlock()
}

// InitAudioTrack registers an audio track.
func (s *Simulator) InitAudioTrack(id sequencer.TrackID) {
	s.mu.Lock()
	if _, ok := s.audioTracks[id]; !ok {
		s.audioTracks[id] = nil
	}
	s.mu.Unlock()
}

// SetMIDITrack attaches a live MIDI stream, registering the track if
// needed.
func (s *Simulator) SetMIDITrack(id sequencer.TrackID, stream *midi.Stream) error {
	s.mu.Lock()
	s.midiTracks[id] = stream
	s.mu.Unlock()
	return nil
}

// SetAudioTrack attaches a live audio stream, registering the track if
// needed.
func (s *Simulator) SetAudioTrack(id sequencer.TrackID, stream audio.Stream) error {
	s.mu.Lock()
	s.audioTracks[id] = stream
	s.mu.Unlock()
	return nil
}

// Play starts playback from the current position.
func (s *Simulator) Play() { s.setStatus(sequencer.StatusPlaying) }

// Pause halts playback, keeping the position.
func (s *Simulator) Pause() { s.setStatus(sequencer.StatusPaused) }

// Stop halts playback and resets the position to zero.
func (s *Simulator) Stop() {
	s.mu.Lock()
	changed := s.status != sequencer.StatusStopped
	s.status = sequencer.StatusStopped
	s.position = 0
	s.mu.Unlock()
	if changed {
		s.statusChanged.Send(sequencer.StatusStopped)
	}
	s.positionChanged.Notify()
}

// Rewind resets the position to zero without changing the playback state.
func (s *Simulator) Rewind() {
	s.mu.Lock()
	s.position = 0
	s.mu.Unlock()
	s.positionChanged.Notify()
}

// Seek moves playback to positionMs.
func (s *Simulator) Seek(positionMs uint64) {
	s.mu.Lock()
	s.position = float64(positionMs) / 1000
	s.mu.Unlock()
	s.positionChanged.Notify()
}

// SetLoop loops playback between fromMs and toMs. An empty or inverted
// range is ignored.
func (s *Simulator) SetLoop(fromMs, toMs uint64) {
	if toMs <= fromMs {
		return
	}
	s.mu.Lock()
	s.loopFrom = float64(fromMs) / 1000
	s.loopTo = float64(toMs) / 1000
	s.hasLoop = true
	s.mu.Unlock()
}

// UnsetLoop clears the loop region.
func (s *Simulator) UnsetLoop() {
	s.mu.Lock()
	s.hasLoop = false
	s.mu.Unlock()
}

// InstantlyPlayMidi records data as played. The simulator produces no
// sound, so playing means remembering.
func (s *Simulator) InstantlyPlayMidi(data midi.Data) error {
	s.mu.Lock()
	s.instant = append(s.instant, data)
	s.mu.Unlock()
	return nil
}

// MidiTickPlayed returns the broadcast of played ticks for a track,
// creating it on first use.
func (s *Simulator) MidiTickPlayed(id sequencer.TrackID) *async.Channel[midi.Tick] {
	s.mu.Lock()
	ch, ok := s.ticks[id]
	if !ok {
		ch = async.NewChannel[midi.Tick]()
		s.ticks[id] = ch
	}
	s.mu.Unlock()
	return ch
}

// MIDIStream returns the stream attached to a MIDI track, nil if none.
func (s *Simulator) MIDIStream(id sequencer.TrackID) *midi.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.midiTracks[id]
}

// AudioStream returns the stream attached to an audio track, nil if none.
func (s *Simulator) AudioStream(id sequencer.TrackID) audio.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioTracks[id]
}

// InstantlyPlayed returns how many instant playback requests arrived.
func (s *Simulator) InstantlyPlayed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instant)
}
