package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubato-audio/seqrpc/src/midi"
	"github.com/rubato-audio/seqrpc/src/sequencer"
)

// newStoppedSimulator returns a simulator with its wall clock stopped, so
// tests drive advance by hand and stay deterministic.
func newStoppedSimulator() *Simulator {
	s := NewSimulator()
	s.Close()
	return s
}

func TestSimulatorStatusTransitions(t *testing.T) {
	s := newStoppedSimulator()

	var got []sequencer.Status
	s.StatusChanged().OnReceive(func(st sequencer.Status) { got = append(got, st) })

	s.Play()
	s.Pause()
	s.Play()
	s.Stop()

	assert.Equal(t, sequencer.StatusStopped, s.Status())
	assert.Equal(t, []sequencer.Status{
		sequencer.StatusPlaying,
		sequencer.StatusPaused,
		sequencer.StatusPlaying,
		sequencer.StatusStopped,
	}, got)
}

func TestSimulatorRepeatedPlayReportsOnce(t *testing.T) {
	s := newStoppedSimulator()

	var reports int
	s.StatusChanged().OnReceive(func(sequencer.Status) { reports++ })

	s.Play()
	s.Play()

	assert.Equal(t, 1, reports)
}

func TestSimulatorAdvanceWhilePlaying(t *testing.T) {
	s := newStoppedSimulator()

	var notified int
	s.PositionChanged().OnNotify(func() { notified++ })

	s.Play()
	s.advance(0.25)
	s.advance(0.25)

	assert.Equal(t, 0.5, s.PlaybackPosition())
	assert.Equal(t, 2, notified)
}

func TestSimulatorAdvanceIgnoredUnlessPlaying(t *testing.T) {
	s := newStoppedSimulator()

	s.advance(0.25)
	assert.Equal(t, 0.0, s.PlaybackPosition())

	s.Play()
	s.Pause()
	s.advance(0.25)
	assert.Equal(t, 0.0, s.PlaybackPosition())
}

func TestSimulatorSeekAndRewind(t *testing.T) {
	s := newStoppedSimulator()

	var notified int
	s.PositionChanged().OnNotify(func() { notified++ })

	s.Seek(1500)
	assert.Equal(t, 1.5, s.PlaybackPosition())

	s.Rewind()
	assert.Equal(t, 0.0, s.PlaybackPosition())
	assert.Equal(t, 2, notified)
}

func TestSimulatorStopResetsPosition(t *testing.T) {
	s := newStoppedSimulator()

	s.Play()
	s.advance(2.0)
	s.Stop()

	assert.Equal(t, 0.0, s.PlaybackPosition())
	assert.Equal(t, sequencer.StatusStopped, s.Status())
}

func TestSimulatorLoopWraps(t *testing.T) {
	s := newStoppedSimulator()

	s.SetLoop(1000, 1200)
	s.Seek(1150)
	s.Play()
	s.advance(0.1)

	assert.Equal(t, 1.0, s.PlaybackPosition(), "position wraps to the loop start")

	s.UnsetLoop()
	s.Seek(1150)
	s.advance(0.1)
	assert.InDelta(t, 1.25, s.PlaybackPosition(), 1e-9)
}

func TestSimulatorIgnoresEmptyLoop(t *testing.T) {
	s := newStoppedSimulator()

	s.SetLoop(500, 500)
	s.Seek(490)
	s.Play()
	s.advance(0.1)

	assert.InDelta(t, 0.59, s.PlaybackPosition(), 1e-9)
}

func TestSimulatorTicksForMidiTracks(t *testing.T) {
	s := newStoppedSimulator()
	s.InitMIDITrack(3)
	s.InitAudioTrack(4)

	var midiTicks, audioTicks []midi.Tick
	s.MidiTickPlayed(3).OnReceive(func(tk midi.Tick) { midiTicks = append(midiTicks, tk) })
	s.MidiTickPlayed(4).OnReceive(func(tk midi.Tick) { audioTicks = append(audioTicks, tk) })

	s.Play()
	s.advance(0.5)

	assert.Equal(t, []midi.Tick{480}, midiTicks)
	assert.Empty(t, audioTicks, "audio tracks report no MIDI ticks")
}

func TestSimulatorStreamAttachment(t *testing.T) {
	s := newStoppedSimulator()

	stream := midi.NewStream(midi.Data{Division: 480})
	require.NoError(t, s.SetMIDITrack(9, stream))

	assert.Same(t, stream, s.MIDIStream(9))
	assert.Nil(t, s.MIDIStream(10))
}

func TestSimulatorInstantlyPlayMidi(t *testing.T) {
	s := newStoppedSimulator()

	require.NoError(t, s.InstantlyPlayMidi(midi.Data{Division: 96}))
	require.NoError(t, s.InstantlyPlayMidi(midi.Data{Division: 480}))

	assert.Equal(t, 2, s.InstantlyPlayed())
}

func TestSimulatorLiveClockAdvances(t *testing.T) {
	s := NewSimulator()
	t.Cleanup(s.Close)

	s.Play()

	require.Eventually(t, func() bool { return s.PlaybackPosition() > 0 },
		time.Second, 10*time.Millisecond)
}
