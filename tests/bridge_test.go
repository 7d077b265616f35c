package tests

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rubato-audio/seqrpc/src/bridge"
	"github.com/rubato-audio/seqrpc/src/engine"
	"github.com/rubato-audio/seqrpc/src/midi"
	"github.com/rubato-audio/seqrpc/src/rpc"
	"github.com/rubato-audio/seqrpc/src/sequencer"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// newBridgedPair wires a proxy to a simulated engine over an in-process
// channel pair, the way a host process wires them over a socket.
func newBridgedPair(t *testing.T) (*sequencer.RpcSequencer, *engine.Simulator) {
	t.Helper()
	logger := zerolog.Nop()

	proxySide, engineSide := bridge.NewMemoryPair(logger)
	t.Cleanup(proxySide.Close)

	sim := engine.NewSimulator()
	t.Cleanup(sim.Close)

	ctrl := engine.NewController(rpc.TargetSequencer, engineSide, sim, logger)
	ctrl.Setup()
	t.Cleanup(ctrl.Close)

	proxy := sequencer.NewRpcSequencer(rpc.TargetSequencer, proxySide, logger)
	proxy.Setup()
	t.Cleanup(proxy.Close)

	return proxy, sim
}

func TestPlayReachesEngineAndReflectsBack(t *testing.T) {
	proxy, sim := newBridgedPair(t)

	proxy.Play()

	waitFor(t, "engine to start playing", func() bool {
		return sim.Status() == sequencer.StatusPlaying
	})
	waitFor(t, "proxy to mirror playing status", func() bool {
		return proxy.Status() == sequencer.StatusPlaying
	})
}

func TestPauseAndStopRoundTrip(t *testing.T) {
	proxy, _ := newBridgedPair(t)

	proxy.Play()
	waitFor(t, "playing", func() bool { return proxy.Status() == sequencer.StatusPlaying })

	proxy.Pause()
	waitFor(t, "paused", func() bool { return proxy.Status() == sequencer.StatusPaused })

	proxy.Stop()
	waitFor(t, "stopped", func() bool { return proxy.Status() == sequencer.StatusStopped })
}

func TestStatusEventsFanOut(t *testing.T) {
	proxy, _ := newBridgedPair(t)

	var mu sync.Mutex
	var got []sequencer.Status
	proxy.StatusChanged().OnReceive(func(st sequencer.Status) {
		mu.Lock()
		got = append(got, st)
		mu.Unlock()
	})

	proxy.Play()

	waitFor(t, "status event", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == sequencer.StatusPlaying
	})
}

func TestSeekUpdatesMirroredPosition(t *testing.T) {
	proxy, sim := newBridgedPair(t)

	proxy.Seek(1500)

	waitFor(t, "engine position", func() bool {
		return sim.PlaybackPosition() >= 1.49
	})
	waitFor(t, "mirrored position", func() bool {
		return proxy.PlaybackPosition() >= 1.49
	})
}

func TestPositionNotificationsFlow(t *testing.T) {
	proxy, _ := newBridgedPair(t)

	var mu sync.Mutex
	notified := 0
	proxy.PositionChanged().OnNotify(func() {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	proxy.Seek(2000)

	waitFor(t, "position notification", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return notified >= 1
	})
}

func TestMidiTicksFlowAfterBind(t *testing.T) {
	proxy, _ := newBridgedPair(t)

	proxy.InitMIDITrack(3)

	var mu sync.Mutex
	var ticks []midi.Tick
	proxy.MidiTickPlayed(3).OnReceive(func(tick midi.Tick) {
		mu.Lock()
		ticks = append(ticks, tick)
		mu.Unlock()
	})

	proxy.Play()

	waitFor(t, "tick reports", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ticks) > 0
	})
}

func TestStreamHandleCrossesDirectChannel(t *testing.T) {
	proxy, sim := newBridgedPair(t)

	stream := midi.NewStream(midi.Data{
		Division: 480,
		Events:   []midi.Event{{Tick: 0, Type: midi.NoteOn, Note: 60, Velocity: 100}},
	})
	if err := proxy.SetMIDITrack(5, stream); err != nil {
		t.Fatalf("SetMIDITrack on a direct channel: %v", err)
	}

	waitFor(t, "engine to hold the exact stream handle", func() bool {
		return sim.MIDIStream(5) == stream
	})
}

func TestInstantlyPlayMidiReachesEngine(t *testing.T) {
	proxy, sim := newBridgedPair(t)

	if err := proxy.InstantlyPlayMidi(midi.Data{Division: 96}); err != nil {
		t.Fatalf("InstantlyPlayMidi on a direct channel: %v", err)
	}

	waitFor(t, "engine to record instant playback", func() bool {
		return sim.InstantlyPlayed() == 1
	})
}

func TestLoopKeepsPositionInRange(t *testing.T) {
	proxy, _ := newBridgedPair(t)

	proxy.SetLoop(0, 200)
	proxy.Play()

	// Let the engine run past the loop end a few times over.
	time.Sleep(500 * time.Millisecond)

	pos := proxy.PlaybackPosition()
	if pos >= 0.25 {
		t.Errorf("expected looped position below 0.25s, got %v", pos)
	}
}

// serializedStub stands in for a byte-encoding transport: it records sends
// and claims serialized mode.
type serializedStub struct {
	mu   sync.Mutex
	sent []rpc.Msg
}

func (s *serializedStub) Send(msg rpc.Msg) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *serializedStub) Listen(func(rpc.Msg)) rpc.ListenID { return "stub" }
func (s *serializedStub) Unlisten(rpc.ListenID)             {}
func (s *serializedStub) IsSerialized() bool                { return true }

func (s *serializedStub) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestSerializedModeRejectsLiveHandles(t *testing.T) {
	stub := &serializedStub{}
	proxy := sequencer.NewRpcSequencer(rpc.TargetSequencer, stub, zerolog.Nop())
	proxy.Setup()
	t.Cleanup(proxy.Close)

	if err := proxy.SetMIDITrack(1, midi.NewStream(midi.Data{})); !errors.Is(err, rpc.ErrSerializedChannel) {
		t.Errorf("SetMIDITrack: expected ErrSerializedChannel, got %v", err)
	}
	if err := proxy.SetAudioTrack(2, nil); !errors.Is(err, rpc.ErrSerializedChannel) {
		t.Errorf("SetAudioTrack: expected ErrSerializedChannel, got %v", err)
	}
	if err := proxy.InstantlyPlayMidi(midi.Data{}); !errors.Is(err, rpc.ErrSerializedChannel) {
		t.Errorf("InstantlyPlayMidi: expected ErrSerializedChannel, got %v", err)
	}
	if n := stub.sentCount(); n != 0 {
		t.Errorf("rejected operations must not reach the channel, got %d sends", n)
	}

	proxy.Play()
	if n := stub.sentCount(); n != 1 {
		t.Errorf("plain commands still cross a serialized channel, got %d sends", n)
	}
}
