// Package engine holds the remote side of the sequencer bridge: the
// controller that applies incoming commands to a local Sequencer, and a
// simulator engine for hosts without real audio hardware.
package engine

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/rubato-audio/seqrpc/src/audio"
	"github.com/rubato-audio/seqrpc/src/midi"
	"github.com/rubato-audio/seqrpc/src/rpc"
	"github.com/rubato-audio/seqrpc/src/sequencer"
)

// Controller attaches a local Sequencer to an rpc channel: command
// messages addressed to the target drive the sequencer, and the
// sequencer's observable events flow back over the channel.
type Controller struct {
	target rpc.Target
	ch     rpc.Channel
	seq    sequencer.Sequencer
	logger zerolog.Logger

	// calls is built in the constructor and read-only afterwards.
	calls map[rpc.Method]func(rpc.Args)

	dispatchMu sync.Mutex // serializes inbound dispatch

	mu        sync.Mutex
	bound     map[sequencer.TrackID]func()
	cancels   []func()
	listenID  rpc.ListenID
	listening bool
}

// NewController creates a controller for seq answering as target on ch.
// Call Setup to start serving.
func NewController(target rpc.Target, ch rpc.Channel, seq sequencer.Sequencer, logger zerolog.Logger) *Controller {
	c := &Controller{
		target: target,
		ch:     ch,
		seq:    seq,
		logger: logger.With().
			Str("component", "sequencer-controller").
			Str("target", string(target)).
			Logger(),
		bound: make(map[sequencer.TrackID]func()),
	}
	c.calls = map[rpc.Method]func(rpc.Args){
		"play":   func(rpc.Args) { c.seq.Play() },
		"pause":  func(rpc.Args) { c.seq.Pause() },
		"stop":   func(rpc.Args) { c.seq.Stop() },
		"rewind": func(rpc.Args) { c.seq.Rewind() },
		"seek": func(args rpc.Args) {
			c.seq.Seek(rpc.Arg[uint64](args, 0))
		},
		"setLoop": func(args rpc.Args) {
			c.seq.SetLoop(rpc.Arg[uint64](args, 0), rpc.Arg[uint64](args, 1))
		},
		"unsetLoop": func(rpc.Args) { c.seq.UnsetLoop() },
		"initMIDITrack": func(args rpc.Args) {
			c.seq.InitMIDITrack(rpc.Arg[sequencer.TrackID](args, 0))
		},
		"initAudioTrack": func(args rpc.Args) {
			c.seq.InitAudioTrack(rpc.Arg[sequencer.TrackID](args, 0))
		},
		"setMIDITrack": func(args rpc.Args) {
			id := rpc.Arg[sequencer.TrackID](args, 0)
			stream := rpc.Arg[*midi.Stream](args, 1)
			if err := c.seq.SetMIDITrack(id, stream); err != nil {
				c.logger.Error().Err(err).Uint32("track_id", uint32(id)).Msg("setMIDITrack failed")
			}
		},
		"setAudioTrack": func(args rpc.Args) {
			id := rpc.Arg[sequencer.TrackID](args, 0)
			stream := rpc.Arg[audio.Stream](args, 1)
			if err := c.seq.SetAudioTrack(id, stream); err != nil {
				c.logger.Error().Err(err).Uint32("track_id", uint32(id)).Msg("setAudioTrack failed")
			}
		},
		"instantlyPlayMidi": func(args rpc.Args) {
			if err := c.seq.InstantlyPlayMidi(rpc.Arg[midi.Data](args, 0)); err != nil {
				c.logger.Error().Err(err).Msg("instantlyPlayMidi failed")
			}
		},
		"bindMidiTickPlayed": c.onBindMidiTickPlayed,
	}
	return c
}

// Setup starts listening for commands and forwarding engine events.
// Calling it again is a no-op.
func (c *Controller) Setup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listening {
		return
	}
	c.cancels = append(c.cancels,
		c.seq.StatusChanged().OnReceive(func(status sequencer.Status) {
			c.send("statusChanged", status)
		}),
		c.seq.PositionChanged().OnNotify(func() {
			c.send("positionChanged", c.seq.PlaybackPosition())
		}),
	)
	c.listenID = c.ch.Listen(c.dispatch)
	c.listening = true
}

// Close stops listening and detaches from the sequencer's events.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.listening {
		return
	}
	c.ch.Unlisten(c.listenID)
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	for id, cancel := range c.bound {
		cancel()
		delete(c.bound, id)
	}
	c.listening = false
}

// dispatch routes one inbound message. Messages for other targets pass by
// untouched; unknown methods for this target are logged and dropped.
func (c *Controller) dispatch(msg rpc.Msg) {
	if msg.Target != c.target {
		return
	}
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	call, ok := c.calls[msg.Method]
	if !ok {
		c.logger.Error().Str("method", string(msg.Method)).Msg("unknown method")
		return
	}
	call(msg.Args)
}

// onBindMidiTickPlayed starts forwarding a track's played ticks over the
// channel. A track already bound stays bound; there is never more than one
// subscription per track.
func (c *Controller) onBindMidiTickPlayed(args rpc.Args) {
	id := rpc.Arg[sequencer.TrackID](args, 0)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.bound[id]; ok {
		return
	}
	c.bound[id] = c.seq.MidiTickPlayed(id).OnReceive(func(tick midi.Tick) {
		c.send("midiTickPlayed", id, tick)
	})
}

// send fires an event at the proxies. Transport errors are logged and
// swallowed; event flow is fire-and-forget.
func (c *Controller) send(method rpc.Method, vals ...any) {
	if err := c.ch.Send(rpc.NewMsg(c.target, method, vals...)); err != nil {
		c.logger.Error().Err(err).Str("method", string(method)).Msg("send failed")
	}
}
