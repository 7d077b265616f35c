// Package audio describes the audio source handles attached to sequencer
// tracks.
package audio

// Stream is a live audio source attached to a track. It is an in-process
// handle and cannot cross a serialized rpc channel.
type Stream interface {
	// SampleRate reports frames per second.
	SampleRate() uint32
	// ChannelCount reports interleaved channels per frame.
	ChannelCount() uint16
}
