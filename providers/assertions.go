package providers

import (
	"github.com/rubato-audio/seqrpc/src/bridge"
	"github.com/rubato-audio/seqrpc/src/engine"
	"github.com/rubato-audio/seqrpc/src/rpc"
	"github.com/rubato-audio/seqrpc/src/sequencer"
)

// Compile-time interface assertions.
var (
	_ rpc.Channel = (*bridge.MemoryEndpoint)(nil)
	_ rpc.Channel = (*bridge.RedisChannel)(nil)
	_ rpc.Channel = (*bridge.SocketChannel)(nil)
	_ rpc.Channel = (*bridge.SocketHub)(nil)

	_ sequencer.Sequencer = (*sequencer.RpcSequencer)(nil)
	_ sequencer.Sequencer = (*engine.Simulator)(nil)
)
