// Package bridge provides the rpc channel implementations: a direct
// in-process pair, a Redis pub/sub bus, and WebSocket endpoints for
// crossing process boundaries.
package bridge

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rubato-audio/seqrpc/src/rpc"
)

// listenerTable is the uuid-keyed listener registry shared by the channel
// implementations.
type listenerTable struct {
	mu        sync.RWMutex
	listeners map[rpc.ListenID]func(rpc.Msg)
}

func newListenerTable() *listenerTable {
	return &listenerTable{listeners: make(map[rpc.ListenID]func(rpc.Msg))}
}

func (t *listenerTable) add(fn func(rpc.Msg)) rpc.ListenID {
	id := rpc.ListenID(uuid.New().String())
	t.mu.Lock()
	t.listeners[id] = fn
	t.mu.Unlock()
	return id
}

func (t *listenerTable) remove(id rpc.ListenID) {
	t.mu.Lock()
	delete(t.listeners, id)
	t.mu.Unlock()
}

// deliver invokes every registered listener with msg. The table is
// snapshotted first so listeners may register or remove during delivery.
func (t *listenerTable) deliver(msg rpc.Msg) {
	t.mu.RLock()
	fns := make([]func(rpc.Msg), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.mu.RUnlock()
	for _, fn := range fns {
		fn(msg)
	}
}

func (t *listenerTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.listeners)
}
