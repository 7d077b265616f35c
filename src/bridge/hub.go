package bridge

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rubato-audio/seqrpc/src/rpc"
)

// hubConn is one upgraded proxy connection managed by the hub.
type hubConn struct {
	id   string
	conn rpc.Conn
	send chan rpc.Msg

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func (c *hubConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	c.conn.Close()
}

// hubFrame is an inbound message tagged with its origin connection.
type hubFrame struct {
	connID string
	msg    rpc.Msg
}

// SocketHub is the server-side rpc channel of an engine host. Every
// upgraded proxy connection fans in here; outbound messages fan out to
// every connection. A frame arriving from one connection is delivered to
// local listeners and relayed to the other connections, never back to its
// origin.
type SocketHub struct {
	listeners *listenerTable

	conns map[string]*hubConn

	register   chan *hubConn
	unregister chan *hubConn
	inbound    chan hubFrame
	outbound   chan rpc.Msg

	mu     sync.RWMutex
	logger zerolog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewSocketHub creates a hub with no connections. Call Run in a goroutine
// to start the event loop.
func NewSocketHub(logger zerolog.Logger) *SocketHub {
	return &SocketHub{
		listeners:  newListenerTable(),
		conns:      make(map[string]*hubConn),
		register:   make(chan *hubConn),
		unregister: make(chan *hubConn),
		inbound:    make(chan hubFrame, 256),
		outbound:   make(chan rpc.Msg, 256),
		logger:     logger.With().Str("component", "socket-hub").Logger(),
		done:       make(chan struct{}),
	}
}

// Run processes hub events until Stop is called.
func (h *SocketHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addConn(c)
		case c := <-h.unregister:
			h.removeConn(c)
		case f := <-h.inbound:
			h.listeners.deliver(f.msg)
			h.relay(f.connID, f.msg)
		case msg := <-h.outbound:
			h.relay("", msg)
		case <-h.done:
			return
		}
	}
}

// Stop halts the event loop and closes every connection.
func (h *SocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		for id, c := range h.conns {
			delete(h.conns, id)
			c.close()
		}
		h.mu.Unlock()
	})
}

// HandleConn registers an upgraded connection and pumps it until it drops.
// It blocks; call it from the connection's handler goroutine.
func (h *SocketHub) HandleConn(conn rpc.Conn) {
	c := &hubConn{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan rpc.Msg, socketQueueSize),
		done: make(chan struct{}),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go h.writePump(c)
	h.readPump(c)
}

func (h *SocketHub) readPump(c *hubConn) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
			c.close()
		}
	}()
	for {
		var msg rpc.Msg
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		select {
		case h.inbound <- hubFrame{connID: c.id, msg: msg}:
		case <-h.done:
			return
		}
	}
}

func (h *SocketHub) writePump(c *hubConn) {
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Error().Err(err).Str("conn_id", c.id).Msg("write failed")
				return
			}
		case <-c.done:
			return
		case <-h.done:
			return
		}
	}
}

func (h *SocketHub) addConn(c *hubConn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	h.logger.Info().Str("conn_id", c.id).Msg("endpoint connected")
}

func (h *SocketHub) removeConn(c *hubConn) {
	h.mu.Lock()
	if _, ok := h.conns[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c.id)
	h.mu.Unlock()
	c.close()
	h.logger.Info().Str("conn_id", c.id).Msg("endpoint disconnected")
}

// relay queues msg on every connection except the one named by fromID. An
// empty fromID relays to all. Connections with full buffers miss the
// message rather than stalling the hub.
func (h *SocketHub) relay(fromID string, msg rpc.Msg) {
	h.mu.RLock()
	targets := make([]*hubConn, 0, len(h.conns))
	for id, c := range h.conns {
		if id == fromID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn().Str("conn_id", c.id).Msg("send buffer full, dropping message")
		}
	}
}

// Send broadcasts msg to every connected endpoint. Encoding problems
// surface here, not on the write pumps.
func (h *SocketHub) Send(msg rpc.Msg) error {
	if _, err := json.Marshal(msg); err != nil {
		return err
	}
	select {
	case h.outbound <- msg:
		return nil
	case <-h.done:
		return rpc.ErrChannelClosed
	}
}

// Listen registers fn for every frame arriving from any connection.
func (h *SocketHub) Listen(fn func(rpc.Msg)) rpc.ListenID {
	return h.listeners.add(fn)
}

// Unlisten removes a listener.
func (h *SocketHub) Unlisten(id rpc.ListenID) {
	h.listeners.remove(id)
}

// IsSerialized reports true: frames travel as JSON over the sockets.
func (h *SocketHub) IsSerialized() bool { return true }

// ConnCount returns the number of connected endpoints.
func (h *SocketHub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// ListenerCount returns the number of registered local listeners.
func (h *SocketHub) ListenerCount() int {
	return h.listeners.count()
}
