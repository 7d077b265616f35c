package bridge

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog"

	"github.com/rubato-audio/seqrpc/src/rpc"
)

const socketQueueSize = 256

// SocketChannel is a serialized rpc channel over a single WebSocket
// connection, typically dialed by a proxy process toward an engine host.
// Frames are rpc messages encoded as JSON.
type SocketChannel struct {
	conn      rpc.Conn
	listeners *listenerTable
	sendQ     chan rpc.Msg
	logger    zerolog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// DialSocket connects to an engine host, e.g. ws://localhost:8712/rpc, and
// starts the connection pumps.
func DialSocket(url string, logger zerolog.Logger) (*SocketChannel, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewSocketChannel(WrapWebsocket(conn), logger), nil
}

// NewSocketChannel wraps an established connection and starts its pumps.
func NewSocketChannel(conn rpc.Conn, logger zerolog.Logger) *SocketChannel {
	c := &SocketChannel{
		conn:      conn,
		listeners: newListenerTable(),
		sendQ:     make(chan rpc.Msg, socketQueueSize),
		logger:    logger.With().Str("component", "socket-channel").Logger(),
		done:      make(chan struct{}),
	}
	go c.readPump()
	go c.writePump()
	return c
}

// readPump delivers inbound frames to listeners until the connection
// drops. A single goroutine reads, so inbound dispatch is serialized.
func (c *SocketChannel) readPump() {
	defer c.Close()
	for {
		var msg rpc.Msg
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
				// Normal shutdown.
			default:
				c.logger.Error().Err(err).Msg("read failed")
			}
			return
		}
		c.listeners.deliver(msg)
	}
}

func (c *SocketChannel) writePump() {
	for {
		select {
		case msg := <-c.sendQ:
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error().Err(err).Msg("write failed")
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send queues msg for the connection. Encoding problems surface here, not
// on the write pump; a full queue drops the message rather than blocking.
func (c *SocketChannel) Send(msg rpc.Msg) error {
	select {
	case <-c.done:
		return rpc.ErrChannelClosed
	default:
	}
	if _, err := json.Marshal(msg); err != nil {
		return err
	}
	select {
	case c.sendQ <- msg:
		return nil
	default:
		c.logger.Warn().Str("method", string(msg.Method)).Msg("send queue full, dropping message")
		return nil
	}
}

// Listen registers fn for every inbound frame.
func (c *SocketChannel) Listen(fn func(rpc.Msg)) rpc.ListenID {
	return c.listeners.add(fn)
}

// Unlisten removes a listener.
func (c *SocketChannel) Unlisten(id rpc.ListenID) {
	c.listeners.remove(id)
}

// IsSerialized reports true: frames travel as JSON over the socket.
func (c *SocketChannel) IsSerialized() bool { return true }

// Close tears the connection down and stops both pumps. Safe to call more
// than once.
func (c *SocketChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	c.conn.Close()
}

// wsConn adapts a fasthttp websocket connection to rpc.Conn.
type wsConn struct {
	conn *websocket.Conn
}

// WrapWebsocket adapts conn for use with NewSocketChannel or
// SocketHub.HandleConn.
func WrapWebsocket(conn *websocket.Conn) rpc.Conn {
	return &wsConn{conn: conn}
}

func (w *wsConn) WriteJSON(v any) error { return w.conn.WriteJSON(v) }
func (w *wsConn) ReadJSON(v any) error  { return w.conn.ReadJSON(v) }
func (w *wsConn) Close() error          { return w.conn.Close() }
