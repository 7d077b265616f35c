package bridge

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rubato-audio/seqrpc/src/rpc"
)

// redisEnvelope wraps a message with the originating endpoint ID so that
// an endpoint can skip its own published messages.
type redisEnvelope struct {
	EndpointID string  `json:"endpoint_id"`
	Msg        rpc.Msg `json:"msg"`
}

// RedisChannel is a serialized rpc channel over Redis pub/sub. Every
// endpoint subscribed to the same bus sees every other endpoint's
// messages; an endpoint never sees its own.
type RedisChannel struct {
	client     *redis.Client
	bus        string
	endpointID string
	listeners  *listenerTable
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	active bool
}

// NewRedisChannel creates an endpoint on the Redis bus named by cfg.
// Call Start to connect.
func NewRedisChannel(cfg *RedisConfig, logger zerolog.Logger) *RedisChannel {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisChannel{
		client:     client,
		bus:        cfg.Prefix + "bus",
		endpointID: uuid.New().String(),
		listeners:  newListenerTable(),
		logger:     logger.With().Str("component", "redis-channel").Logger(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start subscribes to the bus and begins delivering inbound messages.
func (c *RedisChannel) Start() error {
	if err := c.client.Ping(c.ctx).Err(); err != nil {
		return err
	}

	sub := c.client.Subscribe(c.ctx, c.bus)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(c.ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.active = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.listen(sub)

	c.logger.Info().
		Str("endpoint_id", c.endpointID).
		Str("bus", c.bus).
		Msg("redis channel started")
	return nil
}

// Send publishes msg to every other endpoint on the bus.
func (c *RedisChannel) Send(msg rpc.Msg) error {
	env := redisEnvelope{
		EndpointID: c.endpointID,
		Msg:        msg,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.client.Publish(c.ctx, c.bus, data).Err()
}

// Listen registers fn for every inbound bus message.
func (c *RedisChannel) Listen(fn func(rpc.Msg)) rpc.ListenID {
	return c.listeners.add(fn)
}

// Unlisten removes a listener.
func (c *RedisChannel) Unlisten(id rpc.ListenID) {
	c.listeners.remove(id)
}

// IsSerialized reports true: messages travel as JSON over Redis.
func (c *RedisChannel) IsSerialized() bool { return true }

// Close unsubscribes and closes the Redis connection.
func (c *RedisChannel) Close() error {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return c.client.Close()
}

// Available reports whether the endpoint is subscribed and running.
func (c *RedisChannel) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// listen reads messages from the Redis subscription and delivers them to
// local listeners. A single goroutine reads, so inbound dispatch is
// serialized per endpoint.
func (c *RedisChannel) listen(sub *redis.PubSub) {
	defer c.wg.Done()
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.handleBusMessage(msg)
		case <-c.ctx.Done():
			return
		}
	}
}

// handleBusMessage decodes an envelope and delivers non-self messages.
func (c *RedisChannel) handleBusMessage(msg *redis.Message) {
	var env redisEnvelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		c.logger.Error().Err(err).Msg("failed to decode bus message")
		return
	}

	// Skip messages that originated from this endpoint.
	if env.EndpointID == c.endpointID {
		return
	}

	c.logger.Debug().
		Str("from_endpoint", env.EndpointID).
		Str("method", string(env.Msg.Method)).
		Msg("inbound bus message")

	c.listeners.deliver(env.Msg)
}
