// Package providers wires the engine host process together: the WebSocket
// hub proxies dial into, the controller that drives the hosted sequencer,
// the optional Redis bus, and the HTTP introspection surface.
package providers

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/rubato-audio/seqrpc/config"
	"github.com/rubato-audio/seqrpc/src/bridge"
	"github.com/rubato-audio/seqrpc/src/engine"
	"github.com/rubato-audio/seqrpc/src/rpc"
	"github.com/rubato-audio/seqrpc/src/sequencer"
)

// Host runs the engine side of the rpc bridge around a hosted sequencer.
type Host struct {
	cfg    *config.HostConfig
	seq    sequencer.Sequencer
	logger zerolog.Logger

	hub        *bridge.SocketHub
	controller *engine.Controller
	app        *fiber.App

	redisCh         *bridge.RedisChannel
	redisController *engine.Controller

	mu     sync.Mutex
	server *fasthttp.Server
	active bool
}

// NewHost wires a host around the given sequencer. Call Start to serve.
func NewHost(cfg *config.HostConfig, seq sequencer.Sequencer, logger zerolog.Logger) *Host {
	h := &Host{
		cfg:    cfg,
		seq:    seq,
		logger: logger.With().Str("component", "host").Logger(),
	}
	h.hub = bridge.NewSocketHub(logger)
	h.controller = engine.NewController(rpc.TargetSequencer, h.hub, seq, logger)
	h.app = fiber.New()
	h.registerRoutes(h.app)
	return h
}

// Start runs the hub, attaches the controller, joins the Redis bus when
// one is reachable, and serves HTTP and WebSocket upgrades on cfg.Addr.
// It blocks until the server stops.
func (h *Host) Start() error {
	go h.hub.Run()
	h.controller.Setup()

	// Attempt the Redis bus (non-fatal if unavailable).
	h.initRedis()

	server := &fasthttp.Server{
		Handler:         h.handler(),
		ReadBufferSize:  h.cfg.ReadBufferSize,
		WriteBufferSize: h.cfg.WriteBufferSize,
		WriteTimeout:    time.Duration(h.cfg.WriteTimeout) * time.Second,
	}
	h.mu.Lock()
	h.server = server
	h.active = true
	h.mu.Unlock()

	h.logger.Info().
		Str("addr", h.cfg.Addr).
		Str("rpc_path", h.cfg.RPCPath).
		Msg("engine host listening")
	return server.ListenAndServe(h.cfg.Addr)
}

// initRedis tries to join the Redis rpc bus with a second controller. If
// Redis is not reachable, the host serves sockets only.
func (h *Host) initRedis() {
	cfg := bridge.RedisConfigFromEnv()
	rc := bridge.NewRedisChannel(cfg, h.logger)

	if err := rc.Start(); err != nil {
		h.logger.Warn().Err(err).Msg("redis bus unavailable, serving sockets only")
		return
	}

	h.redisCh = rc
	h.redisController = engine.NewController(rpc.TargetSequencer, rc, h.seq, h.logger)
	h.redisController.Setup()
	h.logger.Info().Str("redis_addr", cfg.Addr).Msg("redis bus joined")
}

// handler routes the rpc path to the WebSocket upgrade and everything else
// to the fiber app.
func (h *Host) handler() fasthttp.RequestHandler {
	wsHandler := h.upgradeHandler()
	appHandler := h.app.Handler()
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == h.cfg.RPCPath {
			wsHandler(ctx)
			return
		}
		appHandler(ctx)
	}
}

// Stop shuts the server down and detaches the controllers and channels.
func (h *Host) Stop() error {
	h.mu.Lock()
	if !h.active {
		h.mu.Unlock()
		return nil
	}
	h.active = false
	server := h.server
	h.mu.Unlock()

	var err error
	if server != nil {
		err = server.Shutdown()
	}
	if h.redisController != nil {
		h.redisController.Close()
		h.redisController = nil
	}
	if h.redisCh != nil {
		if cerr := h.redisCh.Close(); cerr != nil {
			h.logger.Error().Err(cerr).Msg("redis channel close error")
		}
		h.redisCh = nil
	}
	h.controller.Close()
	h.hub.Stop()
	return err
}
