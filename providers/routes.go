package providers

import (
	"strings"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"

	"github.com/rubato-audio/seqrpc/src/bridge"
)

// registerRoutes registers the introspection routes via Fiber. The actual
// WebSocket upgrade is registered at the server level since Fiber v3 does
// not expose *fasthttp.RequestCtx.
func (h *Host) registerRoutes(app *fiber.App) {
	app.Get("/rpc/info", h.handleInfo)
	app.Get("/rpc/state", h.handleState)
}

func (h *Host) handleInfo(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"rpc":        true,
		"endpoint":   h.cfg.RPCPath,
		"serialized": h.hub.IsSerialized(),
		"endpoints":  h.hub.ConnCount(),
		"listeners":  h.hub.ListenerCount(),
	})
}

func (h *Host) handleState(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   h.seq.Status().String(),
		"position": h.seq.PlaybackPosition(),
	})
}

// upgradeHandler returns a raw fasthttp handler for WebSocket upgrades on
// the rpc path.
func (h *Host) upgradeHandler() fasthttp.RequestHandler {
	upgrader := websocket.FastHTTPUpgrader{
		ReadBufferSize:  h.cfg.ReadBufferSize,
		WriteBufferSize: h.cfg.WriteBufferSize,
	}
	return func(ctx *fasthttp.RequestCtx) {
		upgrade := string(ctx.Request.Header.Peek("Upgrade"))
		if !strings.EqualFold(upgrade, "websocket") {
			ctx.SetStatusCode(fasthttp.StatusUpgradeRequired)
			ctx.SetBodyString(`{"error":"upgrade_required","message":"WebSocket upgrade required"}`)
			return
		}

		err := upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
			h.hub.HandleConn(bridge.WrapWebsocket(conn))
		})
		if err != nil {
			h.logger.Error().Err(err).Msg("websocket upgrade failed")
		}
	}
}
