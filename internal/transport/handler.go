package transport

import (
	"strings"

	"pv-analysis-be/internal/pkg/logger"
	"pv-analysis-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Handler upgrades module handshakes onto the transport.
type Handler struct {
	transport *Transport
	origins   map[string]string
	logger    logger.ILogger
}

func NewHandler(t *Transport, origins map[string]string, log logger.ILogger) *Handler {
	return &Handler{
		transport: t,
		origins:   origins,
		logger:    log,
	}
}

// ServeWs handles a module's websocket handshake. The connection is accepted
// only when the module name is configured AND the request Origin matches the
// configured origin exactly. A missing table entry is treated as a
// configuration error, never as permission to fall back to a wildcard.
func (h *Handler) ServeWs(c *fiber.Ctx) error {
	moduleName := c.Params("module")

	expected, ok := h.origins[moduleName]
	if !ok {
		h.logger.Error("Transport", "Handshake for unconfigured module", map[string]interface{}{"module": moduleName})
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unknown module"})
	}

	origin := strings.TrimRight(c.Get("Origin"), "/")
	if origin != expected {
		h.logger.Warn("Transport", "Handshake origin mismatch", map[string]interface{}{
			"module": moduleName, "origin": origin, "expected": expected,
		})
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Origin not allowed"})
	}

	if _, err := serverutils.ParseTokenFromRequest(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			serveClient(h.transport, conn, moduleName, origin)
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// RegisterRoutes registers the module websocket endpoint.
func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/:module", h.ServeWs)
}

// serveClient attaches the upgraded connection and runs its pumps. The read
// pump runs on the handler goroutine so the connection's lifetime is tied to
// the fiber websocket handler.
func serveClient(t *Transport, conn *websocket.Conn, moduleName, origin string) {
	client := &Client{
		Transport: t,
		Conn:      conn,
		Module:    moduleName,
		Origin:    origin,
		Send:      make(chan []byte, 256),
	}
	t.register <- client

	go client.writePump()
	client.readPump()
}
