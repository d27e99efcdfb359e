package transport

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandshakeApp(t *testing.T) *fiber.App {
	t.Helper()
	tr := NewTransport(testOrigins, nopLogger{})
	h := NewHandler(tr, testOrigins, nopLogger{})

	app := fiber.New()
	api := app.Group("/api")
	h.RegisterRoutes(api)
	return app
}

func TestHandshakeUnknownModuleForbidden(t *testing.T) {
	app := newHandshakeApp(t)

	req := httptest.NewRequest("GET", "/api/ws/ghost", nil)
	req.Header.Set("Origin", "http://localhost:5173")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestHandshakeOriginMismatchForbidden(t *testing.T) {
	app := newHandshakeApp(t)

	req := httptest.NewRequest("GET", "/api/ws/upload", nil)
	req.Header.Set("Origin", "http://evil.example")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestHandshakeMissingTokenUnauthorized(t *testing.T) {
	app := newHandshakeApp(t)

	req := httptest.NewRequest("GET", "/api/ws/upload", nil)
	req.Header.Set("Origin", "http://localhost:5173")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
