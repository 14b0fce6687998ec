package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"appx/internal/config"
	"appx/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webOrigin = "http://localhost:5173"

func corsApp(env string) *fiber.App {
	srv := &Server{config: &config.Config{Env: env, AllowedOrigins: webOrigin}}
	app := fiber.New()
	srv.SetupMiddleware(app)
	app.All("/api/feed", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func fromOrigin(t *testing.T, app *fiber.App, method, origin string, header ...string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, "/api/feed", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func exhaustLimiter(t *testing.T, app *fiber.App) {
	t.Helper()
	for i := 0; i < 100; i++ {
		resp := fromOrigin(t, app, http.MethodGet, webOrigin)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i)
	}
}

func TestSetupMiddleware_RateLimitedResponseKeepsCORS(t *testing.T) {
	app := corsApp("development")
	exhaustLimiter(t, app)

	resp := fromOrigin(t, app, http.MethodGet, webOrigin)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, webOrigin, resp.Header.Get("Access-Control-Allow-Origin"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var e models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.NotEmpty(t, e.Error)
}

func TestSetupMiddleware_PreflightSkipsLimiter(t *testing.T) {
	app := corsApp("development")
	exhaustLimiter(t, app)

	resp := fromOrigin(t, app, http.MethodOptions, webOrigin,
		"Access-Control-Request-Method", http.MethodPost,
		"Access-Control-Request-Headers", "authorization,content-type")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, webOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestSetupMiddleware_TestEnvHasNoGlobalLimit(t *testing.T) {
	app := corsApp("test")
	exhaustLimiter(t, app)

	resp := fromOrigin(t, app, http.MethodGet, webOrigin)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSetupMiddleware_CORSOrigins(t *testing.T) {
	app := corsApp("test")

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{"allowed origin is echoed", webOrigin, webOrigin},
		{"unknown origin gets no grant", "http://evil.example", ""},
		{"same-origin request", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := fromOrigin(t, app, http.MethodGet, tt.origin)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.want, resp.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestSetupMiddleware_PreflightAllowsWebsocketHeaders(t *testing.T) {
	app := corsApp("test")

	resp := fromOrigin(t, app, http.MethodOptions, webOrigin,
		"Access-Control-Request-Method", http.MethodGet,
		"Access-Control-Request-Headers", "upgrade,sec-websocket-key")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	allowed := resp.Header.Get("Access-Control-Allow-Headers")
	assert.Contains(t, allowed, "Upgrade")
	assert.Contains(t, allowed, "Sec-WebSocket-Key")
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}
