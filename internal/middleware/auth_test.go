package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func newTestAuthApp(a *Authenticator) *fiber.App {
	app := fiber.New()
	app.Get("/private", a.Required(), func(c *fiber.Ctx) error {
		uid, _ := UserID(c)
		return c.JSON(fiber.Map{"userID": uid})
	})
	app.Get("/public", a.Optional(), func(c *fiber.Ctx) error {
		uid, ok := UserID(c)
		return c.JSON(fiber.Map{"userID": uid, "authenticated": ok})
	})
	app.Get("/api/ws/notifications", a.Required(), func(c *fiber.Ctx) error {
		uid, _ := UserID(c)
		return c.JSON(fiber.Map{"userID": uid})
	})
	return app
}

func signRaw(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuthenticator_Required(t *testing.T) {
	a := NewAuthenticator(testSecret, time.Hour, nil)
	app := newTestAuthApp(a)

	valid, _, err := a.IssueToken(123)
	require.NoError(t, err)

	expired := signRaw(t, jwt.MapClaims{
		"sub": "123", "iss": TokenIssuer, "aud": TokenAudience,
		"exp": time.Now().Add(-time.Hour).Unix(),
	}, jwt.SigningMethodHS256, []byte(testSecret))

	wrongAudience := signRaw(t, jwt.MapClaims{
		"sub": "123", "iss": TokenIssuer, "aud": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256, []byte(testSecret))

	wrongSecret := signRaw(t, jwt.MapClaims{
		"sub": "123", "iss": TokenIssuer, "aud": TokenAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256, []byte("another-secret"))

	noneAlg := signRaw(t, jwt.MapClaims{
		"sub": "123", "iss": TokenIssuer, "aud": TokenAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID uint
	}{
		{"Happy Path", "Bearer " + valid, http.StatusOK, 123},
		{"Lowercase scheme", "bearer " + valid, http.StatusOK, 123},
		{"Missing Header", "", http.StatusUnauthorized, 0},
		{"Invalid Format", "Token " + valid, http.StatusUnauthorized, 0},
		{"Expired Token", "Bearer " + expired, http.StatusUnauthorized, 0},
		{"Wrong Audience", "Bearer " + wrongAudience, http.StatusUnauthorized, 0},
		{"Wrong Secret", "Bearer " + wrongSecret, http.StatusUnauthorized, 0},
		{"None Algorithm", "Bearer " + noneAlg, http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusOK {
				var body map[string]uint
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedUserID, body["userID"])
			}
		})
	}
}

func TestAuthenticator_Optional(t *testing.T) {
	a := NewAuthenticator(testSecret, time.Hour, nil)
	app := newTestAuthApp(a)
	token, _, err := a.IssueToken(7)
	require.NoError(t, err)

	for _, header := range []string{"", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/public", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, false, body["authenticated"])
	}

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, float64(7), body["userID"])
}

func TestAuthenticator_QueryTokenOnlyOnWebsocketPaths(t *testing.T) {
	a := NewAuthenticator(testSecret, time.Hour, nil)
	app := newTestAuthApp(a)
	token, _, err := a.IssueToken(9)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws/notifications?token="+token, nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/private?token="+token, nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticator_Revoke(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	a := NewAuthenticator(testSecret, time.Hour, rdb)
	token, claims, err := a.IssueToken(42)
	require.NoError(t, err)

	ctx := context.Background()
	parsed, err := a.ParseToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), parsed.UserID)
	assert.Equal(t, claims.JTI, parsed.JTI)

	require.NoError(t, a.Revoke(ctx, parsed))
	assert.True(t, mr.Exists(blacklistPrefix+claims.JTI))
	ttl := mr.TTL(blacklistPrefix + claims.JTI)
	assert.True(t, ttl > 0 && ttl <= time.Hour, "ttl=%s", ttl)

	_, err = a.ParseToken(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	app := newTestAuthApp(a)
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticator_RejectsNonNumericSubject(t *testing.T) {
	a := NewAuthenticator(testSecret, time.Hour, nil)
	token := signRaw(t, jwt.MapClaims{
		"sub": "abc", "iss": TokenIssuer, "aud": TokenAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256, []byte(testSecret))

	_, err := a.ParseToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	zero := signRaw(t, jwt.MapClaims{
		"sub": strconv.Itoa(0), "iss": TokenIssuer, "aud": TokenAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256, []byte(testSecret))
	_, err = a.ParseToken(context.Background(), zero)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
