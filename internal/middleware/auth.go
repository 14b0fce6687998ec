// Package middleware provides logging, authentication, rate limiting, metrics and tracing middleware.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"appx/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TokenIssuer   = "appx-api"
	TokenAudience = "appx-client"

	defaultTokenTTL = time.Hour
	blacklistPrefix = "blacklist:"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Claims is the subset of the access token the application relies on.
type Claims struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

// Authenticator issues, validates and revokes HS256 access tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	rdb    *redis.Client
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator. rdb may be nil, in which case revocation is disabled.
func NewAuthenticator(secret string, ttl time.Duration, rdb *redis.Client) *Authenticator {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl, rdb: rdb, now: time.Now}
}

// IssueToken signs a new access token for userID.
func (a *Authenticator) IssueToken(userID uint) (string, *Claims, error) {
	if len(a.secret) == 0 {
		return "", nil, fmt.Errorf("JWT secret not configured")
	}

	now := a.now()
	claims := &Claims{
		UserID:    userID,
		JTI:       uuid.NewString(),
		ExpiresAt: now.Add(a.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": TokenIssuer,
		"aud": TokenAudience,
		"exp": claims.ExpiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": claims.JTI,
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseToken validates tokenString and returns its claims.
func (a *Authenticator) ParseToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, err := mapClaims.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}
	exp, err := mapClaims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}
	jti, _ := mapClaims["jti"].(string)

	if jti != "" && a.rdb != nil {
		revoked, err := a.rdb.Exists(ctx, blacklistPrefix+jti).Result()
		if err == nil && revoked > 0 {
			return nil, ErrTokenRevoked
		}
	}

	return &Claims{UserID: uint(userID), JTI: jti, ExpiresAt: exp.Time}, nil
}

// Revoke blacklists the token's jti until it would have expired anyway.
func (a *Authenticator) Revoke(ctx context.Context, claims *Claims) error {
	if a.rdb == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(a.now())
	if ttl <= 0 {
		return nil
	}
	return a.rdb.Set(ctx, blacklistPrefix+claims.JTI, "1", ttl).Err()
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *fiber.Ctx) string {
	scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (a *Authenticator) authenticate(c *fiber.Ctx) (*Claims, error) {
	tokenString := BearerToken(c)
	// Browsers cannot set headers on websocket upgrades.
	if tokenString == "" && strings.HasPrefix(c.Path(), "/api/ws") {
		tokenString = c.Query("token")
	}
	if tokenString == "" {
		return nil, nil
	}
	return a.ParseToken(c.UserContext(), tokenString)
}

func setIdentity(c *fiber.Ctx, claims *Claims) {
	c.Locals("userID", claims.UserID)
	c.Locals("claims", claims)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID))
}

// Required rejects requests without a valid access token.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := a.authenticate(c)
		switch {
		case errors.Is(err, ErrTokenRevoked):
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		case err != nil:
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		case claims == nil:
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		setIdentity(c, claims)
		return c.Next()
	}
}

// Optional identifies the caller when a valid token is present and never rejects.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claims, err := a.authenticate(c); err == nil && claims != nil {
			setIdentity(c, claims)
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id stored by Required or Optional.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok && id != 0
}

// ClaimsFrom returns the claims of the authenticated request, if any.
func ClaimsFrom(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals("claims").(*Claims)
	return claims
}
