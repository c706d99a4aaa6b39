// Package middleware provides authentication, logging, metrics and rate limiting for the HTTP API.
package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"blogme/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenIssuer   = "blogme-api"
	TokenAudience = "blogme-client"
	TokenTTL      = 7 * 24 * time.Hour
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// TokenClaims are the validated claims of an access token.
type TokenClaims struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// IssueToken signs an access token for the user.
func IssueToken(secret string, userID uint, username string, ttl time.Duration) (string, *TokenClaims, error) {
	if secret == "" {
		return "", nil, errors.New("JWT secret not configured")
	}

	now := time.Now()
	tc := &TokenClaims{
		UserID:    userID,
		Username:  username,
		JTI:       uuid.NewString(),
		ExpiresAt: now.Add(ttl),
	}
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      tc.ExpiresAt.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      tc.JTI,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, tc, nil
}

// ParseToken validates the signature, expiry, issuer and audience of a token.
func ParseToken(secret, tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
	)
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, errors.New("invalid token subject")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, errors.New("invalid user ID in token")
	}

	tc := &TokenClaims{UserID: uint(userID)}
	tc.Username, _ = claims["username"].(string)
	tc.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tc.ExpiresAt = exp.Time
	}
	return tc, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.Split(c.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired is a middleware that enforces a valid bearer token and stores the
// user ID in locals. It does not consult the revocation list; the server's
// AuthRequired wraps it with that check.
func AuthRequired(c *fiber.Ctx) error {
	tokenString, ok := BearerToken(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
			"code":  "UNAUTHENTICATED",
		})
	}

	claims, err := ParseToken(cfg.JWTSecret, tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "UNAUTHENTICATED",
		})
	}

	c.Locals("userID", claims.UserID)
	c.Locals("tokenClaims", claims)

	return c.Next()
}
