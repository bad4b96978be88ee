package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// PlayerIDKey is the gin context key holding the authenticated player id
const PlayerIDKey = "player_id"

// Auth validates an HS256 bearer JWT and sets player_id in the context.
// Browsers cannot set headers on a websocket upgrade, so a token query
// parameter is accepted as well.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		playerID, err := ParseToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(PlayerIDKey, playerID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.Query("token")
}

// ParseToken verifies token and returns its player_id claim.
func ParseToken(secret, token string) (int64, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return 0, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid claims")
	}
	id, ok := claims["player_id"].(float64)
	if !ok || id <= 0 {
		return 0, fmt.Errorf("missing player_id claim")
	}
	return int64(id), nil
}

// IssueToken signs a token for playerID. The service does not log players
// in; this exists for seeding and tests.
func IssueToken(secret string, playerID int64, ttl time.Duration) (string, error) {
	exp := time.Now().Add(ttl)
	claims := jwt.MapClaims{"player_id": playerID, "exp": jwt.NewNumericDate(exp).Unix()}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// PlayerID returns the authenticated player, 0 when the route is public.
func PlayerID(c *gin.Context) int64 {
	return c.GetInt64(PlayerIDKey)
}
