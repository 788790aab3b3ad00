package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// CashierAuth guards the cashier routes and stores the cashier identity
// (name claim, falling back to sub) under CashierKey.
func CashierAuth(secret string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	roles := []string{"cashier", "admin"}

	return func(c *gin.Context) {
		claims := authorize(c, secret, roles)
		if claims == nil {
			logger.Warn("cashier token rejected",
				zap.String("path", c.FullPath()),
				zap.Int("status", c.Writer.Status()),
			)
			return
		}

		cashier := cashierName(claims)
		if cashier == "" {
			logger.Warn("cashier claim missing", zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(CashierKey, cashier)
		c.Next()
	}
}

// Cashier returns the identity set by CashierAuth.
func Cashier(c *gin.Context) string {
	return c.GetString(CashierKey)
}

func cashierName(claims jwt.MapClaims) string {
	for _, key := range []string{"name", "sub"} {
		if v, ok := claims[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
