package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimsKey  = "claims"
	CashierKey = "cashier"
)

// AuthGuard accepts HS256 bearer tokens signed with secret. When roles are
// given, the token's role claim must match one of them.
func AuthGuard(secret string, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authorize(c, secret, allowedRoles) == nil {
			return
		}
		c.Next()
	}
}

// authorize aborts the request and returns nil when the token is rejected.
func authorize(c *gin.Context, secret string, allowedRoles []string) jwt.MapClaims {
	claims, status, message := parseBearer(c.GetHeader("Authorization"), secret)
	if claims == nil {
		c.AbortWithStatusJSON(status, gin.H{"error": message})
		return nil
	}

	role, _ := claims["role"].(string)
	if len(allowedRoles) > 0 {
		match := false
		for _, r := range allowedRoles {
			if role == r {
				match = true
				break
			}
		}
		if !match {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return nil
		}
	}

	c.Set(ClaimsKey, claims)
	return claims
}

func parseBearer(header, secret string) (jwt.MapClaims, int, string) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		return nil, http.StatusUnauthorized, "missing token"
	}

	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, http.StatusUnauthorized, "invalid token"
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, http.StatusUnauthorized, "unauthorized"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, http.StatusUnauthorized, "unauthorized"
	}
	return claims, 0, ""
}
