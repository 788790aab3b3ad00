package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "pos-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func cashierRouter(logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(logger))
	r.GET("/pos/ping", CashierAuth(testSecret, logger), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"cashier": Cashier(c)})
	})
	return r
}

func call(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/pos/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCashierAuthSetsIdentity(t *testing.T) {
	r := cashierRouter(nil)
	token := signToken(t, jwt.MapClaims{"role": "cashier", "name": "Lucia", "sub": "u-1"})

	w := call(r, "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cashier":"Lucia"}`, w.Body.String())
}

func TestCashierAuthFallsBackToSubject(t *testing.T) {
	r := cashierRouter(nil)
	token := signToken(t, jwt.MapClaims{"role": "admin", "sub": "u-7"})

	w := call(r, "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cashier":"u-7"}`, w.Body.String())
}

func TestCashierAuthRejects(t *testing.T) {
	r := cashierRouter(nil)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, `{"error":"missing token"}`},
		{"scheme", "Token abc", http.StatusUnauthorized, `{"error":"invalid token"}`},
		{"garbage", "Bearer abc", http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"role", "Bearer " + signToken(t, jwt.MapClaims{"role": "customer", "name": "x"}), http.StatusForbidden, `{"error":"forbidden"}`},
		{"identity", "Bearer " + signToken(t, jwt.MapClaims{"role": "cashier"}), http.StatusUnauthorized, `{"error":"unauthorized"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := call(r, tc.header)
			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestAuthGuardRejectsOtherSigningMethods(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", AuthGuard(testSecret), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"role": "cashier"})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := cashierRouter(zap.New(core))

	call(r, "Bearer "+signToken(t, jwt.MapClaims{"role": "cashier", "name": "Lucia"}))
	call(r, "")

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "/pos/ping", entries[0].ContextMap()["route"])
	assert.Equal(t, "Lucia", entries[0].ContextMap()["cashier"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusUnauthorized), entries[1].ContextMap()["status"])
	assert.Len(t, logs.FilterMessage("cashier token rejected").All(), 1)
}
