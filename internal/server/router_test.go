package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/catalog"
	"backoffice/internal/models"
	"backoffice/internal/screen"
)

type stubRepository struct{}

func (stubRepository) ListPosProducts(ctx context.Context) ([]models.PosProduct, error) {
	return []models.PosProduct{{ExternalProductID: "A", Name: "Americano", Price: 10000, IsActive: true}}, nil
}

func (stubRepository) FindProductModifiers(ctx context.Context, externalProductID string) (models.ProductModifiers, bool, error) {
	return models.ProductModifiers{}, false, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registry, err := screen.NewRegistry(screen.RegistryDeps{
		NewTerminal: func(code string) (*screen.Terminal, error) {
			return nil, nil
		},
	})
	require.NoError(t, err)
	return NewRouter(Deps{
		JWTSecret: "secret",
		Ping:      func(ctx context.Context) error { return nil },
		Catalog:   catalog.NewCache(catalog.Deps{Repository: stubRepository{}}),
		Sessions:  registry,
	})
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	r := newTestRouter(t)

	w := get(r, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestPosRoutesRequireCashierToken(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/pos/products", "").Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "cashier",
		"name": "Lucia",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	w := get(r, "/pos/products", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Americano")
}

func TestDisplayRoutesSkipCashierAuth(t *testing.T) {
	r := newTestRouter(t)

	w := get(r, "/pos/displays/K7Q-M2X/events", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"session not found"}`, w.Body.String())
}

type countingRepository struct {
	stubRepository
	loads int
}

func (r *countingRepository) ListPosProducts(ctx context.Context) ([]models.PosProduct, error) {
	r.loads++
	return r.stubRepository.ListPosProducts(ctx)
}

func signToken(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": role,
		"name": "Lucia",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestCatalogRefreshRequiresAdminAndReloads(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &countingRepository{}
	cache := catalog.NewCache(catalog.Deps{Repository: repo})
	r := NewRouter(Deps{
		JWTSecret:      "secret",
		Catalog:        cache,
		CatalogRefresh: cache,
	})
	cashier := signToken(t, "cashier")
	admin := signToken(t, "admin")

	require.Equal(t, http.StatusOK, get(r, "/pos/products", cashier).Code)
	require.Equal(t, http.StatusOK, get(r, "/pos/products", cashier).Code)
	assert.Equal(t, 1, repo.loads)

	refresh := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/pos/catalog/refresh", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusForbidden, refresh(cashier))
	assert.Equal(t, http.StatusNoContent, refresh(admin))

	require.Equal(t, http.StatusOK, get(r, "/pos/products", cashier).Code)
	assert.Equal(t, 2, repo.loads)
}
