package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backoffice/internal/catalog"
	"backoffice/internal/middleware"
	"backoffice/internal/models"
)

// ProductCatalog is the cached read side of the POS catalog.
type ProductCatalog interface {
	Products(ctx context.Context) ([]models.PosProduct, error)
	ProductByExternalID(ctx context.Context, externalProductID string) (models.PosProduct, error)
	ProductModifiers(ctx context.Context, externalProductID string) ([]models.ModifierGroup, error)
}

// CatalogRefresher drops cached catalog data.
type CatalogRefresher interface {
	Invalidate()
}

// RefreshCatalog empties the catalog cache after the menu changes on the
// ledger, so terminals load fresh products and modifiers on the next read.
func RefreshCatalog(cache CatalogRefresher, logger *zap.Logger) gin.HandlerFunc {
	logger = loggerOrNop(logger)
	return func(c *gin.Context) {
		const route = "POST /pos/catalog/refresh"
		defer handlePanic(c, logger, route)

		cache.Invalidate()
		logger.Info("catalog cache invalidated", zap.String("cashier", middleware.Cashier(c)))
		c.Status(http.StatusNoContent)
	}
}

// GetPosProducts lists active products, favourites first. The optional
// category and search query parameters filter the cached list.
func GetPosProducts(products ProductCatalog, logger *zap.Logger) gin.HandlerFunc {
	logger = loggerOrNop(logger)
	return func(c *gin.Context) {
		const route = "GET /pos/products"
		defer handlePanic(c, logger, route)

		list, err := products.Products(c.Request.Context())
		if err != nil {
			logger.Error("catalog load failed", zap.Error(err))
			respondWithError(c, logger, http.StatusServiceUnavailable, route, "catalog unavailable")
			return
		}

		category := strings.TrimSpace(c.Query("category"))
		search := strings.ToLower(strings.TrimSpace(c.Query("search")))
		if category != "" || search != "" {
			filtered := make([]models.PosProduct, 0, len(list))
			for _, p := range list {
				if category != "" && p.CategoryID != category {
					continue
				}
				if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
					continue
				}
				filtered = append(filtered, p)
			}
			list = filtered
		}

		c.JSON(http.StatusOK, gin.H{"data": list})
	}
}

// GetProductModifiers returns the modifier groups of one product. Products
// without modifiers answer with an empty list.
func GetProductModifiers(products ProductCatalog, logger *zap.Logger) gin.HandlerFunc {
	logger = loggerOrNop(logger)
	return func(c *gin.Context) {
		const route = "GET /pos/products/:externalId/modifiers"
		defer handlePanic(c, logger, route)

		externalID := strings.TrimSpace(c.Param("externalId"))
		groups, err := products.ProductModifiers(c.Request.Context(), externalID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondWithError(c, logger, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			logger.Error("modifier load failed", zap.String("external_id", externalID), zap.Error(err))
			respondWithError(c, logger, http.StatusServiceUnavailable, route, "catalog unavailable")
			return
		}

		c.JSON(http.StatusOK, gin.H{"externalProductId": externalID, "groups": groups})
	}
}
