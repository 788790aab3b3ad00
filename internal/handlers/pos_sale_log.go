package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backoffice/internal/models"
)

// SaleLogReader pages through closed-sale audit records, newest first.
type SaleLogReader interface {
	ListSaleLogs(ctx context.Context, page, limit int64) ([]models.SaleLog, int64, error)
}

// GetSaleLogs lets staff match local records against the external POS when
// reconciling a sale that failed midway.
func GetSaleLogs(logs SaleLogReader, logger *zap.Logger) gin.HandlerFunc {
	logger = loggerOrNop(logger)
	return func(c *gin.Context) {
		const route = "GET /pos/sale-logs"
		defer handlePanic(c, logger, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		list, total, err := logs.ListSaleLogs(c.Request.Context(), page, limit)
		if err != nil {
			logger.Error("sale logs load failed", zap.Error(err))
			respondWithError(c, logger, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data":  list,
			"page":  page,
			"limit": limit,
			"total": total,
		})
	}
}
