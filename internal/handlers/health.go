package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable.
type Pinger func(ctx context.Context) error

// MongoPinger pings the primary of db's deployment.
func MongoPinger(db *mongo.Database) Pinger {
	return func(ctx context.Context) error {
		return ensureDBConnection(ctx, db)
	}
}

func Health(ping Pinger, logger *zap.Logger) gin.HandlerFunc {
	logger = loggerOrNop(logger)
	return func(c *gin.Context) {
		const route = "GET /health"
		defer handlePanic(c, logger, route)

		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				logger.Warn("database ping failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
