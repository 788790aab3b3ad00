package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backoffice/internal/middleware"
	"backoffice/internal/models"
	"backoffice/internal/sales"
)

// RemoteOrderService routes delivery orders to partner locations.
type RemoteOrderService interface {
	Submit(ctx context.Context, req sales.RemoteOrderRequest) (sales.RemoteOrderResult, error)
}

// LocationLister lists the partner locations a cashier can route to.
type LocationLister interface {
	ListActive(ctx context.Context) ([]models.RemoteLocation, error)
}

type createRemoteOrderRequest struct {
	LocationID      string            `json:"locationId" binding:"required"`
	Items           []saleItemRequest `json:"items" binding:"required,min=1,dive"`
	CustomerName    string            `json:"customerName" binding:"required"`
	CustomerPhone   string            `json:"customerPhone"`
	DeliveryAddress string            `json:"deliveryAddress"`
	Comment         string            `json:"comment"`
}

func CreateRemoteOrder(service RemoteOrderService, logger *zap.Logger) gin.HandlerFunc {
	logger = loggerOrNop(logger)
	return func(c *gin.Context) {
		const route = "POST /pos/remote-orders"
		defer handlePanic(c, logger, route)

		var req createRemoteOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		result, err := service.Submit(c.Request.Context(), sales.RemoteOrderRequest{
			LocationID:      req.LocationID,
			Items:           buildOrderItems(req.Items),
			CustomerName:    req.CustomerName,
			CustomerPhone:   req.CustomerPhone,
			DeliveryAddress: req.DeliveryAddress,
			Comment:         req.Comment,
			Cashier:         middleware.Cashier(c),
		})
		if err != nil {
			respondSubmissionError(c, logger, route, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success":         true,
			"externalOrderId": result.ExternalOrderID,
			"traceId":         result.TraceID,
			"subtotal":        result.Subtotal,
			"deliveryFee":     result.DeliveryFee,
			"total":           result.Total,
		})
	}
}

func GetRemoteLocations(locations LocationLister, logger *zap.Logger) gin.HandlerFunc {
	logger = loggerOrNop(logger)
	return func(c *gin.Context) {
		const route = "GET /pos/remote-locations"
		defer handlePanic(c, logger, route)

		list, err := locations.ListActive(c.Request.Context())
		if err != nil {
			logger.Error("remote locations load failed", zap.Error(err))
			respondWithError(c, logger, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": list})
	}
}
