package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backoffice/internal/fudo"
	"backoffice/internal/middleware"
	"backoffice/internal/models"
	"backoffice/internal/sales"
)

// SaleService charges a finalized ticket on the external POS.
type SaleService interface {
	Submit(ctx context.Context, req sales.SaleRequest) (sales.SaleResult, error)
}

type saleModifierRequest struct {
	ModifierID       string  `json:"modifierId"`
	GroupID          string  `json:"groupId"`
	ToppingProductID string  `json:"toppingProductId"`
	Name             string  `json:"name"`
	Price            float64 `json:"price" binding:"gte=0"`
	Quantity         int     `json:"quantity" binding:"gte=0"`
}

type saleItemRequest struct {
	ProductID         string                `json:"productId"`
	ExternalProductID string                `json:"externalProductId" binding:"required"`
	Name              string                `json:"name" binding:"required"`
	UnitPrice         float64               `json:"unitPrice" binding:"gte=0"`
	Quantity          int                   `json:"quantity" binding:"required,min=1"`
	Modifiers         []saleModifierRequest `json:"modifiers" binding:"dive"`
}

type createSaleRequest struct {
	Items         []saleItemRequest `json:"items" binding:"required,min=1,dive"`
	SaleType      string            `json:"saleType" binding:"omitempty,oneof=eat_in takeaway"`
	People        int               `json:"people" binding:"gte=0"`
	PaymentMethod string            `json:"paymentMethod" binding:"required"`
}

func buildOrderItems(req []saleItemRequest) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(req))
	for _, it := range req {
		mods := make([]models.OrderModifier, 0, len(it.Modifiers))
		for _, m := range it.Modifiers {
			qty := m.Quantity
			if qty == 0 {
				qty = 1
			}
			mods = append(mods, models.OrderModifier{
				ModifierID:       strings.TrimSpace(m.ModifierID),
				GroupID:          strings.TrimSpace(m.GroupID),
				ToppingProductID: strings.TrimSpace(m.ToppingProductID),
				Name:             m.Name,
				Price:            m.Price,
				Quantity:         qty,
			})
		}
		items = append(items, models.OrderItem{
			ProductID:         strings.TrimSpace(it.ProductID),
			ExternalProductID: strings.TrimSpace(it.ExternalProductID),
			Name:              strings.TrimSpace(it.Name),
			UnitPrice:         it.UnitPrice,
			Quantity:          it.Quantity,
			Modifiers:         mods,
		})
	}
	return items
}

// CreateSale submits a finalized ticket. Any total sent by the client is
// ignored; the amount charged is recomputed from the items.
func CreateSale(service SaleService, logger *zap.Logger) gin.HandlerFunc {
	logger = loggerOrNop(logger)
	return func(c *gin.Context) {
		const route = "POST /pos/sales"
		defer handlePanic(c, logger, route)

		var req createSaleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		saleType := models.SaleType(req.SaleType)
		if saleType == "" {
			saleType = models.SaleTypeTakeaway
		}
		items := buildOrderItems(req.Items)

		result, err := service.Submit(c.Request.Context(), sales.SaleRequest{
			Order: models.Order{
				Items:         items,
				SaleType:      saleType,
				People:        req.People,
				Status:        models.OrderStatusPaying,
				Total:         models.OrderTotal(items),
				PaymentMethod: req.PaymentMethod,
			},
			PaymentMethod: req.PaymentMethod,
			Cashier:       middleware.Cashier(c),
		})
		if err != nil {
			respondSubmissionError(c, logger, route, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success":         true,
			"externalSaleId":  result.ExternalSaleID,
			"traceId":         result.TraceID,
			"total":           result.Total,
			"skippedSubItems": result.SkippedSubItems,
		})
	}
}

// respondSubmissionError names the failed step so the cashier can decide
// whether to check the external POS before retrying.
func respondSubmissionError(c *gin.Context, logger *zap.Logger, route string, err error) {
	var validationErr *sales.ValidationError
	var stepErr *sales.StepError

	switch {
	case errors.As(err, &validationErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   validationErr.Error(),
			"field":   validationErr.Field,
		})
	case errors.Is(err, sales.ErrLocationNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "remote location not found",
		})
	case errors.As(err, &stepErr):
		status := http.StatusBadGateway
		if errors.Is(err, sales.ErrUnknownPaymentMethod) {
			status = http.StatusUnprocessableEntity
		}
		body := gin.H{
			"success": false,
			"error":   stepErr.Step + " failed",
			"step":    stepErr.Step,
			"detail":  stepDetail(stepErr.Err),
		}
		if stepErr.SaleID != "" {
			body["externalSaleId"] = stepErr.SaleID
		}
		logger.Warn("submission failed",
			zap.String("route", route),
			zap.String("step", stepErr.Step),
			zap.String("external_sale_id", stepErr.SaleID),
			zap.Error(stepErr.Err),
		)
		c.AbortWithStatusJSON(status, body)
	default:
		logger.Error("submission failed", zap.String("route", route), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "internal server error",
		})
	}
}

func isSubmissionError(err error) bool {
	var validationErr *sales.ValidationError
	var stepErr *sales.StepError
	return errors.As(err, &validationErr) || errors.As(err, &stepErr) || errors.Is(err, sales.ErrLocationNotFound)
}

func stepDetail(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *fudo.APIError
	if errors.As(err, &apiErr) && apiErr.Body != "" {
		return apiErr.Body
	}
	return err.Error()
}
