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
	"backoffice/internal/screen"
)

// TerminalSessions issues and resolves cashier sessions by pairing code.
type TerminalSessions interface {
	Create() (*screen.Terminal, error)
	Get(code string) (*screen.Terminal, error)
}

type addTerminalItemRequest struct {
	ExternalProductID string `json:"externalProductId" binding:"required"`
	Quantity          int    `json:"quantity" binding:"gte=0"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type saleTypeRequest struct {
	SaleType string `json:"saleType" binding:"required,oneof=eat_in takeaway"`
}

type peopleRequest struct {
	People int `json:"people" binding:"gte=0"`
}

type toggleRequest struct {
	OptionID string `json:"optionId" binding:"required"`
	Active   bool   `json:"active"`
}

type checkoutRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

// TerminalHandlers serves the cashier side of the dual-screen POS.
type TerminalHandlers struct {
	sessions TerminalSessions
	catalog  ProductCatalog
	logger   *zap.Logger
}

func NewTerminalHandlers(sessions TerminalSessions, products ProductCatalog, logger *zap.Logger) *TerminalHandlers {
	return &TerminalHandlers{sessions: sessions, catalog: products, logger: loggerOrNop(logger)}
}

func (h *TerminalHandlers) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /pos/terminals"
		defer handlePanic(c, h.logger, route)

		terminal, err := h.sessions.Create()
		if err != nil {
			h.logger.Error("terminal create failed", zap.Error(err))
			respondWithError(c, h.logger, http.StatusInternalServerError, route, "could not open terminal")
			return
		}
		state, err := terminal.State(c.Request.Context())
		if err != nil {
			h.respondTerminalError(c, route, err)
			return
		}
		h.logger.Info("terminal opened", zap.String("code", terminal.Code()), zap.String("cashier", middleware.Cashier(c)))
		c.JSON(http.StatusCreated, state)
	}
}

func (h *TerminalHandlers) State() gin.HandlerFunc {
	return h.withTerminal("GET /pos/terminals/:code", func(c *gin.Context, t *screen.Terminal) (any, error) {
		return t.State(c.Request.Context())
	})
}

func (h *TerminalHandlers) AddItem() gin.HandlerFunc {
	const route = "POST /pos/terminals/:code/items"
	return h.withTerminal(route, func(c *gin.Context, t *screen.Terminal) (any, error) {
		var req addTerminalItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindError{err}
		}

		product, err := h.catalog.ProductByExternalID(c.Request.Context(), strings.TrimSpace(req.ExternalProductID))
		if err != nil {
			return nil, err
		}

		itemID, state, err := t.AddProduct(c.Request.Context(), screen.AddProductCommand{
			ProductID:         product.ID.Hex(),
			ExternalProductID: product.ExternalProductID,
			Name:              product.Name,
			UnitPrice:         product.Price,
			Quantity:          req.Quantity,
			HasModifiers:      product.HasModifiers,
		})
		if err != nil {
			return nil, err
		}
		c.Status(http.StatusCreated)
		return gin.H{"itemId": itemID, "state": state}, nil
	})
}

func (h *TerminalHandlers) RemoveItem() gin.HandlerFunc {
	return h.withTerminal("DELETE /pos/terminals/:code/items/:itemId", func(c *gin.Context, t *screen.Terminal) (any, error) {
		return t.RemoveItem(c.Request.Context(), c.Param("itemId"))
	})
}

func (h *TerminalHandlers) UpdateQuantity() gin.HandlerFunc {
	return h.withTerminal("PATCH /pos/terminals/:code/items/:itemId", func(c *gin.Context, t *screen.Terminal) (any, error) {
		var req updateQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindError{err}
		}
		return t.UpdateQuantity(c.Request.Context(), c.Param("itemId"), req.Quantity)
	})
}

func (h *TerminalHandlers) SetSaleType() gin.HandlerFunc {
	return h.withTerminal("PUT /pos/terminals/:code/sale-type", func(c *gin.Context, t *screen.Terminal) (any, error) {
		var req saleTypeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindError{err}
		}
		return t.SetSaleType(c.Request.Context(), models.SaleType(req.SaleType))
	})
}

func (h *TerminalHandlers) SetPeople() gin.HandlerFunc {
	return h.withTerminal("PUT /pos/terminals/:code/people", func(c *gin.Context, t *screen.Terminal) (any, error) {
		var req peopleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindError{err}
		}
		return t.SetPeople(c.Request.Context(), req.People)
	})
}

// ToggleTopping answers 200 even when the group is full; accepted tells the
// cashier screen whether the selection changed.
func (h *TerminalHandlers) ToggleTopping() gin.HandlerFunc {
	return h.withTerminal("POST /pos/terminals/:code/toppings/toggle", func(c *gin.Context, t *screen.Terminal) (any, error) {
		var req toggleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindError{err}
		}
		accepted, state, err := t.ToggleTopping(c.Request.Context(), req.OptionID, req.Active)
		if err != nil {
			return nil, err
		}
		return gin.H{"accepted": accepted, "state": state}, nil
	})
}

func (h *TerminalHandlers) ConfirmToppings() gin.HandlerFunc {
	return h.withTerminal("POST /pos/terminals/:code/toppings/confirm", func(c *gin.Context, t *screen.Terminal) (any, error) {
		return t.ConfirmToppings(c.Request.Context())
	})
}

func (h *TerminalHandlers) CancelToppings() gin.HandlerFunc {
	return h.withTerminal("POST /pos/terminals/:code/toppings/cancel", func(c *gin.Context, t *screen.Terminal) (any, error) {
		return t.CancelToppings(c.Request.Context())
	})
}

func (h *TerminalHandlers) Clear() gin.HandlerFunc {
	return h.withTerminal("POST /pos/terminals/:code/clear", func(c *gin.Context, t *screen.Terminal) (any, error) {
		return t.Clear(c.Request.Context())
	})
}

// Checkout charges the ticket. On a failed step the ticket keeps its items
// and the body names the step, as POST /pos/sales does.
func (h *TerminalHandlers) Checkout() gin.HandlerFunc {
	return h.withTerminal("POST /pos/terminals/:code/checkout", func(c *gin.Context, t *screen.Terminal) (any, error) {
		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindError{err}
		}
		result, state, err := t.Checkout(c.Request.Context(), screen.CheckoutCommand{
			PaymentMethod: req.PaymentMethod,
			Cashier:       middleware.Cashier(c),
		})
		if err != nil {
			return nil, err
		}
		return gin.H{
			"success":         true,
			"externalSaleId":  result.ExternalSaleID,
			"traceId":         result.TraceID,
			"total":           result.Total,
			"skippedSubItems": result.SkippedSubItems,
			"state":           state,
		}, nil
	})
}

type bindError struct{ err error }

func (e bindError) Error() string { return e.err.Error() }
func (e bindError) Unwrap() error { return e.err }

type terminalAction func(c *gin.Context, t *screen.Terminal) (any, error)

func (h *TerminalHandlers) withTerminal(route string, action terminalAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, h.logger, route)

		terminal, err := h.sessions.Get(c.Param("code"))
		if err != nil {
			h.respondTerminalError(c, route, err)
			return
		}

		body, err := action(c, terminal)
		if err != nil {
			h.respondTerminalError(c, route, err)
			return
		}

		c.JSON(c.Writer.Status(), body)
	}
}

func (h *TerminalHandlers) respondTerminalError(c *gin.Context, route string, err error) {
	var be bindError
	if errors.As(err, &be) {
		respondValidationError(c, be.err)
		return
	}

	switch {
	case isSubmissionError(err):
		respondSubmissionError(c, h.logger, route, err)
	case errors.Is(err, screen.ErrSessionNotFound):
		respondWithError(c, h.logger, http.StatusNotFound, route, "terminal not found")
	case errors.Is(err, screen.ErrTerminalClosed):
		respondWithError(c, h.logger, http.StatusGone, route, "terminal closed")
	case errors.Is(err, screen.ErrItemNotFound):
		respondWithError(c, h.logger, http.StatusNotFound, route, "item not found")
	case errors.Is(err, catalog.ErrProductNotFound):
		respondWithError(c, h.logger, http.StatusNotFound, route, "product not found")
	case errors.Is(err, screen.ErrOrderLocked),
		errors.Is(err, screen.ErrSelectionOpen),
		errors.Is(err, screen.ErrNoSelection):
		respondWithError(c, h.logger, http.StatusConflict, route, err.Error())
	case errors.Is(err, screen.ErrEmptyOrder):
		respondWithError(c, h.logger, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondWithError(c, h.logger, http.StatusGatewayTimeout, route, "request cancelled")
	default:
		h.logger.Error("terminal request failed", zap.String("route", route), zap.Error(err))
		respondWithError(c, h.logger, http.StatusBadGateway, route, "upstream failure")
	}
}
