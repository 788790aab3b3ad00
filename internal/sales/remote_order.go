package sales

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"backoffice/internal/fudo"
	"backoffice/internal/models"
)

// DeliveryGateway creates delivery orders on behalf of a location.
type DeliveryGateway interface {
	CreateDeliveryOrder(ctx context.Context, creds fudo.Credentials, order fudo.DeliveryOrder) (string, error)
}

// LocationRepository reads remote locations. FindRemoteLocation returns
// ErrLocationNotFound for unknown ids.
type LocationRepository interface {
	FindRemoteLocation(ctx context.Context, id string) (models.RemoteLocation, error)
}

// RemoteOrderLogRepository persists audit records of delivery orders.
type RemoteOrderLogRepository interface {
	InsertRemoteOrderLog(ctx context.Context, log models.RemoteOrderLog) error
}

// RemoteOrderRequest is a delivery order routed to a partner location.
type RemoteOrderRequest struct {
	LocationID      string
	Items           []models.OrderItem
	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	Comment         string
	Cashier         string
}

// RemoteOrderResult identifies an accepted delivery order.
type RemoteOrderResult struct {
	ExternalOrderID string
	TraceID         string
	Subtotal        float64
	DeliveryFee     float64
	Total           float64
}

// RemoteOrdersDeps wires RemoteOrders.
type RemoteOrdersDeps struct {
	Gateway      DeliveryGateway
	Locations    LocationRepository
	Logs         RemoteOrderLogRepository
	Logger       *zap.Logger
	Clock        func() time.Time
	NewTraceID   func() string
	AuditTimeout time.Duration
}

// RemoteOrders submits delivery orders in a single call per order.
type RemoteOrders struct {
	gateway      DeliveryGateway
	locations    LocationRepository
	logs         RemoteOrderLogRepository
	logger       *zap.Logger
	now          func() time.Time
	newTraceID   func() string
	auditTimeout time.Duration
}

func NewRemoteOrders(deps RemoteOrdersDeps) (*RemoteOrders, error) {
	if deps.Gateway == nil {
		return nil, errors.New("remote orders: delivery gateway is required")
	}
	if deps.Locations == nil {
		return nil, errors.New("remote orders: location repository is required")
	}
	if deps.Logs == nil {
		return nil, errors.New("remote orders: log repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	newTraceID := deps.NewTraceID
	if newTraceID == nil {
		newTraceID = uuid.NewString
	}
	auditTimeout := deps.AuditTimeout
	if auditTimeout <= 0 {
		auditTimeout = defaultAuditTimeout
	}

	return &RemoteOrders{
		gateway:   deps.Gateway,
		locations: deps.Locations,
		logs:      deps.Logs,
		logger:    logger,
		now: func() time.Time {
			return clock().UTC()
		},
		newTraceID:   newTraceID,
		auditTimeout: auditTimeout,
	}, nil
}

// Submit validates the request, sends it to the location and records it.
// Nothing is written locally when the remote call fails.
func (r *RemoteOrders) Submit(ctx context.Context, req RemoteOrderRequest) (RemoteOrderResult, error) {
	if err := validateRemoteOrder(req); err != nil {
		return RemoteOrderResult{}, err
	}

	location, err := r.locations.FindRemoteLocation(ctx, strings.TrimSpace(req.LocationID))
	if err != nil {
		return RemoteOrderResult{}, err
	}
	if !location.IsActive {
		return RemoteOrderResult{}, ErrLocationNotFound
	}

	traceID := r.newTraceID()
	logger := r.logger.With(zap.String("trace_id", traceID), zap.String("location", location.Name))

	subtotal := models.OrderTotal(req.Items)
	total := subtotal + location.DeliveryFee
	payload := fudo.DeliveryOrder{
		ExternalTraceID: traceID,
		Customer: fudo.DeliveryCustomer{
			Name:    strings.TrimSpace(req.CustomerName),
			Phone:   strings.TrimSpace(req.CustomerPhone),
			Address: strings.TrimSpace(req.DeliveryAddress),
		},
		Items:        r.deliveryItems(logger, req.Items),
		ShippingCost: location.DeliveryFee,
		TotalAmount:  total,
		Comment:      strings.TrimSpace(req.Comment),
	}

	creds := fudo.Credentials{APIKey: location.APIKey, APISecret: location.APISecret}
	orderID, err := r.gateway.CreateDeliveryOrder(ctx, creds, payload)
	if err != nil {
		logger.Error("create delivery order failed", zap.Error(err))
		return RemoteOrderResult{}, &StepError{Step: StepCreateDeliveryOrder, Err: err}
	}

	r.audit(ctx, logger, models.RemoteOrderLog{
		ExternalOrderID: orderID,
		TraceID:         traceID,
		LocationID:      location.ID,
		LocationName:    location.Name,
		CustomerName:    payload.Customer.Name,
		CustomerPhone:   payload.Customer.Phone,
		DeliveryAddress: payload.Customer.Address,
		Comment:         payload.Comment,
		Items:           models.CloneItems(req.Items),
		Subtotal:        subtotal,
		DeliveryFee:     location.DeliveryFee,
		Total:           total,
		Cashier:         req.Cashier,
		CreatedAt:       r.now(),
	})

	logger.Info("delivery order created", zap.String("external_order_id", orderID), zap.Float64("total", total))
	return RemoteOrderResult{
		ExternalOrderID: orderID,
		TraceID:         traceID,
		Subtotal:        subtotal,
		DeliveryFee:     location.DeliveryFee,
		Total:           total,
	}, nil
}

func (r *RemoteOrders) deliveryItems(logger *zap.Logger, items []models.OrderItem) []fudo.DeliveryItem {
	out := make([]fudo.DeliveryItem, 0, len(items))
	for _, item := range items {
		line := fudo.DeliveryItem{
			ProductID: item.ExternalProductID,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice,
		}
		for _, mod := range item.Modifiers {
			if mod.ToppingProductID == "" || mod.GroupID == "" {
				logger.Warn("delivery sub-item skipped: missing topping or group id",
					zap.String("item", item.Name),
					zap.String("modifier", mod.Name),
				)
				continue
			}
			quantity := mod.Quantity
			if quantity < 1 {
				quantity = 1
			}
			line.Subitems = append(line.Subitems, fudo.DeliverySubitem{
				ProductID: mod.ToppingProductID,
				GroupID:   mod.GroupID,
				Quantity:  quantity,
				Price:     mod.Price,
			})
		}
		out = append(out, line)
	}
	return out
}

func (r *RemoteOrders) audit(ctx context.Context, logger *zap.Logger, entry models.RemoteOrderLog) {
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.auditTimeout)
	defer cancel()
	if err := r.logs.InsertRemoteOrderLog(auditCtx, entry); err != nil {
		logger.Error("remote order audit write failed", zap.Error(err))
	}
}

func validateRemoteOrder(req RemoteOrderRequest) error {
	if strings.TrimSpace(req.LocationID) == "" {
		return invalid("locationId", "a location must be selected")
	}
	if len(req.Items) == 0 {
		return invalid("items", "order has no items")
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return invalid("customerName", "is required")
	}
	return validateItems(req.Items)
}
