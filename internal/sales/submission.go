// Package sales submits finalized cashier orders to the external ledger and
// routes delivery orders to partner locations.
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

const defaultAuditTimeout = 5 * time.Second

// Ledger is the external POS call contract used by the submitter.
type Ledger interface {
	OpenSale(ctx context.Context, opts fudo.SaleOptions) (string, error)
	AddLineItem(ctx context.Context, saleID, productID string, quantity int) (string, error)
	AddSubItem(ctx context.Context, itemID, toppingProductID, groupID string, quantity int) error
	AddPayment(ctx context.Context, saleID, paymentMethodID string, amount float64) error
	CloseSale(ctx context.Context, saleID string) error
	ListPaymentMethods(ctx context.Context) ([]fudo.PaymentMethod, error)
	ListCashRegisters(ctx context.Context) ([]fudo.CashRegister, error)
}

// SaleLogRepository persists audit records of closed sales.
type SaleLogRepository interface {
	InsertSaleLog(ctx context.Context, log models.SaleLog) error
}

// SaleRequest is a finalized order ready to be charged.
type SaleRequest struct {
	Order         models.Order
	PaymentMethod string
	Cashier       string
}

// SaleResult describes a sale closed on the ledger.
type SaleResult struct {
	ExternalSaleID  string
	TraceID         string
	Total           float64
	SkippedSubItems int
}

// SubmitterDeps wires a Submitter.
type SubmitterDeps struct {
	Ledger             Ledger
	SaleLogs           SaleLogRepository
	Logger             *zap.Logger
	Clock              func() time.Time
	NewTraceID         func() string
	CashRegisterID     string
	DefaultPartySize   int
	ExcludedPaymentTag string
	AuditTimeout       time.Duration
}

// Submitter runs the ordered open/add/pay/close sequence against the ledger.
// There is no rollback: a failure after open_sale leaves an orphan sale that
// StepError.SaleID identifies.
type Submitter struct {
	ledger       Ledger
	saleLogs     SaleLogRepository
	logger       *zap.Logger
	now          func() time.Time
	newTraceID   func() string
	partySize    int
	auditTimeout time.Duration

	methods  *paymentMethods
	register *cashRegister
}

func NewSubmitter(deps SubmitterDeps) (*Submitter, error) {
	if deps.Ledger == nil {
		return nil, errors.New("sale submitter: ledger is required")
	}
	if deps.SaleLogs == nil {
		return nil, errors.New("sale submitter: sale log repository is required")
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
	partySize := deps.DefaultPartySize
	if partySize < 1 {
		partySize = 1
	}
	auditTimeout := deps.AuditTimeout
	if auditTimeout <= 0 {
		auditTimeout = defaultAuditTimeout
	}

	return &Submitter{
		ledger:   deps.Ledger,
		saleLogs: deps.SaleLogs,
		logger:   logger,
		now: func() time.Time {
			return clock().UTC()
		},
		newTraceID:   newTraceID,
		partySize:    partySize,
		auditTimeout: auditTimeout,
		methods:      newPaymentMethods(deps.ExcludedPaymentTag),
		register:     &cashRegister{configured: strings.TrimSpace(deps.CashRegisterID)},
	}, nil
}

// Submit charges the order on the ledger. Validation failures are returned
// as *ValidationError before any remote call; remote failures as *StepError.
func (s *Submitter) Submit(ctx context.Context, req SaleRequest) (SaleResult, error) {
	if err := validateSale(req); err != nil {
		return SaleResult{}, err
	}
	// Once started the sequence runs to completion or a named step failure.
	// Ledger calls are bounded by the client's own timeout.
	ctx = context.WithoutCancel(ctx)

	traceID := s.newTraceID()
	total := models.OrderTotal(req.Order.Items)
	logger := s.logger.With(zap.String("trace_id", traceID), zap.String("sale_type", string(req.Order.SaleType)))

	// Resolved ahead of open_sale so an unknown method never orphans a sale.
	methodID, err := s.methods.resolve(ctx, s.ledger, req.PaymentMethod)
	if err != nil {
		logger.Warn("payment method not resolved", zap.String("method", req.PaymentMethod), zap.Error(err))
		return SaleResult{}, &StepError{Step: StepResolvePaymentMethod, Err: err}
	}

	opts, err := s.saleOptions(ctx, req.Order)
	if err != nil {
		return SaleResult{}, &StepError{Step: StepOpenSale, Err: err}
	}
	saleID, err := s.ledger.OpenSale(ctx, opts)
	if err != nil {
		logger.Error("open sale failed", zap.Error(err))
		return SaleResult{}, &StepError{Step: StepOpenSale, Err: err}
	}
	logger = logger.With(zap.String("external_sale_id", saleID))

	skipped := 0
	for _, item := range req.Order.Items {
		lineID, err := s.ledger.AddLineItem(ctx, saleID, item.ExternalProductID, item.Quantity)
		if err != nil {
			logger.Error("add line item failed", zap.String("product", item.ExternalProductID), zap.Error(err))
			return SaleResult{}, &StepError{Step: StepAddItem, SaleID: saleID, Err: err}
		}
		skipped += s.addSubItems(ctx, logger, lineID, item)
	}

	if err := s.ledger.AddPayment(ctx, saleID, methodID, total); err != nil {
		logger.Error("add payment failed", zap.Float64("amount", total), zap.Error(err))
		return SaleResult{}, &StepError{Step: StepAddPayment, SaleID: saleID, Err: err}
	}
	if err := s.ledger.CloseSale(ctx, saleID); err != nil {
		logger.Error("close sale failed", zap.Error(err))
		return SaleResult{}, &StepError{Step: StepCloseSale, SaleID: saleID, Err: err}
	}

	s.audit(ctx, logger, models.SaleLog{
		ExternalSaleID: saleID,
		TraceID:        traceID,
		SaleType:       req.Order.SaleType,
		Items:          models.CloneItems(req.Order.Items),
		Total:          total,
		PaymentMethod:  req.PaymentMethod,
		Cashier:        req.Cashier,
		CreatedAt:      s.now(),
	})

	logger.Info("sale closed", zap.Float64("total", total), zap.Int("skipped_sub_items", skipped))
	return SaleResult{ExternalSaleID: saleID, TraceID: traceID, Total: total, SkippedSubItems: skipped}, nil
}

// PaymentMethods returns the resolved method map, loading it if needed.
func (s *Submitter) PaymentMethods(ctx context.Context) (map[string]string, error) {
	return s.methods.snapshot(ctx, s.ledger)
}

// addSubItems never fails the sale. It returns how many modifiers were not
// recorded on the ledger.
func (s *Submitter) addSubItems(ctx context.Context, logger *zap.Logger, lineID string, item models.OrderItem) int {
	skipped := 0
	for _, mod := range item.Modifiers {
		if mod.ToppingProductID == "" || mod.GroupID == "" {
			logger.Warn("sub-item skipped: missing topping or group id",
				zap.String("item", item.Name),
				zap.String("modifier", mod.Name),
			)
			skipped++
			continue
		}
		quantity := mod.Quantity
		if quantity < 1 {
			quantity = 1
		}
		if err := s.ledger.AddSubItem(ctx, lineID, mod.ToppingProductID, mod.GroupID, quantity); err != nil {
			logger.Warn("sub-item rejected by ledger",
				zap.String("item", item.Name),
				zap.String("modifier", mod.Name),
				zap.Error(err),
			)
			skipped++
		}
	}
	return skipped
}

func (s *Submitter) saleOptions(ctx context.Context, order models.Order) (fudo.SaleOptions, error) {
	if order.SaleType != models.SaleTypeEatIn {
		return fudo.SaleOptions{SaleType: fudo.SaleTypeTakeaway}, nil
	}
	registerID, err := s.register.resolve(ctx, s.ledger)
	if err != nil {
		return fudo.SaleOptions{}, err
	}
	people := order.People
	if people < 1 {
		people = s.partySize
	}
	return fudo.SaleOptions{SaleType: fudo.SaleTypeEatIn, People: people, CashRegisterID: registerID}, nil
}

// audit runs after the sale is closed. Its failure is logged only.
func (s *Submitter) audit(ctx context.Context, logger *zap.Logger, entry models.SaleLog) {
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.auditTimeout)
	defer cancel()
	if err := s.saleLogs.InsertSaleLog(auditCtx, entry); err != nil {
		logger.Error("sale audit write failed", zap.Error(err))
	}
}

func validateSale(req SaleRequest) error {
	if len(req.Order.Items) == 0 {
		return invalid("items", "order has no items")
	}
	if !req.Order.SaleType.Valid() {
		return invalid("saleType", "must be eat_in or takeaway")
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return invalid("paymentMethod", "is required")
	}
	return validateItems(req.Order.Items)
}

func validateItems(items []models.OrderItem) error {
	for _, item := range items {
		if strings.TrimSpace(item.ExternalProductID) == "" {
			return invalid("items", "item "+item.Name+" has no external product id")
		}
		if item.Quantity < 1 {
			return invalid("items", "item "+item.Name+" has a non-positive quantity")
		}
	}
	return nil
}
