package sales

import (
	"errors"
	"fmt"
)

// Submission steps, in execution order.
const (
	StepResolvePaymentMethod = "resolve_payment_method"
	StepOpenSale             = "open_sale"
	StepAddItem              = "add_item"
	StepAddPayment           = "add_payment"
	StepCloseSale            = "close_sale"
	StepCreateDeliveryOrder  = "create_delivery_order"
)

var (
	// ErrInvalidRequest is matched by every ValidationError.
	ErrInvalidRequest = errors.New("sales: invalid request")
	// ErrUnknownPaymentMethod indicates the method has no ledger counterpart.
	ErrUnknownPaymentMethod = errors.New("sales: unknown payment method")
	// ErrNoCashRegister indicates an eat-in sale could not be bound to a register.
	ErrNoCashRegister = errors.New("sales: no cash register available")
	// ErrLocationNotFound indicates the remote location id is unknown or inactive.
	ErrLocationNotFound = errors.New("sales: remote location not found")
)

// ValidationError rejects a request before any remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// StepError reports the remote step that aborted a submission. SaleID is set
// when the sale was already opened on the ledger and needs manual
// reconciliation.
type StepError struct {
	Step   string
	SaleID string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
