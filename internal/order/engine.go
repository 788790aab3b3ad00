// Package order holds the cashier-side order state machine.
//
// An Engine is owned by exactly one cashier terminal and is not safe for
// concurrent use. Callers serialise every mutation onto a single goroutine.
package order

import (
	"github.com/oklog/ulid/v2"

	"backoffice/internal/models"
)

// Engine holds the current ticket and the optional topping selection.
type Engine struct {
	items         []models.OrderItem
	saleType      models.SaleType
	people        int
	status        models.OrderStatus
	paymentMethod string
	total         float64
	selection     *Selection

	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator overrides the local item id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine returns an empty order in the building state.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		saleType: models.SaleTypeTakeaway,
		status:   models.OrderStatusBuilding,
		newID: func() string {
			return ulid.Make().String()
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProductRef identifies the catalog product being added.
type ProductRef struct {
	ProductID         string
	ExternalProductID string
	Name              string
}

// AddItem appends a new line with no modifiers and returns its local id.
// Quantities below one are stored as one.
func (e *Engine) AddItem(ref ProductRef, unitPrice float64, quantity int) string {
	if quantity < 1 {
		quantity = 1
	}
	id := e.newID()
	e.items = append(e.items, models.OrderItem{
		ID:                id,
		ProductID:         ref.ProductID,
		ExternalProductID: ref.ExternalProductID,
		Name:              ref.Name,
		UnitPrice:         unitPrice,
		Quantity:          quantity,
		Modifiers:         []models.OrderModifier{},
	})
	e.recompute()
	return id
}

// RemoveItem drops the line. Unknown ids are ignored. Removing the item an open
// selection is configuring also closes the selection.
func (e *Engine) RemoveItem(itemID string) {
	idx := e.indexOf(itemID)
	if idx < 0 {
		return
	}
	e.items = append(e.items[:idx], e.items[idx+1:]...)
	if e.selection != nil && e.selection.ItemID == itemID {
		e.selection = nil
	}
	e.recompute()
}

// UpdateQuantity sets the line quantity, clamped to a minimum of one.
func (e *Engine) UpdateQuantity(itemID string, quantity int) {
	idx := e.indexOf(itemID)
	if idx < 0 {
		return
	}
	if quantity < 1 {
		quantity = 1
	}
	e.items[idx].Quantity = quantity
	e.recompute()
}

// SetSaleType changes the tag forwarded to the ledger. Unknown types are ignored.
func (e *Engine) SetSaleType(t models.SaleType) {
	if t.Valid() {
		e.saleType = t
	}
}

// SetPeople records the party size used by eat-in sales.
func (e *Engine) SetPeople(n int) {
	if n < 0 {
		n = 0
	}
	e.people = n
}

// BeginPayment moves the order to paying with the chosen method.
func (e *Engine) BeginPayment(method string) {
	e.paymentMethod = method
	e.status = models.OrderStatusPaying
}

// MarkFailed records a failed submission. Items are left as they were.
func (e *Engine) MarkFailed() {
	e.status = models.OrderStatusError
}

// MarkSubmitted records a successful submission. Callers usually Clear afterwards.
func (e *Engine) MarkSubmitted() {
	e.status = models.OrderStatusSubmitted
}

// Clear resets to an empty building order and drops any selection.
func (e *Engine) Clear() {
	e.items = nil
	e.selection = nil
	e.saleType = models.SaleTypeTakeaway
	e.people = 0
	e.paymentMethod = ""
	e.status = models.OrderStatusBuilding
	e.recompute()
}

// Status returns the current order status.
func (e *Engine) Status() models.OrderStatus {
	return e.status
}

// Total returns the derived order total.
func (e *Engine) Total() float64 {
	return e.total
}

// Item returns a copy of one line.
func (e *Engine) Item(itemID string) (models.OrderItem, bool) {
	idx := e.indexOf(itemID)
	if idx < 0 {
		return models.OrderItem{}, false
	}
	return models.CloneItems(e.items[idx : idx+1])[0], true
}

// Snapshot returns a deep copy of the order.
func (e *Engine) Snapshot() models.Order {
	items := models.CloneItems(e.items)
	if items == nil {
		items = []models.OrderItem{}
	}
	return models.Order{
		Items:         items,
		SaleType:      e.saleType,
		People:        e.people,
		Status:        e.status,
		Total:         e.total,
		PaymentMethod: e.paymentMethod,
	}
}

func (e *Engine) indexOf(itemID string) int {
	for i := range e.items {
		if e.items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (e *Engine) recompute() {
	e.total = models.OrderTotal(e.items)
}
