package screen

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"backoffice/internal/models"
	"backoffice/internal/order"
	"backoffice/internal/sales"
)

var (
	ErrTerminalClosed = errors.New("terminal: closed")
	ErrOrderLocked    = errors.New("terminal: order is being submitted")
	ErrSelectionOpen  = errors.New("terminal: topping selection in progress")
	ErrNoSelection    = errors.New("terminal: no topping selection open")
	ErrItemNotFound   = errors.New("terminal: item not found")
	ErrEmptyOrder     = errors.New("terminal: order has no items")
)

// ModifierSource loads modifier groups for a product.
type ModifierSource interface {
	ProductModifiers(ctx context.Context, externalProductID string) ([]models.ModifierGroup, error)
}

// SaleSubmitter charges a finalized order.
type SaleSubmitter interface {
	Submit(ctx context.Context, req sales.SaleRequest) (sales.SaleResult, error)
}

// TerminalDeps wires a Terminal.
type TerminalDeps struct {
	Code          string
	Channel       Channel
	Modifiers     ModifierSource
	Sales         SaleSubmitter
	Logger        *zap.Logger
	EngineOptions []order.Option
}

// AddProductCommand adds one catalog product to the ticket.
type AddProductCommand struct {
	ProductID         string
	ExternalProductID string
	Name              string
	UnitPrice         float64
	Quantity          int
	HasModifiers      bool
}

// CheckoutCommand finalizes the ticket.
type CheckoutCommand struct {
	PaymentMethod string
	Cashier       string
}

// TerminalState is a snapshot of the cashier session.
type TerminalState struct {
	Code      string           `json:"code"`
	Order     models.Order     `json:"order"`
	Selection *order.Selection `json:"selection"`
	Loading   bool             `json:"loadingModifiers"`
}

// Terminal owns one order engine. Every mutation, including toggles relayed
// from displays, runs on a single event-loop goroutine.
type Terminal struct {
	code      string
	channel   Channel
	modifiers ModifierSource
	sales     SaleSubmitter
	logger    *zap.Logger

	engine  *order.Engine
	loading string

	cmds      chan func()
	done      chan struct{}
	closeOnce sync.Once
	unsub     func()
}

func NewTerminal(deps TerminalDeps) (*Terminal, error) {
	if deps.Channel == nil {
		return nil, errors.New("terminal: channel is required")
	}
	if deps.Modifiers == nil {
		return nil, errors.New("terminal: modifier source is required")
	}
	if deps.Sales == nil {
		return nil, errors.New("terminal: sale submitter is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Terminal{
		code:      deps.Code,
		channel:   deps.Channel,
		modifiers: deps.Modifiers,
		sales:     deps.Sales,
		logger:    logger.With(zap.String("terminal", deps.Code)),
		engine:    order.NewEngine(deps.EngineOptions...),
		cmds:      make(chan func()),
		done:      make(chan struct{}),
	}

	relayed, unsub := deps.Channel.Subscribe()
	t.unsub = unsub
	go t.loop()
	go t.relay(relayed)
	return t, nil
}

func (t *Terminal) Code() string { return t.code }

// Subscribe attaches a display to this terminal's channel.
func (t *Terminal) Subscribe() (<-chan Message, func()) {
	return t.channel.Subscribe()
}

// PublishFromDisplay injects a display-originated toggle.
func (t *Terminal) PublishFromDisplay(optionID string, active bool) {
	t.channel.Publish(ToppingToggled(OriginDisplay, optionID, active))
}

// Close stops the event loop. Pending calls return ErrTerminalClosed.
func (t *Terminal) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
		t.unsub()
		if closer, ok := t.channel.(interface{ Close() }); ok {
			closer.Close()
		}
	})
}

func (t *Terminal) loop() {
	for {
		select {
		case fn := <-t.cmds:
			fn()
		case <-t.done:
			return
		}
	}
}

func (t *Terminal) relay(ch <-chan Message) {
	for msg := range ch {
		if msg.Origin != OriginDisplay || msg.Type != TypeToppingToggled {
			continue
		}
		optionID, active := msg.OptionID, msg.Active
		err := t.exec(context.Background(), func() error {
			t.toggle(optionID, active)
			return nil
		})
		if err != nil {
			return
		}
	}
}

// exec runs fn on the event loop and waits for it.
func (t *Terminal) exec(ctx context.Context, fn func() error) error {
	select {
	case <-t.done:
		return ErrTerminalClosed
	default:
	}

	result := make(chan error, 1)
	select {
	case t.cmds <- func() { result <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrTerminalClosed
	}
	select {
	case err := <-result:
		return err
	case <-t.done:
		return ErrTerminalClosed
	}
}

// mutate runs fn on the loop unless a submission is in flight, then returns
// the resulting state.
func (t *Terminal) mutate(ctx context.Context, fn func() error) (TerminalState, error) {
	var state TerminalState
	err := t.exec(ctx, func() error {
		if t.engine.Status() == models.OrderStatusPaying {
			return ErrOrderLocked
		}
		if err := fn(); err != nil {
			return err
		}
		state = t.state()
		return nil
	})
	return state, err
}

// State returns a snapshot of the session.
func (t *Terminal) State(ctx context.Context) (TerminalState, error) {
	var state TerminalState
	err := t.exec(ctx, func() error {
		state = t.state()
		return nil
	})
	return state, err
}

// AddProduct appends a line. For products with modifiers the line stays
// pending while groups load, then the selection opens and is shown on the
// displays. A product whose groups are empty stays a plain line.
func (t *Terminal) AddProduct(ctx context.Context, cmd AddProductCommand) (string, TerminalState, error) {
	ref := order.ProductRef{ProductID: cmd.ProductID, ExternalProductID: cmd.ExternalProductID, Name: cmd.Name}

	var itemID string
	state, err := t.mutate(ctx, func() error {
		if t.engine.Selection() != nil || t.loading != "" {
			return ErrSelectionOpen
		}
		itemID = t.engine.AddItem(ref, cmd.UnitPrice, cmd.Quantity)
		if cmd.HasModifiers {
			t.loading = itemID
		}
		t.publishOrder()
		return nil
	})
	if err != nil || !cmd.HasModifiers {
		return itemID, state, err
	}

	groups, loadErr := t.modifiers.ProductModifiers(ctx, cmd.ExternalProductID)

	err = t.exec(context.Background(), func() error {
		if t.loading != itemID {
			state = t.state()
			return nil
		}
		t.loading = ""
		if _, ok := t.engine.Item(itemID); !ok {
			state = t.state()
			return nil
		}
		if loadErr != nil {
			t.engine.RemoveItem(itemID)
			t.publishOrder()
			state = t.state()
			return nil
		}
		if len(groups) > 0 {
			t.engine.StartToppingSelection(itemID, ref, groups)
			t.publishSelection()
		}
		state = t.state()
		return nil
	})
	if err != nil {
		return itemID, state, err
	}
	if loadErr != nil {
		t.logger.Warn("modifier groups unavailable, item dropped",
			zap.String("product", cmd.ExternalProductID), zap.Error(loadErr))
		return "", state, fmt.Errorf("load modifiers for %s: %w", cmd.ExternalProductID, loadErr)
	}
	return itemID, state, nil
}

func (t *Terminal) RemoveItem(ctx context.Context, itemID string) (TerminalState, error) {
	return t.mutate(ctx, func() error {
		if _, ok := t.engine.Item(itemID); !ok {
			return ErrItemNotFound
		}
		hadSelection := t.engine.Selection() != nil
		if t.loading == itemID {
			t.loading = ""
		}
		t.engine.RemoveItem(itemID)
		if hadSelection && t.engine.Selection() == nil {
			t.channel.Publish(ToppingsConfirmed())
		}
		t.publishOrder()
		return nil
	})
}

func (t *Terminal) UpdateQuantity(ctx context.Context, itemID string, quantity int) (TerminalState, error) {
	return t.mutate(ctx, func() error {
		if _, ok := t.engine.Item(itemID); !ok {
			return ErrItemNotFound
		}
		t.engine.UpdateQuantity(itemID, quantity)
		t.publishOrder()
		return nil
	})
}

func (t *Terminal) SetSaleType(ctx context.Context, saleType models.SaleType) (TerminalState, error) {
	return t.mutate(ctx, func() error {
		t.engine.SetSaleType(saleType)
		t.publishOrder()
		return nil
	})
}

func (t *Terminal) SetPeople(ctx context.Context, people int) (TerminalState, error) {
	return t.mutate(ctx, func() error {
		t.engine.SetPeople(people)
		t.publishOrder()
		return nil
	})
}

// ToggleTopping applies a cashier-side toggle. A capacity rejection is not an
// error: accepted reports whether the selection changed.
func (t *Terminal) ToggleTopping(ctx context.Context, optionID string, active bool) (accepted bool, state TerminalState, err error) {
	state, err = t.mutate(ctx, func() error {
		if t.engine.Selection() == nil {
			return ErrNoSelection
		}
		accepted = t.toggle(optionID, active)
		return nil
	})
	return accepted, state, err
}

// toggle runs on the loop. Accepted toggles are echoed; every toggle is
// followed by the authoritative selection.
func (t *Terminal) toggle(optionID string, active bool) bool {
	if t.engine.Status() == models.OrderStatusPaying || t.engine.Selection() == nil {
		return false
	}
	accepted := t.engine.ToggleTopping(optionID, active)
	if accepted {
		t.channel.Publish(ToppingToggled(OriginCashier, optionID, active))
	}
	t.publishSelection()
	return accepted
}

func (t *Terminal) ConfirmToppings(ctx context.Context) (TerminalState, error) {
	return t.mutate(ctx, func() error {
		if !t.engine.ConfirmToppings() {
			return ErrNoSelection
		}
		t.channel.Publish(ToppingsConfirmed())
		t.publishOrder()
		return nil
	})
}

// CancelToppings drops the pending line and closes the selection on the
// displays.
func (t *Terminal) CancelToppings(ctx context.Context) (TerminalState, error) {
	return t.mutate(ctx, func() error {
		if !t.engine.CancelToppings() {
			return ErrNoSelection
		}
		t.channel.Publish(ToppingsConfirmed())
		t.publishOrder()
		return nil
	})
}

// Clear abandons the ticket.
func (t *Terminal) Clear(ctx context.Context) (TerminalState, error) {
	return t.mutate(ctx, func() error {
		hadSelection := t.engine.Selection() != nil
		t.loading = ""
		t.engine.Clear()
		if hadSelection {
			t.channel.Publish(ToppingsConfirmed())
		}
		t.publishOrder()
		return nil
	})
}

// Checkout locks the ticket and submits it. On success the ticket is reset
// and displays show their thank-you screen. On failure the items are kept
// and the order is marked as errored so the cashier can retry.
func (t *Terminal) Checkout(ctx context.Context, cmd CheckoutCommand) (sales.SaleResult, TerminalState, error) {
	var snapshot models.Order
	state, err := t.mutate(ctx, func() error {
		if t.engine.Selection() != nil || t.loading != "" {
			return ErrSelectionOpen
		}
		if len(t.engine.Snapshot().Items) == 0 {
			return ErrEmptyOrder
		}
		t.engine.BeginPayment(cmd.PaymentMethod)
		snapshot = t.engine.Snapshot()
		t.publishOrder()
		return nil
	})
	if err != nil {
		return sales.SaleResult{}, state, err
	}

	result, submitErr := t.sales.Submit(ctx, sales.SaleRequest{
		Order:         snapshot,
		PaymentMethod: cmd.PaymentMethod,
		Cashier:       cmd.Cashier,
	})

	err = t.exec(context.Background(), func() error {
		if submitErr != nil {
			t.engine.MarkFailed()
			t.publishOrder()
		} else {
			t.engine.MarkSubmitted()
			t.engine.Clear()
			t.channel.Publish(Clear())
		}
		state = t.state()
		return nil
	})
	if err != nil {
		return result, state, err
	}
	if submitErr != nil {
		t.logger.Warn("checkout failed", zap.Error(submitErr))
		return sales.SaleResult{}, state, submitErr
	}
	t.logger.Info("checkout completed", zap.String("external_sale_id", result.ExternalSaleID))
	return result, state, nil
}

func (t *Terminal) state() TerminalState {
	return TerminalState{
		Code:      t.code,
		Order:     t.engine.Snapshot(),
		Selection: t.engine.Selection(),
		Loading:   t.loading != "",
	}
}

func (t *Terminal) publishOrder() {
	snapshot := t.engine.Snapshot()
	t.channel.Publish(OrderUpdated(snapshot.Items, snapshot.Total))
	t.publishSelection()
}

func (t *Terminal) publishSelection() {
	if sel := t.engine.Selection(); sel != nil {
		t.channel.Publish(ShowToppings(sel))
	}
}
