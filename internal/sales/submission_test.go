package sales

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/fudo"
	"backoffice/internal/models"
)

type fakeLedger struct {
	calls     []string
	failOn    map[string]error
	methods   []fudo.PaymentMethod
	registers []fudo.CashRegister
	opened    []fudo.SaleOptions
	listCalls int
	nextItem  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		failOn: map[string]error{},
		methods: []fudo.PaymentMethod{
			{ID: "pm-1", Code: "cash", Name: "Efectivo", Active: true},
			{ID: "pm-2", Code: "card", Name: "Tarjeta", Active: true},
			{ID: "pm-3", Code: "card_app", Name: "Tarjeta Delivery", Active: true},
			{ID: "pm-4", Code: "old", Name: "Cheque", Active: false},
		},
		registers: []fudo.CashRegister{
			{ID: "cr-closed", Active: false},
			{ID: "cr-1", Active: true},
		},
	}
}

func (f *fakeLedger) record(call string) error {
	f.calls = append(f.calls, call)
	return f.failOn[call]
}

func (f *fakeLedger) OpenSale(ctx context.Context, opts fudo.SaleOptions) (string, error) {
	f.opened = append(f.opened, opts)
	if err := f.record("openSale"); err != nil {
		return "", err
	}
	return "sale-1", nil
}

func (f *fakeLedger) AddLineItem(ctx context.Context, saleID, productID string, quantity int) (string, error) {
	if err := f.record(fmt.Sprintf("addLineItem(%s,%d)", productID, quantity)); err != nil {
		return "", err
	}
	f.nextItem++
	return fmt.Sprintf("line-%d", f.nextItem), nil
}

func (f *fakeLedger) AddSubItem(ctx context.Context, itemID, toppingProductID, groupID string, quantity int) error {
	return f.record(fmt.Sprintf("addSubItem(%s,%s,%s)", itemID, toppingProductID, groupID))
}

func (f *fakeLedger) AddPayment(ctx context.Context, saleID, paymentMethodID string, amount float64) error {
	return f.record(fmt.Sprintf("addPayment(%s,%.0f)", paymentMethodID, amount))
}

func (f *fakeLedger) CloseSale(ctx context.Context, saleID string) error {
	return f.record("closeSale")
}

func (f *fakeLedger) ListPaymentMethods(ctx context.Context) ([]fudo.PaymentMethod, error) {
	f.listCalls++
	if err := f.failOn["listPaymentMethods"]; err != nil {
		return nil, err
	}
	return f.methods, nil
}

func (f *fakeLedger) ListCashRegisters(ctx context.Context) ([]fudo.CashRegister, error) {
	return f.registers, nil
}

type fakeSaleLogs struct {
	logs []models.SaleLog
	err  error
}

func (f *fakeSaleLogs) InsertSaleLog(ctx context.Context, log models.SaleLog) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("audit write without deadline")
	}
	f.logs = append(f.logs, log)
	return nil
}

func newTestSubmitter(t *testing.T, ledger *fakeLedger, logs *fakeSaleLogs, mutate ...func(*SubmitterDeps)) *Submitter {
	t.Helper()
	deps := SubmitterDeps{
		Ledger:             ledger,
		SaleLogs:           logs,
		Clock:              func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) },
		NewTraceID:         func() string { return "trace-1" },
		ExcludedPaymentTag: "delivery",
	}
	for _, fn := range mutate {
		fn(&deps)
	}
	s, err := NewSubmitter(deps)
	require.NoError(t, err)
	return s
}

func simpleOrder() models.Order {
	return models.Order{
		SaleType: models.SaleTypeTakeaway,
		Status:   models.OrderStatusPaying,
		Items: []models.OrderItem{
			{ID: "a", ExternalProductID: "A", Name: "A", UnitPrice: 10000, Quantity: 1},
			{ID: "b", ExternalProductID: "B", Name: "B", UnitPrice: 5000, Quantity: 2},
		},
	}
}

func TestSubmitSimpleSale(t *testing.T) {
	ledger := newFakeLedger()
	logs := &fakeSaleLogs{}
	submitter := newTestSubmitter(t, ledger, logs)

	result, err := submitter.Submit(context.Background(), SaleRequest{Order: simpleOrder(), PaymentMethod: "cash", Cashier: "ana"})
	require.NoError(t, err)

	assert.Equal(t, "sale-1", result.ExternalSaleID)
	assert.Equal(t, "trace-1", result.TraceID)
	assert.Equal(t, float64(20000), result.Total)
	assert.Equal(t, []string{
		"openSale",
		"addLineItem(A,1)",
		"addLineItem(B,2)",
		"addPayment(pm-1,20000)",
		"closeSale",
	}, ledger.calls)
	assert.Equal(t, fudo.SaleTypeTakeaway, ledger.opened[0].SaleType)

	require.Len(t, logs.logs, 1)
	assert.Equal(t, "sale-1", logs.logs[0].ExternalSaleID)
	assert.Equal(t, "ana", logs.logs[0].Cashier)
	assert.Equal(t, "cash", logs.logs[0].PaymentMethod)
	assert.Equal(t, float64(20000), logs.logs[0].Total)
}

func TestSubmitTotalIsRecomputedFromItems(t *testing.T) {
	ledger := newFakeLedger()
	submitter := newTestSubmitter(t, ledger, &fakeSaleLogs{})

	order := simpleOrder()
	order.Total = 1
	_, err := submitter.Submit(context.Background(), SaleRequest{Order: order, PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Contains(t, ledger.calls, "addPayment(pm-1,20000)")
}

func TestSubmitSkipsSubItemWithMissingIDs(t *testing.T) {
	ledger := newFakeLedger()
	submitter := newTestSubmitter(t, ledger, &fakeSaleLogs{})

	order := models.Order{
		SaleType: models.SaleTypeTakeaway,
		Items: []models.OrderItem{{
			ExternalProductID: "C", Name: "C", UnitPrice: 8000, Quantity: 1,
			Modifiers: []models.OrderModifier{
				{ModifierID: "x", GroupID: "g1", ToppingProductID: "TX", Name: "X", Quantity: 1},
				{ModifierID: "y", GroupID: "g1", Name: "Y", Price: 1000, Quantity: 1},
			},
		}},
	}
	result, err := submitter.Submit(context.Background(), SaleRequest{Order: order, PaymentMethod: "cash"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SkippedSubItems)
	assert.Equal(t, []string{
		"openSale",
		"addLineItem(C,1)",
		"addSubItem(line-1,TX,g1)",
		"addPayment(pm-1,9000)",
		"closeSale",
	}, ledger.calls)
}

func TestSubmitSubItemRejectionIsNotFatal(t *testing.T) {
	ledger := newFakeLedger()
	ledger.failOn["addSubItem(line-1,TX,g1)"] = errors.New("422")
	submitter := newTestSubmitter(t, ledger, &fakeSaleLogs{})

	order := models.Order{
		SaleType: models.SaleTypeTakeaway,
		Items: []models.OrderItem{{
			ExternalProductID: "C", UnitPrice: 8000, Quantity: 1,
			Modifiers: []models.OrderModifier{{GroupID: "g1", ToppingProductID: "TX", Quantity: 1}},
		}},
	}
	result, err := submitter.Submit(context.Background(), SaleRequest{Order: order, PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedSubItems)
	assert.Equal(t, "closeSale", ledger.calls[len(ledger.calls)-1])
}

func TestSubmitFailedPaymentNamesStep(t *testing.T) {
	ledger := newFakeLedger()
	ledger.failOn["addPayment(pm-1,20000)"] = &fudo.APIError{Method: "POST", Path: "/payments", Status: 500, Body: "boom"}
	logs := &fakeSaleLogs{}
	submitter := newTestSubmitter(t, ledger, logs)

	order := simpleOrder()
	before := models.CloneItems(order.Items)
	_, err := submitter.Submit(context.Background(), SaleRequest{Order: order, PaymentMethod: "cash"})

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepAddPayment, stepErr.Step)
	assert.Equal(t, "sale-1", stepErr.SaleID)
	var apiErr *fudo.APIError
	assert.ErrorAs(t, err, &apiErr)

	assert.NotContains(t, ledger.calls, "closeSale")
	assert.Equal(t, before, order.Items)
	assert.Empty(t, logs.logs)
}

func TestSubmitStepNames(t *testing.T) {
	cases := map[string]string{
		"openSale":         StepOpenSale,
		"addLineItem(B,2)": StepAddItem,
		"closeSale":        StepCloseSale,
	}
	for call, step := range cases {
		t.Run(step, func(t *testing.T) {
			ledger := newFakeLedger()
			ledger.failOn[call] = errors.New("remote failure")
			submitter := newTestSubmitter(t, ledger, &fakeSaleLogs{})

			_, err := submitter.Submit(context.Background(), SaleRequest{Order: simpleOrder(), PaymentMethod: "cash"})
			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, step, stepErr.Step)
			assert.Equal(t, call, ledger.calls[len(ledger.calls)-1])
		})
	}
}

func TestSubmitUnknownPaymentMethodOpensNothing(t *testing.T) {
	ledger := newFakeLedger()
	submitter := newTestSubmitter(t, ledger, &fakeSaleLogs{})

	_, err := submitter.Submit(context.Background(), SaleRequest{Order: simpleOrder(), PaymentMethod: "bitcoin"})
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepResolvePaymentMethod, stepErr.Step)
	assert.ErrorIs(t, err, ErrUnknownPaymentMethod)
	assert.Empty(t, ledger.calls)
}

func TestPaymentMethodMap(t *testing.T) {
	ledger := newFakeLedger()
	submitter := newTestSubmitter(t, ledger, &fakeSaleLogs{})

	methods, err := submitter.PaymentMethods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"cash":     "pm-1",
		"efectivo": "pm-1",
		"card":     "pm-2",
		"tarjeta":  "pm-2",
	}, methods)

	_, err = submitter.Submit(context.Background(), SaleRequest{Order: simpleOrder(), PaymentMethod: "  Tarjeta "})
	require.NoError(t, err)
	assert.Contains(t, ledger.calls, "addPayment(pm-2,20000)")
	assert.Equal(t, 1, ledger.listCalls)
}

func TestPaymentMethodLoadFailureIsRetried(t *testing.T) {
	ledger := newFakeLedger()
	ledger.failOn["listPaymentMethods"] = errors.New("timeout")
	submitter := newTestSubmitter(t, ledger, &fakeSaleLogs{})

	_, err := submitter.Submit(context.Background(), SaleRequest{Order: simpleOrder(), PaymentMethod: "cash"})
	require.Error(t, err)

	delete(ledger.failOn, "listPaymentMethods")
	_, err = submitter.Submit(context.Background(), SaleRequest{Order: simpleOrder(), PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.listCalls)
}

func TestSubmitEatInResolvesRegisterAndPartySize(t *testing.T) {
	ledger := newFakeLedger()
	submitter := newTestSubmitter(t, ledger, &fakeSaleLogs{}, func(d *SubmitterDeps) { d.DefaultPartySize = 2 })

	order := simpleOrder()
	order.SaleType = models.SaleTypeEatIn
	_, err := submitter.Submit(context.Background(), SaleRequest{Order: order, PaymentMethod: "cash"})
	require.NoError(t, err)

	order.People = 5
	_, err = submitter.Submit(context.Background(), SaleRequest{Order: order, PaymentMethod: "cash"})
	require.NoError(t, err)

	require.Len(t, ledger.opened, 2)
	assert.Equal(t, fudo.SaleOptions{SaleType: fudo.SaleTypeEatIn, People: 2, CashRegisterID: "cr-1"}, ledger.opened[0])
	assert.Equal(t, 5, ledger.opened[1].People)
}

func TestSubmitEatInConfiguredRegister(t *testing.T) {
	ledger := newFakeLedger()
	ledger.registers = nil
	submitter := newTestSubmitter(t, ledger, &fakeSaleLogs{}, func(d *SubmitterDeps) { d.CashRegisterID = "cr-9" })

	order := simpleOrder()
	order.SaleType = models.SaleTypeEatIn
	_, err := submitter.Submit(context.Background(), SaleRequest{Order: order, PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Equal(t, "cr-9", ledger.opened[0].CashRegisterID)
}

func TestSubmitEatInWithoutRegisterFailsBeforeOpening(t *testing.T) {
	ledger := newFakeLedger()
	ledger.registers = []fudo.CashRegister{{ID: "x", Active: false}}
	submitter := newTestSubmitter(t, ledger, &fakeSaleLogs{})

	order := simpleOrder()
	order.SaleType = models.SaleTypeEatIn
	_, err := submitter.Submit(context.Background(), SaleRequest{Order: order, PaymentMethod: "cash"})
	assert.ErrorIs(t, err, ErrNoCashRegister)
	assert.Empty(t, ledger.calls)
}

func TestSubmitAuditFailureDoesNotFailSale(t *testing.T) {
	ledger := newFakeLedger()
	submitter := newTestSubmitter(t, ledger, &fakeSaleLogs{err: errors.New("mongo down")})

	result, err := submitter.Submit(context.Background(), SaleRequest{Order: simpleOrder(), PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Equal(t, "sale-1", result.ExternalSaleID)
}

// hangupLedger cancels the caller's context once the sale is opened and
// records the context state seen by every later call.
type hangupLedger struct {
	*fakeLedger
	hangup  context.CancelFunc
	ctxErrs []error
}

func (l *hangupLedger) OpenSale(ctx context.Context, opts fudo.SaleOptions) (string, error) {
	id, err := l.fakeLedger.OpenSale(ctx, opts)
	l.hangup()
	return id, err
}

func (l *hangupLedger) AddLineItem(ctx context.Context, saleID, productID string, quantity int) (string, error) {
	l.ctxErrs = append(l.ctxErrs, ctx.Err())
	return l.fakeLedger.AddLineItem(ctx, saleID, productID, quantity)
}

func (l *hangupLedger) AddPayment(ctx context.Context, saleID, paymentMethodID string, amount float64) error {
	l.ctxErrs = append(l.ctxErrs, ctx.Err())
	return l.fakeLedger.AddPayment(ctx, saleID, paymentMethodID, amount)
}

func (l *hangupLedger) CloseSale(ctx context.Context, saleID string) error {
	l.ctxErrs = append(l.ctxErrs, ctx.Err())
	return l.fakeLedger.CloseSale(ctx, saleID)
}

func TestSubmitSurvivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ledger := &hangupLedger{fakeLedger: newFakeLedger(), hangup: cancel}
	logs := &fakeSaleLogs{}
	submitter, err := NewSubmitter(SubmitterDeps{
		Ledger:             ledger,
		SaleLogs:           logs,
		NewTraceID:         func() string { return "trace-1" },
		ExcludedPaymentTag: "delivery",
	})
	require.NoError(t, err)

	result, err := submitter.Submit(ctx, SaleRequest{Order: simpleOrder(), PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Equal(t, "sale-1", result.ExternalSaleID)
	assert.Error(t, ctx.Err())
	assert.Equal(t, "closeSale", ledger.calls[len(ledger.calls)-1])
	for _, ctxErr := range ledger.ctxErrs {
		assert.NoError(t, ctxErr)
	}
	assert.Len(t, ledger.ctxErrs, 4)
	assert.Len(t, logs.logs, 1)
}

func TestSubmitValidation(t *testing.T) {
	ledger := newFakeLedger()
	submitter := newTestSubmitter(t, ledger, &fakeSaleLogs{})

	empty := simpleOrder()
	empty.Items = nil
	badType := simpleOrder()
	badType.SaleType = "delivery"
	noExternal := simpleOrder()
	noExternal.Items[0].ExternalProductID = ""

	cases := []struct {
		name  string
		req   SaleRequest
		field string
	}{
		{"empty order", SaleRequest{Order: empty, PaymentMethod: "cash"}, "items"},
		{"sale type", SaleRequest{Order: badType, PaymentMethod: "cash"}, "saleType"},
		{"payment method", SaleRequest{Order: simpleOrder(), PaymentMethod: " "}, "paymentMethod"},
		{"external id", SaleRequest{Order: noExternal, PaymentMethod: "cash"}, "items"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := submitter.Submit(context.Background(), tc.req)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	assert.Empty(t, ledger.calls)
	assert.Zero(t, ledger.listCalls)
}
