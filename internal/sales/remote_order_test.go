package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backoffice/internal/fudo"
	"backoffice/internal/models"
)

type fakeGateway struct {
	creds  []fudo.Credentials
	orders []fudo.DeliveryOrder
	err    error
}

func (f *fakeGateway) CreateDeliveryOrder(ctx context.Context, creds fudo.Credentials, order fudo.DeliveryOrder) (string, error) {
	f.creds = append(f.creds, creds)
	f.orders = append(f.orders, order)
	if f.err != nil {
		return "", f.err
	}
	return "ext-order-1", nil
}

type fakeLocations map[string]models.RemoteLocation

func (f fakeLocations) FindRemoteLocation(ctx context.Context, id string) (models.RemoteLocation, error) {
	loc, ok := f[id]
	if !ok {
		return models.RemoteLocation{}, ErrLocationNotFound
	}
	return loc, nil
}

type fakeRemoteLogs struct {
	logs []models.RemoteOrderLog
	err  error
}

func (f *fakeRemoteLogs) InsertRemoteOrderLog(ctx context.Context, log models.RemoteOrderLog) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, log)
	return nil
}

var northID = primitive.NewObjectID()

func testLocations() fakeLocations {
	return fakeLocations{
		"north":  {ID: northID, Name: "North", APIKey: "north-key", APISecret: "north-secret", DeliveryFee: 3000, IsActive: true},
		"closed": {Name: "Closed", IsActive: false},
	}
}

func newTestRemoteOrders(t *testing.T, gateway *fakeGateway, logs *fakeRemoteLogs) *RemoteOrders {
	t.Helper()
	r, err := NewRemoteOrders(RemoteOrdersDeps{
		Gateway:    gateway,
		Locations:  testLocations(),
		Logs:       logs,
		Clock:      func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) },
		NewTraceID: func() string { return "trace-remote" },
	})
	require.NoError(t, err)
	return r
}

func deliveryRequest() RemoteOrderRequest {
	return RemoteOrderRequest{
		LocationID:      "north",
		CustomerName:    " Ana ",
		CustomerPhone:   "555-0101",
		DeliveryAddress: "Av. Siempre Viva 742",
		Comment:         "ring twice",
		Cashier:         "luis",
		Items: []models.OrderItem{
			{ExternalProductID: "P1", Name: "Pizza", UnitPrice: 10000, Quantity: 1, Modifiers: []models.OrderModifier{
				{GroupID: "g1", ToppingProductID: "T1", Name: "Olives", Price: 1000, Quantity: 1},
				{GroupID: "", ToppingProductID: "T2", Name: "Broken", Price: 0, Quantity: 1},
			}},
			{ExternalProductID: "P2", Name: "Soda", UnitPrice: 2000, Quantity: 2},
		},
	}
}

func TestRemoteOrderAddsDeliveryFee(t *testing.T) {
	gateway := &fakeGateway{}
	logs := &fakeRemoteLogs{}
	orders := newTestRemoteOrders(t, gateway, logs)

	result, err := orders.Submit(context.Background(), deliveryRequest())
	require.NoError(t, err)

	assert.Equal(t, "ext-order-1", result.ExternalOrderID)
	assert.Equal(t, "trace-remote", result.TraceID)
	assert.Equal(t, float64(15000), result.Subtotal)
	assert.Equal(t, float64(18000), result.Total)

	require.Len(t, gateway.orders, 1)
	sent := gateway.orders[0]
	assert.Equal(t, float64(18000), sent.TotalAmount)
	assert.Equal(t, float64(3000), sent.ShippingCost)
	assert.Equal(t, "trace-remote", sent.ExternalTraceID)
	assert.Equal(t, "Ana", sent.Customer.Name)
	assert.Equal(t, fudo.Credentials{APIKey: "north-key", APISecret: "north-secret"}, gateway.creds[0])

	require.Len(t, sent.Items, 2)
	assert.Equal(t, []fudo.DeliverySubitem{{ProductID: "T1", GroupID: "g1", Quantity: 1, Price: 1000}}, sent.Items[0].Subitems)
	assert.Equal(t, fudo.DeliveryItem{ProductID: "P2", Quantity: 2, Price: 2000}, sent.Items[1])

	require.Len(t, logs.logs, 1)
	assert.Equal(t, "ext-order-1", logs.logs[0].ExternalOrderID)
	assert.Equal(t, northID, logs.logs[0].LocationID)
	assert.Equal(t, float64(18000), logs.logs[0].Total)
	assert.Equal(t, "luis", logs.logs[0].Cashier)
}

func TestRemoteOrderFailureWritesNothing(t *testing.T) {
	gateway := &fakeGateway{err: errors.New("partner offline")}
	logs := &fakeRemoteLogs{}
	orders := newTestRemoteOrders(t, gateway, logs)

	_, err := orders.Submit(context.Background(), deliveryRequest())
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepCreateDeliveryOrder, stepErr.Step)
	assert.Empty(t, logs.logs)
}

func TestRemoteOrderAuditFailureIsNotFatal(t *testing.T) {
	orders := newTestRemoteOrders(t, &fakeGateway{}, &fakeRemoteLogs{err: errors.New("mongo down")})

	result, err := orders.Submit(context.Background(), deliveryRequest())
	require.NoError(t, err)
	assert.Equal(t, "ext-order-1", result.ExternalOrderID)
}

func TestRemoteOrderLocationLookup(t *testing.T) {
	gateway := &fakeGateway{}
	orders := newTestRemoteOrders(t, gateway, &fakeRemoteLogs{})

	req := deliveryRequest()
	req.LocationID = "nowhere"
	_, err := orders.Submit(context.Background(), req)
	assert.ErrorIs(t, err, ErrLocationNotFound)

	req.LocationID = "closed"
	_, err = orders.Submit(context.Background(), req)
	assert.ErrorIs(t, err, ErrLocationNotFound)
	assert.Empty(t, gateway.orders)
}

func TestRemoteOrderValidation(t *testing.T) {
	gateway := &fakeGateway{}
	orders := newTestRemoteOrders(t, gateway, &fakeRemoteLogs{})

	noLocation := deliveryRequest()
	noLocation.LocationID = ""
	noItems := deliveryRequest()
	noItems.Items = nil
	noName := deliveryRequest()
	noName.CustomerName = "  "

	for field, req := range map[string]RemoteOrderRequest{
		"locationId":   noLocation,
		"items":        noItems,
		"customerName": noName,
	} {
		_, err := orders.Submit(context.Background(), req)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, field)
		assert.Equal(t, field, vErr.Field)
	}
	assert.Empty(t, gateway.orders)
}
