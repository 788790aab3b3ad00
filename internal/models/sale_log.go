package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SaleLog is the local audit record of a sale closed on the external ledger.
type SaleLog struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ExternalSaleID string             `bson:"externalSaleId" json:"externalSaleId"`
	TraceID        string             `bson:"traceId" json:"traceId"`
	SaleType       SaleType           `bson:"saleType" json:"saleType"`
	Items          []OrderItem        `bson:"items" json:"items"`
	Total          float64            `bson:"total" json:"total"`
	PaymentMethod  string             `bson:"paymentMethod" json:"paymentMethod"`
	Cashier        string             `bson:"cashier" json:"cashier"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

// RemoteOrderLog is the local audit record of a delivery order accepted by a partner location.
type RemoteOrderLog struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ExternalOrderID string             `bson:"externalOrderId" json:"externalOrderId"`
	TraceID         string             `bson:"traceId" json:"traceId"`
	LocationID      primitive.ObjectID `bson:"locationId" json:"locationId"`
	LocationName    string             `bson:"locationName" json:"locationName"`
	CustomerName    string             `bson:"customerName" json:"customerName"`
	CustomerPhone   string             `bson:"customerPhone,omitempty" json:"customerPhone,omitempty"`
	DeliveryAddress string             `bson:"deliveryAddress,omitempty" json:"deliveryAddress,omitempty"`
	Comment         string             `bson:"comment,omitempty" json:"comment,omitempty"`
	Items           []OrderItem        `bson:"items" json:"items"`
	Subtotal        float64            `bson:"subtotal" json:"subtotal"`
	DeliveryFee     float64            `bson:"deliveryFee" json:"deliveryFee"`
	Total           float64            `bson:"total" json:"total"`
	Cashier         string             `bson:"cashier" json:"cashier"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
