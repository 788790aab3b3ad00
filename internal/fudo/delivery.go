package fudo

import (
	"context"
	"fmt"
	"strings"
)

// DeliverySubitem is a topping on a delivery line.
type DeliverySubitem struct {
	ProductID string  `json:"productId"`
	GroupID   string  `json:"productModifiersGroupId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// DeliveryItem is one line of a delivery order.
type DeliveryItem struct {
	ProductID string            `json:"productId"`
	Quantity  int               `json:"quantity"`
	Price     float64           `json:"price"`
	Comment   string            `json:"comment,omitempty"`
	Subitems  []DeliverySubitem `json:"subitems,omitempty"`
}

// DeliveryCustomer identifies the recipient of a delivery.
type DeliveryCustomer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// DeliveryOrder is the payload accepted by the delivery integration.
type DeliveryOrder struct {
	ExternalTraceID string           `json:"externalTraceId"`
	Customer        DeliveryCustomer `json:"customer"`
	Items           []DeliveryItem   `json:"items"`
	ShippingCost    float64          `json:"shippingCost"`
	TotalAmount     float64          `json:"total"`
	Comment         string           `json:"comment,omitempty"`
}

type deliveryResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	ID string `json:"id"`
}

// CreateDeliveryOrder submits an order on behalf of the location owning
// creds and returns the external order id.
func (c *Client) CreateDeliveryOrder(ctx context.Context, creds Credentials, order DeliveryOrder) (string, error) {
	client := c.WithCredentials(creds)

	var out deliveryResponse
	if err := client.do(ctx, "POST", "/delivery/orders", order, &out); err != nil {
		return "", err
	}
	id := strings.TrimSpace(out.Data.ID)
	if id == "" {
		id = strings.TrimSpace(out.ID)
	}
	if id == "" {
		return "", fmt.Errorf("fudo: POST /delivery/orders: %w", errMissingID)
	}
	return id, nil
}
