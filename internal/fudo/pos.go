package fudo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Sale types understood by the ledger.
const (
	SaleTypeEatIn    = "EAT-IN"
	SaleTypeTakeaway = "TAKEAWAY"
)

// SaleOptions configures a newly opened sale.
type SaleOptions struct {
	SaleType       string
	People         int
	CashRegisterID string
}

// PaymentMethod is one payment method configured on the ledger.
type PaymentMethod struct {
	ID     string
	Code   string
	Name   string
	Active bool
}

// CashRegister is one cash register configured on the ledger.
type CashRegister struct {
	ID     string
	Name   string
	Active bool
}

// OpenSale creates a sale and returns its external id.
func (c *Client) OpenSale(ctx context.Context, opts SaleOptions) (string, error) {
	attrs := map[string]any{"saleType": opts.SaleType}
	if opts.People > 0 {
		attrs["people"] = opts.People
	}
	doc := document{Data: resource{Type: "Sale", Attributes: attrs}}
	if opts.CashRegisterID != "" {
		doc.Data.Relationships = map[string]relationship{
			"cashRegister": rel("CashRegister", opts.CashRegisterID),
		}
	}
	return c.create(ctx, "/sales", doc)
}

// AddLineItem adds quantity units of an external product to a sale and
// returns the line item id.
func (c *Client) AddLineItem(ctx context.Context, saleID, productID string, quantity int) (string, error) {
	doc := document{Data: resource{
		Type:       "Item",
		Attributes: map[string]any{"quantity": quantity},
		Relationships: map[string]relationship{
			"sale":    rel("Sale", saleID),
			"product": rel("Product", productID),
		},
	}}
	return c.create(ctx, "/items", doc)
}

// AddSubItem attaches a topping to a line item.
func (c *Client) AddSubItem(ctx context.Context, itemID, toppingProductID, groupID string, quantity int) error {
	doc := document{Data: resource{
		Type:       "Subitem",
		Attributes: map[string]any{"quantity": quantity},
		Relationships: map[string]relationship{
			"item":                  rel("Item", itemID),
			"product":               rel("Product", toppingProductID),
			"productModifiersGroup": rel("ProductModifiersGroup", groupID),
		},
	}}
	_, err := c.create(ctx, "/subitems", doc)
	return err
}

// AddPayment records a payment against a sale.
func (c *Client) AddPayment(ctx context.Context, saleID, paymentMethodID string, amount float64) error {
	doc := document{Data: resource{
		Type:       "Payment",
		Attributes: map[string]any{"amount": amount},
		Relationships: map[string]relationship{
			"sale":          rel("Sale", saleID),
			"paymentMethod": rel("PaymentMethod", paymentMethodID),
		},
	}}
	_, err := c.create(ctx, "/payments", doc)
	return err
}

// CloseSale finalizes a sale.
func (c *Client) CloseSale(ctx context.Context, saleID string) error {
	doc := document{Data: resource{
		Type:       "Sale",
		ID:         saleID,
		Attributes: map[string]any{"saleState": "CLOSED"},
	}}
	return c.do(ctx, "PATCH", "/sales/"+url.PathEscape(saleID), doc, nil)
}

type listDocument struct {
	Data []struct {
		ID         string         `json:"id"`
		Attributes map[string]any `json:"attributes"`
	} `json:"data"`
}

// ListPaymentMethods returns every payment method on the account.
func (c *Client) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	var out listDocument
	if err := c.do(ctx, "GET", "/payment-methods", nil, &out); err != nil {
		return nil, err
	}
	methods := make([]PaymentMethod, 0, len(out.Data))
	for _, entry := range out.Data {
		methods = append(methods, PaymentMethod{
			ID:     entry.ID,
			Code:   stringAttr(entry.Attributes, "code"),
			Name:   stringAttr(entry.Attributes, "name"),
			Active: boolAttr(entry.Attributes, "active", true),
		})
	}
	return methods, nil
}

// ListCashRegisters returns every cash register on the account.
func (c *Client) ListCashRegisters(ctx context.Context) ([]CashRegister, error) {
	var out listDocument
	if err := c.do(ctx, "GET", "/cash-registers", nil, &out); err != nil {
		return nil, err
	}
	registers := make([]CashRegister, 0, len(out.Data))
	for _, entry := range out.Data {
		registers = append(registers, CashRegister{
			ID:     entry.ID,
			Name:   stringAttr(entry.Attributes, "name"),
			Active: boolAttr(entry.Attributes, "active", true),
		})
	}
	return registers, nil
}

func (c *Client) create(ctx context.Context, path string, doc document) (string, error) {
	var out createdDocument
	if err := c.do(ctx, "POST", path, doc, &out); err != nil {
		return "", err
	}
	id := strings.TrimSpace(out.Data.ID)
	if id == "" {
		return "", fmt.Errorf("fudo: POST %s: %w", path, errMissingID)
	}
	return id, nil
}

var errMissingID = errors.New("response without resource id")

func stringAttr(attrs map[string]any, key string) string {
	if v, ok := attrs[key].(string); ok {
		return v
	}
	return ""
}

func boolAttr(attrs map[string]any, key string, fallback bool) bool {
	if v, ok := attrs[key].(bool); ok {
		return v
	}
	return fallback
}
