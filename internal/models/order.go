package models

// SaleType is passed through to the external POS as an opaque tag.
type SaleType string

const (
	SaleTypeEatIn    SaleType = "eat_in"
	SaleTypeTakeaway SaleType = "takeaway"
)

// Valid reports whether the sale type is one the POS understands.
func (t SaleType) Valid() bool {
	return t == SaleTypeEatIn || t == SaleTypeTakeaway
}

// OrderStatus tracks a cashier ticket from building to submission.
type OrderStatus string

const (
	OrderStatusBuilding  OrderStatus = "building"
	OrderStatusPaying    OrderStatus = "paying"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusError     OrderStatus = "error"
)

// OrderModifier is one topping applied to an order item. The topping is itself a
// sellable product and is reported to the ledger as a sub-item.
type OrderModifier struct {
	ModifierID       string  `bson:"modifierId" json:"modifierId"`
	GroupID          string  `bson:"groupId" json:"groupId"`
	ToppingProductID string  `bson:"toppingProductId" json:"toppingProductId"`
	Name             string  `bson:"name" json:"name"`
	Price            float64 `bson:"price" json:"price"`
	Quantity         int     `bson:"quantity" json:"quantity"`
}

// OrderItem is one product line on the cashier ticket. ID is a local token that
// never leaves the current order.
type OrderItem struct {
	ID                string          `bson:"id" json:"id"`
	ProductID         string          `bson:"productId" json:"productId"`
	ExternalProductID string          `bson:"externalProductId" json:"externalProductId"`
	Name              string          `bson:"name" json:"name"`
	UnitPrice         float64         `bson:"unitPrice" json:"unitPrice"`
	Quantity          int             `bson:"quantity" json:"quantity"`
	Modifiers         []OrderModifier `bson:"modifiers" json:"modifiers"`
}

// LineTotal is (unit price + modifiers) * quantity.
func (i OrderItem) LineTotal() float64 {
	unit := i.UnitPrice
	for _, m := range i.Modifiers {
		unit += m.Price * float64(m.Quantity)
	}
	return unit * float64(i.Quantity)
}

// Order is the cashier's in-progress or finalized ticket.
type Order struct {
	Items         []OrderItem `json:"items"`
	SaleType      SaleType    `json:"saleType"`
	People        int         `json:"people,omitempty"`
	Status        OrderStatus `json:"status"`
	Total         float64     `json:"total"`
	PaymentMethod string      `json:"paymentMethod,omitempty"`
}

// OrderTotal sums line totals. It is the only way a total is produced.
func OrderTotal(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

// CloneItems deep-copies items so snapshots never alias engine state.
func CloneItems(items []OrderItem) []OrderItem {
	if items == nil {
		return nil
	}
	out := make([]OrderItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.Modifiers != nil {
			out[i].Modifiers = make([]OrderModifier, len(item.Modifiers))
			copy(out[i].Modifiers, item.Modifiers)
		}
	}
	return out
}
