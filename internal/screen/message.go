// Package screen connects a cashier terminal to customer displays. Messages
// are full-state snapshots broadcast without acknowledgement; a display that
// misses one is corrected by the next.
package screen

import (
	"encoding/json"
	"errors"
	"fmt"

	"backoffice/internal/models"
	"backoffice/internal/order"
)

// MessageType discriminates the wire union.
type MessageType string

const (
	TypeShowToppings      MessageType = "show_toppings"
	TypeToppingToggled    MessageType = "topping_toggled"
	TypeToppingsConfirmed MessageType = "toppings_confirmed"
	TypeOrderUpdated      MessageType = "order_updated"
	TypeClear             MessageType = "clear"
)

// Origin tags which side published a message. It never goes on the wire.
type Origin string

const (
	OriginCashier Origin = "cashier"
	OriginDisplay Origin = "display"
)

var ErrUnknownMessage = errors.New("screen: unknown message type")

// Message is one event on the channel. Only the fields of its Type are
// meaningful.
type Message struct {
	Type   MessageType
	Origin Origin

	// show_toppings
	ItemID            string
	ProductID         string
	ProductName       string
	ExternalProductID string
	Groups            []models.ModifierGroup
	Selected          map[string]int

	// topping_toggled
	OptionID string
	Active   bool

	// order_updated
	Items []models.OrderItem
	Total float64
}

func ShowToppings(sel *order.Selection) Message {
	return Message{
		Type:              TypeShowToppings,
		Origin:            OriginCashier,
		ItemID:            sel.ItemID,
		ProductID:         sel.ProductID,
		ProductName:       sel.ProductName,
		ExternalProductID: sel.ExternalProductID,
		Groups:            sel.Groups,
		Selected:          sel.Selected,
	}
}

func ToppingToggled(origin Origin, optionID string, active bool) Message {
	return Message{Type: TypeToppingToggled, Origin: origin, OptionID: optionID, Active: active}
}

func ToppingsConfirmed() Message {
	return Message{Type: TypeToppingsConfirmed, Origin: OriginCashier}
}

func OrderUpdated(items []models.OrderItem, total float64) Message {
	return Message{Type: TypeOrderUpdated, Origin: OriginCashier, Items: items, Total: total}
}

func Clear() Message {
	return Message{Type: TypeClear, Origin: OriginCashier}
}

type showToppingsWire struct {
	Type              MessageType            `json:"type"`
	ItemID            string                 `json:"itemId"`
	ProductID         string                 `json:"productId"`
	ProductName       string                 `json:"productName"`
	ExternalProductID string                 `json:"externalProductId"`
	Groups            []models.ModifierGroup `json:"groups"`
	Selected          map[string]int         `json:"selected"`
}

type toppingToggledWire struct {
	Type     MessageType `json:"type"`
	OptionID string      `json:"optionId"`
	Active   bool        `json:"active"`
}

type orderUpdatedWire struct {
	Type  MessageType        `json:"type"`
	Items []models.OrderItem `json:"items"`
	Total float64            `json:"total"`
}

type bareWire struct {
	Type MessageType `json:"type"`
}

// MarshalJSON writes only the attributes of the message's variant.
func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case TypeShowToppings:
		selected := m.Selected
		if selected == nil {
			selected = map[string]int{}
		}
		groups := m.Groups
		if groups == nil {
			groups = []models.ModifierGroup{}
		}
		return json.Marshal(showToppingsWire{
			Type:              m.Type,
			ItemID:            m.ItemID,
			ProductID:         m.ProductID,
			ProductName:       m.ProductName,
			ExternalProductID: m.ExternalProductID,
			Groups:            groups,
			Selected:          selected,
		})
	case TypeToppingToggled:
		return json.Marshal(toppingToggledWire{Type: m.Type, OptionID: m.OptionID, Active: m.Active})
	case TypeOrderUpdated:
		items := m.Items
		if items == nil {
			items = []models.OrderItem{}
		}
		return json.Marshal(orderUpdatedWire{Type: m.Type, Items: items, Total: m.Total})
	case TypeToppingsConfirmed, TypeClear:
		return json.Marshal(bareWire{Type: m.Type})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
}

// UnmarshalJSON rejects unknown discriminators.
func (m *Message) UnmarshalJSON(data []byte) error {
	var head bareWire
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	switch head.Type {
	case TypeShowToppings:
		var w showToppingsWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*m = Message{
			Type:              w.Type,
			ItemID:            w.ItemID,
			ProductID:         w.ProductID,
			ProductName:       w.ProductName,
			ExternalProductID: w.ExternalProductID,
			Groups:            w.Groups,
			Selected:          w.Selected,
		}
	case TypeToppingToggled:
		var w toppingToggledWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*m = Message{Type: w.Type, OptionID: w.OptionID, Active: w.Active}
	case TypeOrderUpdated:
		var w orderUpdatedWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*m = Message{Type: w.Type, Items: w.Items, Total: w.Total}
	case TypeToppingsConfirmed, TypeClear:
		*m = Message{Type: head.Type}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, head.Type)
	}
	return nil
}
