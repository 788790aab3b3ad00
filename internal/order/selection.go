package order

import "backoffice/internal/models"

// Selection is the modal topping choice for one just-added item.
type Selection struct {
	ItemID            string                 `json:"itemId"`
	ProductID         string                 `json:"productId"`
	ProductName       string                 `json:"productName"`
	ExternalProductID string                 `json:"externalProductId"`
	Groups            []models.ModifierGroup `json:"groups"`
	Selected          map[string]int         `json:"selected"`
}

func (s *Selection) clone() *Selection {
	if s == nil {
		return nil
	}
	out := *s
	out.Groups = append([]models.ModifierGroup(nil), s.Groups...)
	out.Selected = make(map[string]int, len(s.Selected))
	for k, v := range s.Selected {
		out.Selected[k] = v
	}
	return &out
}

// groupOf finds the group holding optionID.
func (s *Selection) groupOf(optionID string) (models.ModifierGroup, bool) {
	for _, g := range s.Groups {
		for _, o := range g.Options {
			if o.ID == optionID {
				return g, true
			}
		}
	}
	return models.ModifierGroup{}, false
}

func (s *Selection) selectedIn(g models.ModifierGroup) int {
	n := 0
	for _, o := range g.Options {
		if s.Selected[o.ID] > 0 {
			n++
		}
	}
	return n
}

// StartToppingSelection opens the selection for itemID, replacing any open one.
// itemID must be the id returned by AddItem for the pending line.
func (e *Engine) StartToppingSelection(itemID string, ref ProductRef, groups []models.ModifierGroup) {
	e.selection = &Selection{
		ItemID:            itemID,
		ProductID:         ref.ProductID,
		ProductName:       ref.Name,
		ExternalProductID: ref.ExternalProductID,
		Groups:            append([]models.ModifierGroup(nil), groups...),
		Selected:          map[string]int{},
	}
}

// Selection returns a copy of the open selection, or nil.
func (e *Engine) Selection() *Selection {
	return e.selection.clone()
}

// ToggleTopping activates or deactivates an option. Activating an option whose
// group is already at MaxQuantity leaves the selection unchanged and returns
// false. Deactivating always succeeds.
func (e *Engine) ToggleTopping(optionID string, active bool) bool {
	s := e.selection
	if s == nil {
		return false
	}
	if !active {
		delete(s.Selected, optionID)
		return true
	}
	if s.Selected[optionID] > 0 {
		return true
	}
	group, ok := s.groupOf(optionID)
	if !ok {
		return false
	}
	if group.MaxQuantity > 0 && s.selectedIn(group) >= group.MaxQuantity {
		return false
	}
	s.Selected[optionID] = 1
	return true
}

// ConfirmToppings attaches one modifier per selected option to the pending item
// and closes the selection. Modifiers follow group and option order.
func (e *Engine) ConfirmToppings() bool {
	s := e.selection
	if s == nil {
		return false
	}
	e.selection = nil

	modifiers := []models.OrderModifier{}
	for _, g := range s.Groups {
		for _, o := range g.Options {
			qty := s.Selected[o.ID]
			if qty <= 0 {
				continue
			}
			modifiers = append(modifiers, models.OrderModifier{
				ModifierID:       o.ID,
				GroupID:          g.ID,
				ToppingProductID: o.ToppingProductID,
				Name:             o.Name,
				Price:            o.Price,
				Quantity:         qty,
			})
		}
	}

	if idx := e.indexOf(s.ItemID); idx >= 0 {
		e.items[idx].Modifiers = modifiers
	}
	e.recompute()
	return true
}

// CancelToppings removes the pending item and closes the selection.
func (e *Engine) CancelToppings() bool {
	s := e.selection
	if s == nil {
		return false
	}
	e.selection = nil
	if idx := e.indexOf(s.ItemID); idx >= 0 {
		e.items = append(e.items[:idx], e.items[idx+1:]...)
	}
	e.recompute()
	return true
}
