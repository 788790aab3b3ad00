package screen

import (
	"context"
	"sync"
	"time"

	"backoffice/internal/models"
)

// DisplayState is the customer display's screen.
type DisplayState string

const (
	StateConnecting DisplayState = "connecting"
	StateWaiting    DisplayState = "waiting"
	StateToppings   DisplayState = "toppings"
	StateThanks     DisplayState = "thanks"
)

const DefaultThanksDelay = 3 * time.Second

// ToppingsView is the selection rendered while in StateToppings.
type ToppingsView struct {
	ItemID      string                 `json:"itemId"`
	ProductName string                 `json:"productName"`
	Groups      []models.ModifierGroup `json:"groups"`
	Selected    map[string]int         `json:"selected"`
}

// DisplayView is what the customer sees.
type DisplayView struct {
	State     DisplayState       `json:"state"`
	Code      string             `json:"code,omitempty"`
	Connected bool               `json:"connected"`
	Items     []models.OrderItem `json:"items"`
	Total     float64            `json:"total"`
	Toppings  *ToppingsView      `json:"toppings,omitempty"`
}

// DisplayDeps wires a Display.
type DisplayDeps struct {
	// Networked displays start in StateConnecting until Pair is called.
	Networked bool
	// Send relays display-side toggles to the cashier.
	Send        func(Message)
	ThanksDelay time.Duration
	// AfterFunc schedules the thanks timeout. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func())
	// OnChange observes every view change.
	OnChange func(DisplayView)
}

// Display is the receiver state machine. It is safe for concurrent use.
type Display struct {
	send        func(Message)
	thanksDelay time.Duration
	afterFunc   func(time.Duration, func())
	onChange    func(DisplayView)

	mu          sync.Mutex
	view        DisplayView
	thanksEpoch int
}

func NewDisplay(deps DisplayDeps) *Display {
	d := &Display{
		send:        deps.Send,
		thanksDelay: deps.ThanksDelay,
		afterFunc:   deps.AfterFunc,
		onChange:    deps.OnChange,
	}
	if d.send == nil {
		d.send = func(Message) {}
	}
	if d.thanksDelay <= 0 {
		d.thanksDelay = DefaultThanksDelay
	}
	if d.afterFunc == nil {
		d.afterFunc = func(delay time.Duration, f func()) { time.AfterFunc(delay, f) }
	}
	d.view.State = StateWaiting
	d.view.Connected = true
	if deps.Networked {
		d.view.State = StateConnecting
		d.view.Connected = false
	}
	return d
}

// Pair supplies the session code of a networked display. The display waits
// for its first message before it reports Connected.
func (d *Display) Pair(code string) error {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return err
	}
	d.update(func(v *DisplayView) {
		v.Code = normalized
		if v.State == StateConnecting {
			v.State = StateWaiting
		}
	})
	return nil
}

// View returns a copy of the current view.
func (d *Display) View() DisplayView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneView(d.view)
}

// Handle applies one cashier message.
func (d *Display) Handle(msg Message) {
	thanksEpoch := 0
	d.update(func(v *DisplayView) {
		if v.State == StateConnecting {
			return
		}
		v.Connected = true

		switch msg.Type {
		case TypeOrderUpdated:
			v.Items = models.CloneItems(msg.Items)
			v.Total = msg.Total
		case TypeShowToppings:
			v.State = StateToppings
			v.Toppings = &ToppingsView{
				ItemID:      msg.ItemID,
				ProductName: msg.ProductName,
				Groups:      msg.Groups,
				Selected:    copySelected(msg.Selected),
			}
		case TypeToppingToggled:
			if v.State == StateToppings && v.Toppings != nil {
				applyToggle(v.Toppings.Selected, msg.OptionID, msg.Active)
			}
		case TypeToppingsConfirmed:
			v.State = StateWaiting
			v.Toppings = nil
		case TypeClear:
			v.State = StateThanks
			v.Toppings = nil
			v.Items = nil
			v.Total = 0
			d.thanksEpoch++
			thanksEpoch = d.thanksEpoch
		}
	})
	if thanksEpoch > 0 {
		d.afterFunc(d.thanksDelay, func() { d.thanksElapsed(thanksEpoch) })
	}
}

// Toggle applies a customer tap optimistically and relays it to the cashier,
// whose next broadcast is authoritative.
func (d *Display) Toggle(optionID string, active bool) {
	relay := false
	d.update(func(v *DisplayView) {
		if v.State != StateToppings || v.Toppings == nil {
			return
		}
		applyToggle(v.Toppings.Selected, optionID, active)
		relay = true
	})
	if relay {
		d.send(ToppingToggled(OriginDisplay, optionID, active))
	}
}

// Run feeds messages from ch until it closes or ctx ends.
func (d *Display) Run(ctx context.Context, ch <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Origin == OriginDisplay {
				continue
			}
			d.Handle(msg)
		}
	}
}

func (d *Display) thanksElapsed(epoch int) {
	d.update(func(v *DisplayView) {
		if v.State == StateThanks && d.thanksEpoch == epoch {
			v.State = StateWaiting
		}
	})
}

// update mutates the view under the lock and notifies OnChange outside it.
func (d *Display) update(fn func(v *DisplayView)) {
	d.mu.Lock()
	fn(&d.view)
	snapshot := cloneView(d.view)
	d.mu.Unlock()

	if d.onChange != nil {
		d.onChange(snapshot)
	}
}

func applyToggle(selected map[string]int, optionID string, active bool) {
	if active {
		selected[optionID] = 1
		return
	}
	delete(selected, optionID)
}

func copySelected(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

func cloneView(v DisplayView) DisplayView {
	out := v
	out.Items = models.CloneItems(v.Items)
	if v.Toppings != nil {
		t := *v.Toppings
		t.Selected = copySelected(v.Toppings.Selected)
		out.Toppings = &t
	}
	return out
}
