package sales

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"backoffice/internal/fudo"
)

type paymentMethodLister interface {
	ListPaymentMethods(ctx context.Context) ([]fudo.PaymentMethod, error)
}

type cashRegisterLister interface {
	ListCashRegisters(ctx context.Context) ([]fudo.CashRegister, error)
}

// paymentMethods maps local method names to ledger payment method ids. The map
// is loaded once per process; a failed load is retried on the next call.
type paymentMethods struct {
	excludeTag string

	mu     sync.Mutex
	loaded bool
	byKey  map[string]string
}

func newPaymentMethods(excludeTag string) *paymentMethods {
	return &paymentMethods{excludeTag: strings.ToLower(strings.TrimSpace(excludeTag))}
}

func (p *paymentMethods) resolve(ctx context.Context, ledger paymentMethodLister, method string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.load(ctx, ledger); err != nil {
		return "", err
	}
	id, ok := p.byKey[normalizeKey(method)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, method)
	}
	return id, nil
}

// snapshot returns a copy of the loaded map keyed by normalized code or name.
func (p *paymentMethods) snapshot(ctx context.Context, ledger paymentMethodLister) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.load(ctx, ledger); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(p.byKey))
	for k, v := range p.byKey {
		out[k] = v
	}
	return out, nil
}

// load requires p.mu.
func (p *paymentMethods) load(ctx context.Context, ledger paymentMethodLister) error {
	if p.loaded {
		return nil
	}
	methods, err := ledger.ListPaymentMethods(ctx)
	if err != nil {
		return fmt.Errorf("list payment methods: %w", err)
	}
	p.byKey = buildPaymentMethodMap(methods, p.excludeTag)
	p.loaded = true
	return nil
}

func buildPaymentMethodMap(methods []fudo.PaymentMethod, excludeTag string) map[string]string {
	out := make(map[string]string, len(methods)*2)
	for _, m := range methods {
		if !m.Active || m.ID == "" {
			continue
		}
		if excludeTag != "" && strings.Contains(strings.ToLower(m.Name), excludeTag) {
			continue
		}
		// Codes win over names when both collide.
		if key := normalizeKey(m.Name); key != "" {
			if _, taken := out[key]; !taken {
				out[key] = m.ID
			}
		}
		if key := normalizeKey(m.Code); key != "" {
			out[key] = m.ID
		}
	}
	return out
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// cashRegister resolves the register eat-in sales are attached to: the
// configured id, else the first active register on the ledger.
type cashRegister struct {
	configured string

	mu       sync.Mutex
	resolved string
}

func (c *cashRegister) resolve(ctx context.Context, ledger cashRegisterLister) (string, error) {
	if c.configured != "" {
		return c.configured, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved != "" {
		return c.resolved, nil
	}

	registers, err := ledger.ListCashRegisters(ctx)
	if err != nil {
		return "", fmt.Errorf("list cash registers: %w", err)
	}
	for _, r := range registers {
		if r.Active && r.ID != "" {
			c.resolved = r.ID
			return r.ID, nil
		}
	}
	return "", ErrNoCashRegister
}
