package screen

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultIdleTimeout = 12 * time.Hour
	maxCodeAttempts    = 16
)

var ErrSessionNotFound = errors.New("screen: session not found")

// RegistryDeps wires a Registry.
type RegistryDeps struct {
	// NewTerminal builds the terminal for a freshly issued code.
	NewTerminal func(code string) (*Terminal, error)
	IdleTimeout time.Duration
	Clock       func() time.Time
	Logger      *zap.Logger
	NewCode     func() (string, error)
}

type session struct {
	terminal *Terminal
	lastSeen time.Time
}

// Registry maps pairing codes to cashier terminals.
type Registry struct {
	newTerminal func(code string) (*Terminal, error)
	newCode     func() (string, error)
	idle        time.Duration
	now         func() time.Time
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewRegistry(deps RegistryDeps) (*Registry, error) {
	if deps.NewTerminal == nil {
		return nil, errors.New("registry: terminal factory is required")
	}
	idle := deps.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	newCode := deps.NewCode
	if newCode == nil {
		newCode = NewPairingCode
	}
	return &Registry{
		newTerminal: deps.NewTerminal,
		newCode:     newCode,
		idle:        idle,
		now:         clock,
		logger:      logger,
		sessions:    make(map[string]*session),
	}, nil
}

// Create opens a new cashier session under an unused code.
func (r *Registry) Create() (*Terminal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := r.newCode()
		if err != nil {
			return nil, err
		}
		if _, taken := r.sessions[code]; taken {
			continue
		}
		terminal, err := r.newTerminal(code)
		if err != nil {
			return nil, err
		}
		r.sessions[code] = &session{terminal: terminal, lastSeen: r.now()}
		r.logger.Info("terminal session opened", zap.String("code", code))
		return terminal, nil
	}
	return nil, errors.New("registry: could not allocate a free pairing code")
}

// Get resolves a code typed by a display or cashier and marks the session
// as active.
func (r *Registry) Get(code string) (*Terminal, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[normalized]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = r.now()
	return s.terminal, nil
}

// Remove closes one session.
func (r *Registry) Remove(code string) bool {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return false
	}
	r.mu.Lock()
	s, ok := r.sessions[normalized]
	delete(r.sessions, normalized)
	r.mu.Unlock()
	if ok {
		s.terminal.Close()
	}
	return ok
}

// Reap closes sessions idle for longer than the idle timeout and returns how
// many were removed.
func (r *Registry) Reap() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*session
	for code, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, code)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.terminal.Close()
		r.logger.Info("terminal session reaped", zap.String("code", s.terminal.Code()))
	}
	return len(stale)
}

// Run reaps on every tick until ctx ends, then closes all sessions.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return nil
		case <-ticker.C:
			r.Reap()
		}
	}
}

// Len reports the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.terminal.Close()
	}
}
