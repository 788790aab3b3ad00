package fudo

import (
	"sync"
	"time"
)

// Credentials identify one account on the external POS.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Identity is the cache key for tokens issued to these credentials.
func (c Credentials) Identity() string {
	return c.APIKey
}

// Token is a bearer token with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenCache stores bearer tokens per credential identity.
type TokenCache interface {
	Get(identity string) (Token, bool)
	Set(identity string, token Token)
	Invalidate(identity string)
}

// MemoryTokenCache keeps tokens in process memory. Tokens within Skew of
// expiry are treated as missing.
type MemoryTokenCache struct {
	mu     sync.Mutex
	tokens map[string]Token
	now    func() time.Time
	skew   time.Duration
}

const defaultTokenSkew = 30 * time.Second

// NewMemoryTokenCache returns an empty cache. A nil clock uses time.Now.
func NewMemoryTokenCache(clock func() time.Time) *MemoryTokenCache {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryTokenCache{
		tokens: make(map[string]Token),
		now:    clock,
		skew:   defaultTokenSkew,
	}
}

// Get implements TokenCache.
func (c *MemoryTokenCache) Get(identity string) (Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, ok := c.tokens[identity]
	if !ok {
		return Token{}, false
	}
	if !token.ExpiresAt.IsZero() && !c.now().Add(c.skew).Before(token.ExpiresAt) {
		delete(c.tokens, identity)
		return Token{}, false
	}
	return token, true
}

// Set implements TokenCache.
func (c *MemoryTokenCache) Set(identity string, token Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[identity] = token
}

// Invalidate implements TokenCache.
func (c *MemoryTokenCache) Invalidate(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, identity)
}
