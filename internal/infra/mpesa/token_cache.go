package mpesa

import (
	"context"
	"sync"
	"time"
)

// TokenCache holds the short-lived OAuth bearer token between calls.
type TokenCache interface {
	Get(ctx context.Context) (string, bool)
	Set(ctx context.Context, token string, expiresAt time.Time)
	Invalidate(ctx context.Context)
}

// MemoryTokenCache keeps the token in process memory.
type MemoryTokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func NewMemoryTokenCache(now func() time.Time) *MemoryTokenCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryTokenCache{now: now}
}

func (c *MemoryTokenCache) Get(_ context.Context) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !c.now().Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

func (c *MemoryTokenCache) Set(_ context.Context, token string, expiresAt time.Time) {
	c.mu.Lock()
	c.token = token
	c.expiresAt = expiresAt
	c.mu.Unlock()
}

func (c *MemoryTokenCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}
