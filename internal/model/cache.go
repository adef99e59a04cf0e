package model

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// DefaultCacheSize is the number of opened gateways kept alive.
const DefaultCacheSize = 2

// Opener builds a gateway for settings.
type Opener func(settings Settings, logger *zap.Logger) (Gateway, error)

type cacheKey struct {
	backend string
	modelID string
	baseURL string
	cliBin  string
}

func keyFor(s Settings) cacheKey {
	return cacheKey{backend: s.Backend, modelID: s.ModelID, baseURL: s.BaseURL, cliBin: s.CLIBin}
}

type cacheEntry struct {
	key     cacheKey
	gateway Gateway
}

// Cache is a Gateway that opens the backend named by each call's Settings
// on first use and keeps the most recently used ones. It is safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	size    int
	entries []cacheEntry // least recently used first
	open    Opener
	logger  *zap.Logger
}

// NewCache creates a cache holding up to size gateways opened by open.
// A nil open uses Open.
func NewCache(size int, open Opener, logger *zap.Logger) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if open == nil {
		open = Open
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{size: size, open: open, logger: logger}
}

// Get returns the gateway for settings, opening it when not cached.
func (c *Cache) Get(settings Settings) (Gateway, error) {
	key := keyFor(settings)

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.entries {
		if e.key == key {
			c.entries = append(append(c.entries[:i:i], c.entries[i+1:]...), e)
			return e.gateway, nil
		}
	}

	c.logger.Info("loading model backend",
		zap.String("backend", settings.Backend),
		zap.String("model", settings.ModelID),
	)
	gw, err := c.open(settings, c.logger)
	if err != nil {
		return nil, err
	}
	if len(c.entries) >= c.size {
		c.entries = c.entries[1:]
	}
	c.entries = append(c.entries, cacheEntry{key: key, gateway: gw})
	return gw, nil
}

// Len reports how many gateways are cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Generate resolves the gateway for settings and delegates to it.
func (c *Cache) Generate(ctx context.Context, messages []Message, settings Settings) (string, error) {
	gw, err := c.Get(settings)
	if err != nil {
		return "", err
	}
	return gw.Generate(ctx, messages, settings)
}
