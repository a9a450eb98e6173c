package dut

import (
	"context"
	"sort"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/newtron-network/netcam-meraki/pkg/dashboard"
)

// Cache memoizes dashboard payloads for one session. The key is the only
// discriminant: a second Get with the same key returns the stored payload
// even if op or params differ. Concurrent Gets for one key share a single
// remote call. Failed calls are not stored.
type Cache struct {
	api     dashboard.Invoker
	metrics *dashboard.Metrics

	mu      sync.Mutex
	entries map[string]gjson.Result
	flight  singleflight.Group
}

// NewCache creates an empty cache over api. metrics may be nil.
func NewCache(api dashboard.Invoker, metrics *dashboard.Metrics) *Cache {
	return &Cache{
		api:     api,
		metrics: metrics,
		entries: make(map[string]gjson.Result),
	}
}

func (c *Cache) lookup(key string) (gjson.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Get returns the payload stored under key, invoking op with params on the
// first request. The shared call is not bound to the cancellation of the
// caller that started it: a cancelled caller returns ctx.Err() while other
// waiters still receive the payload.
func (c *Cache) Get(ctx context.Context, key, op string, params dashboard.Params) (gjson.Result, error) {
	if v, ok := c.lookup(key); ok {
		c.metrics.ObserveCache("hit")
		return v, nil
	}

	ch := c.flight.DoChan(key, func() (any, error) {
		// A flight for key may have completed between lookup and DoChan.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		res, err := c.api.Invoke(context.WithoutCancel(ctx), op, params)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = res
		c.mu.Unlock()
		return res, nil
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		return gjson.Result{}, ctx.Err()
	case r = <-ch:
	}
	if r.Err != nil {
		return gjson.Result{}, r.Err
	}

	if r.Shared {
		c.metrics.ObserveCache("shared")
	} else {
		c.metrics.ObserveCache("miss")
	}
	return r.Val.(gjson.Result), nil
}

// Len returns the number of stored payloads.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the stored keys, sorted.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
