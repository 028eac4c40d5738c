package validation

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/goliatone/go-formschema/pkg/schema"
)

type matcher struct {
	doc    *schema.Document
	schema *jsonschema.Schema
}

// matcherCache memoizes compiled matchers by form fingerprint. Entries are
// immutable once stored; concurrent first inserts both build equivalent
// matchers and the last one wins.
type matcherCache struct {
	mu      sync.RWMutex
	entries map[string]*matcher
}

func newMatcherCache() *matcherCache {
	return &matcherCache{entries: map[string]*matcher{}}
}

func (c *matcherCache) get(key string) (*matcher, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.entries[key]
	return m, ok
}

func (c *matcherCache) put(key string, m *matcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = m
}

func (c *matcherCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*matcher{}
}

func (c *matcherCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// roundTrip re-decodes a Go value through JSON so the engine only sees
// maps, slices, strings, bools, nil and json.Number.
func roundTrip(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}
