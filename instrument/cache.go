package instrument

import (
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Record is a point-in-time export unit for one bound handle.
type Record struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Unit        string            `json:"unit,omitempty"`
	Kind        Kind              `json:"kind"`
	Labels      map[string]string `json:"labels"`
	Value       float64           `json:"value"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service,omitempty"`

	attrs attribute.Set
}

// Attributes returns the label set the record was taken from.
func (r Record) Attributes() attribute.Set {
	return r.attrs
}

// Cache maps (instrument, label set) pairs to bound handles.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Idempotency: GetOrCreate returns the same *Handle for equivalent label
//   sets of the same instrument name for the lifetime of the cache.
// - Ownership: entries are never evicted.
type Cache struct {
	mu      sync.RWMutex
	handles map[key]*Handle
	order   []*Handle // creation order, used by Snapshot
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		handles: make(map[key]*Handle),
	}
}

// GetOrCreate returns the handle for inst bound to labels, creating it on
// first use. The first definition registered under a name wins; later
// calls with a different descriptor for the same name get the existing
// handle.
func (c *Cache) GetOrCreate(inst Instrument, labels attribute.Set) *Handle {
	k := makeKey(inst.Name, labels)

	c.mu.RLock()
	h, ok := c.handles[k]
	c.mu.RUnlock()
	if ok {
		return h
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have created it between the two locks.
	if h, ok := c.handles[k]; ok {
		return h
	}
	h = newHandle(inst, labels)
	c.handles[k] = h
	c.order = append(c.order, h)
	return h
}

// Bind is GetOrCreate with the label set built from kvs.
func (c *Cache) Bind(inst Instrument, kvs ...attribute.KeyValue) *Handle {
	return c.GetOrCreate(inst, Labels(kvs...))
}

// Len returns the number of bound handles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Range calls fn for every handle in creation order until fn returns false.
func (c *Cache) Range(fn func(*Handle) bool) {
	c.mu.RLock()
	handles := make([]*Handle, len(c.order))
	copy(handles, c.order)
	c.mu.RUnlock()

	for _, h := range handles {
		if !fn(h) {
			return
		}
	}
}

// Snapshot reads every handle and returns one record each, in creation
// order, stamped with now.
func (c *Cache) Snapshot(now time.Time) []Record {
	records := make([]Record, 0, c.Len())
	c.Range(func(h *Handle) bool {
		records = append(records, Record{
			Name:        h.inst.Name,
			Description: h.inst.Description,
			Unit:        h.inst.Unit,
			Kind:        h.inst.Kind,
			Labels:      LabelMap(h.labels),
			Value:       h.Value(),
			Timestamp:   now,
			attrs:       h.labels,
		})
		return true
	})
	return records
}
