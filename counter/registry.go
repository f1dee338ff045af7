package counter

import (
	"fmt"
	"sync"
	"time"
)

// Stats describes one counter for introspection.
type Stats struct {
	Key  string
	Name string
	Size int
}

// Registry maps normalized names to counters. Counters are created on the
// first recorded event and iterated in creation order.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	order      []string
	retention  time.Duration
	maxEntries int

	clock    func() time.Time
	observer Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source handed to every counter.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		r.clock = clock
	}
}

// WithObserver sets the observer notified of recordings, evictions and
// registry size changes.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// NewRegistry creates an empty registry whose counters use the given
// retention period and entry cap.
func NewRegistry(retention time.Duration, maxEntries int, opts ...Option) *Registry {
	r := &Registry{
		counters:   make(map[string]*Counter),
		retention:  retention,
		maxEntries: maxEntries,
		clock:      time.Now,
		observer:   noopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordByIdentifier records one event for identifier, creating its counter
// if needed, and returns the key the counter is stored under.
func (r *Registry) RecordByIdentifier(identifier string) string {
	key := NormalizeName(identifier)

	r.mu.RLock()
	c, exists := r.counters[key]
	r.mu.RUnlock()

	if exists {
		c.Record()
		return key
	}

	r.mu.Lock()
	if c, exists = r.counters[key]; exists {
		r.mu.Unlock()
		c.Record()
		return key
	}
	c = NewCounter(identifier, r.retention, r.maxEntries, r.clock, r.observer)
	// a published counter always holds at least one event
	c.Record()
	r.counters[key] = c
	r.order = append(r.order, key)
	// under the lock so concurrent changes reach the observer in order
	r.observer.CountersChanged(len(r.counters))
	r.mu.Unlock()

	return key
}

// Counter returns the counter stored under key.
func (r *Registry) Counter(key string) (*Counter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.counters[key]
	return c, ok
}

// Query runs a windowed query against the counter stored under key.
func (r *Registry) Query(key string, window time.Duration, fromNow bool) (Count, error) {
	c, ok := r.Counter(key)
	if !ok {
		return Count{}, fmt.Errorf("%w: %q", ErrUnknownCounter, key)
	}
	return c.Query(window, fromNow)
}

// Events returns the retained instants of the counter stored under key.
func (r *Registry) Events(key string) ([]time.Time, error) {
	c, ok := r.Counter(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCounter, key)
	}
	return c.Events(), nil
}

// QueryAll runs the same query against every counter, in creation order.
func (r *Registry) QueryAll(window time.Duration, fromNow bool) []EventCount {
	counters := r.snapshot()
	out := make([]EventCount, 0, len(counters))
	for _, c := range counters {
		count, err := c.Query(window, fromNow)
		if err != nil {
			// only an empty counter anchored at its newest event fails
			out = append(out, EventCount{Name: c.Name()})
			continue
		}
		out = append(out, EventCount{Name: count.Name, Qty: count.Qty})
	}
	return out
}

// Delete removes the counter stored under key. It reports whether a counter
// was removed; deleting an unknown key is a no-op.
func (r *Registry) Delete(key string) bool {
	r.mu.Lock()
	if _, ok := r.counters[key]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.counters, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.observer.CountersChanged(len(r.counters))
	r.mu.Unlock()

	return true
}

// DeleteAll replaces the registry contents with an empty set and returns how
// many counters were dropped.
func (r *Registry) DeleteAll() int {
	r.mu.Lock()
	removed := len(r.counters)
	r.counters = make(map[string]*Counter)
	r.order = nil
	r.observer.CountersChanged(0)
	r.mu.Unlock()

	return removed
}

// Len returns the number of live counters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.counters)
}

// Keys returns the counter keys in creation order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Snapshot returns key, name and size of every counter in creation order.
func (r *Registry) Snapshot() []Stats {
	counters := r.snapshot()
	stats := make([]Stats, len(counters))
	for i, c := range counters {
		stats[i] = Stats{Key: c.Key(), Name: c.Name(), Size: c.Size()}
	}
	return stats
}

// Reconfigure applies new limits to existing counters and to counters created
// afterwards.
func (r *Registry) Reconfigure(retention time.Duration, maxEntries int) {
	r.mu.Lock()
	r.retention = retention
	r.maxEntries = maxEntries
	counters := make([]*Counter, 0, len(r.order))
	for _, key := range r.order {
		counters = append(counters, r.counters[key])
	}
	r.mu.Unlock()

	for _, c := range counters {
		c.SetLimits(retention, maxEntries)
	}
}

// Retention returns the retention period applied to new counters.
func (r *Registry) Retention() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.retention
}

// snapshot copies the counter list so queries run without the registry lock.
func (r *Registry) snapshot() []*Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counters := make([]*Counter, 0, len(r.order))
	for _, key := range r.order {
		counters = append(counters, r.counters[key])
	}
	return counters
}
