// Package counter provides named sliding-window event counters and the registry
// that owns them. A Counter keeps a bounded, newest-first history of event
// instants and answers "how many events in the last T" queries against it.
package counter

import (
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// Count is a point-in-time snapshot of a windowed query.
type Count struct {
	Name       string
	Key        string
	Qty        int
	TimePeriod time.Duration // window actually used, after clamping to retention
	Now        time.Time
	FromNow    bool
	Oldest     time.Time // effective boundary of the window
	Newest     time.Time // zero when the counter is empty
}

// EventCount is the projection returned by fan-out queries.
type EventCount struct {
	Name string
	Qty  int
}

// Counter records occurrence instants for a single named event source.
type Counter struct {
	name string
	key  string

	mu         sync.Mutex
	retention  time.Duration
	maxEntries int
	events     deque.Deque[time.Time] // newest at the front

	clock    func() time.Time
	observer Observer
}

// NewCounter creates an empty counter. A nil clock defaults to time.Now and a
// maxEntries below 1 is raised to 1.
func NewCounter(name string, retention time.Duration, maxEntries int, clock func() time.Time, observer Observer) *Counter {
	if clock == nil {
		clock = time.Now
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Counter{
		name:       name,
		key:        NormalizeName(name),
		retention:  retention,
		maxEntries: maxEntries,
		clock:      clock,
		observer:   observer,
	}
}

// Name returns the identifier the counter was created with.
func (c *Counter) Name() string { return c.name }

// Key returns the normalized registry key.
func (c *Counter) Key() string { return c.key }

// now returns the current instant at millisecond precision.
func (c *Counter) now() time.Time {
	return time.UnixMilli(c.clock().UnixMilli())
}

// SetLimits changes the retention period and entry cap. Existing entries are
// only evicted by the next Record.
func (c *Counter) SetLimits(retention time.Duration, maxEntries int) {
	if maxEntries < 1 {
		maxEntries = 1
	}
	c.mu.Lock()
	c.retention = retention
	c.maxEntries = maxEntries
	c.mu.Unlock()
}

// Limits returns the current retention period and entry cap.
func (c *Counter) Limits() (time.Duration, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retention, c.maxEntries
}

// Record stores one occurrence at the current instant. Events older than the
// retention period relative to the new instant are evicted first, then the
// oldest events until there is room under the entry cap.
func (c *Counter) Record() {
	c.mu.Lock()
	now := c.now()
	// keep the sequence non-increasing if the wall clock stepped back
	if c.events.Len() > 0 && now.Before(c.events.Front()) {
		now = c.events.Front()
	}

	// measured from the incoming instant so the span holds after the push too
	byAge := 0
	for c.events.Len() > 0 && now.Sub(c.events.Back()) > c.retention {
		c.events.PopBack()
		byAge++
	}
	bySize := 0
	for c.events.Len() >= c.maxEntries {
		c.events.PopBack()
		bySize++
	}

	c.events.PushFront(now)
	c.mu.Unlock()

	c.observer.EventRecorded()
	if byAge > 0 {
		c.observer.EventsEvicted(EvictedByAge, byAge)
	}
	if bySize > 0 {
		c.observer.EventsEvicted(EvictedBySize, bySize)
	}
}

// Query counts the events inside window. With fromNow the window ends at the
// time of the call, otherwise it ends at the newest recorded event. The window
// is capped at the retention period. When the window reaches past the oldest
// retained event the whole history is counted.
func (c *Counter) Query(window time.Duration, fromNow bool) (Count, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if window > c.retention {
		window = c.retention
	}
	if window < 0 {
		window = 0
	}

	n := c.events.Len()
	if !fromNow && n == 0 {
		return Count{}, fmt.Errorf("%w: counter %q has no events to anchor the window", ErrInvalidWindowQuery, c.name)
	}

	now := c.now()
	anchor := now
	if !fromNow {
		anchor = c.events.Front()
	}
	oldest := anchor.Add(-window)

	qty := 0
	if n > 0 && oldest.Before(c.events.Back()) {
		oldest = c.events.Back()
		qty = n
	} else {
		for i := 0; i < n; i++ {
			if c.events.At(i).Before(oldest) {
				break
			}
			qty++
		}
	}

	var newest time.Time
	if n > 0 {
		newest = c.events.Front()
	}

	return Count{
		Name:       c.name,
		Key:        c.key,
		Qty:        qty,
		TimePeriod: window,
		Now:        now,
		FromNow:    fromNow,
		Oldest:     oldest,
		Newest:     newest,
	}, nil
}

// Size returns the number of retained events.
func (c *Counter) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events.Len()
}

// Events returns a newest-first copy of the retained instants.
func (c *Counter) Events() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Time, c.events.Len())
	for i := range out {
		out[i] = c.events.At(i)
	}
	return out
}
