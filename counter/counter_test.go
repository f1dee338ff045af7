package counter

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1575545640000)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func (f *fakeClock) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// recordSpaced records n events, advancing the clock by spacing after each one.
func recordSpaced(c *Counter, clock *fakeClock, n int, spacing time.Duration) {
	for i := 0; i < n; i++ {
		c.Record()
		clock.Advance(spacing)
	}
}

func assertDescending(t *testing.T, events []time.Time) {
	t.Helper()
	for i := 1; i < len(events); i++ {
		if events[i].After(events[i-1]) {
			t.Fatalf("events not in descending order at %d: %v after %v", i, events[i], events[i-1])
		}
	}
}

func TestNewCounter(t *testing.T) {
	c := NewCounter("testing/1", 5*time.Minute, 0, nil, nil)

	if c.Name() != "testing/1" {
		t.Errorf("Expected name testing/1, got %s", c.Name())
	}
	if c.Key() != "testing_1" {
		t.Errorf("Expected key testing_1, got %s", c.Key())
	}
	if c.Size() != 0 {
		t.Errorf("Expected empty counter, got %d events", c.Size())
	}

	retention, maxEntries := c.Limits()
	if retention != 5*time.Minute {
		t.Errorf("Expected retention 5m, got %v", retention)
	}
	if maxEntries != 1 {
		t.Errorf("Expected maxEntries to be raised to 1, got %d", maxEntries)
	}
}

func TestRecordBoundedSize(t *testing.T) {
	clock := newFakeClock()
	c := NewCounter("testing/1", 5*time.Minute, 10, clock.Now, nil)

	for i := 0; i < 15; i++ {
		c.Record()
		if c.Size() > 10 {
			t.Fatalf("Size %d exceeds maxEntries after %d records", c.Size(), i+1)
		}
		clock.Advance(time.Second)
	}

	if c.Size() != 10 {
		t.Errorf("Expected 10 events, got %d", c.Size())
	}
	assertDescending(t, c.Events())
}

func TestRecordBoundedAge(t *testing.T) {
	clock := newFakeClock()
	c := NewCounter("aged", 5*time.Second, 100, clock.Now, nil)

	recordSpaced(c, clock, 3, time.Second)
	clock.Advance(10 * time.Second)
	c.Record()

	events := c.Events()
	if len(events) != 1 {
		t.Fatalf("Expected stale events to be evicted, got %d events", len(events))
	}

	recordSpaced(c, clock, 20, 700*time.Millisecond)
	events = c.Events()
	assertDescending(t, events)
	if span := events[0].Sub(events[len(events)-1]); span > 5*time.Second {
		t.Errorf("Span %v exceeds retention", span)
	}
}

// Age eviction measures against the instant being recorded, so a lone entry
// older than the retention period is dropped rather than kept beside the new one.
func TestRecordEvictsSingleStaleEntry(t *testing.T) {
	clock := newFakeClock()
	c := NewCounter("lone", 5*time.Second, 100, clock.Now, nil)

	c.Record()
	first := clock.Now()
	clock.Advance(6 * time.Second)
	c.Record()

	events := c.Events()
	if len(events) != 1 {
		t.Fatalf("Expected the stale entry to be evicted, got %d events", len(events))
	}
	if events[0].Equal(first) {
		t.Errorf("Expected the remaining event to be the new one, got %v", events[0])
	}

	// exactly at the retention boundary the older entry stays
	clock.Advance(5 * time.Second)
	c.Record()
	if c.Size() != 2 {
		t.Errorf("Expected an entry exactly one retention period old to be kept, got %d events", c.Size())
	}
}

func TestRecordKeepsOrderWhenClockStepsBack(t *testing.T) {
	clock := newFakeClock()
	c := NewCounter("skew", time.Minute, 10, clock.Now, nil)

	c.Record()
	clock.Advance(-2 * time.Second)
	c.Record()

	events := c.Events()
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	assertDescending(t, events)
}

func TestRecordTruncatesToMilliseconds(t *testing.T) {
	clock := newFakeClock()
	clock.Advance(1500 * time.Microsecond)
	c := NewCounter("precision", time.Minute, 10, clock.Now, nil)

	c.Record()

	got := c.Events()[0]
	if got.Nanosecond()%int(time.Millisecond) != 0 {
		t.Errorf("Expected millisecond precision, got %v", got)
	}
}

func TestQueryFromNewest(t *testing.T) {
	clock := newFakeClock()
	c := NewCounter("testing/1", 5*time.Minute, 10, clock.Now, nil)

	// real sleeps overshoot slightly, so events are a little over a second apart
	recordSpaced(c, clock, 15, 1001*time.Millisecond)

	count, err := c.Query(3000*time.Millisecond, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if count.Qty != 3 {
		t.Errorf("Expected 3 events, got %d", count.Qty)
	}
	if count.FromNow {
		t.Error("Expected FromNow to be false")
	}
	if !count.Oldest.Equal(count.Newest.Add(-3000 * time.Millisecond)) {
		t.Errorf("Expected boundary 3s before newest, got %v (newest %v)", count.Oldest, count.Newest)
	}
}

func TestQueryBoundaryIsInclusive(t *testing.T) {
	clock := newFakeClock()
	c := NewCounter("exact", 5*time.Minute, 10, clock.Now, nil)

	recordSpaced(c, clock, 15, time.Second)

	// newest-3s lands exactly on an event, which is counted
	count, err := c.Query(3*time.Second, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if count.Qty != 4 {
		t.Errorf("Expected 4 events with an inclusive boundary, got %d", count.Qty)
	}
}

func TestQueryFromNow(t *testing.T) {
	clock := newFakeClock()
	c := NewCounter("now", time.Minute, 100, clock.Now, nil)

	recordSpaced(c, clock, 10, time.Second)
	// last event is 1s old; advance a further 500ms
	clock.Advance(500 * time.Millisecond)

	count, err := c.Query(2500*time.Millisecond, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if count.Qty != 2 {
		t.Errorf("Expected 2 events, got %d", count.Qty)
	}
	if !count.Now.Equal(clock.Now()) {
		t.Errorf("Expected now %v, got %v", clock.Now(), count.Now)
	}
	if !count.Oldest.Equal(clock.Now().Add(-2500 * time.Millisecond)) {
		t.Errorf("Unexpected boundary %v", count.Oldest)
	}
}

func TestQueryWindowBeyondHistoryCountsAll(t *testing.T) {
	clock := newFakeClock()
	c := NewCounter("all", 5*time.Minute, 10, clock.Now, nil)

	recordSpaced(c, clock, 15, time.Second)
	events := c.Events()

	count, err := c.Query(15*time.Second, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if count.Qty != 10 {
		t.Errorf("Expected all 10 events, got %d", count.Qty)
	}
	if !count.Oldest.Equal(events[len(events)-1]) {
		t.Errorf("Expected boundary to be the oldest event %v, got %v", events[len(events)-1], count.Oldest)
	}
}

func TestQueryClampsWindowToRetention(t *testing.T) {
	clock := newFakeClock()
	c := NewCounter("clamp", 10*time.Second, 100, clock.Now, nil)
	c.Record()

	count, err := c.Query(time.Hour, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if count.TimePeriod != 10*time.Second {
		t.Errorf("Expected window clamped to 10s, got %v", count.TimePeriod)
	}

	count, err = c.Query(-time.Second, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if count.TimePeriod != 0 {
		t.Errorf("Expected negative window clamped to 0, got %v", count.TimePeriod)
	}
}

func TestQueryEmptyCounter(t *testing.T) {
	c := NewCounter("empty", time.Minute, 10, newFakeClock().Now, nil)

	_, err := c.Query(time.Second, false)
	if !errors.Is(err, ErrInvalidWindowQuery) {
		t.Errorf("Expected ErrInvalidWindowQuery, got %v", err)
	}

	count, err := c.Query(time.Second, true)
	if err != nil {
		t.Fatalf("Expected no error from now, got %v", err)
	}
	if count.Qty != 0 {
		t.Errorf("Expected 0 events, got %d", count.Qty)
	}
	if !count.Newest.IsZero() {
		t.Errorf("Expected zero newest, got %v", count.Newest)
	}
}

func TestQueryIsMonotonicInWindow(t *testing.T) {
	clock := newFakeClock()
	c := NewCounter("mono", time.Minute, 50, clock.Now, nil)

	spacings := []time.Duration{300, 1200, 50, 900, 2000, 10, 700}
	for i := 0; i < 40; i++ {
		c.Record()
		clock.Advance(spacings[i%len(spacings)] * time.Millisecond)
	}

	for _, fromNow := range []bool{true, false} {
		prev := -1
		for w := time.Duration(0); w <= 70*time.Second; w += 250 * time.Millisecond {
			count, err := c.Query(w, fromNow)
			if err != nil {
				t.Fatalf("Query(%v, %v) failed: %v", w, fromNow, err)
			}
			if count.Qty < prev {
				t.Fatalf("Query(%v, %v) = %d, smaller than %d for a shorter window", w, fromNow, count.Qty, prev)
			}
			prev = count.Qty
		}
	}
}

func TestSetLimitsAppliesOnNextRecord(t *testing.T) {
	clock := newFakeClock()
	c := NewCounter("limits", time.Minute, 20, clock.Now, nil)
	recordSpaced(c, clock, 20, time.Second)

	c.SetLimits(time.Minute, 5)
	if c.Size() != 20 {
		t.Errorf("Expected eviction to wait for the next record, got %d events", c.Size())
	}

	c.Record()
	if c.Size() != 5 {
		t.Errorf("Expected 5 events after record, got %d", c.Size())
	}
}

func TestCounterConcurrentRecord(t *testing.T) {
	c := NewCounter("concurrent", time.Hour, 10000, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Record()
				if j%10 == 0 {
					_, _ = c.Query(time.Second, true)
				}
			}
		}()
	}
	wg.Wait()

	if c.Size() != 5000 {
		t.Errorf("Expected 5000 events, got %d", c.Size())
	}
	assertDescending(t, c.Events())
}
