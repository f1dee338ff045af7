package counter

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// recordingObserver counts observer callbacks.
type recordingObserver struct {
	mu       sync.Mutex
	recorded int
	evicted  map[string]int
	active   int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{evicted: make(map[string]int)}
}

func (o *recordingObserver) EventRecorded() {
	o.mu.Lock()
	o.recorded++
	o.mu.Unlock()
}

func (o *recordingObserver) EventsEvicted(reason string, n int) {
	o.mu.Lock()
	o.evicted[reason] += n
	o.mu.Unlock()
}

func (o *recordingObserver) CountersChanged(active int) {
	o.mu.Lock()
	o.active = active
	o.mu.Unlock()
}

func newTestRegistry(clock *fakeClock, opts ...Option) *Registry {
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewRegistry(5*time.Minute, 10, opts...)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"testing/1", "testing_1"},
		{"/testing/1", "testing_1"},
		{"/api/users/", "api_users"},
		{"a/b", "a_b"},
		{"/monitor/events/10/seconds", "monitor_events_10_seconds"},
		{"with space/x", "with_space_x"},
		{"/", ""},
		{"", ""},
		{"/users?id=1", "users?id=1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				if got := NormalizeName(tt.input); got != tt.expected {
					t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.expected)
				}
			}
		})
	}
}

func TestRegistryScenario(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(clock)

	// 15 events a little over one second apart
	var name string
	for i := 0; i < 15; i++ {
		name = r.RecordByIdentifier("testing/1")
		clock.Advance(1001 * time.Millisecond)
	}
	if name != "testing_1" {
		t.Fatalf("Expected key testing_1, got %s", name)
	}
	c, ok := r.Counter(name)
	if !ok {
		t.Fatal("Expected counter testing_1 to exist")
	}
	if c.Size() != 10 {
		t.Errorf("Expected 10 events, got %d", c.Size())
	}

	count, err := r.Query("testing_1", 3000*time.Millisecond, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if count.Qty != 3 {
		t.Errorf("Expected 3 events, got %d", count.Qty)
	}

	second := r.RecordByIdentifier("testing/2")
	if second != "testing_2" {
		t.Errorf("Expected key testing_2, got %s", second)
	}
	if c2, _ := r.Counter(second); c2.Size() != 1 {
		t.Errorf("Expected 1 event in testing_2, got %d", c2.Size())
	}

	events := r.QueryAll(15000*time.Millisecond, false)
	if len(events) != 2 {
		t.Fatalf("Expected 2 counters, got %d", len(events))
	}
	if events[0].Name != "testing/1" || events[0].Qty != 10 {
		t.Errorf("Expected {testing/1 10}, got %+v", events[0])
	}
	if events[1].Name != "testing/2" || events[1].Qty != 1 {
		t.Errorf("Expected {testing/2 1}, got %+v", events[1])
	}

	if !r.Delete("testing_2") {
		t.Error("Expected testing_2 to be deleted")
	}
	if _, ok := r.Counter("testing_2"); ok {
		t.Error("Expected testing_2 to be gone")
	}

	if removed := r.DeleteAll(); removed != 1 {
		t.Errorf("Expected 1 counter removed, got %d", removed)
	}
	if r.Len() != 0 {
		t.Errorf("Expected empty registry, got %d counters", r.Len())
	}
	if got := r.QueryAll(15000*time.Millisecond, false); len(got) != 0 {
		t.Errorf("Expected empty fan-out result, got %v", got)
	}
}

func TestRegistryQueryUnknown(t *testing.T) {
	r := newTestRegistry(newFakeClock())

	_, err := r.Query("missing", time.Second, true)
	if !errors.Is(err, ErrUnknownCounter) {
		t.Errorf("Expected ErrUnknownCounter, got %v", err)
	}

	_, err = r.Events("missing")
	if !errors.Is(err, ErrUnknownCounter) {
		t.Errorf("Expected ErrUnknownCounter from Events, got %v", err)
	}
}

func TestRegistryDeleteIsIdempotent(t *testing.T) {
	r := newTestRegistry(newFakeClock())
	r.RecordByIdentifier("a/b")
	r.RecordByIdentifier("c/d")

	if !r.Delete("a_b") {
		t.Fatal("Expected first delete to remove a_b")
	}
	keysAfterFirst := r.Keys()

	if r.Delete("a_b") {
		t.Error("Expected second delete to be a no-op")
	}
	keysAfterSecond := r.Keys()

	if len(keysAfterFirst) != 1 || len(keysAfterSecond) != 1 || keysAfterFirst[0] != keysAfterSecond[0] {
		t.Errorf("Registry changed after repeated delete: %v then %v", keysAfterFirst, keysAfterSecond)
	}
	if r.Delete("never-existed") {
		t.Error("Expected delete of unknown key to report false")
	}
}

func TestRegistryKeepsCreationOrder(t *testing.T) {
	r := newTestRegistry(newFakeClock())
	for _, id := range []string{"z", "a", "m", "a", "b"} {
		r.RecordByIdentifier(id)
	}
	r.Delete("m")
	r.RecordByIdentifier("m")

	expected := []string{"z", "a", "b", "m"}
	keys := r.Keys()
	if len(keys) != len(expected) {
		t.Fatalf("Expected %d keys, got %v", len(expected), keys)
	}
	for i := range expected {
		if keys[i] != expected[i] {
			t.Errorf("Expected key %d to be %s, got %s", i, expected[i], keys[i])
		}
	}

	stats := r.Snapshot()
	if stats[1].Key != "a" || stats[1].Size != 2 {
		t.Errorf("Expected a with 2 events, got %+v", stats[1])
	}
}

func TestRegistryConcurrentFirstUse(t *testing.T) {
	r := NewRegistry(time.Hour, 100000)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.RecordByIdentifier("/shared/path")
			}
		}()
	}
	wg.Wait()

	if r.Len() != 1 {
		t.Fatalf("Expected exactly one counter, got %d", r.Len())
	}
	c, _ := r.Counter("shared_path")
	if c.Size() != 64*50 {
		t.Errorf("Expected %d events, got %d", 64*50, c.Size())
	}
}

func TestRegistryConcurrentMixedOperations(t *testing.T) {
	r := NewRegistry(time.Minute, 50)

	var wg sync.WaitGroup
	ids := []string{"a", "b", "c", "d"}
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				id := ids[(i+j)%len(ids)]
				switch j % 20 {
				case 7:
					r.Delete(id)
				case 13:
					r.QueryAll(time.Second, false)
				case 19:
					r.Snapshot()
				default:
					r.RecordByIdentifier(id)
				}
			}
		}(i)
	}
	wg.Wait()

	for _, s := range r.Snapshot() {
		if s.Size < 1 || s.Size > 50 {
			t.Errorf("Counter %s has %d events", s.Key, s.Size)
		}
	}
}

func TestRegistryObserverSeesFinalCounterCount(t *testing.T) {
	obs := newRecordingObserver()
	r := NewRegistry(time.Minute, 10, WithObserver(obs))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := fmt.Sprintf("c%d", (i*7+j)%12)
				if j%3 == 0 {
					r.Delete(NormalizeName(id))
				} else {
					r.RecordByIdentifier(id)
				}
			}
		}(i)
	}
	wg.Wait()

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.active != r.Len() {
		t.Errorf("Expected observer to report %d active counters, got %d", r.Len(), obs.active)
	}
}

func TestRegistryReconfigure(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(clock)
	for i := 0; i < 8; i++ {
		r.RecordByIdentifier("old")
		clock.Advance(time.Second)
	}

	r.Reconfigure(time.Minute, 3)

	if r.Retention() != time.Minute {
		t.Errorf("Expected retention 1m, got %v", r.Retention())
	}
	r.RecordByIdentifier("old")
	r.RecordByIdentifier("new")

	old, _ := r.Counter("old")
	if old.Size() != 3 {
		t.Errorf("Expected existing counter capped at 3, got %d", old.Size())
	}
	newCounter, _ := r.Counter("new")
	if _, maxEntries := newCounter.Limits(); maxEntries != 3 {
		t.Errorf("Expected new counter cap 3, got %d", maxEntries)
	}
}

func TestRegistryObserver(t *testing.T) {
	clock := newFakeClock()
	obs := newRecordingObserver()
	r := NewRegistry(2*time.Second, 3, WithClock(clock.Now), WithObserver(obs))

	for i := 0; i < 5; i++ {
		r.RecordByIdentifier("x")
	}
	clock.Advance(5 * time.Second)
	r.RecordByIdentifier("x")
	r.RecordByIdentifier("y")

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.recorded != 7 {
		t.Errorf("Expected 7 recorded events, got %d", obs.recorded)
	}
	if obs.evicted[EvictedBySize] != 2 {
		t.Errorf("Expected 2 size evictions, got %d", obs.evicted[EvictedBySize])
	}
	if obs.evicted[EvictedByAge] != 3 {
		t.Errorf("Expected 3 age evictions, got %d", obs.evicted[EvictedByAge])
	}
	if obs.active != 2 {
		t.Errorf("Expected 2 active counters, got %d", obs.active)
	}
}
