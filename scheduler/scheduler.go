// Package scheduler runs the periodic event counter report. Each run takes a
// read-only snapshot of the registry, refreshes the registry gauges and logs
// the busiest counters over the last interval.
package scheduler

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/giygas/event-counter-api/counter"
	"github.com/giygas/event-counter-api/interfaces"
	"github.com/giygas/event-counter-api/logging"
	"github.com/giygas/event-counter-api/metrics"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const defaultTopCounters = 5

// Report is the outcome of one report run
type Report struct {
	At             time.Time
	Counters       int
	RetainedEvents int
	Busiest        []counter.EventCount
	Duration       time.Duration
}

// Scheduler reports on the registry every interval using gocron
type Scheduler struct {
	store     interfaces.EventStore
	sink      metrics.Sink
	interval  time.Duration
	top       int
	scheduler *gocron.Scheduler
	now       func() time.Time

	mu   sync.RWMutex
	last Report
}

// NewScheduler creates a report scheduler. A nil sink disables metrics.
func NewScheduler(store interfaces.EventStore, sink metrics.Sink, interval time.Duration) *Scheduler {
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	return &Scheduler{
		store:     store,
		sink:      sink,
		interval:  interval,
		top:       defaultTopCounters,
		scheduler: gocron.NewScheduler(time.Local),
		now:       time.Now,
	}
}

// Start schedules the report; the first run happens immediately
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("report interval must be positive, got %s", s.interval)
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		s.report()
	})
	if err != nil {
		logging.Error("Failed to schedule counter report", "error", err)
		return fmt.Errorf("failed to schedule counter report: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Counter report scheduled", "interval", s.interval.String())
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// LastReport returns when the last report completed, zero before the first
func (s *Scheduler) LastReport() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last.At
}

// report never mutates the registry: Snapshot and QueryAll only read
func (s *Scheduler) report() Report {
	start := s.now()

	stats := s.store.Snapshot()
	retained := 0
	for _, st := range stats {
		retained += st.Size
	}

	busiest := busiestCounters(s.store.QueryAll(s.interval, true), s.top)

	s.sink.CountersChanged(len(stats))
	s.sink.RetainedEventsUpdate(retained)

	r := Report{
		At:             s.now(),
		Counters:       len(stats),
		RetainedEvents: retained,
		Busiest:        busiest,
	}
	r.Duration = r.At.Sub(start)
	s.sink.ReportCompleted(r.Duration)

	s.mu.Lock()
	s.last = r
	s.mu.Unlock()

	top := make([]string, len(busiest))
	for i, b := range busiest {
		top[i] = fmt.Sprintf("%s=%d", b.Name, b.Qty)
	}
	logging.Info("Event counter report",
		"counters", r.Counters,
		"retained_events", r.RetainedEvents,
		"window", s.interval.String(),
		"busiest", top,
	)
	return r
}

// busiestCounters keeps the n counters with the most events, dropping idle
// ones. Ties keep registry order.
func busiestCounters(counts []counter.EventCount, n int) []counter.EventCount {
	active := make([]counter.EventCount, 0, len(counts))
	for _, c := range counts {
		if c.Qty > 0 {
			active = append(active, c)
		}
	}
	slices.SortStableFunc(active, func(a, b counter.EventCount) int {
		return cmp.Compare(b.Qty, a.Qty)
	})
	if len(active) > n {
		active = active[:n]
	}
	return active
}
