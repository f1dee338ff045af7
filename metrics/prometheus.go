package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/giygas/event-counter-api/logging"
)

// PrometheusSink implements Sink with Prometheus collectors.
// Registration errors are logged and never propagated.
type PrometheusSink struct {
	eventsRecorded prometheus.Counter
	eventsEvicted  *prometheus.CounterVec
	countersActive prometheus.Gauge
	retainedEvents prometheus.Gauge
	reportDuration prometheus.Histogram
}

// NewPrometheusSink creates the event counter collectors and registers them with reg
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		eventsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "event_counter_events_recorded_total",
			Help: "Total number of events recorded across all counters.",
		}),
		eventsEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_counter_events_evicted_total",
			Help: "Total number of events dropped from counters, by reason (age or size).",
		}, []string{"reason"}),
		countersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "event_counter_counters_active",
			Help: "Number of counters in the registry.",
		}),
		retainedEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "event_counter_retained_events",
			Help: "Events held across all counters at the last report.",
		}),
		reportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "event_counter_report_duration_seconds",
			Help:    "Duration of the periodic registry report in seconds.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
	}

	s.register(reg, s.eventsRecorded, "event_counter_events_recorded_total")
	s.register(reg, s.eventsEvicted, "event_counter_events_evicted_total")
	s.register(reg, s.countersActive, "event_counter_counters_active")
	s.register(reg, s.retainedEvents, "event_counter_retained_events")
	s.register(reg, s.reportDuration, "event_counter_report_duration_seconds")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		logging.Warn("Failed to register metric", "metric", name, "error", err)
	}
}

func (s *PrometheusSink) EventRecorded() {
	s.eventsRecorded.Inc()
}

func (s *PrometheusSink) EventsEvicted(reason string, n int) {
	s.eventsEvicted.WithLabelValues(reason).Add(float64(n))
}

func (s *PrometheusSink) CountersChanged(active int) {
	s.countersActive.Set(float64(active))
}

func (s *PrometheusSink) RetainedEventsUpdate(total int) {
	s.retainedEvents.Set(float64(total))
}

func (s *PrometheusSink) ReportCompleted(duration time.Duration) {
	s.reportDuration.Observe(duration.Seconds())
}
