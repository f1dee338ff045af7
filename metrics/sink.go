package metrics

import "time"

// Sink receives counter registry metrics. It satisfies counter.Observer, so a
// registry can report into it directly. Implementations must not block.
type Sink interface {
	// Registry metrics, called from the counters themselves
	EventRecorded()
	EventsEvicted(reason string, n int)
	CountersChanged(active int)

	// Reporter metrics
	RetainedEventsUpdate(total int)
	ReportCompleted(duration time.Duration)
}
