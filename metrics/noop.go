package metrics

import "time"

// NoopSink is a Sink that drops everything
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) EventRecorded()                         {}
func (n *NoopSink) EventsEvicted(reason string, count int) {}
func (n *NoopSink) CountersChanged(active int)             {}
func (n *NoopSink) RetainedEventsUpdate(total int)         {}
func (n *NoopSink) ReportCompleted(duration time.Duration) {}
