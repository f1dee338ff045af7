// Package health provides health checking for the event counter API.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/event-counter-api/interfaces"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"

	// staleReports is how many report intervals may pass without a report
	// before the service is degraded
	staleReports = 3
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store          interfaces.EventStore
	reporter       interfaces.Scheduler
	countingOn     bool
	reportInterval time.Duration
	startTime      time.Time
	now            func() time.Time
}

// NewHealthChecker creates a health checker. reporter may be nil when no
// periodic report runs; staleness is then never checked.
func NewHealthChecker(store interfaces.EventStore, reporter interfaces.Scheduler, countingOn bool, reportInterval time.Duration) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		store:          store,
		reporter:       reporter,
		countingOn:     countingOn,
		reportInterval: reportInterval,
		startTime:      time.Now(),
		now:            time.Now,
	}
}

// HealthCheck reports degraded (503) when counting is on and the reporter
// has been silent for more than three intervals, healthy otherwise
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	now := h.now()
	stats := h.store.Snapshot()

	retained := 0
	for _, s := range stats {
		retained += s.Size
	}

	status, httpStatus = StatusHealthy, http.StatusOK
	lastReport := "never"

	if h.reporter != nil {
		last := h.reporter.LastReport()
		since := last
		if last.IsZero() {
			since = h.startTime
		} else {
			lastReport = last.Format(time.RFC3339)
		}

		if h.countingOn && h.reportInterval > 0 && now.Sub(since) > staleReports*h.reportInterval {
			status, httpStatus = StatusDegraded, http.StatusServiceUnavailable
		}
	}

	data = map[string]any{
		"counters":         len(stats),
		"retained_events":  retained,
		"counting_enabled": h.countingOn,
		"retention_ms":     h.store.Retention().Milliseconds(),
		"last_report":      lastReport,
		"uptime_seconds":   math.Round(now.Sub(h.startTime).Seconds()*10) / 10,
	}

	return status, data, httpStatus
}
