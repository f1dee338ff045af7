// Package interfaces defines the contracts between the HTTP layer, the
// background reporter and the counter registry, so each side can be tested
// against a fake.
package interfaces

import (
	"net/http"
	"time"

	"github.com/giygas/event-counter-api/counter"
)

// EventStore is the counter registry as seen by handlers, middleware and
// the reporter. *counter.Registry is the production implementation.
type EventStore interface {
	// Recording
	RecordByIdentifier(identifier string) string

	// Queries
	Query(key string, window time.Duration, fromNow bool) (counter.Count, error)
	QueryAll(window time.Duration, fromNow bool) []counter.EventCount
	Events(key string) ([]time.Time, error)
	Snapshot() []counter.Stats
	Len() int
	Retention() time.Duration

	// Removal
	Delete(key string) bool
	DeleteAll() int
}

// Scheduler runs the periodic registry report
type Scheduler interface {
	Start() error
	Stop()
	LastReport() time.Time
}

// HTTPHandler defines the monitor API endpoints
type HTTPHandler interface {
	CountEvent(w http.ResponseWriter, r *http.Request)
	CountAllEvents(w http.ResponseWriter, r *http.Request)
	ListCounters(w http.ResponseWriter, r *http.Request)
	DeleteEvent(w http.ResponseWriter, r *http.Request)
	DeleteAllEvents(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker reports service health
type HealthChecker interface {
	// HealthCheck returns the status, details and the HTTP status to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// InputValidator checks path parameters before they reach the registry
type InputValidator interface {
	ValidateCounterName(name string) error
	ValidateWindow(value, unit string) (time.Duration, error)
}
