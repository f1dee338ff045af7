// Package handlers provides the HTTP handlers of the monitor API: windowed
// counter queries, counter introspection, deletion and the health endpoint.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/giygas/event-counter-api/convert"
	"github.com/giygas/event-counter-api/counter"
	"github.com/giygas/event-counter-api/interfaces"
	"github.com/giygas/event-counter-api/logging"
)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	store     interfaces.EventStore
	validator interfaces.InputValidator
	health    interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(store interfaces.EventStore, validator interfaces.InputValidator, health interfaces.HealthChecker) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		store:     store,
		validator: validator,
		health:    health,
	}
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	h.RespondWithJSON(w, code, errorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}

// respondWithStoreError maps registry errors to HTTP statuses
func (h *HTTPHandlerImpl) respondWithStoreError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, counter.ErrUnknownCounter):
		h.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("No events for %s", name))
	case errors.Is(err, counter.ErrInvalidWindowQuery):
		h.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logging.Error("Counter query failed", "counter", name, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// windowParams reads {value}, {uom}, {format} and {fromnow}. fromnow defaults
// to true when the segment is absent.
func (h *HTTPHandlerImpl) windowParams(r *http.Request) (window time.Duration, formatted, fromNow bool, err error) {
	value := chi.URLParam(r, "value")
	unit := chi.URLParam(r, "uom")

	window, err = h.validator.ValidateWindow(value, unit)
	if err != nil {
		logging.Warn("Unusual user input", "value", value, "uom", unit, "error", err)
		return 0, false, false, err
	}

	formatted = convert.ParseBoolish(chi.URLParam(r, "format"))
	fromNow = true
	if raw := chi.URLParam(r, "fromnow"); raw != "" {
		fromNow = convert.ParseBoolish(raw)
	}
	return window, formatted, fromNow, nil
}

// CountEvent answers GET /monitor/event/count/{name}/{value}/{uom}[/{format}[/{fromnow}]]
func (h *HTTPHandlerImpl) CountEvent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.validator.ValidateCounterName(name); err != nil {
		logging.Warn("Unusual user input", "name", name, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	window, formatted, fromNow, err := h.windowParams(r)
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.store.Query(name, window, fromNow)
	if err != nil {
		h.respondWithStoreError(w, name, err)
		return
	}

	if !formatted {
		h.RespondWithJSON(w, http.StatusOK, newCountResponse(count))
		return
	}

	events, err := h.store.Events(name)
	if err != nil {
		// deleted between the two calls
		h.respondWithStoreError(w, name, err)
		return
	}
	h.RespondWithJSON(w, http.StatusOK, newFormattedResponse(count, events))
}

// CountAllEvents answers GET /monitor/events/{value}/{uom}[/{format}[/{fromnow}]]
func (h *HTTPHandlerImpl) CountAllEvents(w http.ResponseWriter, r *http.Request) {
	window, _, fromNow, err := h.windowParams(r)
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	counts := h.store.QueryAll(window, fromNow)
	response := make([]eventCountResponse, len(counts))
	for i, c := range counts {
		response[i] = eventCountResponse{Name: c.Name, Qty: c.Qty}
	}
	h.RespondWithJSON(w, http.StatusOK, response)
}

// ListCounters answers GET /monitor/counters
func (h *HTTPHandlerImpl) ListCounters(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Snapshot()
	response := make([]counterStatsResponse, len(stats))
	for i, s := range stats {
		response[i] = counterStatsResponse{Key: s.Key, Name: s.Name, Size: s.Size}
	}
	h.RespondWithJSON(w, http.StatusOK, response)
}

// DeleteEvent answers DELETE /monitor/event/{name}. Deleting a missing
// counter is not an error.
func (h *HTTPHandlerImpl) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.validator.ValidateCounterName(name); err != nil {
		logging.Warn("Unusual user input", "name", name, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted := h.store.Delete(name)
	if deleted {
		logging.Info("Counter deleted", "counter", name)
	}
	h.RespondWithJSON(w, http.StatusOK, deleteResponse{Name: name, Deleted: deleted})
}

// DeleteAllEvents answers DELETE /monitor/events
func (h *HTTPHandlerImpl) DeleteAllEvents(w http.ResponseWriter, r *http.Request) {
	removed := h.store.DeleteAll()
	logging.Info("All counters deleted", "removed", removed)
	h.RespondWithJSON(w, http.StatusOK, deleteAllResponse{Deleted: removed})
}

// HealthCheck answers GET /health
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.health.HealthCheck()
	h.RespondWithJSON(w, httpStatus, healthResponse{Status: status, Data: data})
}
