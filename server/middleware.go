package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/giygas/event-counter-api/interfaces"
	"github.com/giygas/event-counter-api/logging"
)

// RealIPMiddleware replaces RemoteAddr with the client address forwarded by
// the proxy: X-Real-IP first, then the first X-Forwarded-For entry
func RealIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			r.RemoteAddr = realIP
		} else if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if idx := strings.Index(xff, ","); idx != -1 {
				xff = xff[:idx]
			}
			r.RemoteAddr = strings.TrimSpace(xff)
		}
		next.ServeHTTP(w, r)
	})
}

// BlockDirectAccessMiddleware rejects requests that did not come through a
// proxy, except from localhost. Must run before RealIPMiddleware.
func BlockDirectAccessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Real-IP") != "" || r.Header.Get("X-Forwarded-For") != "" {
			next.ServeHTTP(w, r)
			return
		}

		host := clientHost(r.RemoteAddr)
		if host == "127.0.0.1" || host == "::1" || host == "localhost" {
			next.ServeHTTP(w, r)
			return
		}

		logging.Warn("Direct access blocked", "remote_addr", r.RemoteAddr, "user_agent", r.UserAgent())
		respondWithError(w, http.StatusForbidden, "Direct access not allowed")
	})
}

// RequestSizeMiddleware rejects oversized requests and caps the body reader
func RequestSizeMiddleware(maxBody, maxHeader int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBody {
				logging.Warn("Request body too large",
					"content_length", r.ContentLength,
					"max_allowed", maxBody,
					"remote_addr", r.RemoteAddr,
					"user_agent", r.UserAgent())
				respondWithError(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("Request body too large. Maximum allowed size is %d bytes", maxBody))
				return
			}

			// rough estimate, names and values only
			headerSize := int64(0)
			for key, values := range r.Header {
				headerSize += int64(len(key))
				for _, value := range values {
					headerSize += int64(len(value))
				}
			}
			if headerSize > maxHeader {
				logging.Warn("Request headers too large",
					"header_size", headerSize,
					"max_allowed", maxHeader,
					"remote_addr", r.RemoteAddr,
					"user_agent", r.UserAgent())
				respondWithError(w, http.StatusRequestHeaderFieldsTooLarge,
					fmt.Sprintf("Request headers too large. Maximum allowed size is %d bytes", maxHeader))
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBody)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// uncountedPaths are served without recording an event
var uncountedPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// CountEventsMiddleware records one event per request, named after the
// request URI (path and query). When disabled it returns next unchanged.
func CountEventsMiddleware(store interfaces.EventStore, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := uncountedPaths[r.URL.Path]; !skip {
				store.RecordByIdentifier(r.URL.RequestURI())
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientHost strips the port from a RemoteAddr, if any
func clientHost(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// respondWithError writes the API error envelope
func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)

	payload := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error("Failed to encode JSON response", "error", err)
	}
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}
