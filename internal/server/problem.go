package server

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/HerbHall/hostpulse/internal/diagnostics"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound    = "https://hostpulse.dev/problems/not-found"
	ProblemTypeInternal    = "https://hostpulse.dev/problems/internal-error"
	ProblemTypeRateLimited = "https://hostpulse.dev/problems/rate-limited"
	ProblemTypeNoSnapshot  = "https://hostpulse.dev/problems/no-snapshot"
	ProblemTypeUnavailable = "https://hostpulse.dev/problems/unavailable"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// WriteProblem writes an RFC 7807 Problem Details JSON response.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: instance,
	})
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: instance,
	})
}

// RateLimited writes a 429 problem response telling the client when the
// limiter will next admit a request.
func RateLimited(w http.ResponseWriter, retryAfter time.Duration, instance string) {
	setRetryAfter(w, retryAfter)
	WriteProblem(w, Problem{
		Type:     ProblemTypeRateLimited,
		Title:    "Too Many Requests",
		Status:   http.StatusTooManyRequests,
		Detail:   "request rate exceeded",
		Instance: instance,
	})
}

// NoSnapshot writes a 503 problem response for requests that arrive before
// the first collection has completed.
func NoSnapshot(w http.ResponseWriter, instance string) {
	setRetryAfter(w, diagnostics.DefaultInterval)
	WriteProblem(w, Problem{
		Type:     ProblemTypeNoSnapshot,
		Title:    "Service Unavailable",
		Status:   http.StatusServiceUnavailable,
		Detail:   "no snapshot has been collected yet",
		Instance: instance,
	})
}

// Unavailable writes a 503 problem response.
func Unavailable(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeUnavailable,
		Title:    "Service Unavailable",
		Status:   http.StatusServiceUnavailable,
		Detail:   detail,
		Instance: instance,
	})
}

// setRetryAfter rounds d up to whole seconds, never below one.
func setRetryAfter(w http.ResponseWriter, d time.Duration) {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
}
