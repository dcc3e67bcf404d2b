package platform

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sells-group/geotarget/internal/resilience"
)

// Error is a rejection reported by the ad platform.
type Error struct {
	Transport  string
	Op         string
	StatusCode int
	// Code is the platform's own error code, e.g. a JSON-RPC error code.
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("platform: %s %s: HTTP %d: %s", e.Transport, e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform: %s %s: code %d: %s", e.Transport, e.Op, e.Code, e.Message)
}

// statusError builds the error for a non-2xx response, marking throttling
// and upstream failures transient.
func statusError(transport, op string, status int, msg string) error {
	e := &Error{Transport: transport, Op: op, StatusCode: status, Message: msg}
	if resilience.IsTransientHTTPStatus(status) {
		return resilience.Transient(e, status)
	}
	return e
}

// shouldFallback reports whether a failed call may be retried on the next
// transport: transient failures, or an endpoint the transport lacks.
func shouldFallback(err error) bool {
	if resilience.IsTransient(err) {
		return true
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.StatusCode == http.StatusNotFound || pe.StatusCode == http.StatusNotImplemented
	}
	return false
}
