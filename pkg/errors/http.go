package errors

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// StatusError is a non-2xx HTTP response preserved for retry classification.
// RetryAfter carries the raw Retry-After header value, if any.
type StatusError struct {
	StatusCode int
	RetryAfter string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// NewStatusError builds a StatusError from a response's status and headers.
func NewStatusError(resp *http.Response, body string) *StatusError {
	return &StatusError{
		StatusCode: resp.StatusCode,
		RetryAfter: resp.Header.Get("Retry-After"),
		Body:       body,
	}
}

// IsRetryableStatus reports whether a status code warrants a retry.
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, // 408
		http.StatusTooEarly,            // 425
		http.StatusTooManyRequests,     // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	}
	return false
}

// ParseRetryAfter parses a Retry-After header value, either integer seconds or
// an HTTP-date, relative to now. Returns false when the value is absent or
// unparseable.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
