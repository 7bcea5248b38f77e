package shopify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrProductNotFound reports a lookup that returned no product. Recorded as a
// per-item failure by callers; never aborts a batch.
var ErrProductNotFound = errors.New("product not found")

// APIError classifies admin-API and staged-upload failures as
// transient/permanent.
type APIError struct {
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "shopify api error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether an error is worth retrying on a later run.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == 429 || (statusCode >= 500 && statusCode <= 599)
}
