package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

// StatusError translates a non-2xx response from a backend into the
// service error taxonomy. The body may be either this service's own error
// envelope or an Elasticsearch style {"error":{"reason":...}} document.
func StatusError(backend string, status int, body io.Reader) error {
	var raw []byte
	if body != nil {
		raw, _ = io.ReadAll(io.LimitReader(body, 64<<10))
	}
	msg := fmt.Sprintf("%s: %s", backend, errorMessage(raw, status))

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, apperrors.ErrNotFound)
	case status == http.StatusBadRequest:
		return fmt.Errorf("%s: %w", msg, apperrors.ErrInvalidInput)
	case status == http.StatusConflict:
		return fmt.Errorf("%s: %w", msg, apperrors.ErrConflict)
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, apperrors.ErrUnauthorized)
	case status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, apperrors.ErrForbidden)
	case status == http.StatusServiceUnavailable, status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", msg, apperrors.ErrServiceUnavail)
	default:
		return fmt.Errorf("%s (status %d)", msg, status)
	}
}

// Unavailable reports whether err means the backend could not be reached
// or is shedding load, including an open circuit breaker.
func Unavailable(err error) bool {
	return errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, ErrTooManyRequests) ||
		errors.Is(err, apperrors.ErrServiceUnavail)
}

func errorMessage(raw []byte, status int) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && len(envelope.Error) > 0 {
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &obj) == nil {
			if obj.Reason != "" {
				return obj.Reason
			}
			if obj.Message != "" {
				return obj.Message
			}
		}
	}
	if len(raw) > 0 {
		return string(raw)
	}
	return http.StatusText(status)
}
