package source

import (
	"context"
	"errors"
	"net"
	"strings"
)

// TimeoutError marks a per-source call that exceeded its deadline. It is
// recovered inside the fan-out executor and converted to telemetry.
type TimeoutError struct {
	SourceID string
	Err      error
}

func (e *TimeoutError) Error() string {
	return "source " + e.SourceID + ": timeout: " + e.Err.Error()
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// TransportError marks a network or protocol failure talking to a source.
type TransportError struct {
	SourceID   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	return "source " + e.SourceID + ": transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTimeout reports whether err (or anything in its chain) is a timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsTransient reports whether err looks retryable: timeouts, connection
// resets, DNS hiccups, or a transport error carrying a retryable HTTP status.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsTimeout(err) {
		return true
	}

	var tr *TransportError
	if errors.As(err, &tr) && tr.StatusCode > 0 {
		return isTransientHTTPStatus(tr.StatusCode)
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"connection refused",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func isTransientHTTPStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// Classify wraps a raw adapter error into the per-source taxonomy so the
// executor can tell timeouts from transport failures.
func Classify(sourceID string, err error) error {
	if err == nil {
		return nil
	}
	var te *TimeoutError
	var tr *TransportError
	if errors.As(err, &te) || errors.As(err, &tr) {
		return err
	}
	if IsTimeout(err) {
		return &TimeoutError{SourceID: sourceID, Err: err}
	}
	return &TransportError{SourceID: sourceID, Err: err}
}
