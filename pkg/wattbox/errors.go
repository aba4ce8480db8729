package wattbox

import "fmt"

// TransportError wraps connection-level failures (refused, DNS, timeout).
// The device is likely unreachable; callers may retry with backoff.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError means the device responded, but with a status the operation
// does not accept. This is not retried automatically; it usually points at
// wrong credentials or an unsupported firmware variant.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP %d from %s", e.StatusCode, e.URL)
}

// AuthError means no authentication strategy was accepted by the device.
// It is treated as a configuration problem: once negotiation has failed,
// subsequent calls return it without re-probing until InvalidateAuth().
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("PDU authentication failed: %s", e.Reason)
}
