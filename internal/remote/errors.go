package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Classification of remote failures. The client never retries on its own;
// callers decide using IsRetryable.
var (
	// ErrInvalidRequest maps HTTP 400. The request shape must be fixed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnauthorized maps HTTP 403. Surfaced to session handling.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited maps HTTP 429. Retryable with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrRemoteUnavailable maps 5xx, network failures and timeouts.
	ErrRemoteUnavailable = errors.New("remote unavailable")
)

// ProtocolError reports a remote response that failed schema validation.
// Non-retryable without a code change on one side.
type ProtocolError struct {
	Field  string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %s", e.Field, e.Reason)
}

func protocolErr(field, format string, args ...any) error {
	return &ProtocolError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether err is worth retrying after a backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrRemoteUnavailable)
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusBadRequest:
		return ErrInvalidRequest
	case code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code >= 500:
		return ErrRemoteUnavailable
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
