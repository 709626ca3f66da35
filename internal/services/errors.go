package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInputInvalid marks corrupt or missing source media. Fatal, never retried.
	ErrInputInvalid = errors.New("invalid input")
	// ErrToolMissing marks a required external binary absent from the
	// environment. Fatal, never retried.
	ErrToolMissing = errors.New("tool missing")
	// ErrProviderUnavailable marks network, auth, or quota failures from an
	// external service. Retryable, then eligible for fallback.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderRejected marks provider-side validation failures, such as an
	// unusable voice sample. Not retried; the request itself is bad.
	ErrProviderRejected = errors.New("provider rejected")
	// ErrTimeout marks an external call that exceeded its deadline. Treated
	// exactly like ErrProviderUnavailable for retry purposes.
	ErrTimeout = errors.New("timeout")
	// ErrPartialFailure marks a batch where some segments failed. The run
	// continues with degraded coverage.
	ErrPartialFailure = errors.New("partial failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrProviderUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error can never be recovered by retrying or by
// switching to a degraded path.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInputInvalid) || errors.Is(err, ErrToolMissing) || errors.Is(err, ErrProviderRejected)
}

// IsRetryable reports whether an error is worth another attempt before the
// caller falls back to its degraded path.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrTimeout)
}

// Details extracts the human-readable portion of a wrapped service error,
// stripping the sentinel prefix so status displays stay terse.
func Details(err error) string {
	if err == nil {
		return ""
	}
	message := err.Error()
	for _, marker := range []error{
		ErrInputInvalid,
		ErrToolMissing,
		ErrProviderUnavailable,
		ErrProviderRejected,
		ErrTimeout,
		ErrPartialFailure,
	} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(message, prefix) {
			return strings.TrimPrefix(message, prefix)
		}
	}
	return message
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
