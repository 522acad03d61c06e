package probeerr

import (
	"context"
	"errors"
)

// ClassifyContextCode maps a context cancellation/timeout to a stable Code,
// falling back to the caller-supplied code for any other error.
func ClassifyContextCode(err error, fallback Code) Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	default:
		return fallback
	}
}

// ClassifyConnectCode maps a bridge connect-layer error to a stable Code.
func ClassifyConnectCode(err error) Code {
	return ClassifyContextCode(err, CodeDialFailed)
}
