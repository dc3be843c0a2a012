package llm

import (
	"context"
	stderrors "errors"
	"fmt"

	crerr "github.com/cockroachdb/errors"
)

// Provider failures split into two classes: ErrRetryable covers rate limits,
// server errors, and connection failures; ErrNotRetryable covers everything a
// retry cannot fix. Credential rejections additionally match
// ErrBadCredentials so surfaces can tell the user to check their API key.
var (
	ErrRetryable      = crerr.New("llm transient failure")
	ErrNotRetryable   = crerr.New("llm request rejected")
	ErrBadCredentials = crerr.New("check your API key")
)

func classifyStatus(code int, cause error) error {
	switch {
	case code == 401 || code == 403:
		return fmt.Errorf("%w: %w: status=%d: %v", ErrNotRetryable, ErrBadCredentials, code, cause)
	case code == 429 || code >= 500:
		return fmt.Errorf("%w: status=%d: %v", ErrRetryable, code, cause)
	default:
		return fmt.Errorf("%w: status=%d: %v", ErrNotRetryable, code, cause)
	}
}

// classifyTransport handles errors carrying no HTTP status. Context
// cancellation passes through untouched so callers see the ctx error.
func classifyTransport(err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRetryable, err)
}
