package platform

import (
	"fmt"
	"net/http"

	"github.com/247void/twitterScraper/types"
)

// ErrActionRequired is returned by SignIn when the account must be verified
// with a one-time code before the session is usable.
var ErrActionRequired = types.NewError(types.ErrActionRequired, "account verification required")

// PlatformError is a failed platform call.
type PlatformError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *PlatformError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("platform %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the call later can succeed.
func (e *PlatformError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500 || e.StatusCode == 0
}

// Wrap classifies a failed call as a PLATFORM_ERROR. Rate limiting is
// reported as RATE_LIMITED so callers can back off.
func Wrap(op string, status int, err error) error {
	if err == nil {
		return nil
	}
	pe := &PlatformError{Op: op, StatusCode: status, Err: err}
	code := types.ErrPlatform
	if status == http.StatusTooManyRequests {
		code = types.ErrRateLimited
	}
	out := types.Errorf(code, "%s failed", op).
		WithRetryable(pe.Temporary()).
		WithCause(pe)
	if status > 0 {
		out = out.WithHTTPStatus(status)
	}
	return out
}
