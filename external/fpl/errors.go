package fpl

import crerr "github.com/cockroachdb/errors"

// Sentinel failures for league API calls. Callers classify with errors.Is:
// ErrNetwork is worth retrying, the other two are not.
var (
	ErrNetwork  = crerr.New("fpl network failure")
	ErrNotFound = crerr.New("fpl resource not found")
	ErrParse    = crerr.New("fpl payload malformed")
)
