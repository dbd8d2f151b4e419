package model

import "errors"

// Failure taxonomy of a resolution. Callers classify with errors.Is.
var (
	ErrLookupUnavailable = errors.New("place search unavailable")
	ErrNoMatch           = errors.New("no place found")
	ErrFetchUnavailable  = errors.New("place attributes unavailable")
	ErrParseFailure      = errors.New("malformed place document")
	ErrAllFetchesFailed  = errors.New("all place attribute fetches failed")
)
