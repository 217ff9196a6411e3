package collector

import "errors"

var (
	// ErrFetchFailed wraps a terminal query that failed (as opposed to returning no data).
	// Nothing is written for the affected operation.
	ErrFetchFailed = errors.New("terminal query failed")

	// ErrCommitFailed wraps a store transaction that failed and was rolled back.
	ErrCommitFailed = errors.New("store commit failed")
)
