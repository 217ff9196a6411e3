// Package terminal is the source adapter for trading-terminal instances.
// Raw terminal rows are decoded here, once, into fixed-shape domain records.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"terminal-collector/internal/domain"
)

var (
	// ErrUnavailable is returned when the terminal has no data to report (e.g. no logged-in account).
	ErrUnavailable = errors.New("terminal data unavailable")

	// ErrSessionActive is returned by Connect while another session is still open.
	ErrSessionActive = errors.New("terminal session already active")

	// ErrSessionClosed is returned by queries on a closed session.
	ErrSessionClosed = errors.New("terminal session closed")
)

// Terminal opens sessions against terminal endpoints.
type Terminal interface {
	// Connect initializes the terminal at the endpoint. Failures are *ConnectError.
	Connect(ctx context.Context, endpoint domain.Endpoint) (Session, error)
}

// Session is one connected terminal. Close must always be called, even after failed queries.
type Session interface {
	// Endpoint returns the endpoint the session was opened on.
	Endpoint() domain.Endpoint

	// AccountID returns the login of the connected account, or ErrUnavailable.
	AccountID(ctx context.Context) (int64, error)

	// Deals returns every deal with a time in [from, to]. The window is a superset, not a delta.
	Deals(ctx context.Context, from, to time.Time) DealsResult

	// Positions returns the currently open positions.
	Positions(ctx context.Context) PositionsResult

	// AccountInfo returns live account metrics.
	AccountInfo(ctx context.Context) AccountInfoResult

	// Close releases the terminal. Safe to call more than once.
	Close(ctx context.Context) error
}

// Status classifies the outcome of a terminal query.
type Status int

const (
	// StatusOK means data was returned.
	StatusOK Status = iota
	// StatusEmpty means the query succeeded with zero rows.
	StatusEmpty
	// StatusUnavailable means the terminal reported "no data" rather than an empty set.
	StatusUnavailable
	// StatusFailed means the query itself failed; Err is set.
	StatusFailed
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusUnavailable:
		return "unavailable"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// DealsResult is the outcome of Session.Deals.
type DealsResult struct {
	Status Status
	Deals  []domain.Deal
	Err    error
}

// PositionsResult is the outcome of Session.Positions.
type PositionsResult struct {
	Status    Status
	Positions []domain.Position
	Err       error
}

// AccountInfoResult is the outcome of Session.AccountInfo.
type AccountInfoResult struct {
	Status Status
	Info   domain.AccountInfo
	Err    error
}

// ConnectError reports a failed Connect for one endpoint.
type ConnectError struct {
	Endpoint domain.Endpoint
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect terminal %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// DealsFromRows builds a DealsResult from decoded rows. A nil slice means unavailable.
func DealsFromRows(deals []domain.Deal) DealsResult {
	switch {
	case deals == nil:
		return DealsResult{Status: StatusUnavailable}
	case len(deals) == 0:
		return DealsResult{Status: StatusEmpty, Deals: deals}
	default:
		return DealsResult{Status: StatusOK, Deals: deals}
	}
}

// PositionsFromRows builds a PositionsResult from decoded rows. A nil slice means unavailable.
func PositionsFromRows(positions []domain.Position) PositionsResult {
	switch {
	case positions == nil:
		return PositionsResult{Status: StatusUnavailable}
	case len(positions) == 0:
		return PositionsResult{Status: StatusEmpty, Positions: positions}
	default:
		return PositionsResult{Status: StatusOK, Positions: positions}
	}
}
