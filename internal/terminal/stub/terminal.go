// Package stub provides a deterministic in-process terminal for tests and dry runs.
package stub

import (
	"context"
	"sync"
	"time"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/terminal"
)

// Account is the canned state behind one endpoint.
// A nil Deals or Positions slice reports unavailable; an empty one reports empty.
type Account struct {
	Login     int64 // zero reports no logged-in account
	Info      *domain.AccountInfo
	Deals     []domain.Deal
	Positions []domain.Position

	ConnectErr   error
	DealsErr     error
	PositionsErr error
	InfoErr      error
}

// Terminal implements terminal.Terminal for testing.
type Terminal struct {
	mu       sync.Mutex
	accounts map[string]*Account // keyed by endpoint path
	active   bool

	Connects []domain.Endpoint
	Closes   int
}

// Compile-time interface check.
var _ terminal.Terminal = (*Terminal)(nil)

// NewTerminal creates a new stub terminal.
func NewTerminal() *Terminal {
	return &Terminal{accounts: make(map[string]*Account)}
}

// SetAccount installs the state served for an endpoint.
func (t *Terminal) SetAccount(endpoint domain.Endpoint, account *Account) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accounts[endpoint.Path] = account
}

// AddDeals appends deals to an endpoint's history.
func (t *Terminal) AddDeals(endpoint domain.Endpoint, deals ...domain.Deal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	acct := t.accounts[endpoint.Path]
	if acct == nil {
		return
	}
	acct.Deals = append(acct.Deals, deals...)
}

// Active reports whether a session is open.
func (t *Terminal) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Connect opens a session on the endpoint. Unknown endpoints fail to connect.
func (t *Terminal) Connect(_ context.Context, endpoint domain.Endpoint) (terminal.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Connects = append(t.Connects, endpoint)

	if t.active {
		return nil, &terminal.ConnectError{Endpoint: endpoint, Err: terminal.ErrSessionActive}
	}
	acct, ok := t.accounts[endpoint.Path]
	if !ok {
		return nil, &terminal.ConnectError{Endpoint: endpoint, Err: terminal.ErrUnavailable}
	}
	if acct.ConnectErr != nil {
		return nil, &terminal.ConnectError{Endpoint: endpoint, Err: acct.ConnectErr}
	}

	t.active = true
	return &session{term: t, endpoint: endpoint, account: acct}, nil
}

type session struct {
	term     *Terminal
	endpoint domain.Endpoint
	account  *Account
	closed   bool
}

func (s *session) Endpoint() domain.Endpoint {
	return s.endpoint
}

func (s *session) AccountID(_ context.Context) (int64, error) {
	s.term.mu.Lock()
	defer s.term.mu.Unlock()
	if s.account.Login == 0 {
		return 0, terminal.ErrUnavailable
	}
	return s.account.Login, nil
}

func (s *session) Deals(_ context.Context, from, to time.Time) terminal.DealsResult {
	s.term.mu.Lock()
	defer s.term.mu.Unlock()

	if s.account.DealsErr != nil {
		return terminal.DealsResult{Status: terminal.StatusFailed, Err: s.account.DealsErr}
	}
	if s.account.Deals == nil {
		return terminal.DealsFromRows(nil)
	}

	deals := make([]domain.Deal, 0, len(s.account.Deals))
	for _, d := range s.account.Deals {
		if d.Time.Before(from) || d.Time.After(to) {
			continue
		}
		deals = append(deals, d)
	}
	return terminal.DealsFromRows(deals)
}

func (s *session) Positions(_ context.Context) terminal.PositionsResult {
	s.term.mu.Lock()
	defer s.term.mu.Unlock()

	if s.account.PositionsErr != nil {
		return terminal.PositionsResult{Status: terminal.StatusFailed, Err: s.account.PositionsErr}
	}
	if s.account.Positions == nil {
		return terminal.PositionsFromRows(nil)
	}
	return terminal.PositionsFromRows(append([]domain.Position{}, s.account.Positions...))
}

func (s *session) AccountInfo(_ context.Context) terminal.AccountInfoResult {
	s.term.mu.Lock()
	defer s.term.mu.Unlock()

	if s.account.InfoErr != nil {
		return terminal.AccountInfoResult{Status: terminal.StatusFailed, Err: s.account.InfoErr}
	}
	if s.account.Info == nil {
		return terminal.AccountInfoResult{Status: terminal.StatusUnavailable}
	}
	return terminal.AccountInfoResult{Status: terminal.StatusOK, Info: *s.account.Info}
}

func (s *session) Close(_ context.Context) error {
	s.term.mu.Lock()
	defer s.term.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.term.active = false
	s.term.Closes++
	return nil
}
