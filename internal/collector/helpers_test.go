package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/observability"
	"terminal-collector/internal/storage"
	"terminal-collector/internal/terminal"
)

var (
	testNow     = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	errInjected = errors.New("injected failure")
)

func testDeps() Deps {
	return Deps{
		Logger:  zerolog.Nop(),
		Metrics: observability.NewMetrics(""),
		Now:     func() time.Time { return testNow },
	}
}

func deal(ticket, magic int64, code int, at time.Time) domain.Deal {
	return domain.Deal{
		Ticket:     ticket,
		Magic:      magic,
		Symbol:     "EURUSD",
		TypeCode:   code,
		Volume:     0.1,
		Price:      1.0850,
		Time:       at,
		Profit:     5,
		Commission: -0.35,
	}
}

func position(ticket, magic int64, code int) domain.Position {
	return domain.Position{
		Ticket:       ticket,
		Magic:        magic,
		Symbol:       "XAUUSD",
		TypeCode:     code,
		Volume:       0.2,
		OpenPrice:    2300,
		CurrentPrice: 2305,
		Profit:       10,
	}
}

// fakeSession is a scriptable terminal.Session.
type fakeSession struct {
	endpoint  domain.Endpoint
	account   int64
	accountFn func() (int64, error)
	deals     terminal.DealsResult
	positions terminal.PositionsResult
	info      terminal.AccountInfoResult

	mu        sync.Mutex
	dealCalls [][2]time.Time
	closed    int
	panicOn   string
}

func (s *fakeSession) Endpoint() domain.Endpoint { return s.endpoint }

func (s *fakeSession) AccountID(context.Context) (int64, error) {
	if s.panicOn == "account" {
		panic("terminal crashed")
	}
	if s.accountFn != nil {
		return s.accountFn()
	}
	return s.account, nil
}

func (s *fakeSession) Deals(_ context.Context, from, to time.Time) terminal.DealsResult {
	s.mu.Lock()
	s.dealCalls = append(s.dealCalls, [2]time.Time{from, to})
	s.mu.Unlock()
	if s.panicOn == "deals" {
		panic("terminal crashed")
	}
	return s.deals
}

func (s *fakeSession) Positions(context.Context) terminal.PositionsResult { return s.positions }

func (s *fakeSession) AccountInfo(context.Context) terminal.AccountInfoResult { return s.info }

func (s *fakeSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// fakeTerminal hands out fakeSessions by endpoint path.
type fakeTerminal struct {
	sessions map[string]*fakeSession
	connects []string
}

func (t *fakeTerminal) Connect(_ context.Context, ep domain.Endpoint) (terminal.Session, error) {
	t.connects = append(t.connects, ep.Path)
	s, ok := t.sessions[ep.Path]
	if !ok {
		return nil, &terminal.ConnectError{Endpoint: ep, Err: errInjected}
	}
	return s, nil
}

// failingDealStore fails every CommitBatch after delegating reads.
type failingDealStore struct {
	storage.DealStore
}

func (failingDealStore) CommitBatch(context.Context, *storage.DealBatch) (int, int, error) {
	return 0, 0, errInjected
}

// failingConfigStore fails every read.
type failingConfigStore struct {
	storage.ConfigStore
}

func (failingConfigStore) Get(context.Context, string) (*domain.ConfigEntry, error) {
	return nil, errInjected
}

// failingMirror rejects every write.
type failingMirror struct{ calls int }

func (m *failingMirror) InsertBulk(context.Context, []*domain.AccountSnapshot) error {
	m.calls++
	return errInjected
}
