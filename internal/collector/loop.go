package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/observability"
	"terminal-collector/internal/storage"
	"terminal-collector/internal/terminal"
)

// DefaultInterval is the pause between the end of one cycle and the start of the next.
const DefaultInterval = 60 * time.Second

// State is the loop's run state.
type State int32

const (
	StateIdle State = iota
	StateRunning
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options for creating Loop.
type Options struct {
	Terminal terminal.Terminal
	Stores   storage.Stores
	Mirror   storage.SnapshotMirror // optional

	// Static endpoint list used when the store has no mt5_paths entry.
	FallbackEndpoints []domain.Endpoint

	Interval time.Duration // default DefaultInterval

	Logger  zerolog.Logger
	Metrics *observability.Metrics
	Now     func() time.Time
}

// Failure is one failed operation on an endpoint.
type Failure struct {
	Op  string
	Err error
}

// EndpointReport is the outcome of visiting one endpoint.
type EndpointReport struct {
	Endpoint          domain.Endpoint
	AccountID         int64 // zero when the account could not be determined
	DealsInserted     int
	SnapshotRecorded  bool
	PositionsReplaced int
	Failures          []Failure
}

// Failed reports whether any operation on the endpoint failed.
func (r EndpointReport) Failed() bool {
	return len(r.Failures) > 0
}

// CycleReport is the outcome of one pass over all endpoints.
type CycleReport struct {
	CycleID   string
	StartedAt time.Time
	Duration  time.Duration
	Endpoints []EndpointReport
}

// Failures returns the number of failed operations across endpoints.
func (r CycleReport) Failures() int {
	n := 0
	for _, e := range r.Endpoints {
		n += len(e.Failures)
	}
	return n
}

// Loop polls every configured terminal endpoint, one at a time, forever.
type Loop struct {
	terminal  terminal.Terminal
	resolver  *EndpointResolver
	deals     *DealSyncer
	snapshots *SnapshotRecorder
	positions *PositionReplicator

	interval time.Duration
	log      zerolog.Logger
	metrics  *observability.Metrics
	now      func() time.Time

	state atomic.Int32
}

// New creates a new Loop.
func New(opts Options) *Loop {
	deps := Deps{Logger: opts.Logger, Metrics: opts.Metrics, Now: opts.Now}.withDefaults()

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Loop{
		terminal:  opts.Terminal,
		resolver:  NewEndpointResolver(opts.Stores.Config, opts.FallbackEndpoints, deps.Logger),
		deals:     NewDealSyncer(opts.Stores.Deals, opts.Stores.Strategies, deps),
		snapshots: NewSnapshotRecorder(opts.Stores.Snapshots, opts.Mirror, deps),
		positions: NewPositionReplicator(opts.Stores.Positions, deps),
		interval:  interval,
		log:       deps.Logger,
		metrics:   deps.Metrics,
		now:       deps.Now,
	}
}

// State returns the current loop state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
	l.metrics.SetRunning(s == StateRunning)
}

// Run executes cycles until ctx is cancelled, then returns nil.
// Endpoint failures never stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().Dur("interval", l.interval).Msg("collector loop started")

	for {
		l.RunOnce(ctx)

		select {
		case <-ctx.Done():
			l.log.Info().Msg("collector loop stopped")
			return nil
		case <-time.After(l.interval):
		}
	}
}

// RunOnce runs a single pass over all endpoints.
func (l *Loop) RunOnce(ctx context.Context) CycleReport {
	l.setState(StateRunning)
	defer l.setState(StateIdle)

	report := CycleReport{
		CycleID:   uuid.NewString(),
		StartedAt: l.now().UTC(),
	}
	log := l.log.With().Str("cycle_id", report.CycleID).Logger()

	endpoints := l.resolver.Resolve(ctx)
	log.Info().Int("endpoints", len(endpoints)).Msg("cycle started")

	for _, ep := range endpoints {
		if ctx.Err() != nil {
			log.Info().Msg("cycle interrupted")
			break
		}
		report.Endpoints = append(report.Endpoints, l.processEndpoint(ctx, log, ep))
	}

	report.Duration = l.now().Sub(report.StartedAt)
	l.metrics.RecordCycle(report.Failures(), report.Duration.Seconds(), l.now().Unix())

	log.Info().
		Int("endpoints", len(report.Endpoints)).
		Int("failures", report.Failures()).
		Dur("duration", report.Duration).
		Msg("cycle complete")
	return report
}

// processEndpoint connects, syncs and disconnects one endpoint.
// Panics are recovered and reported as endpoint failures.
func (l *Loop) processEndpoint(ctx context.Context, cycleLog zerolog.Logger, ep domain.Endpoint) (report EndpointReport) {
	report.Endpoint = ep
	log := cycleLog.With().Str("endpoint", ep.String()).Logger()
	l.metrics.EndpointsProcessed.Inc()

	fail := func(op string, err error) {
		report.Failures = append(report.Failures, Failure{Op: op, Err: err})
		l.metrics.RecordEndpointFailure(op)
		log.Error().Err(err).Str("op", op).Int64("account_id", report.AccountID).Msg("endpoint operation failed")
	}

	defer func() {
		if r := recover(); r != nil {
			fail(observability.OpPanic, fmt.Errorf("panic: %v", r))
		}
	}()

	session, err := l.terminal.Connect(ctx, ep)
	if err != nil {
		fail(observability.OpConnect, err)
		return report
	}
	defer func() {
		// release the terminal even when the loop is being cancelled
		if err := session.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("close terminal session")
		}
	}()

	accountID, err := session.AccountID(ctx)
	if err != nil {
		if errors.Is(err, terminal.ErrUnavailable) {
			err = fmt.Errorf("no account reported: %w", err)
		}
		fail(observability.OpAccount, err)
		return report
	}
	report.AccountID = accountID
	log = log.With().Int64("account_id", accountID).Logger()
	log.Info().Msg("connected")

	if n, err := l.deals.Sync(ctx, session, accountID); err != nil {
		fail(observability.OpDeals, err)
	} else {
		report.DealsInserted = n
	}

	if ok, err := l.snapshots.Record(ctx, session, accountID); err != nil {
		fail(observability.OpSnapshot, err)
	} else {
		report.SnapshotRecorded = ok
	}

	if n, err := l.positions.Replace(ctx, session, accountID); err != nil {
		fail(observability.OpPositions, err)
	} else {
		report.PositionsReplaced = n
	}

	return report
}
