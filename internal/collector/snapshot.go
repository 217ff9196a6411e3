package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/observability"
	"terminal-collector/internal/storage"
	"terminal-collector/internal/terminal"
)

// SnapshotRecorder appends one account snapshot per successful poll.
type SnapshotRecorder struct {
	snapshots storage.SnapshotStore
	mirror    storage.SnapshotMirror // optional
	log       zerolog.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewSnapshotRecorder creates a new SnapshotRecorder. mirror may be nil.
func NewSnapshotRecorder(snapshots storage.SnapshotStore, mirror storage.SnapshotMirror, deps Deps) *SnapshotRecorder {
	deps = deps.withDefaults()
	return &SnapshotRecorder{
		snapshots: snapshots,
		mirror:    mirror,
		log:       deps.Logger,
		metrics:   deps.Metrics,
		now:       deps.Now,
	}
}

// snapshotOrigin is stored in extra_data.
type snapshotOrigin struct {
	Login    int64  `json:"login"`
	Endpoint string `json:"endpoint"`
}

// Record reads account info and appends a snapshot. Returns false when the
// terminal had nothing to report and no row was written.
func (r *SnapshotRecorder) Record(ctx context.Context, session terminal.Session, accountID int64) (bool, error) {
	result := session.AccountInfo(ctx)
	switch result.Status {
	case terminal.StatusUnavailable, terminal.StatusEmpty:
		r.log.Debug().Int64("account_id", accountID).Msg("account info unavailable, snapshot skipped")
		return false, nil
	case terminal.StatusFailed:
		return false, fmt.Errorf("%w: account info: %w", ErrFetchFailed, result.Err)
	}

	snap := domain.NewAccountSnapshot(accountID, result.Info, r.now())

	origin, err := json.Marshal(snapshotOrigin{Login: result.Info.Login, Endpoint: session.Endpoint().String()})
	if err != nil {
		return false, fmt.Errorf("encode extra data: %w", err)
	}
	extra := string(origin)
	snap.ExtraData = &extra

	if err := r.snapshots.Insert(ctx, snap); err != nil {
		return false, fmt.Errorf("%w: snapshot: %w", ErrCommitFailed, err)
	}
	r.metrics.SnapshotsRecorded.Inc()

	if r.mirror != nil {
		if err := r.mirror.InsertBulk(ctx, []*domain.AccountSnapshot{snap}); err != nil {
			r.metrics.MirrorErrors.Inc()
			r.log.Warn().Err(err).Int64("account_id", accountID).Int64("snapshot_id", snap.ID).Msg("snapshot mirror write failed")
		}
	}

	r.log.Debug().
		Int64("account_id", accountID).
		Float64("equity", snap.Equity).
		Float64("balance", snap.Balance).
		Msg("recorded snapshot")
	return true, nil
}
