// Package collector synchronizes terminal state into the durable store.
//
// One poll cycle visits every configured endpoint in turn and runs, per account:
// deal sync (append-only history), snapshot recording (append-only time series)
// and open-position replication (full replace per account).
package collector

import (
	"time"

	"github.com/rs/zerolog"

	"terminal-collector/internal/observability"
)

// Deps carries the ambient dependencies shared by the sync components.
type Deps struct {
	Logger  zerolog.Logger
	Metrics *observability.Metrics // nil gets a private registry
	Now     func() time.Time       // nil uses time.Now
}

func (d Deps) withDefaults() Deps {
	if d.Metrics == nil {
		d.Metrics = observability.NewMetrics("")
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}
