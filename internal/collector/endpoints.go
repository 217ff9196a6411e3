package collector

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

// EndpointResolver decides which terminals to visit this cycle.
// The stored mt5_paths entry wins, then the static fallback, then the default terminal.
type EndpointResolver struct {
	config   storage.ConfigStore
	fallback []domain.Endpoint
	log      zerolog.Logger
}

// NewEndpointResolver creates a new EndpointResolver.
func NewEndpointResolver(config storage.ConfigStore, fallback []domain.Endpoint, log zerolog.Logger) *EndpointResolver {
	return &EndpointResolver{
		config:   config,
		fallback: fallback,
		log:      log,
	}
}

// Resolve returns a non-empty endpoint list. Store errors are logged and fall through.
func (r *EndpointResolver) Resolve(ctx context.Context) []domain.Endpoint {
	entry, err := r.config.Get(ctx, domain.ConfigKeyTerminalPaths)
	switch {
	case err == nil:
		if entry.Value != nil {
			if endpoints := domain.ParseEndpoints(*entry.Value); len(endpoints) > 0 {
				return endpoints
			}
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		r.log.Error().Err(err).Str("key", domain.ConfigKeyTerminalPaths).Msg("read terminal paths from store")
	}

	if len(r.fallback) > 0 {
		return append([]domain.Endpoint(nil), r.fallback...)
	}

	r.log.Warn().Msg("no terminal paths configured, using default terminal")
	return []domain.Endpoint{domain.DefaultEndpoint()}
}
