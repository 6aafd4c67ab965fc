package enrich

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ringdeck/internal/infra/config"
	"github.com/osa030/ringdeck/internal/infra/lastfm"
)

// NewChainFromConfig creates the enricher chain selected by configuration.
// The chain is empty when enrichment is disabled.
func NewChainFromConfig(cfg *config.Config) (*Chain, error) {
	var enrichers []Enricher

	if cfg.Enrich.ID3 {
		enrichers = append(enrichers, NewID3Enricher())
	}

	if cfg.Enrich.LastFMAPIKey != "" {
		client, err := lastfm.New(lastfm.Config{APIKey: cfg.Enrich.LastFMAPIKey})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create last.fm client")
		}
		enrichers = append(enrichers, NewLastFmEnricher(client))
	}

	for i, e := range enrichers {
		zlog.Info().Msgf("registered enricher: index=%d name=%s", i+1, e.Name())
	}
	return NewChain(enrichers, cfg.Enrich.Concurrency), nil
}
