package enrich

import (
	"context"
	"sync/atomic"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/osa030/ringdeck/internal/domain/playlist"
	"github.com/osa030/ringdeck/internal/domain/track"
)

// Chain applies enrichers in order to every track of a playlist.
// Tracks are processed concurrently; enrichers for one track run in order
// so earlier enrichers take precedence.
type Chain struct {
	enrichers   []Enricher
	concurrency int
}

// NewChain creates a new enricher chain.
func NewChain(enrichers []Enricher, concurrency int) *Chain {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Chain{
		enrichers:   enrichers,
		concurrency: concurrency,
	}
}

// Len returns the number of enrichers in the chain.
func (c *Chain) Len() int {
	return len(c.enrichers)
}

// Apply returns a playlist whose tracks have their empty fields filled.
// Enricher failures are logged and skipped; only context cancellation
// aborts the run.
func (c *Chain) Apply(ctx context.Context, pl *playlist.Playlist) (*playlist.Playlist, error) {
	if len(c.enrichers) == 0 {
		return pl, nil
	}

	tracks := pl.Tracks()
	artist := pl.ArtistName()
	var updated int32

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i := range tracks {
		i := i // capture
		g.Go(func() error {
			t, changed := c.enrichTrack(ctx, tracks[i], artist)
			if err := ctx.Err(); err != nil {
				return err
			}
			if changed {
				tracks[i] = t
				atomic.AddInt32(&updated, 1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	zlog.Info().Msgf("playlist enriched: tracks=%d updated=%d", len(tracks), updated)
	if updated == 0 {
		return pl, nil
	}
	return playlist.New(artist, tracks)
}

func (c *Chain) enrichTrack(ctx context.Context, t track.Track, artist string) (track.Track, bool) {
	changed := false
	for _, e := range c.enrichers {
		if complete(t) {
			break
		}
		found, err := e.Enrich(ctx, t, artist)
		if err != nil {
			zlog.Warn().Msgf("enricher failed, skipping: enricher=%s track=%s error=%v", e.Name(), t.DisplayName(), err)
			continue
		}
		var ok bool
		if t, ok = fillEmpty(t, found); ok {
			changed = true
			zlog.Debug().Msgf("track enriched: enricher=%s track=%s", e.Name(), t.DisplayName())
		}
	}
	return t, changed
}
