package enrich

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/ringdeck/internal/domain/track"
	"github.com/osa030/ringdeck/internal/infra/lastfm"
)

// LastFmClient defines the Last.fm operations needed by LastFmEnricher.
type LastFmClient interface {
	GetTrackInfo(ctx context.Context, trackName, artistName string) (*lastfm.TrackInfo, error)
	GetAlbumImage(ctx context.Context, albumName, artistName string) (string, error)
}

// LastFmEnricher looks up cover art on Last.fm.
type LastFmEnricher struct {
	lastfm LastFmClient
}

// NewLastFmEnricher creates a new LastFmEnricher.
func NewLastFmEnricher(client LastFmClient) *LastFmEnricher {
	return &LastFmEnricher{lastfm: client}
}

// Name returns the enricher name.
func (e *LastFmEnricher) Name() string {
	return "lastfm"
}

// Enrich returns the album image of t. Tracks without a name or artist,
// and tracks that already have a cover, are not looked up.
func (e *LastFmEnricher) Enrich(ctx context.Context, t track.Track, artist string) (track.Track, error) {
	artist = t.DisplayArtist(artist)
	if t.CoverImageURL != "" || t.Name == "" || artist == "" {
		return track.Track{}, nil
	}

	info, err := e.lastfm.GetTrackInfo(ctx, t.Name, artist)
	if errors.Is(err, lastfm.ErrNotFound) {
		return track.Track{}, nil
	}
	if err != nil {
		return track.Track{}, err
	}

	cover := info.ImageURL
	if cover == "" && info.Album != "" {
		cover, err = e.lastfm.GetAlbumImage(ctx, info.Album, artist)
		if err != nil && !errors.Is(err, lastfm.ErrNotFound) {
			return track.Track{}, err
		}
	}
	return track.Track{CoverImageURL: cover}, nil
}
