// Package enrich fills missing playlist metadata before playback starts.
package enrich

import (
	"context"

	"github.com/osa030/ringdeck/internal/domain/track"
)

// Enricher looks up metadata for a single track.
// Implementations return whatever they found; fields they know nothing
// about are left empty. The chain decides which fields are applied.
type Enricher interface {
	// Enrich returns metadata found for t. artist is the playlist artist,
	// used when the track has none of its own.
	Enrich(ctx context.Context, t track.Track, artist string) (track.Track, error)

	// Name returns the enricher name (used in logs).
	Name() string
}

// fillEmpty copies the fields of found into t where t has none.
func fillEmpty(t track.Track, found track.Track) (track.Track, bool) {
	changed := false
	if t.Name == "" && found.Name != "" {
		t.Name = found.Name
		changed = true
	}
	if t.Artist == "" && found.Artist != "" {
		t.Artist = found.Artist
		changed = true
	}
	if t.CoverImageURL == "" && found.CoverImageURL != "" {
		t.CoverImageURL = found.CoverImageURL
		changed = true
	}
	return t, changed
}

// complete reports whether t has nothing left to fill.
func complete(t track.Track) bool {
	return t.Name != "" && t.Artist != "" && t.CoverImageURL != ""
}
