// Package track provides the Track domain entity.
package track

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrMissingAudioURL is returned when a track has nothing to play.
var ErrMissingAudioURL = errors.New("track has no audio url")

// Track represents one playable item of a playlist.
// Tracks are immutable once the playlist is built.
type Track struct {
	Name          string // Display name
	Artist        string // Per-track artist (optional, falls back to the playlist artist)
	AudioURL      string // Source handed to the media primitive
	CoverImageURL string // Cover art shown by the presentation layer
}

// Validate checks that the track can be played.
func (t *Track) Validate() error {
	if strings.TrimSpace(t.AudioURL) == "" {
		return ErrMissingAudioURL
	}
	return nil
}

// DisplayArtist returns the track artist, or fallback when the track has none.
func (t *Track) DisplayArtist(fallback string) string {
	if t.Artist != "" {
		return t.Artist
	}
	return fallback
}

// DisplayName returns the track name, or the last path element of the audio URL.
func (t *Track) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	u := strings.TrimRight(t.AudioURL, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		u = u[i+1:]
	}
	if i := strings.Index(u, "?"); i >= 0 {
		u = u[:i]
	}
	return u
}
