// Package playlist provides the Playlist domain entity.
package playlist

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/ringdeck/internal/domain/track"
)

// Errors
var (
	ErrEmptyPlaylist = errors.New("playlist has no tracks")
	ErrInvalidTrack  = errors.New("playlist contains an invalid track")
)

// Playlist is an ordered, non-empty, immutable sequence of tracks.
type Playlist struct {
	artistName string
	tracks     []track.Track
}

// New creates a playlist. The tracks slice is copied.
func New(artistName string, tracks []track.Track) (*Playlist, error) {
	p := &Playlist{
		artistName: artistName,
		tracks:     append([]track.Track(nil), tracks...),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the playlist invariants.
func (p *Playlist) Validate() error {
	if len(p.tracks) == 0 {
		return ErrEmptyPlaylist
	}
	for i := range p.tracks {
		if err := p.tracks[i].Validate(); err != nil {
			return errors.Wrapf(errors.Mark(err, ErrInvalidTrack), "track %d", i)
		}
	}
	return nil
}

// ArtistName returns the playlist artist.
func (p *Playlist) ArtistName() string {
	return p.artistName
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.tracks)
}

// Track returns the track at index i.
func (p *Playlist) Track(i int) (track.Track, bool) {
	if i < 0 || i >= len(p.tracks) {
		return track.Track{}, false
	}
	return p.tracks[i], true
}

// Tracks returns a copy of all tracks.
func (p *Playlist) Tracks() []track.Track {
	return append([]track.Track(nil), p.tracks...)
}

// Next returns the index after i, wrapping to the first track.
func (p *Playlist) Next(i int) int {
	if i < len(p.tracks)-1 {
		return i + 1
	}
	return 0
}

// Previous returns the index before i, wrapping to the last track.
func (p *Playlist) Previous(i int) int {
	if i > 0 {
		return i - 1
	}
	return len(p.tracks) - 1
}
