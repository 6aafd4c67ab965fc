package enrich

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/cockroachdb/errors"

	"github.com/osa030/ringdeck/internal/domain/track"
)

// ID3Enricher reads title and artist from the ID3v2 tag of local MP3 files.
// Remote tracks are ignored.
type ID3Enricher struct{}

// NewID3Enricher creates a new ID3Enricher.
func NewID3Enricher() *ID3Enricher {
	return &ID3Enricher{}
}

// Name returns the enricher name.
func (e *ID3Enricher) Name() string {
	return "id3"
}

// Enrich reads the tag of t's audio file.
func (e *ID3Enricher) Enrich(ctx context.Context, t track.Track, artist string) (track.Track, error) {
	path, ok := localPath(t.AudioURL)
	if !ok || !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return track.Track{}, nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{
		Parse:       true,
		ParseFrames: []string{"Title", "Artist"},
	})
	if err != nil {
		return track.Track{}, errors.Wrapf(err, "failed to read id3 tag of %s", path)
	}
	defer tag.Close()

	return track.Track{
		Name:   strings.TrimSpace(tag.Title()),
		Artist: strings.TrimSpace(tag.Artist()),
	}, nil
}

// localPath returns the filesystem path of a plain path or file:// reference.
func localPath(ref string) (string, bool) {
	if strings.HasPrefix(ref, "file://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", false
		}
		return u.Path, true
	}
	if strings.Contains(ref, "://") {
		return "", false
	}
	return ref, ref != ""
}
