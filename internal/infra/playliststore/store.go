// Package playliststore loads the static playlist the player is bound to.
package playliststore

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/osa030/ringdeck/internal/domain/playlist"
	"github.com/osa030/ringdeck/internal/domain/track"
)

// ErrUnsupportedFormat is returned for playlist documents that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported playlist format")

// Store loads a playlist.
type Store interface {
	Load(ctx context.Context) (*playlist.Playlist, error)

	// Name returns the store type (used in config).
	Name() string
}

// Document is the playlist document format shared by the file and minio stores.
type Document struct {
	Artist string          `json:"artist" yaml:"artist"`
	Tracks []DocumentTrack `json:"tracks" yaml:"tracks"`
}

// DocumentTrack is one entry of a playlist document.
type DocumentTrack struct {
	Name       string `json:"name" yaml:"name"`
	Artist     string `json:"artist,omitempty" yaml:"artist,omitempty"`
	URL        string `json:"url" yaml:"url"`
	CoverImage string `json:"cover_image" yaml:"cover_image"`
}

// ParseDocument decodes a playlist document. The format is chosen from the
// file name extension; names without a known extension are parsed as JSON.
func ParseDocument(name string, data []byte) (*Document, error) {
	var doc Document
	switch strings.ToLower(path.Ext(name)) {
	case ".json", "":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "failed to parse playlist json")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "failed to parse playlist yaml")
		}
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", name)
	}
	return &doc, nil
}

// Playlist builds the domain playlist. resolve maps each track and cover
// reference to a URL the media can open; nil keeps references unchanged.
func (d *Document) Playlist(resolve func(ref string) (string, error)) (*playlist.Playlist, error) {
	if resolve == nil {
		resolve = func(ref string) (string, error) { return ref, nil }
	}

	tracks := make([]track.Track, 0, len(d.Tracks))
	for i, dt := range d.Tracks {
		audioURL, err := resolve(dt.URL)
		if err != nil {
			return nil, errors.Wrapf(err, "track %d", i)
		}
		cover := dt.CoverImage
		if cover != "" {
			if cover, err = resolve(cover); err != nil {
				return nil, errors.Wrapf(err, "track %d cover", i)
			}
		}
		tracks = append(tracks, track.Track{
			Name:          dt.Name,
			Artist:        dt.Artist,
			AudioURL:      audioURL,
			CoverImageURL: cover,
		})
	}
	return playlist.New(d.Artist, tracks)
}

// isAbsoluteURL reports whether ref already names a remote resource.
func isAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "file://")
}

// decodeSettings decodes store settings, applies defaults and validates them.
func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
