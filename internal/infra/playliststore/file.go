package playliststore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ringdeck/internal/domain/playlist"
)

// FileStoreConfig holds the settings of the file store.
type FileStoreConfig struct {
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
}

// FileStore loads a playlist document from the local filesystem.
// Relative track references are resolved against the document's directory.
type FileStore struct {
	config *FileStoreConfig
}

// NewFileStore creates a new FileStore.
func NewFileStore(settings map[string]any) (*FileStore, error) {
	var config FileStoreConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("file store config: %+v", config)
	return &FileStore{config: &config}, nil
}

// Name returns the store type.
func (s *FileStore) Name() string {
	return "file"
}

// Load reads and parses the playlist document.
func (s *FileStore) Load(ctx context.Context) (*playlist.Playlist, error) {
	data, err := os.ReadFile(s.config.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read playlist file")
	}
	doc, err := ParseDocument(s.config.Path, data)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(s.config.Path)
	return doc.Playlist(func(ref string) (string, error) {
		if ref == "" || isAbsoluteURL(ref) || filepath.IsAbs(ref) {
			return ref, nil
		}
		return filepath.Join(dir, ref), nil
	})
}
