package playliststore

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ringdeck/internal/infra/config"
)

// NewStoreFromConfig creates the playlist store selected by configuration.
// spotify may be nil unless the store type is spotify.
func NewStoreFromConfig(cfg *config.Config, spotify SpotifyClient) (Store, error) {
	pcfg := cfg.Playlist
	zlog.Debug().Msgf("creating playlist store: type=%s settings=%+v", pcfg.Type, redact(pcfg.Settings))

	var store Store
	var err error
	switch pcfg.Type {
	case config.PlaylistTypeFile:
		store, err = NewFileStore(pcfg.Settings)

	case config.PlaylistTypeSpotify:
		store, err = NewSpotifyStore(spotify, pcfg.Settings)

	case config.PlaylistTypeMinio:
		store, err = NewMinioStore(pcfg.Settings)

	default:
		return nil, errors.Newf("unsupported playlist store type: %s", pcfg.Type)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create playlist store (type %s)", pcfg.Type)
	}

	zlog.Info().Msgf("registered playlist store: type=%s", store.Name())
	return store, nil
}

// redact hides credentials in settings before logging.
func redact(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		switch k {
		case "access_key", "secret_key":
			out[k] = "***"
		default:
			out[k] = v
		}
	}
	return out
}
