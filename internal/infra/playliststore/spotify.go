package playliststore

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ringdeck/internal/domain/playlist"
	"github.com/osa030/ringdeck/internal/infra/spotify"
)

// SpotifyClient defines the Spotify operations needed by the spotify store.
type SpotifyClient interface {
	GetPlaylist(ctx context.Context, playlistURL string) (*spotify.Playlist, error)
}

// SpotifyStoreConfig holds the settings of the spotify store.
type SpotifyStoreConfig struct {
	PlaylistURL string `yaml:"playlist_url" mapstructure:"playlist_url" validate:"required"`
	ArtistName  string `yaml:"artist_name" mapstructure:"artist_name"`
}

// SpotifyStore loads a Spotify playlist, playing each track's preview.
type SpotifyStore struct {
	spotify SpotifyClient
	config  *SpotifyStoreConfig
}

// NewSpotifyStore creates a new SpotifyStore.
func NewSpotifyStore(client SpotifyClient, settings map[string]any) (*SpotifyStore, error) {
	if client == nil {
		return nil, errors.New("spotify client is required")
	}
	var config SpotifyStoreConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("spotify store config: %+v", config)
	return &SpotifyStore{spotify: client, config: &config}, nil
}

// Name returns the store type.
func (s *SpotifyStore) Name() string {
	return "spotify"
}

// Load fetches the playlist. The playlist artist falls back to the owner.
func (s *SpotifyStore) Load(ctx context.Context) (*playlist.Playlist, error) {
	sp, err := s.spotify.GetPlaylist(ctx, s.config.PlaylistURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load spotify playlist")
	}

	artist := s.config.ArtistName
	if artist == "" {
		artist = sp.Owner
	}
	zlog.Info().Msgf("loaded spotify playlist: name=%s tracks=%d skipped=%d", sp.Name, len(sp.Tracks), sp.Skipped)
	return playlist.New(artist, sp.Tracks)
}
