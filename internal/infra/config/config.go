// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Playlist store types.
const (
	PlaylistTypeFile    = "file"
	PlaylistTypeSpotify = "spotify"
	PlaylistTypeMinio   = "minio"
)

// Media output types.
const (
	OutputClock   = "clock"
	OutputSpeaker = "speaker"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Player   PlayerConfig   `yaml:"player"`
	Session  SessionConfig  `yaml:"session"`
	Playlist PlaylistConfig `yaml:"playlist"`
	Enrich   EnrichConfig   `yaml:"enrich"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr         string `yaml:"addr" default:":8080"`
	ControlToken string `yaml:"control_token"`
}

// PlayerConfig represents media playback configuration.
type PlayerConfig struct {
	Autoplay           bool   `yaml:"autoplay"`
	Output             string `yaml:"output" default:"clock" validate:"oneof=clock speaker"`
	PositionIntervalMs int    `yaml:"position_interval_ms" default:"250" validate:"gte=10,lte=5000"`
	FetchTimeoutSec    int    `yaml:"fetch_timeout_sec" default:"30" validate:"gte=1,lte=600"`
}

// SessionConfig represents session-related configuration.
type SessionConfig struct {
	ProgressIntervalMs int `yaml:"progress_interval_ms" default:"500" validate:"gte=0,lte=60000"`
}

// PlaylistConfig selects the playlist store and its settings.
type PlaylistConfig struct {
	Type     string         `yaml:"type" default:"file" validate:"oneof=file spotify minio"`
	Settings map[string]any `yaml:"settings"`
}

// EnrichConfig represents metadata enrichment configuration.
type EnrichConfig struct {
	ID3          bool   `yaml:"id3"`
	LastFMAPIKey string `yaml:"lastfm_api_key"`
	Concurrency  int    `yaml:"concurrency" default:"4" validate:"gte=1,lte=32"`
}

// SpotifyConfig represents Spotify API configuration.
// It is only required when the playlist store is spotify.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.Enrich.LastFMAPIKey = v
	}
	if v := os.Getenv("CONTROL_TOKEN"); v != "" {
		c.Server.ControlToken = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	// Spotify credentials are needed only by the spotify store
	if c.Playlist.Type == PlaylistTypeSpotify {
		if err := c.validateSpotify(); err != nil {
			return err
		}
	}

	return nil
}

// validateSpotify checks that the Spotify credentials are present.
func (c *Config) validateSpotify() error {
	missing := []string{}
	if c.Spotify.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.Spotify.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.Spotify.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if len(missing) > 0 {
		return errors.Newf("spotify playlist requires spotify.%v", missing)
	}
	return nil
}

// PositionInterval returns the media position notification interval.
func (c *Config) PositionInterval() time.Duration {
	return time.Duration(c.Player.PositionIntervalMs) * time.Millisecond
}

// FetchTimeout returns the timeout for fetching a track source.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Player.FetchTimeoutSec) * time.Second
}

// ProgressInterval returns the minimum gap between progress notifications.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Session.ProgressIntervalMs) * time.Millisecond
}
