// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrNotFound is returned when Last.fm does not know the track.
var ErrNotFound = errors.New("last.fm: not found")

// Last.fm error code for unknown tracks and albums.
const errCodeNotFound = 6

// Image sizes in order of preference.
var imageSizes = []string{"mega", "extralarge", "large", "medium", "small"}

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// Cache for track info
	trackInfoCache map[string]*TrackInfo
	cacheMu        sync.RWMutex
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey string
}

// TrackInfo represents track metadata from Last.fm.
type TrackInfo struct {
	Name     string
	Artist   string
	Album    string
	ImageURL string // Largest album image, empty when Last.fm has none
}

// image is a Last.fm image entry.
type image struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

// GetTrackInfoResponse represents the response from track.getInfo API.
type GetTrackInfoResponse struct {
	Track struct {
		Name   string `json:"name"`
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
		Album struct {
			Title string  `json:"title"`
			Image []image `json:"image"`
		} `json:"album"`
	} `json:"track"`
}

// GetAlbumInfoResponse represents the response from album.getInfo API.
type GetAlbumInfoResponse struct {
	Album struct {
		Name   string  `json:"name"`
		Artist string  `json:"artist"`
		Image  []image `json:"image"`
	} `json:"album"`
}

// LastFMError represents an error response from Last.fm API.
type LastFMError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}

	return &Client{
		apiKey:         cfg.APIKey,
		baseURL:        "https://ws.audioscrobbler.com/2.0/",
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		trackInfoCache: make(map[string]*TrackInfo),
	}, nil
}

// GetTrackInfo retrieves metadata for a track from Last.fm.
// Reference: https://www.last.fm/api/show/track.getInfo
func (c *Client) GetTrackInfo(ctx context.Context, trackName, artistName string) (*TrackInfo, error) {
	if trackName == "" || artistName == "" {
		return nil, errors.New("track name and artist name are required")
	}

	// Check cache first
	cacheKey := strings.ToLower(fmt.Sprintf("trackinfo:%s:%s", artistName, trackName))
	c.cacheMu.RLock()
	if entry, ok := c.trackInfoCache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("using cached info for track: %s - %s", artistName, trackName)
		return entry, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("method", "track.getInfo")
	params.Set("artist", artistName)
	params.Set("track", trackName)
	params.Set("autocorrect", "1")

	var response GetTrackInfoResponse
	if err := c.get(ctx, params, &response); err != nil {
		return nil, err
	}

	info := &TrackInfo{
		Name:     response.Track.Name,
		Artist:   response.Track.Artist.Name,
		Album:    response.Track.Album.Title,
		ImageURL: largestImage(response.Track.Album.Image),
	}

	// Cache the result
	c.cacheMu.Lock()
	c.trackInfoCache[cacheKey] = info
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("cached info for track: %s - %s (album: %s)", artistName, trackName, info.Album)

	return info, nil
}

// GetAlbumImage retrieves the largest cover image of an album.
// Reference: https://www.last.fm/api/show/album.getInfo
func (c *Client) GetAlbumImage(ctx context.Context, albumName, artistName string) (string, error) {
	if albumName == "" || artistName == "" {
		return "", errors.New("album name and artist name are required")
	}

	params := url.Values{}
	params.Set("method", "album.getInfo")
	params.Set("artist", artistName)
	params.Set("album", albumName)
	params.Set("autocorrect", "1")

	var response GetAlbumInfoResponse
	if err := c.get(ctx, params, &response); err != nil {
		return "", err
	}
	return largestImage(response.Album.Image), nil
}

// get calls a Last.fm method and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")

	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	// Check for Last.fm API errors
	var apiError LastFMError
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error != 0 {
		if apiError.Error == errCodeNotFound {
			return errors.Wrap(ErrNotFound, apiError.Message)
		}
		return errors.Errorf("last.fm API error %d: %s", apiError.Error, apiError.Message)
	}

	// Parse successful response
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

// largestImage picks the biggest non-empty image.
func largestImage(images []image) string {
	bySize := make(map[string]string, len(images))
	for _, img := range images {
		if img.URL != "" {
			bySize[img.Size] = img.URL
		}
	}
	for _, size := range imageSizes {
		if u, ok := bySize[size]; ok {
			return u
		}
	}
	return ""
}
