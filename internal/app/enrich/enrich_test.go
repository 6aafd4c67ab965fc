package enrich

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/ringdeck/internal/domain/playlist"
	"github.com/osa030/ringdeck/internal/domain/track"
	"github.com/osa030/ringdeck/internal/infra/config"
	"github.com/osa030/ringdeck/internal/infra/lastfm"
)

type fakeEnricher struct {
	name  string
	found map[string]track.Track
	err   error

	mu    sync.Mutex
	calls []string
}

func (f *fakeEnricher) Name() string {
	return f.name
}

func (f *fakeEnricher) Enrich(ctx context.Context, t track.Track, artist string) (track.Track, error) {
	f.mu.Lock()
	f.calls = append(f.calls, t.AudioURL)
	f.mu.Unlock()
	if f.err != nil {
		return track.Track{}, f.err
	}
	return f.found[t.AudioURL], nil
}

func newPlaylist(t *testing.T, tracks ...track.Track) *playlist.Playlist {
	t.Helper()
	pl, err := playlist.New("The Artist", tracks)
	require.NoError(t, err)
	return pl
}

func TestChain_Apply(t *testing.T) {
	pl := newPlaylist(t,
		track.Track{AudioURL: "a.mp3"},
		track.Track{Name: "Kept", AudioURL: "b.mp3"},
		track.Track{Name: "Full", Artist: "X", AudioURL: "c.mp3", CoverImageURL: "c.jpg"},
	)

	first := &fakeEnricher{name: "first", found: map[string]track.Track{
		"a.mp3": {Name: "From First"},
		"b.mp3": {Name: "Ignored", Artist: "Tagged"},
	}}
	second := &fakeEnricher{name: "second", found: map[string]track.Track{
		"a.mp3": {Name: "From Second", CoverImageURL: "a.jpg"},
	}}

	out, err := NewChain([]Enricher{first, second}, 2).Apply(context.Background(), pl)
	require.NoError(t, err)

	a, _ := out.Track(0)
	assert.Equal(t, "From First", a.Name)
	assert.Equal(t, "a.jpg", a.CoverImageURL)

	b, _ := out.Track(1)
	assert.Equal(t, "Kept", b.Name)
	assert.Equal(t, "Tagged", b.Artist)

	c, _ := out.Track(2)
	assert.Equal(t, "Full", c.Name)
	assert.NotContains(t, first.calls, "c.mp3")

	// The input playlist is not modified
	orig, _ := pl.Track(0)
	assert.Empty(t, orig.Name)
}

func TestChain_Apply_FailuresIgnored(t *testing.T) {
	pl := newPlaylist(t, track.Track{AudioURL: "a.mp3"})

	broken := &fakeEnricher{name: "broken", err: errors.New("boom")}
	working := &fakeEnricher{name: "working", found: map[string]track.Track{
		"a.mp3": {Name: "Recovered"},
	}}

	out, err := NewChain([]Enricher{broken, working}, 1).Apply(context.Background(), pl)
	require.NoError(t, err)
	a, _ := out.Track(0)
	assert.Equal(t, "Recovered", a.Name)
}

func TestChain_Apply_Unchanged(t *testing.T) {
	pl := newPlaylist(t, track.Track{AudioURL: "a.mp3"})

	out, err := NewChain(nil, 4).Apply(context.Background(), pl)
	require.NoError(t, err)
	assert.Same(t, pl, out)

	out, err = NewChain([]Enricher{&fakeEnricher{name: "empty"}}, 0).Apply(context.Background(), pl)
	require.NoError(t, err)
	assert.Same(t, pl, out)
}

func TestChain_Apply_Canceled(t *testing.T) {
	pl := newPlaylist(t, track.Track{AudioURL: "a.mp3"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChain([]Enricher{&fakeEnricher{name: "any"}}, 1).Apply(ctx, pl)
	assert.ErrorIs(t, err, context.Canceled)
}

func writeTaggedMP3(t *testing.T, dir, name, title, artist string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	// Frame sync followed by padding; the tag is prepended on save
	require.NoError(t, os.WriteFile(path, append([]byte{0xff, 0xfb, 0x90, 0x00}, make([]byte, 128)...), 0o600))

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(title)
	tag.SetArtist(artist)
	require.NoError(t, tag.Save())
	require.NoError(t, tag.Close())
	return path
}

func TestID3Enricher(t *testing.T) {
	dir := t.TempDir()
	path := writeTaggedMP3(t, dir, "song.mp3", "Tagged Title", "Tagged Artist")

	tests := []struct {
		name    string
		url     string
		want    track.Track
		wantErr bool
	}{
		{name: "plain path", url: path, want: track.Track{Name: "Tagged Title", Artist: "Tagged Artist"}},
		{name: "file url", url: "file://" + path, want: track.Track{Name: "Tagged Title", Artist: "Tagged Artist"}},
		{name: "remote", url: "https://example.com/song.mp3"},
		{name: "not mp3", url: filepath.Join(dir, "song.wav")},
		{name: "missing file", url: filepath.Join(dir, "missing.mp3"), wantErr: true},
	}

	e := NewID3Enricher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Enrich(context.Background(), track.Track{AudioURL: tt.url}, "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakeLastFm struct {
	info      *lastfm.TrackInfo
	err       error
	albumURL  string
	gotArtist string
	albumHits int
}

func (f *fakeLastFm) GetTrackInfo(ctx context.Context, trackName, artistName string) (*lastfm.TrackInfo, error) {
	f.gotArtist = artistName
	return f.info, f.err
}

func (f *fakeLastFm) GetAlbumImage(ctx context.Context, albumName, artistName string) (string, error) {
	f.albumHits++
	return f.albumURL, nil
}

func TestLastFmEnricher(t *testing.T) {
	tests := []struct {
		name          string
		client        *fakeLastFm
		track         track.Track
		wantCover     string
		wantErr       bool
		wantAlbumHits int
	}{
		{
			name:      "track image",
			client:    &fakeLastFm{info: &lastfm.TrackInfo{ImageURL: "track.jpg"}},
			track:     track.Track{Name: "Song", AudioURL: "a.mp3"},
			wantCover: "track.jpg",
		},
		{
			name:          "album fallback",
			client:        &fakeLastFm{info: &lastfm.TrackInfo{Album: "Record"}, albumURL: "album.jpg"},
			track:         track.Track{Name: "Song", AudioURL: "a.mp3"},
			wantCover:     "album.jpg",
			wantAlbumHits: 1,
		},
		{
			name:   "not found",
			client: &fakeLastFm{err: errors.Wrap(lastfm.ErrNotFound, "Track not found")},
			track:  track.Track{Name: "Song", AudioURL: "a.mp3"},
		},
		{
			name:    "api error",
			client:  &fakeLastFm{err: errors.New("rate limited")},
			track:   track.Track{Name: "Song", AudioURL: "a.mp3"},
			wantErr: true,
		},
		{
			name:   "no name",
			client: &fakeLastFm{err: errors.New("must not be called")},
			track:  track.Track{AudioURL: "a.mp3"},
		},
		{
			name:   "has cover",
			client: &fakeLastFm{err: errors.New("must not be called")},
			track:  track.Track{Name: "Song", AudioURL: "a.mp3", CoverImageURL: "mine.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLastFmEnricher(tt.client).Enrich(context.Background(), tt.track, "The Artist")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCover, got.CoverImageURL)
			assert.Equal(t, tt.wantAlbumHits, tt.client.albumHits)
		})
	}
}

func TestLastFmEnricher_TrackArtist(t *testing.T) {
	client := &fakeLastFm{info: &lastfm.TrackInfo{}}
	_, err := NewLastFmEnricher(client).Enrich(context.Background(),
		track.Track{Name: "Song", Artist: "Guest", AudioURL: "a.mp3"}, "The Artist")
	require.NoError(t, err)
	assert.Equal(t, "Guest", client.gotArtist)
}

func TestNewChainFromConfig(t *testing.T) {
	tests := []struct {
		name   string
		enrich config.EnrichConfig
		want   int
	}{
		{name: "disabled", enrich: config.EnrichConfig{Concurrency: 4}, want: 0},
		{name: "id3", enrich: config.EnrichConfig{ID3: true, Concurrency: 4}, want: 1},
		{name: "both", enrich: config.EnrichConfig{ID3: true, LastFMAPIKey: "key", Concurrency: 2}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, err := NewChainFromConfig(&config.Config{Enrich: tt.enrich})
			require.NoError(t, err)
			assert.Equal(t, tt.want, chain.Len())
		})
	}
}
