package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrack_Validate(t *testing.T) {
	tests := []struct {
		name    string
		track   Track
		wantErr bool
	}{
		{
			name:  "valid track",
			track: Track{Name: "Song", AudioURL: "https://example.com/a.mp3"},
		},
		{
			name:    "empty audio url",
			track:   Track{Name: "Song"},
			wantErr: true,
		},
		{
			name:    "whitespace audio url",
			track:   Track{Name: "Song", AudioURL: "   "},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.track.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingAudioURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTrack_DisplayArtist(t *testing.T) {
	withArtist := Track{Artist: "Solo"}
	withoutArtist := Track{}

	assert.Equal(t, "Solo", withArtist.DisplayArtist("Band"))
	assert.Equal(t, "Band", withoutArtist.DisplayArtist("Band"))
}

func TestTrack_DisplayName(t *testing.T) {
	tests := []struct {
		name     string
		track    Track
		expected string
	}{
		{
			name:     "explicit name",
			track:    Track{Name: "Intro", AudioURL: "https://example.com/01.mp3"},
			expected: "Intro",
		},
		{
			name:     "derived from url",
			track:    Track{AudioURL: "https://example.com/music/02-outro.mp3"},
			expected: "02-outro.mp3",
		},
		{
			name:     "query string stripped",
			track:    Track{AudioURL: "https://example.com/03.mp3?sig=abc"},
			expected: "03.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.track.DisplayName())
		})
	}
}
