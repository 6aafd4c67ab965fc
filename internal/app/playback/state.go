// Package playback provides the playback controller that keeps the player
// state in sync with a media primitive.
package playback

import "github.com/osa030/ringdeck/internal/domain/track"

// Transport represents the requested transport state.
type Transport int

const (
	TransportPaused  Transport = iota // Playback not requested
	TransportPlaying                  // Playback requested
)

// String returns the string representation of the transport state.
func (t Transport) String() string {
	switch t {
	case TransportPaused:
		return "paused"
	case TransportPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

func transportOf(playing bool) Transport {
	if playing {
		return TransportPlaying
	}
	return TransportPaused
}

// Snapshot is a copy of the controller state handed to the presentation layer.
type Snapshot struct {
	CurrentIndex     int
	TrackCount       int
	Transport        Transport
	IsPlaying        bool
	ProgressFraction float64 // 0 until the media reports a usable duration
	RemainingSeconds float64 // Meaningful only when HasRemaining is true
	HasRemaining     bool
	Track            track.Track
	ArtistName       string
}

// RemainingText returns the formatted remaining time, or "" when it must not
// be rendered.
func (s Snapshot) RemainingText() string {
	if !s.HasRemaining {
		return ""
	}
	text, _ := FormatTime(s.RemainingSeconds)
	return text
}
