package playback

// EventType represents a playback event type.
type EventType int

const (
	EventTrackChanged     EventType = iota // Current index changed (or was replayed)
	EventTransportChanged                  // Playing intent flipped or was reconciled
	EventSeeked                            // Position moved by SeekTo
	EventProgress                          // Progress recomputed from a position update
	EventCommandFailed                     // The media rejected a command
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventTransportChanged:
		return "transport_changed"
	case EventSeeked:
		return "seeked"
	case EventProgress:
		return "progress"
	case EventCommandFailed:
		return "command_failed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type  EventType
	State Snapshot // State after the event was applied
	Err   error    // Set for EventCommandFailed
}
