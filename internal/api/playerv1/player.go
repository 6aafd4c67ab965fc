// Package playerv1 defines the messages of the player RPC API.
// Messages are JSON encoded on the wire.
package playerv1

// NotificationType represents the kind of state change a notification carries.
type NotificationType string

const (
	NotificationTypeInitialState     NotificationType = "INITIAL_STATE"
	NotificationTypeTrackChanged     NotificationType = "TRACK_CHANGED"
	NotificationTypeTransportChanged NotificationType = "TRANSPORT_CHANGED"
	NotificationTypeSeeked           NotificationType = "SEEKED"
	NotificationTypeProgress         NotificationType = "PROGRESS"
	NotificationTypeCommandFailed    NotificationType = "COMMAND_FAILED"
)

// TrackInfo describes the current track for display.
type TrackInfo struct {
	Name          string `json:"name"`
	Artist        string `json:"artist"`
	AudioUrl      string `json:"audio_url"`
	CoverImageUrl string `json:"cover_image_url"`
}

// PlayerState is the observable controller state.
type PlayerState struct {
	CurrentIndex     int32      `json:"current_index"`
	TrackCount       int32      `json:"track_count"`
	IsPlaying        bool       `json:"is_playing"`
	ProgressFraction float64    `json:"progress_fraction"`
	RemainingSeconds float64    `json:"remaining_seconds"`
	HasRemaining     bool       `json:"has_remaining"`
	RemainingText    string     `json:"remaining_text,omitempty"`
	Track            *TrackInfo `json:"track,omitempty"`
}

// Notification is pushed to subscribers on every state change.
type Notification struct {
	Type       NotificationType `json:"type"`
	SequenceNo uint64           `json:"sequence_no"`
	State      *PlayerState     `json:"state,omitempty"`
	Error      string           `json:"error,omitempty"`
}

type GetStateRequest struct{}

type GetStateResponse struct {
	State *PlayerState `json:"state"`
}

type PlayTrackRequest struct {
	Index int32 `json:"index"`
}

type ToggleRequest struct{}

type PreviousRequest struct{}

type NextRequest struct{}

type SeekRequest struct {
	Fraction float64 `json:"fraction"`
}

// SeekAtRequest carries a click on a seek bar in presentation coordinates.
type SeekAtRequest struct {
	PointerX float64 `json:"pointer_x"`
	Left     float64 `json:"left"`
	Width    float64 `json:"width"`
}

// CommandResponse is returned by every command procedure.
type CommandResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	State   *PlayerState `json:"state"`
}

type SubscribeRequest struct{}
