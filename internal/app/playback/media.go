package playback

// Media is the playback primitive the controller binds to.
// Positions and durations are in seconds; Duration returns NaN until the
// primitive knows it.
//
// Handlers registered through OnPositionChanged, OnEnded and
// OnTransportChanged may run on any goroutine, but never synchronously from
// inside a Media method call.
type Media interface {
	SetSource(url string) error
	Play() error
	Pause() error
	Position() float64
	SetPosition(seconds float64) error
	Duration() float64

	// OnPositionChanged registers fn for position updates and returns a
	// function that removes it.
	OnPositionChanged(fn func()) (unsubscribe func())
	// OnEnded registers fn for the end of the current source.
	OnEnded(fn func()) (unsubscribe func())
}

// TransportNotifier is implemented by media that confirm when output actually
// starts or stops. The controller uses it to reconcile its playing intent.
type TransportNotifier interface {
	OnTransportChanged(fn func(playing bool)) (unsubscribe func())
}
