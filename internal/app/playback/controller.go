package playback

import (
	"context"
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ringdeck/internal/domain/playlist"
)

// Errors
var (
	ErrInvalidIndex    = errors.New("track index out of range")
	ErrInvalidFraction = errors.New("seek fraction out of range")
	ErrUnknownDuration = errors.New("media duration is unknown")
	ErrMediaCommand    = errors.New("media rejected command")
	ErrInactive        = errors.New("controller is not bound to media")
	ErrClosed          = errors.New("controller is closed")
)

const defaultEventBuffer = 64

// Config holds controller configuration.
type Config struct {
	Autoplay    bool // Initial transport state
	EventBuffer int  // Capacity of the event channel
}

// Controller keeps the player state synchronized with a media primitive.
// It is the only writer of that state; the presentation layer reads it
// through State and Events and changes it through the command methods.
type Controller struct {
	mu sync.Mutex

	playlist *playlist.Playlist
	media    Media

	// Player state
	currentIndex int
	isPlaying    bool // Intent, reconciled only when media confirms transport
	progress     float64
	remaining    float64
	hasRemaining bool

	// Media bindings
	active  bool
	unbinds []func()

	// Events
	eventCh chan Event
	closed  bool

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a new playback controller for a playlist and media.
// The controller does not touch the media until Activate is called.
func NewController(pl *playlist.Playlist, media Media, config Config) (*Controller, error) {
	if pl == nil {
		return nil, errors.New("playlist is required")
	}
	if err := pl.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid playlist")
	}
	if media == nil {
		return nil, errors.New("media is required")
	}
	buffer := config.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		playlist:  pl,
		media:     media,
		isPlaying: config.Autoplay,
		eventCh:   make(chan Event, buffer),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Activate binds the notification handlers to the media and loads the
// current track. Playback starts right away when autoplay was requested.
func (c *Controller) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.active {
		return nil
	}

	c.unbinds = append(c.unbinds,
		c.media.OnPositionChanged(c.onPositionChanged),
		c.media.OnEnded(c.onEnded),
	)
	if tn, ok := c.media.(TransportNotifier); ok {
		c.unbinds = append(c.unbinds, tn.OnTransportChanged(c.onTransportChanged))
	}
	c.active = true

	t, _ := c.playlist.Track(c.currentIndex)
	zlog.Debug().Msgf("playback: activated: index=%d autoplay=%v url=%s", c.currentIndex, c.isPlaying, t.AudioURL)

	c.sendEventLocked(EventTrackChanged, nil)

	if err := c.media.SetSource(t.AudioURL); err != nil {
		return c.commandFailedLocked("set source", err)
	}
	if c.isPlaying {
		if err := c.media.Play(); err != nil {
			return c.commandFailedLocked("play", err)
		}
	}
	return nil
}

// Deactivate removes every handler bound by Activate. It is safe to call
// more than once.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deactivateLocked()
}

func (c *Controller) deactivateLocked() {
	for _, unbind := range c.unbinds {
		if unbind != nil {
			unbind()
		}
	}
	c.unbinds = nil
	if c.active {
		zlog.Debug().Msg("playback: deactivated")
	}
	c.active = false
}

// PlayTrack jumps to the track at index and starts it from the beginning.
func (c *Controller) PlayTrack(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playTrackLocked(index)
}

// Toggle flips between playing and paused.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return ErrInactive
	}

	op := "play"
	var err error
	if c.isPlaying {
		op = "pause"
		err = c.media.Pause()
	} else {
		err = c.media.Play()
	}
	c.isPlaying = !c.isPlaying
	c.sendEventLocked(EventTransportChanged, nil)

	if err != nil {
		return c.commandFailedLocked(op, err)
	}
	return nil
}

// Previous plays the previous track, wrapping to the last one.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playTrackLocked(c.playlist.Previous(c.currentIndex))
}

// Next plays the next track, wrapping to the first one.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playTrackLocked(c.playlist.Next(c.currentIndex))
}

// SeekTo moves playback to fraction of the current track and starts playing.
func (c *Controller) SeekTo(fraction float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return ErrInactive
	}
	if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return errors.Wrapf(ErrInvalidFraction, "fraction %v", fraction)
	}
	duration := c.media.Duration()
	if !usableDuration(duration) {
		return ErrUnknownDuration
	}

	position := fraction * duration
	c.isPlaying = true
	c.progress = fraction
	c.remaining = duration - position
	c.hasRemaining = true
	c.sendEventLocked(EventSeeked, nil)

	if err := c.media.SetPosition(position); err != nil {
		return c.commandFailedLocked("seek", err)
	}
	if err := c.media.Play(); err != nil {
		return c.commandFailedLocked("play", err)
	}
	return nil
}

// State returns a snapshot of the current state.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close unbinds the media and closes the event channel.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.deactivateLocked()
	c.closed = true
	c.cancel()
	close(c.eventCh)
}

// playTrackLocked must be called with lock held.
func (c *Controller) playTrackLocked(index int) error {
	if !c.active {
		return ErrInactive
	}
	t, ok := c.playlist.Track(index)
	if !ok {
		return errors.Wrapf(ErrInvalidIndex, "index %d not in [0,%d)", index, c.playlist.Len())
	}

	c.currentIndex = index
	c.progress = 0
	c.remaining = 0
	c.hasRemaining = false
	c.isPlaying = true

	zlog.Debug().Msgf("playback: play track: index=%d name=%s", index, t.DisplayName())
	c.sendEventLocked(EventTrackChanged, nil)

	if err := c.media.SetSource(t.AudioURL); err != nil {
		return c.commandFailedLocked("set source", err)
	}
	if err := c.media.SetPosition(0); err != nil {
		return c.commandFailedLocked("seek", err)
	}
	if err := c.media.Play(); err != nil {
		return c.commandFailedLocked("play", err)
	}
	return nil
}

// onPositionChanged recomputes progress from the media position.
func (c *Controller) onPositionChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	fraction, remaining, ok := Progress(c.media.Position(), c.media.Duration())
	if !ok {
		return
	}
	c.progress = fraction
	c.remaining = remaining
	c.hasRemaining = true
	c.sendEventLocked(EventProgress, nil)
}

// onEnded advances the ring.
func (c *Controller) onEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	next := c.playlist.Next(c.currentIndex)
	zlog.Debug().Msgf("playback: track ended: index=%d next=%d", c.currentIndex, next)
	if err := c.playTrackLocked(next); err != nil {
		zlog.Warn().Err(err).Msg("playback: failed to advance after track end")
	}
}

// onTransportChanged adopts the transport state confirmed by the media.
func (c *Controller) onTransportChanged(playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active || c.isPlaying == playing {
		return
	}
	zlog.Debug().Msgf("playback: media reported transport=%s, intent was %s",
		transportOf(playing), transportOf(c.isPlaying))
	c.isPlaying = playing
	c.sendEventLocked(EventTransportChanged, nil)
}

// commandFailedLocked wraps a media error, broadcasts it and returns it.
// Must be called with lock held.
func (c *Controller) commandFailedLocked(op string, err error) error {
	wrapped := errors.Mark(errors.Wrapf(err, "media %s", op), ErrMediaCommand)
	zlog.Warn().Err(err).Msgf("playback: media %s failed: index=%d", op, c.currentIndex)
	c.sendEventLocked(EventCommandFailed, wrapped)
	return wrapped
}

// snapshotLocked must be called with lock held.
func (c *Controller) snapshotLocked() Snapshot {
	t, _ := c.playlist.Track(c.currentIndex)
	return Snapshot{
		CurrentIndex:     c.currentIndex,
		TrackCount:       c.playlist.Len(),
		Transport:        transportOf(c.isPlaying),
		IsPlaying:        c.isPlaying,
		ProgressFraction: c.progress,
		RemainingSeconds: c.remaining,
		HasRemaining:     c.hasRemaining,
		Track:            t,
		ArtistName:       c.playlist.ArtistName(),
	}
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(t EventType, err error) {
	if c.closed {
		return
	}
	e := Event{Type: t, State: c.snapshotLocked(), Err: err}
	select {
	case c.eventCh <- e:
		// Successfully sent
	case <-c.ctx.Done():
		// Context cancelled, don't send
	default:
		// Channel full, drop event
	}
}
