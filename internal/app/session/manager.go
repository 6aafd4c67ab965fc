// Package session provides the session manager that hosts the playback
// controller and relays its state to subscribers.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	playerv1 "github.com/osa030/ringdeck/internal/api/playerv1"
	"github.com/osa030/ringdeck/internal/app/notification"
	"github.com/osa030/ringdeck/internal/app/playback"
)

var ErrSessionClosed = errors.New("session is closed")

// Config holds session configuration.
type Config struct {
	ProgressInterval time.Duration // Minimum gap between progress notifications
}

// Manager manages the player session.
type Manager struct {
	mu sync.Mutex

	playback     *playback.Controller
	notification *notification.Manager
	config       Config

	lastProgress time.Time
	started      bool

	// Channels
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Status represents the current session status.
type Status struct {
	State           playback.Snapshot
	SubscriberCount int
}

// NewManager creates a new session manager around a controller.
func NewManager(controller *playback.Controller, cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		playback:     controller,
		notification: notification.NewManager(),
		config:       cfg,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Start binds the controller to its media and starts relaying events.
// A media failure while loading the first track is logged, not returned;
// the player stays interactive.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx.Err() != nil {
		return ErrSessionClosed
	}
	if m.started {
		return nil
	}

	if err := m.playback.Activate(); err != nil {
		if !errors.Is(err, playback.ErrMediaCommand) {
			return errors.Wrap(err, "failed to activate playback")
		}
		zlog.Warn().Err(err).Msg("session: initial media command failed")
	}
	m.started = true

	go m.playbackLoop()

	s := m.playback.State()
	zlog.Info().Msgf("session started: tracks=%d artist=%s playing=%v", s.TrackCount, s.ArtistName, s.IsPlaying)
	return nil
}

// Done returns a channel that is closed when the session is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// PlayTrack plays the track at index.
func (m *Manager) PlayTrack(index int) error {
	return m.playback.PlayTrack(index)
}

// Toggle toggles between playing and paused.
func (m *Manager) Toggle() error {
	return m.playback.Toggle()
}

// Previous plays the previous track.
func (m *Manager) Previous() error {
	return m.playback.Previous()
}

// Next plays the next track.
func (m *Manager) Next() error {
	return m.playback.Next()
}

// Seek moves playback to a fraction of the current track.
func (m *Manager) Seek(fraction float64) error {
	return m.playback.SeekTo(fraction)
}

// SeekAt translates a click on a seek bar and seeks there.
func (m *Manager) SeekAt(pointerX, left, width float64) error {
	fraction, err := playback.SeekFraction(pointerX, left, width)
	if err != nil {
		return err
	}
	return m.playback.SeekTo(fraction)
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() *Status {
	return &Status{
		State:           m.playback.State(),
		SubscriberCount: m.notification.SubscriberCount(),
	}
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Close stops relaying, closes the controller and drops all subscribers.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		m.playback.Close()
		m.notification.Close()
		close(m.done)
		zlog.Info().Msg("session closed")
	})
}

// playbackLoop relays playback events as notifications.
func (m *Manager) playbackLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback loop panicked: %v", r)
			if m.ctx.Err() == nil {
				zlog.Info().Msg("restarting playback loop")
				go m.playbackLoop()
			}
		}
	}()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-m.playback.Events():
			if !ok {
				return
			}
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent handles playback events.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	var nt playerv1.NotificationType
	switch event.Type {
	case playback.EventTrackChanged:
		nt = playerv1.NotificationTypeTrackChanged
		zlog.Info().Msgf("track changed: index=%d name=%s", event.State.CurrentIndex, event.State.Track.DisplayName())
	case playback.EventTransportChanged:
		nt = playerv1.NotificationTypeTransportChanged
		zlog.Info().Msgf("transport changed: %s", event.State.Transport)
	case playback.EventSeeked:
		nt = playerv1.NotificationTypeSeeked
	case playback.EventProgress:
		if !m.allowProgress() {
			return
		}
		nt = playerv1.NotificationTypeProgress
	case playback.EventCommandFailed:
		nt = playerv1.NotificationTypeCommandFailed
		zlog.Warn().Err(event.Err).Msg("media command failed")
	default:
		return
	}

	n := &playerv1.Notification{
		Type:  nt,
		State: BuildPlayerState(event.State),
	}
	if event.Err != nil {
		n.Error = event.Err.Error()
	}
	m.notification.Broadcast(n)
}

// allowProgress throttles progress notifications.
func (m *Manager) allowProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if m.config.ProgressInterval > 0 && now.Sub(m.lastProgress) < m.config.ProgressInterval {
		return false
	}
	m.lastProgress = now
	return true
}

// BuildPlayerState converts a controller snapshot to its API form.
func BuildPlayerState(s playback.Snapshot) *playerv1.PlayerState {
	return &playerv1.PlayerState{
		CurrentIndex:     int32(s.CurrentIndex),
		TrackCount:       int32(s.TrackCount),
		IsPlaying:        s.IsPlaying,
		ProgressFraction: s.ProgressFraction,
		RemainingSeconds: s.RemainingSeconds,
		HasRemaining:     s.HasRemaining,
		RemainingText:    s.RemainingText(),
		Track: &playerv1.TrackInfo{
			Name:          s.Track.DisplayName(),
			Artist:        s.Track.DisplayArtist(s.ArtistName),
			AudioUrl:      s.Track.AudioURL,
			CoverImageUrl: s.Track.CoverImageURL,
		},
	}
}
