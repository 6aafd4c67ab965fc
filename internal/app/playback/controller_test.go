package playback

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/ringdeck/internal/domain/playlist"
	"github.com/osa030/ringdeck/internal/domain/track"
)

// fakeMedia records commands and lets tests fire notifications.
type fakeMedia struct {
	mu sync.Mutex

	source   string
	position float64
	duration float64
	calls    []string

	setSourceErr error
	playErr      error
	pauseErr     error

	nextID      int
	posHandlers map[int]func()
	endHandlers map[int]func()
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{
		duration:    math.NaN(),
		posHandlers: make(map[int]func()),
		endHandlers: make(map[int]func()),
	}
}

func (m *fakeMedia) SetSource(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "source:"+url)
	if m.setSourceErr != nil {
		return m.setSourceErr
	}
	m.source = url
	return nil
}

func (m *fakeMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "play")
	return m.playErr
}

func (m *fakeMedia) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "pause")
	return m.pauseErr
}

func (m *fakeMedia) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *fakeMedia) SetPosition(seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fmt.Sprintf("seek:%g", seconds))
	m.position = seconds
	return nil
}

func (m *fakeMedia) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *fakeMedia) OnPositionChanged(fn func()) func() {
	return m.subscribe(m.posHandlers, fn)
}

func (m *fakeMedia) OnEnded(fn func()) func() {
	return m.subscribe(m.endHandlers, fn)
}

func (m *fakeMedia) subscribe(handlers map[int]func(), fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	handlers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(handlers, id)
	}
}

func (m *fakeMedia) firePosition(position, duration float64) {
	m.mu.Lock()
	m.position = position
	m.duration = duration
	handlers := make([]func(), 0, len(m.posHandlers))
	for _, fn := range m.posHandlers {
		handlers = append(handlers, fn)
	}
	m.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

func (m *fakeMedia) fireEnded() {
	m.mu.Lock()
	handlers := make([]func(), 0, len(m.endHandlers))
	for _, fn := range m.endHandlers {
		handlers = append(handlers, fn)
	}
	m.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

func (m *fakeMedia) handlerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posHandlers) + len(m.endHandlers)
}

func (m *fakeMedia) takeCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := m.calls
	m.calls = nil
	return calls
}

// confirmingMedia also reports transport confirmations.
type confirmingMedia struct {
	*fakeMedia
	transportHandler func(bool)
}

func (m *confirmingMedia) OnTransportChanged(fn func(bool)) func() {
	m.transportHandler = fn
	return func() { m.transportHandler = nil }
}

func testPlaylist(t *testing.T, n int) *playlist.Playlist {
	t.Helper()
	tracks := make([]track.Track, n)
	for i := range tracks {
		tracks[i] = track.Track{
			Name:          fmt.Sprintf("Track %d", i),
			AudioURL:      fmt.Sprintf("https://example.com/%d.mp3", i),
			CoverImageURL: fmt.Sprintf("https://example.com/%d.jpg", i),
		}
	}
	pl, err := playlist.New("The Artist", tracks)
	require.NoError(t, err)
	return pl
}

func newActiveController(t *testing.T, n int, autoplay bool) (*Controller, *fakeMedia) {
	t.Helper()
	media := newFakeMedia()
	c, err := NewController(testPlaylist(t, n), media, Config{Autoplay: autoplay})
	require.NoError(t, err)
	require.NoError(t, c.Activate())
	t.Cleanup(c.Close)
	media.takeCalls()
	return c, media
}

func drain(c *Controller) []Event {
	var events []Event
	for {
		select {
		case e := <-c.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestNewController_Validation(t *testing.T) {
	media := newFakeMedia()

	_, err := NewController(nil, media, Config{})
	assert.Error(t, err)

	_, err = NewController(testPlaylist(t, 1), nil, Config{})
	assert.Error(t, err)

	_, err = NewController(&playlist.Playlist{}, media, Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, playlist.ErrEmptyPlaylist))
}

func TestController_Activate(t *testing.T) {
	tests := []struct {
		name      string
		autoplay  bool
		wantCalls []string
	}{
		{
			name:      "autoplay off loads source only",
			autoplay:  false,
			wantCalls: []string{"source:https://example.com/0.mp3"},
		},
		{
			name:      "autoplay on starts playback",
			autoplay:  true,
			wantCalls: []string{"source:https://example.com/0.mp3", "play"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media := newFakeMedia()
			c, err := NewController(testPlaylist(t, 3), media, Config{Autoplay: tt.autoplay})
			require.NoError(t, err)
			defer c.Close()

			require.NoError(t, c.Activate())
			assert.Equal(t, tt.wantCalls, media.takeCalls())
			assert.Equal(t, 2, media.handlerCount())

			s := c.State()
			assert.Equal(t, 0, s.CurrentIndex)
			assert.Equal(t, tt.autoplay, s.IsPlaying)
			assert.Equal(t, 0.0, s.ProgressFraction)
			assert.False(t, s.HasRemaining)

			// Activating twice binds nothing new.
			require.NoError(t, c.Activate())
			assert.Equal(t, 2, media.handlerCount())
		})
	}
}

func TestController_CommandsRequireActivation(t *testing.T) {
	c, err := NewController(testPlaylist(t, 2), newFakeMedia(), Config{})
	require.NoError(t, err)
	defer c.Close()

	assert.ErrorIs(t, c.Toggle(), ErrInactive)
	assert.ErrorIs(t, c.Next(), ErrInactive)
	assert.ErrorIs(t, c.Previous(), ErrInactive)
	assert.ErrorIs(t, c.PlayTrack(0), ErrInactive)
	assert.ErrorIs(t, c.SeekTo(0.5), ErrInactive)
}

func TestController_Scenario(t *testing.T) {
	c, media := newActiveController(t, 3, false)

	s := c.State()
	assert.False(t, s.IsPlaying)
	assert.Equal(t, 0, s.CurrentIndex)

	require.NoError(t, c.Toggle())
	assert.True(t, c.State().IsPlaying)
	assert.Equal(t, []string{"play"}, media.takeCalls())

	require.NoError(t, c.Next())
	require.NoError(t, c.Next())
	assert.Equal(t, 2, c.State().CurrentIndex)

	require.NoError(t, c.Next())
	assert.Equal(t, 0, c.State().CurrentIndex)
}

func TestController_Toggle(t *testing.T) {
	c, media := newActiveController(t, 2, true)

	require.NoError(t, c.Toggle())
	assert.False(t, c.State().IsPlaying)
	assert.Equal(t, TransportPaused, c.State().Transport)
	require.NoError(t, c.Toggle())
	assert.True(t, c.State().IsPlaying)
	assert.Equal(t, []string{"pause", "play"}, media.takeCalls())

	events := drain(c)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventTransportChanged, last.Type)
	assert.True(t, last.State.IsPlaying)
}

func TestController_RingWrap(t *testing.T) {
	c, _ := newActiveController(t, 4, false)

	require.NoError(t, c.PlayTrack(3))
	require.NoError(t, c.Next())
	assert.Equal(t, 0, c.State().CurrentIndex)

	require.NoError(t, c.Previous())
	assert.Equal(t, 3, c.State().CurrentIndex)
}

func TestController_RingIdempotence(t *testing.T) {
	for n := 1; n <= 4; n++ {
		for i := 0; i < n; i++ {
			t.Run(fmt.Sprintf("n=%d/i=%d", n, i), func(t *testing.T) {
				c, _ := newActiveController(t, n, false)
				require.NoError(t, c.PlayTrack(i))

				require.NoError(t, c.Next())
				require.NoError(t, c.Previous())
				assert.Equal(t, i, c.State().CurrentIndex)

				require.NoError(t, c.Previous())
				require.NoError(t, c.Next())
				assert.Equal(t, i, c.State().CurrentIndex)
			})
		}
	}
}

func TestController_PlayTrack(t *testing.T) {
	c, media := newActiveController(t, 3, false)

	// Build up some progress while paused.
	media.firePosition(60, 120)
	require.True(t, c.State().HasRemaining)

	require.NoError(t, c.PlayTrack(2))
	s := c.State()
	assert.Equal(t, 2, s.CurrentIndex)
	assert.Equal(t, 0.0, s.ProgressFraction)
	assert.True(t, s.IsPlaying)
	assert.False(t, s.HasRemaining)
	assert.Equal(t, "Track 2", s.Track.Name)
	assert.Equal(t, "https://example.com/2.jpg", s.Track.CoverImageURL)
	assert.Equal(t, "The Artist", s.ArtistName)
	assert.Equal(t, []string{"source:https://example.com/2.mp3", "seek:0", "play"}, media.takeCalls())
}

func TestController_PlayTrack_InvalidIndex(t *testing.T) {
	c, media := newActiveController(t, 3, false)
	before := c.State()

	for _, index := range []int{-1, 3, 100} {
		err := c.PlayTrack(index)
		assert.ErrorIs(t, err, ErrInvalidIndex, "index %d", index)
	}
	assert.Equal(t, before, c.State())
	assert.Empty(t, media.takeCalls())
}

func TestController_SeekTo(t *testing.T) {
	c, media := newActiveController(t, 2, false)
	media.firePosition(0, 200)
	media.takeCalls()

	require.NoError(t, c.SeekTo(0.25))
	s := c.State()
	assert.True(t, s.IsPlaying)
	assert.InDelta(t, 0.25, s.ProgressFraction, 1e-9)
	assert.InDelta(t, 150, s.RemainingSeconds, 1e-9)
	assert.Equal(t, []string{"seek:50", "play"}, media.takeCalls())
}

func TestController_SeekTo_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		fraction float64
		wantErr  error
	}{
		{name: "negative fraction", duration: 100, fraction: -0.1, wantErr: ErrInvalidFraction},
		{name: "fraction above one", duration: 100, fraction: 1.5, wantErr: ErrInvalidFraction},
		{name: "NaN fraction", duration: 100, fraction: math.NaN(), wantErr: ErrInvalidFraction},
		{name: "unknown duration", duration: math.NaN(), fraction: 0.5, wantErr: ErrUnknownDuration},
		{name: "zero duration", duration: 0, fraction: 0.5, wantErr: ErrUnknownDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, media := newActiveController(t, 2, false)
			media.mu.Lock()
			media.duration = tt.duration
			media.mu.Unlock()
			before := c.State()

			err := c.SeekTo(tt.fraction)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, c.State())
			assert.Empty(t, media.takeCalls())
		})
	}
}

func TestController_PositionChanged(t *testing.T) {
	tests := []struct {
		name         string
		position     float64
		duration     float64
		wantUpdate   bool
		wantFraction float64
		wantRemain   float64
	}{
		{name: "quarter way", position: 30, duration: 120, wantUpdate: true, wantFraction: 0.25, wantRemain: 90},
		{name: "at start", position: 0, duration: 10, wantUpdate: true, wantFraction: 0, wantRemain: 10},
		{name: "NaN duration", position: 30, duration: math.NaN(), wantUpdate: false},
		{name: "zero duration", position: 0, duration: 0, wantUpdate: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, media := newActiveController(t, 2, true)
			drain(c)

			media.firePosition(tt.position, tt.duration)
			s := c.State()
			if !tt.wantUpdate {
				assert.Equal(t, 0.0, s.ProgressFraction)
				assert.False(t, s.HasRemaining)
				assert.Empty(t, drain(c))
				return
			}
			assert.InDelta(t, tt.wantFraction, s.ProgressFraction, 1e-9)
			assert.InDelta(t, tt.wantRemain, s.RemainingSeconds, 1e-9)
			assert.True(t, s.HasRemaining)

			events := drain(c)
			require.Len(t, events, 1)
			assert.Equal(t, EventProgress, events[0].Type)
		})
	}
}

func TestController_Ended(t *testing.T) {
	tests := []struct {
		name  string
		start int
		want  int
	}{
		{name: "advances", start: 1, want: 2},
		{name: "wraps at end", start: 2, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, media := newActiveController(t, 3, false)
			require.NoError(t, c.PlayTrack(tt.start))
			media.takeCalls()

			media.fireEnded()
			s := c.State()
			assert.Equal(t, tt.want, s.CurrentIndex)
			assert.True(t, s.IsPlaying)
			assert.Equal(t, []string{
				fmt.Sprintf("source:https://example.com/%d.mp3", tt.want),
				"seek:0",
				"play",
			}, media.takeCalls())
		})
	}
}

func TestController_Deactivate(t *testing.T) {
	media := newFakeMedia()
	c, err := NewController(testPlaylist(t, 3), media, Config{})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Activate())

	// Keep a reference as a media that missed the unsubscribe would.
	var stale func()
	media.mu.Lock()
	for _, fn := range media.endHandlers {
		stale = fn
	}
	media.mu.Unlock()

	c.Deactivate()
	c.Deactivate()
	assert.Equal(t, 0, media.handlerCount())

	stale()
	assert.Equal(t, 0, c.State().CurrentIndex)
	assert.ErrorIs(t, c.Next(), ErrInactive)

	// Rebinding after deactivation works.
	require.NoError(t, c.Activate())
	assert.Equal(t, 2, media.handlerCount())
}

func TestController_MediaFailure(t *testing.T) {
	c, media := newActiveController(t, 2, false)
	drain(c)
	media.mu.Lock()
	media.playErr = errors.New("autoplay not permitted")
	media.mu.Unlock()

	err := c.Toggle()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMediaCommand))
	assert.Contains(t, err.Error(), "autoplay not permitted")
	// Intent is kept.
	assert.True(t, c.State().IsPlaying)

	events := drain(c)
	require.Len(t, events, 2)
	assert.Equal(t, EventTransportChanged, events[0].Type)
	assert.Equal(t, EventCommandFailed, events[1].Type)
	assert.Error(t, events[1].Err)

	// Navigation still works; only the media command fails.
	err = c.Next()
	assert.True(t, errors.Is(err, ErrMediaCommand))
	assert.Equal(t, 1, c.State().CurrentIndex)
}

func TestController_TransportReconciliation(t *testing.T) {
	media := &confirmingMedia{fakeMedia: newFakeMedia()}
	c, err := NewController(testPlaylist(t, 2), media, Config{Autoplay: true})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Activate())
	require.NotNil(t, media.transportHandler)
	drain(c)

	// Media confirms it is already playing: nothing changes.
	media.transportHandler(true)
	assert.True(t, c.State().IsPlaying)
	assert.Empty(t, drain(c))

	// Media could not start after all.
	media.transportHandler(false)
	assert.False(t, c.State().IsPlaying)
	events := drain(c)
	require.Len(t, events, 1)
	assert.Equal(t, EventTransportChanged, events[0].Type)

	c.Deactivate()
	assert.Nil(t, media.transportHandler)
}

func TestController_Close(t *testing.T) {
	media := newFakeMedia()
	c, err := NewController(testPlaylist(t, 2), media, Config{})
	require.NoError(t, err)
	require.NoError(t, c.Activate())

	c.Close()
	c.Close()
	assert.Equal(t, 0, media.handlerCount())
	assert.ErrorIs(t, c.Activate(), ErrClosed)

	// Drain buffered events; the channel must be closed afterwards.
	for range c.Events() {
	}
}
