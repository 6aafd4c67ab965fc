package media

import (
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureRate = 8000

// writeTone writes a mono 16-bit sine wave of the given length.
func writeTone(t *testing.T, dir string, seconds float64) string {
	t.Helper()

	path := filepath.Join(dir, "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	n := int(seconds * fixtureRate)
	data := make([]int, n)
	for i := range data {
		data[i] = int(8000 * math.Sin(2*math.Pi*440*float64(i)/fixtureRate))
	}

	enc := wav.NewEncoder(f, fixtureRate, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: fixtureRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

type recorder struct {
	mu        sync.Mutex
	positions int
	ended     int
	transport []bool
}

func (r *recorder) bind(d *Deck) {
	d.OnPositionChanged(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.positions++
	})
	d.OnEnded(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.ended++
	})
	d.OnTransportChanged(func(playing bool) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.transport = append(r.transport, playing)
	})
}

func (r *recorder) endedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

func (r *recorder) positionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.positions
}

func (r *recorder) transports() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.transport...)
}

func newTestDeck(t *testing.T) (*Deck, *ClockSink) {
	t.Helper()
	sink := NewClockSink(fixtureRate, 0)
	deck := NewDeck(sink, Config{PositionInterval: time.Hour})
	t.Cleanup(func() {
		_ = deck.Close()
		_ = sink.Close()
	})
	return deck, sink
}

func waitReady(t *testing.T, d *Deck) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !math.IsNaN(d.Duration())
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDeck_NoSource(t *testing.T) {
	deck, _ := newTestDeck(t)

	assert.True(t, math.IsNaN(deck.Duration()))
	assert.Zero(t, deck.Position())
	assert.ErrorIs(t, deck.Play(), ErrNoSource)
	assert.ErrorIs(t, deck.SetPosition(1), ErrNoSource)
	assert.NoError(t, deck.Pause())
	assert.Error(t, deck.SetSource(""))
}

func TestDeck_LoadPlaySeek(t *testing.T) {
	path := writeTone(t, t.TempDir(), 2)
	deck, sink := newTestDeck(t)
	rec := &recorder{}
	rec.bind(deck)

	require.NoError(t, deck.SetSource(path))
	require.NoError(t, deck.Play())
	waitReady(t, deck)

	assert.InDelta(t, 2.0, deck.Duration(), 0.01)
	require.Eventually(t, func() bool {
		ts := rec.transports()
		return len(ts) == 1 && ts[0]
	}, time.Second, 5*time.Millisecond)

	sink.Advance(500 * time.Millisecond)
	assert.InDelta(t, 0.5, deck.Position(), 0.01)

	require.NoError(t, deck.SetPosition(1.5))
	assert.InDelta(t, 1.5, deck.Position(), 0.01)
	require.Eventually(t, func() bool { return rec.positionCount() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, deck.Pause())
	sink.Advance(200 * time.Millisecond)
	assert.InDelta(t, 1.5, deck.Position(), 0.01)

	assert.ErrorIs(t, deck.SetPosition(math.NaN()), ErrInvalidPosition)
	assert.ErrorIs(t, deck.SetPosition(-1), ErrInvalidPosition)
}

func TestDeck_PendingSeek(t *testing.T) {
	path := writeTone(t, t.TempDir(), 2)
	deck, _ := newTestDeck(t)

	require.NoError(t, deck.SetSource(path))
	require.NoError(t, deck.SetPosition(1))
	waitReady(t, deck)
	assert.InDelta(t, 1.0, deck.Position(), 0.01)
}

func TestDeck_Ended(t *testing.T) {
	path := writeTone(t, t.TempDir(), 0.5)
	deck, sink := newTestDeck(t)
	rec := &recorder{}
	rec.bind(deck)

	require.NoError(t, deck.SetSource(path))
	require.NoError(t, deck.Play())
	waitReady(t, deck)

	sink.Advance(time.Second)
	require.Eventually(t, func() bool { return rec.endedCount() == 1 }, time.Second, 5*time.Millisecond)

	// Playing again restarts the track
	require.NoError(t, deck.Play())
	sink.Advance(100 * time.Millisecond)
	assert.InDelta(t, 0.1, deck.Position(), 0.01)
}

func TestDeck_LoadFailure(t *testing.T) {
	deck, _ := newTestDeck(t)
	rec := &recorder{}
	rec.bind(deck)

	require.NoError(t, deck.SetSource(filepath.Join(t.TempDir(), "missing.mp3")))
	// Either remembered until the load fails, or rejected if it already has
	_ = deck.Play()

	require.Eventually(t, func() bool {
		ts := rec.transports()
		return len(ts) == 1 && !ts[0]
	}, time.Second, 5*time.Millisecond)

	err := deck.Play()
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.True(t, math.IsNaN(deck.Duration()))
}

func TestDeck_HTTPSource(t *testing.T) {
	path := writeTone(t, t.TempDir(), 1)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tone.wav" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer server.Close()

	deck, _ := newTestDeck(t)
	require.NoError(t, deck.SetSource(server.URL+"/tone.wav"))
	waitReady(t, deck)
	assert.InDelta(t, 1.0, deck.Duration(), 0.01)

	// Replacing the source resets the duration until the new one loads
	require.NoError(t, deck.SetSource(server.URL+"/missing.wav"))
	assert.True(t, math.IsNaN(deck.Duration()))
}

func TestDeck_Unsubscribe(t *testing.T) {
	path := writeTone(t, t.TempDir(), 1)
	deck, _ := newTestDeck(t)

	calls := 0
	var mu sync.Mutex
	unsubscribe := deck.OnPositionChanged(func() {
		mu.Lock()
		defer mu.Unlock()
		calls++
	})
	unsubscribe()

	require.NoError(t, deck.SetSource(path))
	waitReady(t, deck)
	require.NoError(t, deck.SetPosition(0.5))

	// Drain the dispatcher with a handler registered afterwards
	done := make(chan struct{})
	deck.OnPositionChanged(func() {
		select {
		case <-done:
		default:
			close(done)
		}
	})
	require.NoError(t, deck.SetPosition(0.6))
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestDecode_Unsupported(t *testing.T) {
	_, _, err := decode([]byte("not audio at all"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestClockSink_Realtime(t *testing.T) {
	path := writeTone(t, t.TempDir(), 0.3)
	sink := NewClockSink(fixtureRate, 10*time.Millisecond)
	deck := NewDeck(sink, Config{PositionInterval: 20 * time.Millisecond})
	defer func() {
		_ = deck.Close()
		_ = sink.Close()
	}()
	rec := &recorder{}
	rec.bind(deck)

	require.NoError(t, deck.SetSource(path))
	require.NoError(t, deck.Play())

	require.Eventually(t, func() bool { return rec.endedCount() == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Greater(t, rec.positionCount(), 1)
}
