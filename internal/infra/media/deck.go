// Package media provides Deck, an audio primitive that decodes one track at a
// time and plays it into a sink.
package media

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
	zlog "github.com/rs/zerolog/log"
)

// Errors
var (
	ErrNoSource          = errors.New("no source loaded")
	ErrSourceUnavailable = errors.New("source could not be loaded")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidPosition   = errors.New("invalid position")
	ErrDeckClosed        = errors.New("deck is closed")
)

const (
	defaultPositionInterval = 250 * time.Millisecond
	resampleQuality         = 4
)

// loadState represents the state of the current source.
type loadState int

const (
	stateIdle loadState = iota
	stateLoading
	stateReady
	stateFailed
)

// Config holds deck configuration.
type Config struct {
	PositionInterval time.Duration // Interval of position notifications while playing
	FetchTimeout     time.Duration // Timeout for fetching a source over http
	HTTPClient       *http.Client  // Optional client for http sources
}

type handler struct {
	id int
	fn func()
}

type transportHandler struct {
	id int
	fn func(playing bool)
}

// Deck is a single track audio player.
// Loading is asynchronous: Duration reports NaN until the source is decoded,
// and Play or SetPosition calls made in the meantime are applied once it is.
// Handlers run on a dedicated goroutine, never inside a Deck method.
type Deck struct {
	mu sync.Mutex

	sink    Sink
	fetcher *Fetcher

	// Current source
	gen         uint64
	source      string
	state       loadState
	loadErr     error
	stream      beep.StreamSeekCloser
	format      beep.Format
	ctrl        *beep.Ctrl
	finished    bool
	pendingSeek float64

	// Transport
	wantPlay bool
	reported bool

	// Handlers
	nextID            int
	positionHandlers  []handler
	endedHandlers     []handler
	transportHandlers []transportHandler
	dispatch          *dispatcher

	// Context
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// NewDeck creates a deck playing into sink.
func NewDeck(sink Sink, cfg Config) *Deck {
	interval := cfg.PositionInterval
	if interval <= 0 {
		interval = defaultPositionInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Deck{
		sink:        sink,
		fetcher:     NewFetcher(cfg.HTTPClient, cfg.FetchTimeout),
		pendingSeek: math.NaN(),
		dispatch:    newDispatcher(),
		ctx:         ctx,
		cancel:      cancel,
	}

	d.wg.Add(1)
	go d.positionLoop(interval)
	return d
}

// SetSource starts loading a new source. The requested transport state is
// kept: a playing deck starts the new source as soon as it is decoded.
func (d *Deck) SetSource(source string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeckClosed
	}
	if source == "" {
		return errors.Wrap(ErrNoSource, "empty source")
	}

	d.stopLocked()
	d.gen++
	d.source = source
	d.state = stateLoading
	d.loadErr = nil
	d.pendingSeek = math.NaN()

	gen := d.gen
	d.wg.Add(1)
	go d.load(gen, source)

	zlog.Debug().Msgf("media: loading source: gen=%d source=%s", gen, source)
	return nil
}

// Play starts or resumes playback.
func (d *Deck) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeckClosed
	}

	switch d.state {
	case stateIdle:
		return ErrNoSource
	case stateFailed:
		d.wantPlay = false
		d.reportTransportLocked(false, true)
		return errors.Mark(errors.Wrapf(d.loadErr, "source %s", d.source), ErrSourceUnavailable)
	case stateLoading:
		d.wantPlay = true
		return nil
	}

	d.wantPlay = true
	if d.finished {
		// Replay from the beginning, the way a finished audio element does
		if err := d.seekLocked(0); err != nil {
			return err
		}
		d.startLocked()
	}
	d.sink.Lock()
	d.ctrl.Paused = false
	d.sink.Unlock()
	d.reportTransportLocked(true, false)
	return nil
}

// Pause pauses playback.
func (d *Deck) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeckClosed
	}

	d.wantPlay = false
	if d.state == stateReady {
		d.sink.Lock()
		d.ctrl.Paused = true
		d.sink.Unlock()
	}
	d.reportTransportLocked(false, false)
	return nil
}

// Position returns the playback position in seconds.
func (d *Deck) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != stateReady {
		if !math.IsNaN(d.pendingSeek) {
			return d.pendingSeek
		}
		return 0
	}
	d.sink.Lock()
	pos := d.stream.Position()
	d.sink.Unlock()
	return d.format.SampleRate.D(pos).Seconds()
}

// SetPosition moves playback to seconds, clamped to the track length.
func (d *Deck) SetPosition(seconds float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeckClosed
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return errors.Wrapf(ErrInvalidPosition, "%v", seconds)
	}

	switch d.state {
	case stateIdle:
		return ErrNoSource
	case stateLoading:
		d.pendingSeek = seconds
		return nil
	case stateFailed:
		return errors.Mark(errors.Wrapf(d.loadErr, "source %s", d.source), ErrSourceUnavailable)
	}

	if err := d.seekLocked(seconds); err != nil {
		return err
	}
	if d.finished {
		d.startLocked()
	}
	d.postPositionLocked()
	return nil
}

// Duration returns the track length in seconds, or NaN while unknown.
func (d *Deck) Duration() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != stateReady {
		return math.NaN()
	}
	return d.format.SampleRate.D(d.stream.Len()).Seconds()
}

// OnPositionChanged registers fn for position updates.
func (d *Deck) OnPositionChanged(fn func()) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.positionHandlers = append(d.positionHandlers, handler{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.positionHandlers = removeHandler(d.positionHandlers, id)
	}
}

// OnEnded registers fn for the end of a track.
func (d *Deck) OnEnded(fn func()) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.endedHandlers = append(d.endedHandlers, handler{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.endedHandlers = removeHandler(d.endedHandlers, id)
	}
}

// OnTransportChanged registers fn for confirmed transport changes.
func (d *Deck) OnTransportChanged(fn func(playing bool)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.transportHandlers = append(d.transportHandlers, transportHandler{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, h := range d.transportHandlers {
			if h.id == id {
				d.transportHandlers = append(d.transportHandlers[:i:i], d.transportHandlers[i+1:]...)
				return
			}
		}
	}
}

// Close stops playback and releases the current source.
func (d *Deck) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.gen++
	d.stopLocked()
	d.state = stateIdle
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()
	d.dispatch.close()
	zlog.Debug().Msg("media: deck closed")
	return nil
}

// load fetches and decodes source in the background.
func (d *Deck) load(gen uint64, source string) {
	defer d.wg.Done()

	stream, format, err := d.open(source)

	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.gen {
		if stream != nil {
			_ = stream.Close()
		}
		return
	}

	if err != nil {
		zlog.Warn().Err(err).Msgf("media: failed to load source: %s", source)
		d.state = stateFailed
		d.loadErr = err
		if d.wantPlay {
			d.wantPlay = false
			d.reportTransportLocked(false, true)
		}
		return
	}

	d.stream = stream
	d.format = format
	d.ctrl = &beep.Ctrl{Streamer: stream, Paused: !d.wantPlay}
	d.state = stateReady

	if !math.IsNaN(d.pendingSeek) {
		if err := d.seekLocked(d.pendingSeek); err != nil {
			zlog.Warn().Err(err).Msg("media: pending seek failed")
		}
		d.pendingSeek = math.NaN()
	}
	d.startLocked()

	zlog.Debug().Msgf("media: source ready: gen=%d rate=%d duration=%s",
		gen, format.SampleRate, format.SampleRate.D(stream.Len()))

	if d.wantPlay {
		d.reportTransportLocked(true, false)
	}
	d.postPositionLocked()
}

// open fetches and decodes source.
func (d *Deck) open(source string) (beep.StreamSeekCloser, beep.Format, error) {
	data, err := d.fetcher.Fetch(d.ctx, source)
	if err != nil {
		return nil, beep.Format{}, err
	}
	return decode(data)
}

// decode picks a decoder from the content.
func decode(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	r := &memReader{Reader: bytes.NewReader(data)}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch {
	case isWAV(data):
		stream, format, err = wav.Decode(r)
	case isMP3(data):
		stream, format, err = mp3.Decode(r)
	default:
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "failed to decode source")
	}
	return stream, format, nil
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return true
	}
	// MPEG frame sync
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

// memReader makes an in-memory source seekable for the decoders.
type memReader struct {
	*bytes.Reader
}

func (memReader) Close() error { return nil }

// startLocked hands the current stream to the sink.
// Must be called with lock held.
func (d *Deck) startLocked() {
	gen := d.gen
	d.finished = false

	var s beep.Streamer = beep.Seq(d.ctrl, beep.Callback(func() {
		// The sink holds its lock here
		go d.handleEnded(gen)
	}))
	if rate := d.sink.SampleRate(); rate != d.format.SampleRate {
		s = beep.Resample(resampleQuality, d.format.SampleRate, rate, s)
	}
	d.sink.Play(s)
}

// stopLocked detaches and closes the current stream.
// Must be called with lock held.
func (d *Deck) stopLocked() {
	if d.stream == nil {
		return
	}
	d.sink.Clear()
	if err := d.stream.Close(); err != nil {
		zlog.Debug().Err(err).Msg("media: failed to close stream")
	}
	d.stream = nil
	d.ctrl = nil
	d.finished = false
}

// seekLocked must be called with lock held and a ready stream.
func (d *Deck) seekLocked(seconds float64) error {
	length := d.stream.Len()
	p := d.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if p > length {
		p = length
	}

	d.sink.Lock()
	err := d.stream.Seek(p)
	d.sink.Unlock()
	if err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	return nil
}

// handleEnded runs after the sink drained the stream.
func (d *Deck) handleEnded(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.gen || d.closed || d.state != stateReady {
		return
	}
	d.finished = true
	d.wantPlay = false
	d.reported = false
	d.sink.Lock()
	d.ctrl.Paused = true
	d.sink.Unlock()

	zlog.Debug().Msgf("media: track ended: gen=%d", gen)
	d.postPositionLocked()
	d.dispatch.post(func() {
		for _, fn := range d.handlersFor(func() []handler { return d.endedHandlers }) {
			fn()
		}
	})
}

// positionLoop notifies position changes while playing.
func (d *Deck) positionLoop(interval time.Duration) {
	defer d.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			if d.state == stateReady && d.wantPlay && !d.finished {
				d.postPositionLocked()
			}
			d.mu.Unlock()
		}
	}
}

// postPositionLocked queues the position handlers.
// Must be called with lock held.
func (d *Deck) postPositionLocked() {
	d.dispatch.post(func() {
		for _, fn := range d.handlersFor(func() []handler { return d.positionHandlers }) {
			fn()
		}
	})
}

// reportTransportLocked queues a transport confirmation when the confirmed
// state changes, or always when force is set.
// Must be called with lock held.
func (d *Deck) reportTransportLocked(playing, force bool) {
	if d.reported == playing && !force {
		return
	}
	d.reported = playing
	d.dispatch.post(func() {
		d.mu.Lock()
		fns := make([]func(bool), 0, len(d.transportHandlers))
		for _, h := range d.transportHandlers {
			fns = append(fns, h.fn)
		}
		d.mu.Unlock()
		for _, fn := range fns {
			fn(playing)
		}
	})
}

// handlersFor copies the handlers selected by pick under the lock.
func (d *Deck) handlersFor(pick func() []handler) []func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	hs := pick()
	fns := make([]func(), 0, len(hs))
	for _, h := range hs {
		fns = append(fns, h.fn)
	}
	return fns
}

func removeHandler(hs []handler, id int) []handler {
	for i, h := range hs {
		if h.id == id {
			return append(hs[:i:i], hs[i+1:]...)
		}
	}
	return hs
}
