package media

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// Sink consumes samples from the deck's streamer.
// Lock and Unlock guard every change to a streamer the sink is pulling from.
// Play and Clear must not be called while the lock is held.
type Sink interface {
	SampleRate() beep.SampleRate
	Play(s beep.Streamer)
	Clear()
	Lock()
	Unlock()
	Close() error
}

// DefaultSampleRate is the output rate used by the built-in sinks.
const DefaultSampleRate = beep.SampleRate(44100)

var speakerInit struct {
	once sync.Once
	rate beep.SampleRate
	err  error
}

// SpeakerSink plays through the system audio device.
// The device is process global and initialized once.
type SpeakerSink struct {
	rate beep.SampleRate
}

// NewSpeakerSink initializes the audio device.
func NewSpeakerSink(rate beep.SampleRate, bufferDuration time.Duration) (*SpeakerSink, error) {
	speakerInit.once.Do(func() {
		speakerInit.rate = rate
		speakerInit.err = speaker.Init(rate, rate.N(bufferDuration))
	})
	if speakerInit.err != nil {
		return nil, errors.Wrap(speakerInit.err, "failed to initialize speaker")
	}
	return &SpeakerSink{rate: speakerInit.rate}, nil
}

func (s *SpeakerSink) SampleRate() beep.SampleRate { return s.rate }

func (s *SpeakerSink) Play(st beep.Streamer) {
	speaker.Clear()
	speaker.Play(st)
}

func (s *SpeakerSink) Clear()  { speaker.Clear() }
func (s *SpeakerSink) Lock()   { speaker.Lock() }
func (s *SpeakerSink) Unlock() { speaker.Unlock() }

func (s *SpeakerSink) Close() error {
	speaker.Clear()
	return nil
}

// ClockSink drains samples at real time without producing sound.
// With a zero quantum it only advances when Advance is called.
type ClockSink struct {
	mu       sync.Mutex
	rate     beep.SampleRate
	streamer beep.Streamer
	buf      [][2]float64

	quantum time.Duration
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewClockSink creates a headless sink.
func NewClockSink(rate beep.SampleRate, quantum time.Duration) *ClockSink {
	s := &ClockSink{
		rate:    rate,
		buf:     make([][2]float64, 512),
		quantum: quantum,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if quantum > 0 {
		go s.run()
	} else {
		close(s.done)
	}
	return s
}

func (s *ClockSink) SampleRate() beep.SampleRate { return s.rate }

func (s *ClockSink) Play(st beep.Streamer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamer = st
}

func (s *ClockSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamer = nil
}

func (s *ClockSink) Lock()   { s.mu.Lock() }
func (s *ClockSink) Unlock() { s.mu.Unlock() }

// Advance pulls d worth of samples from the current streamer.
func (s *ClockSink) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pullLocked(s.rate.N(d))
}

func (s *ClockSink) Close() error {
	s.once.Do(func() {
		close(s.stop)
	})
	<-s.done
	s.Clear()
	return nil
}

func (s *ClockSink) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.quantum)
	defer ticker.Stop()

	start := time.Now()
	pulled := 0
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			due := s.rate.N(now.Sub(start))
			s.mu.Lock()
			s.pullLocked(due - pulled)
			s.mu.Unlock()
			pulled = due
		}
	}
}

// pullLocked must be called with lock held.
func (s *ClockSink) pullLocked(n int) {
	for n > 0 && s.streamer != nil {
		chunk := s.buf
		if n < len(chunk) {
			chunk = chunk[:n]
		}
		got, ok := s.streamer.Stream(chunk)
		n -= got
		if !ok {
			s.streamer = nil
			return
		}
		if got == 0 {
			return
		}
	}
}
