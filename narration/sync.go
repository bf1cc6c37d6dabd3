// Package narration keeps spoken narration and on-screen text in step.
//
// The synchronizer binds a synthesized track to the current page and maps
// elapsed playback time to a word index on a steady polling cadence; see
// WordIndex for the estimator contract.
package narration

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/abiiranathan/readalong/book"
)

// State of the synchronizer for the bound page.
type State int

const (
	Idle State = iota
	Generating
	Ready
	Playing
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Generating:
		return "generating"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Config controls the synchronizer.
type Config struct {
	// PollInterval is the word-index recompute cadence. Default is 50ms.
	PollInterval time.Duration

	// Voice passed to the synthesizer.
	Voice string

	Logger *slog.Logger
}

func (cfg *Config) defaults() {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// Synchronizer drives narration playback for one page at a time.
//
// States: Idle -> Generating -> Ready -> Playing <-> Paused -> Ended.
// Loading a new page releases the previous track and restarts the cycle;
// Ended is terminal for a page and fires the OnEnded callback, which the
// session layer uses for page advance or document completion.
type Synchronizer struct {
	cfg   Config
	synth Synthesizer

	mu        sync.Mutex
	state     State
	page      book.PageRecord
	track     Track
	baseMs    float64   // elapsed accumulated across pauses and seeks
	playStart time.Time // wall-clock start of the current play stretch
	floor     int       // monotonic word-index floor for this page
	lastWord  int
	lastErr   error
	stopPoll  chan struct{}

	onWord  func(pageNumber, wordIndex int)
	onEnded func(pageNumber int)
}

// New creates a Synchronizer on top of a synthesizer.
func New(synth Synthesizer, cfg Config) *Synchronizer {
	cfg.defaults()
	return &Synchronizer{cfg: cfg, synth: synth, state: Idle}
}

// OnWordBoundary registers the highlight callback. It is invoked from the
// polling goroutine whenever the active word index changes.
func (s *Synchronizer) OnWordBoundary(fn func(pageNumber, wordIndex int)) {
	s.mu.Lock()
	s.onWord = fn
	s.mu.Unlock()
}

// OnEnded registers the end-of-track callback.
func (s *Synchronizer) OnEnded(fn func(pageNumber int)) {
	s.mu.Lock()
	s.onEnded = fn
	s.mu.Unlock()
}

// Load binds the synchronizer to a page: releases the previous track,
// synthesizes narration for the page text and moves to Ready.
//
// On failure the synchronizer returns to Idle with the error retained; the
// page itself stays readable and navigation is unaffected.
func (s *Synchronizer) Load(ctx context.Context, page book.PageRecord) error {
	s.stop()

	s.mu.Lock()
	// Previous track resources are dropped here, never carried across
	// page transitions.
	s.track = Track{}
	s.page = page
	s.baseMs = 0
	s.floor = 0
	s.lastWord = 0
	s.state = Generating
	s.lastErr = nil
	voice := s.cfg.Voice
	s.mu.Unlock()

	track, err := s.synth.Synthesize(ctx, page.Text, voice)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page.PageNumber != page.PageNumber {
		// Superseded by another Load while synthesizing.
		return nil
	}
	if err != nil {
		s.state = Idle
		s.lastErr = err
		s.cfg.Logger.Warn("narration unavailable", "page", page.PageNumber, "error", err)
		return err
	}

	s.track = track
	s.state = Ready
	return nil
}

// Play starts or resumes playback. The synchronizer must hold a Ready or
// Paused track for the current page.
func (s *Synchronizer) Play() error {
	s.mu.Lock()

	if s.state != Ready && s.state != Paused {
		state := s.state
		err := s.lastErr
		s.mu.Unlock()
		if err != nil {
			return err
		}
		return &book.SynthesisError{
			Reason: book.ServiceUnavailable,
			Cause:  errNotReady(state),
		}
	}

	s.state = Playing
	s.playStart = time.Now()
	stop := make(chan struct{})
	s.stopPoll = stop
	interval := s.cfg.PollInterval
	s.mu.Unlock()

	go s.poll(stop, interval)
	return nil
}

// Pause freezes playback and the word index.
func (s *Synchronizer) Pause() error {
	s.mu.Lock()
	if s.state != Playing {
		s.mu.Unlock()
		return errNotReady(s.state)
	}
	s.baseMs += float64(time.Since(s.playStart)) / float64(time.Millisecond)
	s.state = Paused
	stop := s.stopPoll
	s.stopPoll = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	return nil
}

// Seek jumps to a fractional position in [0, 1] of the track. The word
// index is recomputed immediately from the new position, which also resets
// the monotonic floor for this page.
func (s *Synchronizer) Seek(fraction float64) error {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	s.mu.Lock()
	if s.state != Ready && s.state != Playing && s.state != Paused {
		s.mu.Unlock()
		return errNotReady(s.state)
	}

	s.baseMs = fraction * s.track.DurationMs
	if s.state == Playing {
		s.playStart = time.Now()
	}
	idx := WordIndex(s.baseMs, s.track.DurationMs, len(s.page.Words))
	s.floor = idx
	s.lastWord = idx
	fn := s.onWord
	page := s.page.PageNumber
	s.mu.Unlock()

	if fn != nil {
		fn(page, idx)
	}
	return nil
}

// Track returns the currently bound track; the zero Track when none is
// loaded.
func (s *Synchronizer) Track() Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// State returns the current state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the last synthesis failure, if any. The UI surfaces it on
// the playback controls without blocking navigation.
func (s *Synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Playback returns a transport snapshot for the bound page.
func (s *Synchronizer) Playback() book.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.elapsedLocked()
	idx := s.lastWord
	if s.state == Playing {
		idx = max(s.floor, WordIndex(elapsed, s.track.DurationMs, len(s.page.Words)))
	}

	return book.PlaybackState{
		CurrentPage: s.page.PageNumber,
		IsPlaying:   s.state == Playing,
		WordIndex:   idx,
		ElapsedMs:   elapsed,
		DurationMs:  s.track.DurationMs,
	}
}

// Close releases the bound track and stops polling.
func (s *Synchronizer) Close() {
	s.stop()
	s.mu.Lock()
	s.track = Track{}
	s.state = Idle
	s.mu.Unlock()
}

// poll recomputes the word index tens of times per second while playing.
func (s *Synchronizer) poll(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.tick() {
				return
			}
		}
	}
}

// tick advances the word index once. Returns false when the track ended.
func (s *Synchronizer) tick() bool {
	s.mu.Lock()

	if s.state != Playing {
		s.mu.Unlock()
		return false
	}

	elapsed := s.elapsedLocked()
	page := s.page.PageNumber

	if elapsed >= s.track.DurationMs {
		s.baseMs = s.track.DurationMs
		s.state = Ended
		s.stopPoll = nil
		ended := s.onEnded
		s.mu.Unlock()

		if ended != nil {
			ended(page)
		}
		return false
	}

	// Monotonic while playing: the floor only moves forward.
	idx := max(s.floor, WordIndex(elapsed, s.track.DurationMs, len(s.page.Words)))
	s.floor = idx
	changed := idx != s.lastWord
	s.lastWord = idx
	fn := s.onWord
	s.mu.Unlock()

	if changed && fn != nil {
		fn(page, idx)
	}
	return true
}

func (s *Synchronizer) elapsedLocked() float64 {
	elapsed := s.baseMs
	if s.state == Playing {
		elapsed += float64(time.Since(s.playStart)) / float64(time.Millisecond)
	}
	if s.track.DurationMs > 0 && elapsed > s.track.DurationMs {
		elapsed = s.track.DurationMs
	}
	return elapsed
}

func (s *Synchronizer) stop() {
	s.mu.Lock()
	stop := s.stopPoll
	s.stopPoll = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
}

type errNotReady State

func (e errNotReady) Error() string {
	return "narration: no ready track (state " + State(e).String() + ")"
}
