package narration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abiiranathan/readalong/book"
)

// fakeSynth returns a fixed-duration track without a speech service.
type fakeSynth struct {
	durationMs float64
	err        error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voice string) (Track, error) {
	if f.err != nil {
		return Track{}, f.err
	}
	if strings.TrimSpace(text) == "" {
		return Track{}, &book.SynthesisError{Reason: book.EmptyText}
	}
	return Track{Audio: []byte{1}, Format: "mp3", DurationMs: f.durationMs, Voice: voice}, nil
}

func testPage(text string) book.PageRecord {
	return book.PageRecord{
		PageNumber: 3,
		Text:       text,
		Words:      book.Tokenize(text),
		Ready:      true,
	}
}

func TestStateCycle(t *testing.T) {
	s := New(&fakeSynth{durationMs: 100000}, Config{PollInterval: 5 * time.Millisecond})
	defer s.Close()

	if s.State() != Idle {
		t.Fatalf("initial state = %v, want idle", s.State())
	}

	if err := s.Load(context.Background(), testPage("one two three four")); err != nil {
		t.Fatal(err)
	}
	if s.State() != Ready {
		t.Fatalf("state after Load = %v, want ready", s.State())
	}

	if err := s.Play(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Playing {
		t.Fatalf("state after Play = %v, want playing", s.State())
	}

	if err := s.Pause(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Paused {
		t.Fatalf("state after Pause = %v, want paused", s.State())
	}

	if err := s.Play(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Playing {
		t.Fatalf("state after resume = %v, want playing", s.State())
	}
}

func TestPlayRequiresReadyTrack(t *testing.T) {
	s := New(&fakeSynth{durationMs: 1000}, Config{})
	defer s.Close()

	if err := s.Play(); err == nil {
		t.Fatal("Play before Load should fail")
	}
}

func TestEndedFiresAndIsTerminal(t *testing.T) {
	s := New(&fakeSynth{durationMs: 40}, Config{PollInterval: 5 * time.Millisecond})
	defer s.Close()

	var mu sync.Mutex
	endedPage := 0
	s.OnEnded(func(page int) {
		mu.Lock()
		endedPage = page
		mu.Unlock()
	})

	if err := s.Load(context.Background(), testPage("a b c")); err != nil {
		t.Fatal(err)
	}
	if err := s.Play(); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if s.State() == Ended {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("never reached Ended, state=%v", s.State())
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	got := endedPage
	mu.Unlock()
	if got != 3 {
		t.Errorf("OnEnded page = %d, want 3", got)
	}

	if err := s.Play(); err == nil {
		t.Error("Play after Ended should fail until the next Load")
	}
}

func TestWordIndexMonotonicWhilePlaying(t *testing.T) {
	s := New(&fakeSynth{durationMs: 300}, Config{PollInterval: 5 * time.Millisecond})
	defer s.Close()

	var mu sync.Mutex
	var indices []int
	s.OnWordBoundary(func(page, idx int) {
		mu.Lock()
		indices = append(indices, idx)
		mu.Unlock()
	})

	page := testPage("the quick brown fox jumps over the lazy dog again and again")
	if err := s.Load(context.Background(), page); err != nil {
		t.Fatal(err)
	}
	if err := s.Play(); err != nil {
		t.Fatal(err)
	}

	time.Sleep(400 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(indices); i++ {
		if indices[i] < indices[i-1] {
			t.Fatalf("word index went backwards: %v", indices)
		}
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(page.Words) {
			t.Fatalf("word index %d out of bounds for %d words", idx, len(page.Words))
		}
	}
}

func TestPauseFreezesIndex(t *testing.T) {
	s := New(&fakeSynth{durationMs: 500}, Config{PollInterval: 5 * time.Millisecond})
	defer s.Close()

	if err := s.Load(context.Background(), testPage("w1 w2 w3 w4 w5 w6 w7 w8 w9 w10")); err != nil {
		t.Fatal(err)
	}
	if err := s.Play(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := s.Pause(); err != nil {
		t.Fatal(err)
	}

	first := s.Playback()
	time.Sleep(60 * time.Millisecond)
	second := s.Playback()

	if second.WordIndex != first.WordIndex {
		t.Errorf("word index moved while paused: %d -> %d", first.WordIndex, second.WordIndex)
	}
	if second.ElapsedMs != first.ElapsedMs {
		t.Errorf("elapsed moved while paused: %v -> %v", first.ElapsedMs, second.ElapsedMs)
	}
}

func TestSeekRecomputesImmediately(t *testing.T) {
	s := New(&fakeSynth{durationMs: 10000}, Config{PollInterval: 5 * time.Millisecond})
	defer s.Close()

	page := testPage("w1 w2 w3 w4 w5 w6 w7 w8 w9 w10")
	if err := s.Load(context.Background(), page); err != nil {
		t.Fatal(err)
	}

	if err := s.Seek(0.5); err != nil {
		t.Fatal(err)
	}
	st := s.Playback()
	if st.WordIndex != 5 {
		t.Errorf("word index after Seek(0.5) = %d, want 5", st.WordIndex)
	}

	// Seeking backwards resets the monotonic floor.
	if err := s.Seek(0.1); err != nil {
		t.Fatal(err)
	}
	st = s.Playback()
	if st.WordIndex != 1 {
		t.Errorf("word index after Seek(0.1) = %d, want 1", st.WordIndex)
	}
}

func TestSynthesisFailureKeepsPageNavigable(t *testing.T) {
	synthErr := &book.SynthesisError{Reason: book.ServiceUnavailable}
	s := New(&fakeSynth{err: synthErr}, Config{})
	defer s.Close()

	err := s.Load(context.Background(), testPage("page three text"))
	if err == nil {
		t.Fatal("expected Load to surface the synthesis failure")
	}

	var sErr *book.SynthesisError
	if !errors.As(err, &sErr) || sErr.Reason != book.ServiceUnavailable {
		t.Errorf("error = %v, want ServiceUnavailable", err)
	}
	if s.State() != Idle {
		t.Errorf("state = %v, want idle after failure", s.State())
	}
	if s.Err() == nil {
		t.Error("Err() should retain the failure for the playback controls")
	}

	// Loading the next page proceeds normally.
	ok := New(&fakeSynth{durationMs: 1000}, Config{})
	defer ok.Close()
	if err := ok.Load(context.Background(), testPage("page four text")); err != nil {
		t.Errorf("navigation to the next page should work: %v", err)
	}
}

func TestEmptyTextRejected(t *testing.T) {
	s, err := NewHTTPSynthesizer(HTTPConfig{BaseURL: "http://localhost:0"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Synthesize(context.Background(), "   \n ", "amber")
	var sErr *book.SynthesisError
	if !errors.As(err, &sErr) || sErr.Reason != book.EmptyText {
		t.Errorf("error = %v, want EmptyText", err)
	}
}

func TestHTTPSynthesizerTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	s, err := NewHTTPSynthesizer(HTTPConfig{
		BaseURL:           server.URL,
		Timeout:           30 * time.Millisecond,
		RequestsPerSecond: 1000,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Synthesize(context.Background(), "page three text", "amber")
	var sErr *book.SynthesisError
	if !errors.As(err, &sErr) || sErr.Reason != book.ServiceUnavailable {
		t.Errorf("error = %v, want ServiceUnavailable on timeout", err)
	}
}

func TestHTTPSynthesizerCachesTracks(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		// []byte marshals as base64: "AQI=" is {1, 2}.
		w.Write([]byte(`{"audio":"AQI=","format":"mp3","durationMs":1500}`))
	}))
	defer server.Close()

	s, err := NewHTTPSynthesizer(HTTPConfig{BaseURL: server.URL, RequestsPerSecond: 1000})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		track, err := s.Synthesize(context.Background(), "same page text", "amber")
		if err != nil {
			t.Fatal(err)
		}
		if track.DurationMs != 1500 {
			t.Errorf("DurationMs = %v, want 1500", track.DurationMs)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("speech service called %d times, want 1 (cache)", calls)
	}
}
