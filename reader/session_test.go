package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abiiranathan/readalong/book"
	"github.com/abiiranathan/readalong/loader"
)

type fakeExtractor struct {
	delays map[int]time.Duration
}

func (f *fakeExtractor) Extract(ctx context.Context, handle book.DocumentHandle, pageNumber int) (book.PageRecord, error) {
	if d := f.delays[pageNumber]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return book.PageRecord{}, ctx.Err()
		}
	}
	text := fmt.Sprintf("Milo and Ruby walked to the park on page %d.", pageNumber)
	return book.PageRecord{
		PageNumber: pageNumber,
		Text:       text,
		Words:      book.Tokenize(text),
		Ready:      true,
	}, nil
}

type fakeNarrator struct {
	mu      sync.Mutex
	loaded  []int
	loadErr error
	onEnded func(pageNumber int)
	closed  bool
}

func (f *fakeNarrator) Load(ctx context.Context, page book.PageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, page.PageNumber)
	return f.loadErr
}

func (f *fakeNarrator) OnEnded(fn func(pageNumber int)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEnded = fn
}

func (f *fakeNarrator) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeNarrator) fireEnded(pageNumber int) {
	f.mu.Lock()
	fn := f.onEnded
	f.mu.Unlock()
	if fn != nil {
		fn(pageNumber)
	}
}

func (f *fakeNarrator) loadedPages() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.loaded...)
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []book.ProgressEvent
	err    error
}

func (f *fakeRecorder) Record(ctx context.Context, ev book.ProgressEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakeRecorder) all() []book.ProgressEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]book.ProgressEvent(nil), f.events...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, numPages int, narrator Narrator, recorder Recorder) *Session {
	t.Helper()
	handle := book.NewHandle("little-bear.pdf", numPages)
	ld := loader.New(&fakeExtractor{}, loader.Config{Logger: quietLogger()})
	return New(handle, ld, narrator, recorder, Config{Logger: quietLogger()})
}

func drain(t *testing.T, stream <-chan book.PageRecord) {
	t.Helper()
	for {
		select {
		case _, ok := <-stream:
			if !ok {
				return
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out draining page stream")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestSessionReadsThroughDocument(t *testing.T) {
	recorder := &fakeRecorder{}
	s := newTestSession(t, 3, nil, recorder)
	defer s.Close()

	stream, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(t, stream)

	if got := s.CurrentPage().PageNumber; got != 1 {
		t.Fatalf("current page = %d, want 1", got)
	}

	s.NextPage()
	s.NextPage()
	if got := s.CurrentPage().PageNumber; got != 3 {
		t.Fatalf("current page = %d, want 3", got)
	}
	if s.Completed() {
		t.Fatal("session completed before reaching past the last page")
	}

	s.NextPage() // past the last page finishes the book
	if !s.Completed() {
		t.Fatal("session not completed after final advance")
	}

	events := recorder.all()
	if len(events) != 3 {
		t.Fatalf("got %d progress events, want 3", len(events))
	}
	last := events[len(events)-1]
	if !last.Completed {
		t.Fatal("final event not marked completed")
	}
	if last.PagesRead != 3 || last.TotalPages != 3 {
		t.Fatalf("final event pages = %d/%d, want 3/3", last.PagesRead, last.TotalPages)
	}
	if last.BookTitle != "little-bear" {
		t.Fatalf("event title = %q, want %q", last.BookTitle, "little-bear")
	}
}

func TestCompletionFiresOnce(t *testing.T) {
	recorder := &fakeRecorder{}
	s := newTestSession(t, 1, nil, recorder)
	defer s.Close()

	stream, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(t, stream)

	fired := 0
	s.OnComplete(func() { fired++ })

	s.NextPage()
	s.NextPage()
	s.NextPage()

	if fired != 1 {
		t.Fatalf("completion fired %d times, want 1", fired)
	}
	if got := len(recorder.all()); got != 1 {
		t.Fatalf("got %d progress events, want 1", got)
	}
}

func TestAutoAdvanceOnNarrationEnd(t *testing.T) {
	narrator := &fakeNarrator{}
	s := newTestSession(t, 3, narrator, nil)
	defer s.Close()

	stream, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(t, stream)

	narrator.fireEnded(1)
	if got := s.CurrentPage().PageNumber; got != 2 {
		t.Fatalf("current page = %d after narration ended, want 2", got)
	}

	// A straggler signal from an already-left page must not turn the page.
	narrator.fireEnded(1)
	if got := s.CurrentPage().PageNumber; got != 2 {
		t.Fatalf("current page = %d after stale signal, want 2", got)
	}

	waitFor(t, func() bool {
		for _, p := range narrator.loadedPages() {
			if p == 2 {
				return true
			}
		}
		return false
	})
}

// A fast page turn can outrun background extraction; narration must still
// bind to the page once its record arrives.
func TestNarrationRebindsAfterSlowExtraction(t *testing.T) {
	narrator := &fakeNarrator{}
	handle := book.NewHandle("slow.pdf", 3)
	ld := loader.New(&fakeExtractor{
		delays: map[int]time.Duration{2: 150 * time.Millisecond},
	}, loader.Config{Logger: quietLogger()})
	s := New(handle, ld, narrator, nil, Config{Logger: quietLogger()})
	defer s.Close()

	stream, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Turn the page before page 2 has finished extracting.
	s.NextPage()

	waitFor(t, func() bool {
		for _, p := range narrator.loadedPages() {
			if p == 2 {
				return true
			}
		}
		return false
	})
	drain(t, stream)
}

func TestAutoAdvanceDisabled(t *testing.T) {
	narrator := &fakeNarrator{}
	handle := book.NewHandle("story.pdf", 3)
	ld := loader.New(&fakeExtractor{}, loader.Config{Logger: quietLogger()})
	s := New(handle, ld, narrator, nil, Config{
		DisableAutoAdvance: true,
		Logger:             quietLogger(),
	})
	defer s.Close()

	stream, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(t, stream)

	narrator.fireEnded(1)
	if got := s.CurrentPage().PageNumber; got != 1 {
		t.Fatalf("current page = %d, want 1 with auto-advance off", got)
	}
}

func TestPrevPageStopsAtFirst(t *testing.T) {
	s := newTestSession(t, 2, nil, nil)
	defer s.Close()

	stream, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(t, stream)

	s.PrevPage()
	if got := s.CurrentPage().PageNumber; got != 1 {
		t.Fatalf("current page = %d, want 1", got)
	}

	s.NextPage()
	s.PrevPage()
	if got := s.CurrentPage().PageNumber; got != 1 {
		t.Fatalf("current page = %d after forward and back, want 1", got)
	}
}

func TestNarrationFailureKeepsPageNavigable(t *testing.T) {
	narrator := &fakeNarrator{loadErr: errors.New("speech service down")}
	s := newTestSession(t, 2, narrator, nil)
	defer s.Close()

	stream, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(t, stream)

	s.NextPage()
	if got := s.CurrentPage().PageNumber; got != 2 {
		t.Fatalf("current page = %d, want 2 despite narration failure", got)
	}
}

func TestRecorderFailureDoesNotBlockReading(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("disk full")}
	s := newTestSession(t, 2, nil, recorder)
	defer s.Close()

	stream, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(t, stream)

	s.NextPage()
	s.NextPage()
	if !s.Completed() {
		t.Fatal("session did not complete when the recorder kept failing")
	}
}

func TestSessionQuizSize(t *testing.T) {
	s := newTestSession(t, 4, nil, nil)
	defer s.Close()

	stream, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(t, stream)

	questions := s.Quiz(0)
	if len(questions) != 5 {
		t.Fatalf("quiz has %d questions, want 5", len(questions))
	}
	for _, q := range questions {
		if len(q.Options) != 4 {
			t.Fatalf("question %d has %d options, want 4", q.ID, len(q.Options))
		}
		if strings.TrimSpace(q.Prompt) == "" {
			t.Fatalf("question %d has an empty prompt", q.ID)
		}
	}
}
