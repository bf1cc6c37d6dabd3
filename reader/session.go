// Package reader ties the engine together for one open document: the
// progressive loader feeds pages, the narration synchronizer follows the
// current page, progress events go to the external collaborator, and a
// quiz is derived once the book is done.
//
// A Session is the single owned state object for an open document; there
// are no package-level singletons. Components communicate through the
// loader stream and narration callbacks, never by sharing mutable fields.
package reader

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/abiiranathan/readalong/book"
	"github.com/abiiranathan/readalong/loader"
	"github.com/abiiranathan/readalong/quiz"
)

// Recorder consumes progress events. Typically *progress.Store; nil
// disables recording.
type Recorder interface {
	Record(ctx context.Context, ev book.ProgressEvent) error
}

// Narrator is the slice of the narration synchronizer the session drives.
type Narrator interface {
	Load(ctx context.Context, page book.PageRecord) error
	OnEnded(fn func(pageNumber int))
	Close()
}

// Config controls a session.
type Config struct {
	// QuizSize is the number of questions derived on completion.
	// Default is quiz.DefaultTargetCount.
	QuizSize int

	// DisableAutoAdvance keeps the session on the current page when its
	// narration ends; by default the end of a track turns the page.
	DisableAutoAdvance bool

	Logger *slog.Logger
}

func (cfg *Config) defaults() {
	if cfg.QuizSize <= 0 {
		cfg.QuizSize = quiz.DefaultTargetCount
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// Session owns the reading state for one open document.
type Session struct {
	cfg      Config
	handle   book.DocumentHandle
	loader   *loader.Loader
	narrator Narrator
	recorder Recorder

	mu         sync.Mutex
	ctx        context.Context
	current    int
	maxRead    int
	narrWanted int // page whose narration waits on extraction, 0 if none
	openedAt   time.Time
	completed  bool
	onComplete func()
}

// New creates a session for the handle. narrator and recorder may be nil;
// reading works without narration and without a progress store.
func New(handle book.DocumentHandle, ld *loader.Loader, narrator Narrator, recorder Recorder, cfg Config) *Session {
	cfg.defaults()
	return &Session{
		cfg:      cfg,
		handle:   handle,
		loader:   ld,
		narrator: narrator,
		recorder: recorder,
	}
}

// Start opens the document and returns the page stream. Page 1 is ready
// when Start returns; narration for it is synthesized in the background so
// the caller never blocks on the speech service.
func (s *Session) Start(ctx context.Context) (<-chan book.PageRecord, error) {
	stream, err := s.loader.Open(ctx, s.handle)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.ctx = ctx
	s.current = 1
	s.maxRead = 1
	s.narrWanted = 0
	s.openedAt = time.Now()
	s.completed = false
	s.mu.Unlock()

	if s.narrator != nil {
		s.narrator.OnEnded(s.handleNarrationEnded)
		go s.loadNarration(1)
	}

	// The session watches the stream on its way through so narration can
	// rebind to a page the reader reached before extraction finished.
	out := make(chan book.PageRecord, s.handle.NumPages)
	go s.forward(stream, out)
	return out, nil
}

func (s *Session) forward(in <-chan book.PageRecord, out chan<- book.PageRecord) {
	defer close(out)
	for rec := range in {
		if rec.Ready {
			s.mu.Lock()
			retry := s.narrator != nil && rec.PageNumber == s.narrWanted
			s.mu.Unlock()
			if retry {
				go s.loadNarration(rec.PageNumber)
			}
		}
		out <- rec
	}
}

// OnComplete registers the document-completion callback.
func (s *Session) OnComplete(fn func()) {
	s.mu.Lock()
	s.onComplete = fn
	s.mu.Unlock()
}

// CurrentPage returns the record for the page being read; a placeholder if
// it has not finished extracting.
func (s *Session) CurrentPage() book.PageRecord {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	snapshot := s.loader.Snapshot()
	if current >= 1 && current <= len(snapshot) {
		return snapshot[current-1]
	}
	return book.Placeholder(current)
}

// Pages returns a read-only snapshot of all page records.
func (s *Session) Pages() []book.PageRecord {
	return s.loader.Snapshot()
}

// NextPage advances to the following page, emitting a progress event. On
// the last page it completes the document instead.
func (s *Session) NextPage() {
	s.mu.Lock()
	if s.current >= s.handle.NumPages {
		s.mu.Unlock()
		s.complete()
		return
	}
	s.current++
	if s.current > s.maxRead {
		s.maxRead = s.current
	}
	page := s.current
	s.mu.Unlock()

	s.emitProgress(false)
	if s.narrator != nil {
		go s.loadNarration(page)
	}
}

// PrevPage moves back one page. Narration rebinds to the revisited page;
// no progress event is emitted for going backwards.
func (s *Session) PrevPage() {
	s.mu.Lock()
	if s.current <= 1 {
		s.mu.Unlock()
		return
	}
	s.current--
	page := s.current
	s.mu.Unlock()

	if s.narrator != nil {
		go s.loadNarration(page)
	}
}

// Quiz derives an n-question comprehension quiz from the pages read so
// far. n <= 0 uses the configured size.
func (s *Session) Quiz(n int) []quiz.Question {
	if n <= 0 {
		n = s.cfg.QuizSize
	}
	g := quiz.New(quiz.Config{Logger: s.cfg.Logger})
	return g.Generate(s.loader.Snapshot(), s.handle.Title, n)
}

// Completed reports whether the document-completion signal has fired.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Close releases the loader and narration resources for this document.
func (s *Session) Close() {
	s.loader.Close()
	if s.narrator != nil {
		s.narrator.Close()
	}
}

func (s *Session) handleNarrationEnded(pageNumber int) {
	s.mu.Lock()
	stale := pageNumber != s.current
	disable := s.cfg.DisableAutoAdvance
	s.mu.Unlock()

	if stale || disable {
		return
	}
	s.NextPage()
}

func (s *Session) complete() {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return
	}
	s.completed = true
	fn := s.onComplete
	s.mu.Unlock()

	s.emitProgress(true)
	s.cfg.Logger.Info("document completed",
		"book", s.handle.Title, "pages", s.handle.NumPages)

	if fn != nil {
		fn()
	}
}

func (s *Session) emitProgress(completed bool) {
	if s.recorder == nil {
		return
	}

	s.mu.Lock()
	ev := book.ProgressEvent{
		BookID:      s.handle.ID.String(),
		BookTitle:   s.handle.Title,
		PagesRead:   s.maxRead,
		TotalPages:  s.handle.NumPages,
		TimeSpentMs: time.Since(s.openedAt).Milliseconds(),
		Completed:   completed,
	}
	ctx := s.ctx
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.recorder.Record(ctx, ev); err != nil {
		// Progress is best effort; reading never blocks on the store.
		s.cfg.Logger.Warn("progress event dropped", "book", s.handle.Title, "error", err)
	}
}

// loadNarration binds narration to a page once its text is available.
// Synthesis failures are logged and left on the synchronizer; the page
// stays readable.
func (s *Session) loadNarration(pageNumber int) {
	snapshot := s.loader.Snapshot()
	if pageNumber < 1 || pageNumber > len(snapshot) {
		return
	}
	page := snapshot[pageNumber-1]
	if !page.Ready {
		// Extraction hasn't caught up; forward retries when the page's
		// record arrives on the stream.
		s.mu.Lock()
		s.narrWanted = pageNumber
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if s.narrWanted == pageNumber {
		s.narrWanted = 0
	}
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.narrator.Load(ctx, page); err != nil {
		s.cfg.Logger.Warn("narration unavailable for page",
			"book", s.handle.Title, "page", pageNumber, "error", err)
	}
}
