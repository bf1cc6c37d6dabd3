// Package loader owns the ordered extraction queue for one open document.
//
// Page 1 is extracted synchronously so the caller can reveal the reading UI
// immediately; the near pages follow, then the remainder of the document in
// the background. Scheduling is single-threaded and cooperative: one
// goroutine walks the tiers in page order and yields briefly between pages
// so extraction never monopolizes the process.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abiiranathan/readalong/book"
)

// Extractor decodes a single page of a document. Implementations must be
// safe to call concurrently for distinct pages of the same handle.
type Extractor interface {
	Extract(ctx context.Context, handle book.DocumentHandle, pageNumber int) (book.PageRecord, error)
}

// Config controls scheduling.
type Config struct {
	// NearPageCount is the last page of the near tier; pages 2..NearPageCount
	// load right after page 1. Default is 5.
	NearPageCount int

	// NearYield is the scheduling gap between near-tier extractions.
	// Default is 15ms.
	NearYield time.Duration

	// BackgroundYield is the larger gap between background-tier
	// extractions. Default is 50ms.
	BackgroundYield time.Duration

	Logger *slog.Logger
}

func (cfg *Config) defaults() {
	if cfg.NearPageCount <= 0 {
		cfg.NearPageCount = 5
	}
	if cfg.NearYield <= 0 {
		cfg.NearYield = 15 * time.Millisecond
	}
	if cfg.BackgroundYield <= 0 {
		cfg.BackgroundYield = 50 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// Loader drives progressive extraction of at most one active document.
// Opening a new document supersedes the previous one: outstanding work is
// cancelled and results tagged with the stale handle are discarded.
type Loader struct {
	cfg       Config
	extractor Extractor

	mu      sync.Mutex
	active  uuid.UUID // identity of the open handle, uuid.Nil when closed
	cancel  context.CancelFunc
	records []book.PageRecord // indexed by pageNumber-1, placeholders until ready
}

// New creates a Loader around the given extractor.
func New(extractor Extractor, cfg Config) *Loader {
	cfg.defaults()
	return &Loader{cfg: cfg, extractor: extractor}
}

// Open starts loading the document and returns the stream of page records
// in publication order. Page 1 is extracted before Open returns; its
// failure is document-fatal and reported here. Failures on any later page
// are recorded on that page and the loader moves on.
//
// The stream is buffered for the whole document and closed once every page
// has been visited, so a slow consumer never stalls the scheduler.
func (l *Loader) Open(ctx context.Context, handle book.DocumentHandle) (<-chan book.PageRecord, error) {
	if handle.NumPages < 1 {
		return nil, fmt.Errorf("open %q: document has no pages", handle.Title)
	}

	// Supersede whatever was loading before.
	l.Close()

	runCtx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	l.active = handle.ID
	l.cancel = cancel
	l.records = make([]book.PageRecord, handle.NumPages)
	for i := range l.records {
		l.records[i] = book.Placeholder(i + 1)
	}
	l.mu.Unlock()

	// Page 1 blocks the whole reading UI, so it is extracted inline and
	// its failure aborts the open.
	first, err := l.extractor.Extract(runCtx, handle, 1)
	if err != nil {
		cancel()
		l.deactivate(handle.ID)
		return nil, fmt.Errorf("open %q: %w", handle.Title, err)
	}

	stream := make(chan book.PageRecord, handle.NumPages)
	l.publish(handle.ID, first, stream)

	go l.run(runCtx, handle, stream)

	return stream, nil
}

// run walks the near tier then the background tier, in page order, with a
// yield between pages. It is the only writer of records after Open returns.
func (l *Loader) run(ctx context.Context, handle book.DocumentHandle, stream chan<- book.PageRecord) {
	defer close(stream)

	start := time.Now()

	nearEnd := min(l.cfg.NearPageCount, handle.NumPages)
	if !l.runTier(ctx, handle, stream, 2, nearEnd, l.cfg.NearYield) {
		return
	}
	if !l.runTier(ctx, handle, stream, nearEnd+1, handle.NumPages, l.cfg.BackgroundYield) {
		return
	}

	l.cfg.Logger.Info("document loaded",
		"book", handle.Title, "pages", handle.NumPages, "took", time.Since(start))
}

// runTier extracts pages first..last inclusive. Returns false if the handle
// was superseded or the context cancelled mid-tier.
func (l *Loader) runTier(ctx context.Context, handle book.DocumentHandle, stream chan<- book.PageRecord, first, last int, yield time.Duration) bool {
	for page := first; page <= last; page++ {
		if ctx.Err() != nil || !l.isActive(handle.ID) {
			return false
		}

		rec, err := l.extractor.Extract(ctx, handle, page)
		if err != nil {
			// Skipped, not retried; the failure stays on the record.
			l.cfg.Logger.Warn("page skipped",
				"book", handle.Title, "page", page, "error", err)
			rec = book.PageRecord{PageNumber: page, Err: err}
		}

		if !l.publish(handle.ID, rec, stream) {
			return false
		}

		// Cooperative yield so extraction never hogs the scheduler.
		select {
		case <-time.After(yield):
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// publish stores and emits a record if the handle is still the active one.
// Stale results from a superseded document are dropped here.
func (l *Loader) publish(id uuid.UUID, rec book.PageRecord, stream chan<- book.PageRecord) bool {
	l.mu.Lock()
	if l.active != id {
		l.mu.Unlock()
		return false
	}
	if rec.PageNumber >= 1 && rec.PageNumber <= len(l.records) {
		l.records[rec.PageNumber-1] = rec
	}
	l.mu.Unlock()

	stream <- rec
	return true
}

// Snapshot returns a copy of the page records in page order. Pages that
// have not completed yet are placeholders with Ready=false.
func (l *Loader) Snapshot() []book.PageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]book.PageRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Close cancels outstanding work for the active document. Safe to call when
// nothing is open.
func (l *Loader) Close() {
	l.mu.Lock()
	cancel := l.cancel
	l.active = uuid.Nil
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (l *Loader) isActive(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active == id
}

func (l *Loader) deactivate(id uuid.UUID) {
	l.mu.Lock()
	if l.active == id {
		l.active = uuid.Nil
		l.cancel = nil
	}
	l.mu.Unlock()
}
