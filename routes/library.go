package routes

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abiiranathan/readalong/book"
	"github.com/abiiranathan/readalong/loader"
	"github.com/abiiranathan/readalong/narration"
	"github.com/abiiranathan/readalong/reader"
)

// PageCounter reports how many pages a PDF file has. Implemented by
// pdf.CountPages; a stub in tests.
type PageCounter func(path string) (int, error)

// Options configure how the library opens books.
type Options struct {
	NearPages int
	QuizSize  int
	Voice     string
	Logger    *slog.Logger
}

// Library is the registry of open books behind the HTTP API. Each open
// book owns a reading session whose loader extracts pages in the
// background while clients poll for them.
type Library struct {
	extractor  loader.Extractor
	synth      narration.Synthesizer
	recorder   reader.Recorder
	countPages PageCounter
	opts       Options

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	handle  book.DocumentHandle
	session *reader.Session
	cancel  context.CancelFunc
}

// NewLibrary creates a registry. synth and recorder may be nil.
func NewLibrary(extractor loader.Extractor, synth narration.Synthesizer, recorder reader.Recorder, countPages PageCounter, opts Options) *Library {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Library{
		extractor:  extractor,
		synth:      synth,
		recorder:   recorder,
		countPages: countPages,
		opts:       opts,
		entries:    make(map[string]*entry),
	}
}

// OpenBook opens the PDF at path and starts progressive loading. The
// returned handle identifies the book in later requests.
//
// Loading runs on a context the library owns, not the open request's:
// background extraction must outlive the handler that started it and is
// cancelled only when the book is closed.
func (l *Library) OpenBook(path string) (book.DocumentHandle, error) {
	numPages, err := l.countPages(path)
	if err != nil {
		return book.DocumentHandle{}, fmt.Errorf("unable to open %s: %w", path, err)
	}

	handle := book.NewHandle(path, numPages)

	ld := loader.New(l.extractor, loader.Config{
		NearPageCount: l.opts.NearPages,
		Logger:        l.opts.Logger,
	})
	session := reader.New(handle, ld, nil, l.recorder, reader.Config{
		QuizSize: l.opts.QuizSize,
		Logger:   l.opts.Logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := session.Start(ctx)
	if err != nil {
		cancel()
		return book.DocumentHandle{}, err
	}
	// Clients poll snapshots; nobody reads the stream, so drain it.
	go func() {
		for range stream {
		}
	}()

	l.mu.Lock()
	l.entries[handle.ID.String()] = &entry{handle: handle, session: session, cancel: cancel}
	l.mu.Unlock()

	l.opts.Logger.Info("book opened", "book", handle.Title, "pages", handle.NumPages)
	return handle, nil
}

// CloseBook removes the book and releases its session.
func (l *Library) CloseBook(id string) bool {
	l.mu.Lock()
	e, ok := l.entries[id]
	delete(l.entries, id)
	l.mu.Unlock()

	if ok {
		e.cancel()
		e.session.Close()
	}
	return ok
}

// Books lists the open handles.
func (l *Library) Books() []book.DocumentHandle {
	l.mu.Lock()
	defer l.mu.Unlock()

	handles := make([]book.DocumentHandle, 0, len(l.entries))
	for _, e := range l.entries {
		handles = append(handles, e.handle)
	}
	return handles
}

// CloseAll releases every open session. Used at server shutdown.
func (l *Library) CloseAll() {
	l.mu.Lock()
	entries := l.entries
	l.entries = make(map[string]*entry)
	l.mu.Unlock()

	for _, e := range entries {
		e.cancel()
		e.session.Close()
	}
}

func (l *Library) lookup(id string) (*entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	return e, ok
}
