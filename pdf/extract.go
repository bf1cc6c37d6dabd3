package pdf

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/abiiranathan/readalong/book"
)

// Config controls page extraction.
type Config struct {
	// MaxEdgePx caps the longest edge of the rendered page image.
	// Default is 1200.
	MaxEdgePx int

	// PageTimeout bounds a single page extraction. Default is 10s.
	PageTimeout time.Duration

	Logger *slog.Logger
}

func (cfg *Config) defaults() {
	if cfg.MaxEdgePx <= 0 {
		cfg.MaxEdgePx = 1200
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// Extractor extracts single pages from a document. It holds no mutable
// state across calls, so it is safe to extract different pages of the same
// handle concurrently.
type Extractor struct {
	cfg Config
}

// NewExtractor creates an Extractor with the given configuration.
func NewExtractor(cfg Config) *Extractor {
	cfg.defaults()
	return &Extractor{cfg: cfg}
}

// Extract decodes one page of the document: its text layer, the tokenized
// word sequence and a rasterized image. pageNumber is 1-based.
//
// A page whose text layer is readable but whose raster fails still comes
// back Ready with a nil Image; the reading UI shows a placeholder. Only a
// page with neither text nor image is reported Unreadable.
func (e *Extractor) Extract(ctx context.Context, handle book.DocumentHandle, pageNumber int) (book.PageRecord, error) {
	if pageNumber < 1 || (handle.NumPages > 0 && pageNumber > handle.NumPages) {
		err := &book.ExtractionError{Page: pageNumber, Reason: book.OutOfRange}
		return failedRecord(pageNumber, err), err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.PageTimeout)
	defer cancel()

	type result struct {
		rec book.PageRecord
		err error
	}

	// The poppler call cannot be interrupted; run it off to the side and
	// abandon it on timeout. The handle is read-only during extraction so
	// the straggler is harmless.
	ch := make(chan result, 1)
	go func() {
		rec, err := e.extractPage(handle, pageNumber)
		ch <- result{rec: rec, err: err}
	}()

	select {
	case res := <-ch:
		return res.rec, res.err
	case <-ctx.Done():
		err := &book.ExtractionError{Page: pageNumber, Reason: book.ExtractionTimeout, Cause: ctx.Err()}
		e.cfg.Logger.Warn("page extraction timed out",
			"book", handle.Title, "page", pageNumber, "timeout", e.cfg.PageTimeout)
		return failedRecord(pageNumber, err), err
	}
}

func (e *Extractor) extractPage(handle book.DocumentHandle, pageNumber int) (book.PageRecord, error) {
	doc, err := e.openDocument(handle)
	if err != nil {
		exErr := &book.ExtractionError{Page: pageNumber, Reason: book.Unreadable, Cause: err}
		return failedRecord(pageNumber, exErr), exErr
	}
	defer doc.Close()

	if pageNumber > doc.NumPages {
		exErr := &book.ExtractionError{Page: pageNumber, Reason: book.OutOfRange}
		return failedRecord(pageNumber, exErr), exErr
	}

	page := doc.GetPage(pageNumber - 1)
	if page == nil {
		exErr := &book.ExtractionError{Page: pageNumber, Reason: book.Unreadable}
		return failedRecord(pageNumber, exErr), exErr
	}
	defer page.Close()

	text := page.Text()
	image, renderErr := e.renderPage(page)
	if renderErr != nil {
		e.cfg.Logger.Warn("page raster failed",
			"book", handle.Title, "page", pageNumber, "error", renderErr)
	}

	if text == "" && image == nil {
		exErr := &book.ExtractionError{Page: pageNumber, Reason: book.Unreadable, Cause: renderErr}
		return failedRecord(pageNumber, exErr), exErr
	}

	return book.PageRecord{
		PageNumber: pageNumber,
		Text:       text,
		Words:      book.Tokenize(text),
		Image:      image,
		Ready:      true,
	}, nil
}

func (e *Extractor) openDocument(handle book.DocumentHandle) (*Document, error) {
	if len(handle.Data) > 0 {
		return OpenBytes(handle.Data)
	}
	return Open(handle.Path)
}

// renderPage rasterizes through a temporary PNG file; cairo writes to
// files, not buffers.
func (e *Extractor) renderPage(page *Page) ([]byte, error) {
	tmp, err := os.CreateTemp("", "readalong-page-*.png")
	if err != nil {
		return nil, err
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := page.RenderPNG(tmp.Name(), e.cfg.MaxEdgePx); err != nil {
		return nil, err
	}
	return os.ReadFile(tmp.Name())
}

func failedRecord(pageNumber int, err error) book.PageRecord {
	return book.PageRecord{PageNumber: pageNumber, Err: err}
}

// CountPages opens the document just long enough to read its page count.
// Used when building a DocumentHandle for a source on disk.
func CountPages(path string) (int, error) {
	doc, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer doc.Close()
	return doc.NumPages, nil
}
