package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/abiiranathan/readalong/book"
	"github.com/abiiranathan/readalong/quiz"
)

type flakyExtractor struct {
	failPages map[int]bool
}

func (f *flakyExtractor) Extract(ctx context.Context, handle book.DocumentHandle, pageNumber int) (book.PageRecord, error) {
	if f.failPages[pageNumber] {
		return book.PageRecord{}, &book.ExtractionError{Page: pageNumber, Reason: book.Unreadable}
	}
	text := fmt.Sprintf("Milo played in the garden on page %d.", pageNumber)
	return book.PageRecord{
		PageNumber: pageNumber,
		Text:       text,
		Words:      book.Tokenize(text),
		Ready:      true,
	}, nil
}

func TestExtractAllRecordsFailedPages(t *testing.T) {
	handle := book.NewHandle("garden.pdf", 5)
	extractor := &flakyExtractor{failPages: map[int]bool{3: true}}

	pages := extractAll(extractor, handle, 2)

	if len(pages) != 5 {
		t.Fatalf("got %d records, want 5", len(pages))
	}
	for i, rec := range pages {
		if rec.PageNumber != i+1 {
			t.Fatalf("record %d has page number %d", i, rec.PageNumber)
		}
	}
	if pages[2].Ready || pages[2].Err == nil {
		t.Fatalf("failed page recorded as %+v, want not ready with error", pages[2])
	}
	for _, i := range []int{0, 1, 3, 4} {
		if !pages[i].Ready {
			t.Fatalf("page %d not ready after a sibling page failed", i+1)
		}
	}

	// The quiz still reaches its full size from the surviving pages.
	questions := quiz.New(quiz.Config{Seed: 3}).Generate(pages, handle.Title, 5)
	if len(questions) != 5 {
		t.Fatalf("quiz has %d questions, want 5", len(questions))
	}
}
