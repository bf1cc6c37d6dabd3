// Package book holds the shared types of the reading engine: the document
// handle, per-page extraction records, load priorities, playback state and
// the progress events emitted to external collaborators.
package book

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DocumentHandle is an opaque reference to one open source document.
// A handle is created on open and released on close/replace; its ID is the
// identity that in-flight loader work is tagged with, so results for a
// superseded handle can be discarded.
type DocumentHandle struct {
	ID       uuid.UUID
	Path     string // path on disk, empty if Data is set
	Data     []byte // raw document bytes, nil if Path is set
	Title    string
	NumPages int
}

// NewHandle creates a handle for a document on disk with a declared page count.
func NewHandle(path string, numPages int) DocumentHandle {
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return DocumentHandle{
		ID:       uuid.New(),
		Path:     path,
		Title:    title,
		NumPages: numPages,
	}
}

// NewHandleFromBytes creates a handle for an in-memory document.
func NewHandleFromBytes(data []byte, title string, numPages int) DocumentHandle {
	return DocumentHandle{
		ID:       uuid.New(),
		Data:     data,
		Title:    title,
		NumPages: numPages,
	}
}

// PageRecord is the extracted unit for one page. Once Ready is true the
// record is immutable; a page is only replaced wholesale by re-extraction.
type PageRecord struct {
	PageNumber int // 1-based, contiguous per document
	Text       string
	Words      []string // Tokenize(Text), reading order
	Image      []byte   // rasterized page, PNG
	Ready      bool
	Err        error // extraction failure, preserved for diagnostics
}

// Placeholder returns a not-ready record for a page that has not been
// extracted yet.
func Placeholder(pageNumber int) PageRecord {
	return PageRecord{PageNumber: pageNumber}
}

// Tokenize splits page text into words on runs of whitespace, dropping empty
// tokens. Casing and attached punctuation are preserved; downstream
// consumers normalize as they need.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Priority is the load tier assigned to a page when a document is opened.
type Priority int

const (
	// Immediate is page 1: extracted synchronously so the reading UI can
	// open without waiting for the rest of the document.
	Immediate Priority = iota
	// Near covers the first few pages after page 1.
	Near
	// Background covers the remainder of the document.
	Background
)

func (p Priority) String() string {
	switch p {
	case Immediate:
		return "immediate"
	case Near:
		return "near"
	case Background:
		return "background"
	default:
		return "unknown"
	}
}

// PriorityFor returns the tier for a 1-based page number given the near-tier
// page count.
func PriorityFor(pageNumber, nearPageCount int) Priority {
	switch {
	case pageNumber <= 1:
		return Immediate
	case pageNumber <= nearPageCount:
		return Near
	default:
		return Background
	}
}

// PlaybackState is a snapshot of narration transport state for the current
// page. WordIndex is in [0, len(words)] and non-decreasing while IsPlaying
// holds on a given page.
type PlaybackState struct {
	CurrentPage int
	IsPlaying   bool
	WordIndex   int
	ElapsedMs   float64
	DurationMs  float64 // 0 when the track duration is not known yet
}

// ProgressEvent is emitted on page advance and on document completion for
// the external progress collaborator.
type ProgressEvent struct {
	BookID      string
	BookTitle   string
	PagesRead   int
	TotalPages  int
	TimeSpentMs int64
	Completed   bool
}
