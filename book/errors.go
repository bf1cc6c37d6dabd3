package book

import "fmt"

// ExtractionReason classifies why a page could not be extracted.
type ExtractionReason int

const (
	Unreadable ExtractionReason = iota
	OutOfRange
	ExtractionTimeout
)

func (r ExtractionReason) String() string {
	switch r {
	case Unreadable:
		return "unreadable"
	case OutOfRange:
		return "out of range"
	case ExtractionTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ExtractionError reports a failed page extraction. Page 1 failures are
// document-fatal; any other page records the error and the loader moves on.
type ExtractionError struct {
	Page   int
	Reason ExtractionReason
	Cause  error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extract page %d: %s: %v", e.Page, e.Reason, e.Cause)
	}
	return fmt.Sprintf("extract page %d: %s", e.Page, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// SynthesisReason classifies why narration could not be produced.
type SynthesisReason int

const (
	ServiceUnavailable SynthesisReason = iota
	EmptyText
)

func (r SynthesisReason) String() string {
	switch r {
	case ServiceUnavailable:
		return "service unavailable"
	case EmptyText:
		return "empty text"
	default:
		return "unknown"
	}
}

// SynthesisError reports a failed narration synthesis. The page stays
// readable; only playback is affected.
type SynthesisError struct {
	Reason SynthesisReason
	Cause  error
}

func (e *SynthesisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("synthesize narration: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("synthesize narration: %s", e.Reason)
}

func (e *SynthesisError) Unwrap() error { return e.Cause }
