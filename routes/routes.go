package routes

import (
	"cmp"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"

	"github.com/abiiranathan/readalong/book"
)

type bookInfo struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	NumPages int    `json:"numPages"`
}

type pageInfo struct {
	PageNumber int      `json:"pageNumber"`
	Text       string   `json:"text"`
	Words      []string `json:"words"`
	Ready      bool     `json:"ready"`
	HasImage   bool     `json:"hasImage"`
	Error      string   `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func toPageInfo(rec book.PageRecord) pageInfo {
	info := pageInfo{
		PageNumber: rec.PageNumber,
		Text:       rec.Text,
		Words:      rec.Words,
		Ready:      rec.Ready,
		HasImage:   len(rec.Image) > 0,
	}
	if rec.Err != nil {
		info.Error = rec.Err.Error()
	}
	return info
}

// OpenBook handles POST /books/open. The body names a PDF on the server's
// filesystem; the response carries the handle for later requests.
func OpenBook(lib *Library) http.HandlerFunc {
	type request struct {
		Path string `json:"path"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
			writeError(w, http.StatusBadRequest, "body must be JSON with a non-empty path")
			return
		}

		handle, err := lib.OpenBook(req.Path)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, bookInfo{
			ID:       handle.ID.String(),
			Title:    handle.Title,
			NumPages: handle.NumPages,
		})
	}
}

// ListBooks handles GET /books.
func ListBooks(lib *Library) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handles := lib.Books()
		books := make([]bookInfo, 0, len(handles))
		for _, h := range handles {
			books = append(books, bookInfo{ID: h.ID.String(), Title: h.Title, NumPages: h.NumPages})
		}
		slices.SortStableFunc(books, func(a, b bookInfo) int {
			return cmp.Compare(a.Title, b.Title)
		})
		writeJSON(w, http.StatusOK, books)
	}
}

// ListPages handles GET /books/{book_id}/pages. Pages still extracting are
// reported as not ready; clients poll until the ones they need arrive.
func ListPages(lib *Library) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := lib.lookup(r.PathValue("book_id"))
		if !ok {
			writeError(w, http.StatusNotFound, "book not open")
			return
		}

		records := e.session.Pages()
		pages := make([]pageInfo, 0, len(records))
		for _, rec := range records {
			pages = append(pages, toPageInfo(rec))
		}
		writeJSON(w, http.StatusOK, pages)
	}
}

// GetPage handles GET /books/{book_id}/pages/{page_num}.
func GetPage(lib *Library) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := lookupPage(w, r, lib)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, toPageInfo(rec))
	}
}

// GetPageImage handles GET /books/{book_id}/pages/{page_num}/image and
// serves the capped raster as PNG.
func GetPageImage(lib *Library) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := lookupPage(w, r, lib)
		if !ok {
			return
		}
		if !rec.Ready || len(rec.Image) == 0 {
			writeError(w, http.StatusNotFound, "page image not available")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "max-age=31536000")
		w.Write(rec.Image)
	}
}

// GetPageAudio handles GET /books/{book_id}/pages/{page_num}/audio. The
// track is synthesized on demand; the synthesizer caches recent pages.
func GetPageAudio(lib *Library) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := lookupPage(w, r, lib)
		if !ok {
			return
		}
		if lib.synth == nil {
			writeError(w, http.StatusNotImplemented, "narration is not configured")
			return
		}
		if !rec.Ready {
			writeError(w, http.StatusConflict, "page is still loading")
			return
		}

		track, err := lib.synth.Synthesize(r.Context(), rec.Text, lib.opts.Voice)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		w.Header().Set("Content-Type", "audio/"+track.Format)
		w.Header().Set("X-Duration-Ms", strconv.FormatFloat(track.DurationMs, 'f', -1, 64))
		w.Write(track.Audio)
	}
}

// GetQuiz handles GET /books/{book_id}/quiz. The optional n query
// parameter overrides the configured question count.
func GetQuiz(lib *Library) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := lib.lookup(r.PathValue("book_id"))
		if !ok {
			writeError(w, http.StatusNotFound, "book not open")
			return
		}

		n := 0
		if q := r.URL.Query().Get("n"); q != "" {
			var err error
			if n, err = strconv.Atoi(q); err != nil || n < 1 || n > 20 {
				writeError(w, http.StatusBadRequest, "n must be between 1 and 20")
				return
			}
		}
		writeJSON(w, http.StatusOK, e.session.Quiz(n))
	}
}

// CloseBook handles DELETE /books/{book_id}.
func CloseBook(lib *Library) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !lib.CloseBook(r.PathValue("book_id")) {
			writeError(w, http.StatusNotFound, "book not open")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func lookupPage(w http.ResponseWriter, r *http.Request, lib *Library) (book.PageRecord, bool) {
	e, ok := lib.lookup(r.PathValue("book_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "book not open")
		return book.PageRecord{}, false
	}

	pageNum, err := strconv.Atoi(r.PathValue("page_num"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page number")
		return book.PageRecord{}, false
	}

	records := e.session.Pages()
	if pageNum < 1 || pageNum > len(records) {
		writeError(w, http.StatusNotFound, "page out of range")
		return book.PageRecord{}, false
	}
	return records[pageNum-1], true
}
