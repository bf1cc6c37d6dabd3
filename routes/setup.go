package routes

import (
	"net/http"
)

func SetupRoutes(mux *http.ServeMux, lib *Library) {
	// Open a book for progressive reading.
	mux.HandleFunc("POST /books/open", OpenBook(lib))

	// List open books.
	mux.HandleFunc("GET /books", ListBooks(lib))

	// Page snapshots; clients poll while background extraction runs.
	mux.HandleFunc("GET /books/{book_id}/pages", ListPages(lib))
	mux.HandleFunc("GET /books/{book_id}/pages/{page_num}", GetPage(lib))

	// Capped page raster.
	mux.HandleFunc("GET /books/{book_id}/pages/{page_num}/image", GetPageImage(lib))

	// On-demand narration audio.
	mux.HandleFunc("GET /books/{book_id}/pages/{page_num}/audio", GetPageAudio(lib))

	// Comprehension quiz over the loaded pages.
	mux.HandleFunc("GET /books/{book_id}/quiz", GetQuiz(lib))

	// Release the book's session.
	mux.HandleFunc("DELETE /books/{book_id}", CloseBook(lib))
}
