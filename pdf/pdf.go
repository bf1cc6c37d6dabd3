package pdf

/*
#cgo pkg-config: glib-2.0 gio-2.0 cairo poppler-glib
#cgo LDFLAGS: -pthread

#include <cairo/cairo.h>
#include <locale.h>
#include <poppler/glib/poppler.h>
#include <stdio.h>
#include <stdbool.h>

static pthread_mutex_t cairo_mutex = PTHREAD_MUTEX_INITIALIZER;

PopplerDocument *open_document(const char *filename, int *num_pages){
	GFile* file = g_file_new_for_path(filename);
	if(file == NULL){
		return NULL;
	}

	GError* error = NULL;
	GBytes* bytes = g_file_load_bytes(file, NULL, NULL, &error);
	g_object_unref(file);

	if (error != NULL) {
		g_print("Error loading PDF file: %s\n", error->message);
		g_clear_error(&error);
		return NULL;
	}

	PopplerDocument *doc = poppler_document_new_from_bytes(bytes, NULL, &error);
	if (error) {
		g_print("Error creating PDF document: %s\n", error->message);
		g_clear_error(&error);
		g_bytes_unref(bytes);
		return NULL;
	}

	*num_pages = poppler_document_get_n_pages(doc);
	g_bytes_unref(bytes);
	return doc;
}

PopplerDocument *open_document_bytes(const char *data, long length, int *num_pages){
	GBytes* bytes = g_bytes_new(data, length);
	if(bytes == NULL){
		return NULL;
	}

	GError* error = NULL;
	PopplerDocument *doc = poppler_document_new_from_bytes(bytes, NULL, &error);
	if (error) {
		g_print("Error creating PDF document: %s\n", error->message);
		g_clear_error(&error);
		g_bytes_unref(bytes);
		return NULL;
	}

	*num_pages = poppler_document_get_n_pages(doc);
	g_bytes_unref(bytes);
	return doc;
}

// Render a page to a PNG whose longest edge is capped at max_edge pixels.
// Rendered pages accumulate for the lifetime of an open document, so the
// cap bounds per-document memory.
bool render_page_capped(PopplerPage *page, int max_edge, const char* output_file) {
	double width, height;
	poppler_page_get_size(page, &width, &height);
	if (width <= 0 || height <= 0) {
		return false;
	}

	double longest = width > height ? width : height;
	double scale = (double)max_edge / longest;

	int pixel_width = (int)(width * scale);
	int pixel_height = (int)(height * scale);

	// Cairo surfaces are not thread safe; serialize rendering.
	pthread_mutex_lock(&cairo_mutex);

	cairo_surface_t* surface =
		cairo_image_surface_create(CAIRO_FORMAT_ARGB32, pixel_width, pixel_height);
	if (surface == NULL) {
		pthread_mutex_unlock(&cairo_mutex);
		puts("Unable to create cairo surface");
		return false;
	}

	cairo_t* cr = cairo_create(surface);
	if (cr == NULL) {
		cairo_surface_destroy(surface);
		pthread_mutex_unlock(&cairo_mutex);
		puts("Error: could not create cairo context");
		return false;
	}

	// White background.
	cairo_set_source_rgb(cr, 1.0, 1.0, 1.0);
	cairo_paint(cr);

	cairo_scale(cr, scale, scale);
	poppler_page_render(page, cr);

	pthread_mutex_unlock(&cairo_mutex);

	cairo_status_t status = cairo_surface_write_to_png(surface, output_file);

	cairo_destroy(cr);
	cairo_surface_destroy(surface);

	return status == CAIRO_STATUS_SUCCESS;
}
*/
import "C"
import (
	"fmt"
	"strings"
	"unsafe"
)

// Document wraps an open poppler document. The underlying handle is
// read-only during extraction, so distinct pages can be processed
// concurrently against the same Document.
type Document struct {
	doc      *C.PopplerDocument
	Path     string
	NumPages int
}

func SetLocale() {
	// Set locale to UTF-8
	C.setlocale(C.LC_ALL, C.CString(""))
}

// Open opens a PDF document on disk.
func Open(path string) (*Document, error) {
	var c_path *C.char = C.CString(path)
	defer C.free(unsafe.Pointer(c_path))

	var num_pages C.int
	doc := C.open_document(c_path, &num_pages)
	if doc == nil {
		return nil, fmt.Errorf("unable to open document: %s", path)
	}

	return &Document{doc: doc, NumPages: int(num_pages), Path: path}, nil
}

// OpenBytes opens a PDF document from an in-memory buffer.
func OpenBytes(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("unable to open document: empty buffer")
	}

	var num_pages C.int
	doc := C.open_document_bytes(
		(*C.char)(unsafe.Pointer(&data[0])), C.long(len(data)), &num_pages)
	if doc == nil {
		return nil, fmt.Errorf("unable to open document from %d bytes", len(data))
	}

	return &Document{doc: doc, NumPages: int(num_pages)}, nil
}

func (pdf *Document) Close() {
	if pdf.doc != nil {
		C.g_object_unref(C.gpointer(pdf.doc))
		pdf.doc = nil
	}
}

type Page struct {
	page *C.PopplerPage

	doc     *Document
	PageNum int

	Width  float64
	Height float64
}

// GetPage returns the zero-indexed page, or nil if out of range.
func (pdf *Document) GetPage(page int) *Page {
	if page < 0 || page >= pdf.NumPages {
		return nil
	}

	p_page := &Page{
		doc:     pdf,
		page:    C.poppler_document_get_page(pdf.doc, C.int(page)),
		PageNum: page,
	}
	if p_page.page == nil {
		return nil
	}

	var width, height C.double
	C.poppler_page_get_size(p_page.page, &width, &height)
	p_page.Width = float64(width)
	p_page.Height = float64(height)

	return p_page
}

func (page *Page) Close() {
	if page.page != nil {
		C.g_object_unref(C.gpointer(page.page))
		page.page = nil
	}
}

// RenderPNG rasterizes the page to a PNG file with the longest edge capped
// at maxEdge pixels.
func (page *Page) RenderPNG(output string, maxEdge int) error {
	c_output := C.CString(output)
	defer C.free(unsafe.Pointer(c_output))

	ok := C.render_page_capped(page.page, C.int(maxEdge), c_output)
	if !bool(ok) {
		return fmt.Errorf("unable to render page %d to %s", page.PageNum, output)
	}
	return nil
}

// Text returns the text layer of the page.
func (page *Page) Text() string {
	g_text := C.poppler_page_get_text(page.page)
	if g_text == nil {
		return ""
	}
	defer C.g_free(C.gpointer(g_text))

	// skip all arrows
	skipToken := []rune{0x25B6, 0x25B8, 0x25B7, 0x25B9, 0x25BA, 0x25BB, 0x25C0, 0x25C2, 0x25C1, 0x25C3, 0x25C4, 0x25C5, 0x25C6, 0x25C7, 0x25C8, 0x25C9, 0x25CA, 0x25CB, 0x25CC, 0x25CD, 0x25CE, 0x25CF, 0x25D0, 0x25D1, 0x25D2, 0x25D3, 0x25D4, 0x25D5, 0x25D6, 0x25D7, 0x25D8, 0x25D9, 0x25DA, 0x25DB, 0x25DC, 0x25DD, 0x25DE, 0x25DF, 0x25E0, 0x25E1, 0x25E2, 0x25E3, 0x25E4, 0x25E5, 0x25E6, 0x25E7, 0x25E8, 0x25E9, 0x25EA, 0x25EB, 0x25EC, 0x25ED, 0x25EE, 0x25EF, 0x25F0, 0x25F1, 0x25F2, 0x25F3, 0x25F4, 0x25F5, 0x25F6, 0x25F7, 0x25F8, 0x25F9, 0x25FA, 0x25FB, 0x25FC, 0x25FD, 0x25FE, 0x25FF, 0x0080}

	text := C.GoString((*C.char)(g_text))
	text = strings.ReplaceAll(text, "", "")
	for _, token := range skipToken {
		text = strings.ReplaceAll(text, string(token), "")
	}
	return text
}
