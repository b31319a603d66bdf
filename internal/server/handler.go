// Package server dispatches HTTP requests to files and directory listings below a root.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/f4ah6o/fileserve-go/internal/byterange"
	"github.com/f4ah6o/fileserve-go/internal/listing"
	"github.com/f4ah6o/fileserve-go/internal/mimetype"
	"github.com/f4ah6o/fileserve-go/internal/resolver"
)

// ErrUnsupportedType is reported for paths that are neither regular files nor directories.
var ErrUnsupportedType = errors.New("unsupported resource type")

// Options tune a Handler.
type Options struct {
	// StrictMethods answers anything but GET and HEAD with 405.
	StrictMethods bool
	// Readme is rendered below directory listings when present. Empty disables it.
	Readme string
}

// Handler serves files, single byte ranges and directory listings.
type Handler struct {
	resolver *resolver.Resolver
	renderer *listing.Renderer
	logger   *slog.Logger
	strict   bool

	readDir func(string) ([]listing.Entry, error)
}

// NewHandler returns a Handler serving the root of res.
func NewHandler(res *resolver.Resolver, logger *slog.Logger, opts Options) *Handler {
	return &Handler{
		resolver: res,
		renderer: listing.NewRenderer(opts.Readme, logger),
		logger:   logger,
		strict:   opts.StrictMethods,
		readDir:  listing.Read,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.strict && r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p, err := h.resolver.Resolve(r.URL.Path)
	if err != nil {
		h.notFound(w, r, err)
		return
	}

	info, err := os.Stat(p)
	if err != nil {
		h.notFound(w, r, err)
		return
	}

	switch {
	case info.Mode().IsRegular():
		h.serveFile(w, r, p, info)
	case info.IsDir():
		h.serveDir(w, r, p)
	default:
		h.logger.Warn("refusing to serve", "path", r.URL.Path, "mode", info.Mode().Type().String())
		http.Error(w, ErrUnsupportedType.Error(), http.StatusNotFound)
	}
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Debug("not found", "path", r.URL.Path, "error", err)
	http.Error(w, "File or directory not found", http.StatusNotFound)
}

// serveFile writes the whole file, or one byte range of it when the request
// carries a satisfiable Range header. Unparsable and unsatisfiable ranges fall
// back to the whole file.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, p string, info fs.FileInfo) {
	f, err := os.Open(p)
	if err != nil {
		h.notFound(w, r, err)
		return
	}
	defer f.Close()

	size := info.Size()
	status := http.StatusOK
	length := size
	var body io.Reader = f

	if header := r.Header.Get("Range"); header != "" {
		rng, ok := byterange.Parse(header, size)
		switch {
		case !ok:
			h.logger.Debug("ignoring malformed range", "path", r.URL.Path, "range", header)
		case !rng.Satisfiable():
			h.logger.Debug("ignoring unsatisfiable range", "path", r.URL.Path, "range", rng.String())
		default:
			status = http.StatusPartialContent
			length = rng.Length()
			body = io.NewSectionReader(f, rng.Start, length)
			w.Header().Set("Content-Range", rng.ContentRange(size))
		}
	}

	w.Header().Set("Content-Type", mimetype.Resolve(info.Name()))
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.Header().Set("Accept-Ranges", "bytes")
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}
	if n, err := io.Copy(w, body); err != nil {
		// The client went away or the file shrank; nothing left to tell it.
		h.logger.Debug("stream aborted", "path", r.URL.Path, "written", n, "error", err)
	}
}

func (h *Handler) serveDir(w http.ResponseWriter, r *http.Request, p string) {
	entries, err := h.readDir(p)
	if err != nil {
		h.logger.Error("listing failed", "path", r.URL.Path, "error", err)
		http.Error(w, "Error reading directory", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, p, r.URL.Path, entries); err != nil {
		h.logger.Error("listing failed", "path", r.URL.Path, "error", fmt.Errorf("render: %w", err))
		http.Error(w, "Error reading directory", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Debug("stream aborted", "path", r.URL.Path, "error", err)
	}
}
