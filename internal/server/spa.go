package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// spaHandler serves the single-page app: existing files as-is, every
// other path as index.html so client-side routes survive a reload
type spaHandler struct {
	dir   string
	files http.Handler
}

func newSPAHandler(dir string) http.Handler {
	return &spaHandler{dir: dir, files: http.FileServer(http.Dir(dir))}
}

func (h *spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeErrorResponse(w, "METHOD_NOT_ALLOWED", "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.dir == "" {
		writeErrorResponse(w, "NOT_FOUND", "No web app configured", http.StatusNotFound)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	if info, err := os.Stat(filepath.Join(h.dir, filepath.FromSlash(name))); err == nil && !info.IsDir() {
		h.files.ServeHTTP(w, r)
		return
	}

	index := filepath.Join(h.dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		writeErrorResponse(w, "NOT_FOUND", "No web app configured", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, index)
}
