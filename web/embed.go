// Package web embeds the portal frontend (dist/) and provides an HTTP handler
// that serves it as a single-page application (SPA). The frontend only emits
// portal events and draws the views returned by /api and /ws/portal.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

const indexFile = "index.html"

// SPAHandler returns an http.Handler that serves the embedded frontend.
// Existing assets are served as files and any other extensionless path gets
// index.html for client-side routing. Unmatched /api and /ws paths and
// missing assets are 404s.
func SPAHandler() http.Handler {
	assets, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return &spaHandler{assets: assets}
}

type spaHandler struct {
	assets fs.FS
}

func (h *spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")

	switch {
	case isBackendPath(name):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
		return
	case name == "" || name == indexFile:
		h.serveIndex(w)
		return
	}

	if info, err := fs.Stat(h.assets, name); err == nil && !info.IsDir() {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		http.ServeFileFS(w, r, h.assets, name)
		return
	}
	if path.Ext(name) != "" {
		http.NotFound(w, r)
		return
	}
	h.serveIndex(w)
}

func (h *spaHandler) serveIndex(w http.ResponseWriter) {
	data, err := fs.ReadFile(h.assets, indexFile)
	if err != nil {
		slog.Error("web: embedded index.html missing", "error", err)
		http.Error(w, "frontend not built", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(data); err != nil {
		slog.Debug("web: failed to write index.html", "error", err)
	}
}

func isBackendPath(name string) bool {
	for _, prefix := range []string{"api", "ws"} {
		if name == prefix || strings.HasPrefix(name, prefix+"/") {
			return true
		}
	}
	return false
}
