package webui

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var allowedStaticExtensions = map[string]bool{
	".html": true, ".css": true, ".js": true, ".json": true,
	".png": true, ".jpg": true, ".jpeg": true, ".svg": true,
	".ico": true,
}

func (webUI *WebUI) staticDir() string {
	if webUI.Application != nil && webUI.Config.StaticDir != "" {
		return webUI.Config.StaticDir
	}
	return "web"
}

// staticHandler serves the map viewer assets. Only flat file names with a
// known extension resolve, and only inside the static directory.
func (webUI *WebUI) staticHandler(w http.ResponseWriter, r *http.Request) {
	fileName := filepath.Base(r.URL.Path)

	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedStaticExtensions[ext] {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	if strings.Contains(fileName, "..") || strings.ContainsAny(fileName, "/\\\x00") {
		http.Error(w, "Invalid file name", http.StatusBadRequest)
		return
	}

	staticDir, err := filepath.Abs(webUI.staticDir())
	if err != nil {
		http.Error(w, "Internal configuration error", http.StatusInternalServerError)
		return
	}
	absPath := filepath.Join(staticDir, fileName)

	rel, err := filepath.Rel(staticDir, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		slog.Warn("potential path traversal attempt blocked", "path", absPath)
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	stat, err := os.Stat(absPath)
	if err != nil || stat.IsDir() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, absPath)
}
