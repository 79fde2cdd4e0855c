package httpapi

import (
	"bytes"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var previewMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// handlePreview renders a file's generated documentation markdown to HTML.
// Files without documentation yet return 404 so clients can distinguish
// "still generating" from "bad id".
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, claims tokenClaims, fileID string) {
	file, err := s.store.FileByID(claims.UserID, fileID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if file.Documentation == nil || *file.Documentation == "" {
		writeError(w, http.StatusNotFound, "not_found", "file has no documentation yet")
		return
	}

	var buf bytes.Buffer
	if err := previewMarkdown.Convert([]byte(*file.Documentation), &buf); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "markdown rendering failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
