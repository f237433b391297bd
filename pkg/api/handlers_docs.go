package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// pageName restricts doc pages to flat, lower-case slugs.
var pageName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

const markdownContentType = "text/markdown; charset=utf-8"

// handleDoc serves docs/<page>.md verbatim.
func (s *Server) handleDoc(w http.ResponseWriter, r *http.Request) {
	page := strings.TrimSuffix(r.PathValue("page"), ".md")
	if !pageName.MatchString(page) {
		s.respondError(w, r, http.StatusNotFound, "no such page")
		return
	}

	data, err := os.ReadFile(filepath.Join(s.docsDir, page+".md"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.respondError(w, r, http.StatusNotFound, "no such page")
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, s.sanitizeError(r, err, "read page"))
		return
	}

	w.Header().Set("Content-Type", markdownContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleDocsIndex lists the available page names.
func (s *Server) handleDocsIndex(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.docsDir)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, s.sanitizeError(r, err, "list pages"))
		return
	}

	pages := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".md" {
			continue
		}
		if page := strings.TrimSuffix(name, ".md"); pageName.MatchString(page) {
			pages = append(pages, page)
		}
	}
	sort.Strings(pages)
	s.respondJSON(w, http.StatusOK, DocsIndexResponse{Pages: pages})
}
