package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/arbor/internal/forest"
	"github.com/MikeSquared-Agency/arbor/internal/hermes"
	"github.com/MikeSquared-Agency/arbor/internal/metrics"
)

type treeSummary struct {
	Title  string `json:"title"`
	RootID string `json:"root_id"`
	Nodes  int    `json:"nodes"`
}

type searchResponse struct {
	Query string             `json:"query"`
	Hits  []hermes.SearchHit `json:"hits"`
	Count int                `json:"count"`
}

// listTrees handles GET /api/v1/trees
func (s *Server) listTrees(w http.ResponseWriter, r *http.Request) {
	trees := s.forest.Trees()
	out := make([]treeSummary, len(trees))
	for i, root := range trees {
		out[i] = treeSummary{Title: root.Title(), RootID: root.ID, Nodes: root.Size()}
	}
	writeJSON(w, http.StatusOK, out)
}

// search handles GET /api/v1/search?q=
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	resp := searchResponse{Query: q, Hits: []hermes.SearchHit{}}
	for _, n := range s.forest.SearchForString(q) {
		resp.Hits = append(resp.Hits, hermes.NewSearchHit(n))
	}
	resp.Count = len(resp.Hits)
	metrics.ObserveSearch("http", resp.Count)
	writeJSON(w, http.StatusOK, resp)
}

// transcript handles GET /api/v1/trees/{title}/transcript?path=1,2
func (s *Server) transcript(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")

	path, err := ParsePath(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, err := s.forest.LinearizeTitle(title, path)
	switch {
	case errors.Is(err, forest.ErrTreeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, forest.ErrBadPath):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

// ParsePath parses a comma separated list of 1-based branch indices.
func ParsePath(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	path := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid path index %q", p)
		}
		path = append(path, n)
	}
	return path, nil
}
