package hermes

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/arbor/internal/forest"
	"github.com/MikeSquared-Agency/arbor/internal/metrics"
	"github.com/MikeSquared-Agency/arbor/internal/tree"
)

const (
	SubjectTreeBuilt     = "swarm.arbor.tree.built"
	SubjectSearchRequest = "swarm.arbor.search.request"
	SubjectSearchResult  = "swarm.arbor.search.result"
)

// Publisher is the part of Client the event helpers need.
type Publisher interface {
	Publish(subject string, data any) error
}

// TreeBuilt announces a conversation tree that was built and registered.
type TreeBuilt struct {
	Title     string `json:"title"`
	RootID    string `json:"root_id"`
	Nodes     int    `json:"nodes"`
	Timestamp string `json:"timestamp"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchHit struct {
	Title   string `json:"title"`
	Path    []int  `json:"path"`
	NodeID  string `json:"node_id"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

type SearchResult struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
}

// NewSearchHit describes a matched node.
func NewSearchHit(n *tree.Node) SearchHit {
	path, title := n.Locate()
	return SearchHit{
		Title:   title,
		Path:    path,
		NodeID:  n.ID,
		Author:  n.Author(),
		Content: n.Content(),
	}
}

// AnnounceTrees publishes a TreeBuilt event for every registered tree.
func AnnounceTrees(p Publisher, f *forest.Forest, logger *slog.Logger) {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, root := range f.Trees() {
		evt := TreeBuilt{
			Title:     root.Title(),
			RootID:    root.ID,
			Nodes:     root.Size(),
			Timestamp: now,
		}
		if err := p.Publish(SubjectTreeBuilt, evt); err != nil {
			logger.Warn("failed to publish tree built", "title", evt.Title, "error", err)
		}
	}
}

// SearchHandler answers search requests against the forest, publishing the
// result on SubjectSearchResult.
func SearchHandler(p Publisher, f *forest.Forest, logger *slog.Logger) func(subject string, data []byte) {
	return func(subject string, data []byte) {
		var req SearchRequest
		if err := json.Unmarshal(data, &req); err != nil {
			logger.Warn("invalid search request", "subject", subject, "error", err)
			return
		}
		if req.Query == "" {
			logger.Warn("empty search query", "subject", subject)
			return
		}

		result := SearchResult{Query: req.Query, Hits: []SearchHit{}}
		for _, n := range f.SearchForString(req.Query) {
			result.Hits = append(result.Hits, NewSearchHit(n))
		}
		metrics.ObserveSearch("nats", len(result.Hits))
		if err := p.Publish(SubjectSearchResult, result); err != nil {
			logger.Warn("failed to publish search result", "query", req.Query, "error", err)
			return
		}
		logger.Debug("search answered", "query", req.Query, "hits", len(result.Hits))
	}
}
