package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/arbor/internal/tree"
)

var nodeColumns = []string{
	"conversation_id", "node_id", "parent_id", "position", "valid",
	"author", "content", "create_time", "path",
}

// WriteTree persists a built tree. Rewriting the same title and root replaces
// the earlier copy.
func (s *Store) WriteTree(ctx context.Context, root *tree.Node) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM arbor_conversations WHERE title = $1 AND root_id = $2`,
		root.Title(), root.ID,
	); err != nil {
		return uuid.Nil, fmt.Errorf("delete previous conversation: %w", err)
	}

	rows := NodeRows(root)
	id := uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO arbor_conversations (id, title, root_id, node_count)
		VALUES ($1, $2, $3, $4)`,
		id, root.Title(), root.ID, len(rows),
	); err != nil {
		return uuid.Nil, fmt.Errorf("insert conversation: %w", err)
	}

	copyRows := make([][]any, len(rows))
	for i, r := range rows {
		copyRows[i] = []any{id, r.NodeID, nullable(r.ParentID), r.Position, r.Valid,
			nullable(r.Author), nullable(r.Content), r.CreateTime, r.Path}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"arbor_nodes"}, nodeColumns, pgx.CopyFromRows(copyRows)); err != nil {
		return uuid.Nil, fmt.Errorf("copy nodes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// ListConversations returns every stored conversation, newest build first.
func (s *Store) ListConversations(ctx context.Context) ([]ConversationRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, root_id, node_count, built_at
		FROM arbor_conversations ORDER BY built_at DESC, title`)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var out []ConversationRow
	for rows.Next() {
		var c ConversationRow
		if err := rows.Scan(&c.ID, &c.Title, &c.RootID, &c.NodeCount, &c.BuiltAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SearchNodes does a case-sensitive substring search over stored messages.
func (s *Store) SearchNodes(ctx context.Context, query string) ([]NodeHit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.title, n.node_id, n.author, n.content, n.path
		FROM arbor_nodes n
		JOIN arbor_conversations c ON c.id = n.conversation_id
		WHERE n.valid AND strpos(n.content, $1) > 0
		ORDER BY c.built_at, c.title, n.position`, query)
	if err != nil {
		return nil, fmt.Errorf("search nodes: %w", err)
	}
	defer rows.Close()

	var out []NodeHit
	for rows.Next() {
		var h NodeHit
		var author, content *string
		if err := rows.Scan(&h.Title, &h.NodeID, &author, &content, &h.Path); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		if author != nil {
			h.Author = *author
		}
		if content != nil {
			h.Content = *content
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// NodeRows flattens a tree in pre-order. Position is the pre-order index.
func NodeRows(root *tree.Node) []NodeRow {
	var rows []NodeRow
	root.Walk(func(n *tree.Node) {
		r := NodeRow{
			NodeID:   n.ID,
			Position: len(rows),
			Valid:    n.Valid,
			Author:   n.Author(),
			Content:  n.Content(),
		}
		if p := n.Parent(); p != nil {
			r.ParentID = p.ID
		}
		if ts, ok := n.CreateTime(); ok {
			r.CreateTime = &ts
		}
		for _, idx := range n.Path() {
			r.Path = append(r.Path, int32(idx))
		}
		if r.Path == nil {
			r.Path = []int32{}
		}
		rows = append(rows, r)
	})
	return rows
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type ConversationRow struct {
	ID        uuid.UUID
	Title     string
	RootID    string
	NodeCount int
	BuiltAt   time.Time
}

type NodeRow struct {
	NodeID     string
	ParentID   string
	Position   int
	Valid      bool
	Author     string
	Content    string
	CreateTime *float64
	Path       []int32
}

type NodeHit struct {
	Title   string
	NodeID  string
	Author  string
	Content string
	Path    []int32
}
