package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS arbor_conversations (
	id         uuid PRIMARY KEY,
	title      text NOT NULL,
	root_id    text NOT NULL,
	node_count integer NOT NULL,
	built_at   timestamptz NOT NULL DEFAULT now(),
	UNIQUE (title, root_id)
);

CREATE TABLE IF NOT EXISTS arbor_nodes (
	conversation_id uuid NOT NULL REFERENCES arbor_conversations(id) ON DELETE CASCADE,
	node_id         text NOT NULL,
	parent_id       text,
	position        integer NOT NULL,
	valid           boolean NOT NULL,
	author          text,
	content         text,
	create_time     double precision,
	path            integer[] NOT NULL,
	PRIMARY KEY (conversation_id, node_id)
);`

// Migrate creates the arbor tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
