package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"linkrag/types"
)

// Storer is the persistence capability behind ingestion and retrieval.
// PutChunks replaces a link's chunk set atomically: concurrent readers see
// either the old set or the new one, never a partial write. Chunk writes
// require the link row to exist, so DeleteLink deterministically wins a race
// with a later PutChunks for the same id.
type Storer interface {
	CreateLink(ctx context.Context, link types.Link) error
	GetLink(ctx context.Context, id uuid.UUID) (*types.Link, error)
	ListLinks(ctx context.Context, owner string) ([]types.Link, error)
	UpdateLinkStatus(ctx context.Context, id uuid.UUID, status types.LinkStatus) error
	UpdateLinkMeta(ctx context.Context, id uuid.UUID, title, description, summary string) error
	DeleteLink(ctx context.Context, id uuid.UUID) error
	PutChunks(ctx context.Context, linkID uuid.UUID, owner string, chunks []types.Chunk) error
	// SearchChunks returns up to limit candidate chunks ordered by raw
	// cosine similarity against the query vector, scoped to owner when
	// owner is non-empty.
	SearchChunks(ctx context.Context, query []float32, owner string, limit int) ([]types.Candidate, error)
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

// Init creates the schema. The vector column is fixed to the embedder's
// dimension; changing the embedding model means recreating this schema and
// re-ingesting every link.
func (p *PostgresStore) Init(ctx context.Context, dim int) error {
	query := fmt.Sprintf(`
    CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS links (
		id UUID PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		tags TEXT[] NOT NULL DEFAULT '{}',
		user_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK (status IN ('pending','processing','ready','failed')),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_links_user_id ON links(user_id);

    CREATE TABLE IF NOT EXISTS chunks (
        link_id UUID NOT NULL REFERENCES links(id) ON DELETE CASCADE,
        position INT NOT NULL,
        user_id TEXT NOT NULL DEFAULT '',
        content TEXT NOT NULL,
        start_offset INT NOT NULL,
        end_offset INT NOT NULL,
        embedding vector(%d) NOT NULL,
        PRIMARY KEY (link_id, position)
    );

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_chunks_user_id ON chunks(user_id);
    `, dim)
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) CreateLink(ctx context.Context, link types.Link) error {
	query := `INSERT INTO links (id, url, title, description, summary, tags, user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := p.pool.Exec(
		ctx,
		query,
		link.ID,
		link.URL,
		link.Title,
		link.Description,
		link.Summary,
		link.Tags,
		link.UserID,
		link.Status,
		link.CreatedAt,
	)
	return err
}

func (p *PostgresStore) GetLink(ctx context.Context, id uuid.UUID) (*types.Link, error) {
	query := `SELECT id, url, title, description, summary, tags, user_id, status, created_at
		FROM links WHERE id = $1`

	link := &types.Link{}
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&link.ID,
		&link.URL,
		&link.Title,
		&link.Description,
		&link.Summary,
		&link.Tags,
		&link.UserID,
		&link.Status,
		&link.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (p *PostgresStore) ListLinks(ctx context.Context, owner string) ([]types.Link, error) {
	query := `SELECT id, url, title, description, summary, tags, user_id, status, created_at
		FROM links
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at DESC`
	rows, err := p.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []types.Link
	for rows.Next() {
		var link types.Link
		if err := rows.Scan(
			&link.ID,
			&link.URL,
			&link.Title,
			&link.Description,
			&link.Summary,
			&link.Tags,
			&link.UserID,
			&link.Status,
			&link.CreatedAt,
		); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (p *PostgresStore) UpdateLinkStatus(ctx context.Context, id uuid.UUID, status types.LinkStatus) error {
	_, err := p.pool.Exec(ctx, "UPDATE links SET status = $2 WHERE id = $1", id, status)
	return err
}

func (p *PostgresStore) UpdateLinkMeta(ctx context.Context, id uuid.UUID, title, description, summary string) error {
	_, err := p.pool.Exec(ctx, "UPDATE links SET title = $2, description = $3, summary = $4 WHERE id = $1",
		id, title, description, summary)
	return err
}

// DeleteLink removes the link and, through the cascade, all of its chunks.
// Deleting an absent link is not an error.
func (p *PostgresStore) DeleteLink(ctx context.Context, id uuid.UUID) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM links WHERE id = $1", id)
	return err
}

// PutChunks replaces the link's chunks inside one transaction. The inserts
// reference the links row, so a concurrently deleted link makes the whole
// transaction fail instead of resurrecting its content.
func (p *PostgresStore) PutChunks(ctx context.Context, linkID uuid.UUID, owner string, chunks []types.Chunk) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM chunks WHERE link_id = $1", linkID); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	query := `INSERT INTO chunks (link_id, position, user_id, content, start_offset, end_offset, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, c := range chunks {
		if _, err := tx.Exec(ctx, query,
			linkID, c.Index, owner, c.Text, c.Start, c.End, pgvector.NewVector(c.Embedding),
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}

	return tx.Commit(ctx)
}

func (p *PostgresStore) SearchChunks(ctx context.Context, query []float32, owner string, limit int) ([]types.Candidate, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if limit <= 0 {
		limit = 100
	}

	vector := pgvector.NewVector(query)
	sql := `
		SELECT link_id, position, content, 1 - (embedding <=> $1) AS similarity
		FROM chunks
		WHERE ($2 = '' OR user_id = $2)
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := p.pool.Query(ctx, sql, vector, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []types.Candidate
	for rows.Next() {
		var c types.Candidate
		if err := rows.Scan(&c.LinkID, &c.Index, &c.Text, &c.Similarity); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
	return nil
}
