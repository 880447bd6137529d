package types

import (
	"time"

	"github.com/google/uuid"
)

type LinkStatus string

const (
	StatusPending    LinkStatus = "pending"
	StatusProcessing LinkStatus = "processing"
	StatusReady      LinkStatus = "ready"
	StatusFailed     LinkStatus = "failed"
)

// Link is a user-submitted URL. Status is owned by the ingestion pipeline:
// pending and processing are transient, ready and failed are terminal.
// An empty UserID means the link is unscoped and visible to global search.
type Link struct {
	ID          uuid.UUID  `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Summary     string     `json:"summary,omitempty"`
	Tags        []string   `json:"tags"`
	UserID      string     `json:"user_id,omitempty"`
	Status      LinkStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Chunk is one embedded segment of a link's fetched content. Start and End
// are rune offsets into the source text. Chunks are written in a batch when
// ingestion succeeds and are immutable afterwards.
type Chunk struct {
	LinkID    uuid.UUID
	Index     int
	Text      string
	Embedding []float32
	Start     int
	End       int
}

// Candidate is one chunk produced by a store scan, carrying the raw cosine
// similarity against the query vector. Mapping onto the display scale
// happens in the retrieval engine, not here.
type Candidate struct {
	LinkID     uuid.UUID
	Index      int
	Text       string
	Similarity float64
}

type ChunkMatch struct {
	Text  string  `json:"text"`
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// SearchResult is derived per search call, never stored. Score is the best
// chunk score of the link; Chunks holds every chunk that passed the
// threshold, best first.
type SearchResult struct {
	LinkID    uuid.UUID    `json:"link_id"`
	URL       string       `json:"url"`
	Title     string       `json:"title"`
	Summary   string       `json:"summary,omitempty"`
	Tags      []string     `json:"tags"`
	CreatedAt time.Time    `json:"created_at"`
	Score     float64      `json:"score"`
	Chunks    []ChunkMatch `json:"chunks"`
}
