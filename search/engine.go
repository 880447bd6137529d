package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"linkrag/model"
	"linkrag/store"
	"linkrag/types"
)

const (
	DefaultLimit     = 10
	DefaultThreshold = 0.7

	// candidateFactor widens the store scan so that grouping by link still
	// leaves enough distinct links to fill the requested limit.
	candidateFactor = 10
)

// Engine answers free-text queries against the chunk store: the query is
// embedded once, candidate chunks are scored, filtered by threshold, grouped
// by link and ranked by their best chunk.
type Engine struct {
	logger   *slog.Logger
	store    store.Storer
	embedder model.Embedder
}

func NewEngine(st store.Storer, e model.Embedder) *Engine {
	return &Engine{
		logger:   slog.Default(),
		store:    st,
		embedder: e,
	}
}

// Search returns at most limit links ordered by descending aggregate score,
// ties broken by most recent creation time. An empty result is a valid
// outcome, not an error.
func (e *Engine) Search(ctx context.Context, query, owner string, limit int, threshold float64) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := e.store.SearchChunks(ctx, vector, owner, limit*candidateFactor)
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}

	grouped := make(map[uuid.UUID][]types.ChunkMatch)
	for _, c := range candidates {
		score := mapScore(c.Similarity)
		if score < threshold {
			continue
		}
		grouped[c.LinkID] = append(grouped[c.LinkID], types.ChunkMatch{
			Text:  c.Text,
			Index: c.Index,
			Score: score,
		})
	}

	results := make([]types.SearchResult, 0, len(grouped))
	for linkID, matches := range grouped {
		link, err := e.store.GetLink(ctx, linkID)
		if err != nil {
			if errors.Is(err, types.ErrLinkNotFound) {
				// deleted between scan and lookup
				continue
			}
			return nil, err
		}

		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Score != matches[j].Score {
				return matches[i].Score > matches[j].Score
			}
			return matches[i].Index < matches[j].Index
		})

		results = append(results, types.SearchResult{
			LinkID:    link.ID,
			URL:       link.URL,
			Title:     link.Title,
			Summary:   link.Summary,
			Tags:      link.Tags,
			CreatedAt: link.CreatedAt,
			Score:     matches[0].Score,
			Chunks:    matches,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}

	e.logger.Debug("search done", "owner", owner, "candidates", len(candidates), "links", len(results))
	return results, nil
}

// mapScore moves raw cosine similarity from [-1, 1] onto the [0, 1] display
// scale. Thresholds compare against this scale, never against raw cosine.
func mapScore(cosine float64) float64 {
	score := (cosine + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
