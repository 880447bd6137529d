package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"linkrag/types"
)

// MemoryStore is a mutex-guarded in-memory Storer with a brute-force cosine
// scan. It backs tests and single-process deployments; the locking gives the
// same all-or-nothing visibility for PutChunks that the Postgres store gets
// from transactions.
type MemoryStore struct {
	mu     sync.RWMutex
	links  map[uuid.UUID]types.Link
	chunks map[uuid.UUID][]types.Chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links:  make(map[uuid.UUID]types.Link),
		chunks: make(map[uuid.UUID][]types.Chunk),
	}
}

func (m *MemoryStore) CreateLink(_ context.Context, link types.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[link.ID] = link
	return nil
}

func (m *MemoryStore) GetLink(_ context.Context, id uuid.UUID) (*types.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	link, ok := m.links[id]
	if !ok {
		return nil, types.ErrLinkNotFound
	}
	return &link, nil
}

func (m *MemoryStore) ListLinks(_ context.Context, owner string) ([]types.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var links []types.Link
	for _, link := range m.links {
		if owner == "" || link.UserID == owner {
			links = append(links, link)
		}
	}
	sort.SliceStable(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
	return links, nil
}

func (m *MemoryStore) UpdateLinkStatus(_ context.Context, id uuid.UUID, status types.LinkStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[id]
	if !ok {
		// the link vanished; nothing to transition
		return nil
	}
	link.Status = status
	m.links[id] = link
	return nil
}

func (m *MemoryStore) UpdateLinkMeta(_ context.Context, id uuid.UUID, title, description, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[id]
	if !ok {
		return nil
	}
	link.Title = title
	link.Description = description
	link.Summary = summary
	m.links[id] = link
	return nil
}

func (m *MemoryStore) DeleteLink(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, id)
	delete(m.chunks, id)
	return nil
}

// Close satisfies the same lifecycle as the Postgres store.
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) PutChunks(_ context.Context, linkID uuid.UUID, _ string, chunks []types.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[linkID]; !ok {
		return types.ErrLinkNotFound
	}
	replacement := make([]types.Chunk, len(chunks))
	copy(replacement, chunks)
	m.chunks[linkID] = replacement
	return nil
}

func (m *MemoryStore) SearchChunks(_ context.Context, query []float32, owner string, limit int) ([]types.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}

	var candidates []types.Candidate
	for linkID, chunks := range m.chunks {
		link, ok := m.links[linkID]
		if !ok {
			continue
		}
		if owner != "" && link.UserID != owner {
			continue
		}
		for _, c := range chunks {
			candidates = append(candidates, types.Candidate{
				LinkID:     linkID,
				Index:      c.Index,
				Text:       c.Text,
				Similarity: cosine(query, c.Embedding),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		if candidates[i].LinkID != candidates[j].LinkID {
			return candidates[i].LinkID.String() < candidates[j].LinkID.String()
		}
		return candidates[i].Index < candidates[j].Index
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
