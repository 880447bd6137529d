package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkrag/types"
)

func newLink(owner string) types.Link {
	return types.Link{
		ID:        uuid.New(),
		URL:       "https://example.com/page",
		Title:     "Example",
		UserID:    owner,
		Status:    types.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func chunkSet(linkID uuid.UUID, embeddings ...[]float32) []types.Chunk {
	chunks := make([]types.Chunk, len(embeddings))
	for i, emb := range embeddings {
		chunks[i] = types.Chunk{LinkID: linkID, Index: i, Text: "chunk", Embedding: emb}
	}
	return chunks
}

func TestMemoryStoreLinkLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	link := newLink("u1")

	require.NoError(t, s.CreateLink(ctx, link))

	got, err := s.GetLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)
	assert.Equal(t, types.StatusPending, got.Status)

	require.NoError(t, s.UpdateLinkStatus(ctx, link.ID, types.StatusReady))
	got, err = s.GetLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusReady, got.Status)

	require.NoError(t, s.UpdateLinkMeta(ctx, link.ID, "New Title", "desc", "a short summary"))
	got, err = s.GetLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.Equal(t, "a short summary", got.Summary)

	_, err = s.GetLink(ctx, uuid.New())
	assert.ErrorIs(t, err, types.ErrLinkNotFound)
}

func TestMemoryStorePutChunksReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	link := newLink("u1")
	require.NoError(t, s.CreateLink(ctx, link))

	first := chunkSet(link.ID, []float32{1, 0}, []float32{0, 1})
	require.NoError(t, s.PutChunks(ctx, link.ID, "u1", first))

	second := chunkSet(link.ID, []float32{1, 0})
	require.NoError(t, s.PutChunks(ctx, link.ID, "u1", second))

	cands, err := s.SearchChunks(ctx, []float32{1, 0}, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, cands, 1)
}

func TestMemoryStorePutChunksIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	link := newLink("u1")
	require.NoError(t, s.CreateLink(ctx, link))

	chunks := chunkSet(link.ID, []float32{1, 0}, []float32{0, 1})
	require.NoError(t, s.PutChunks(ctx, link.ID, "u1", chunks))
	once, err := s.SearchChunks(ctx, []float32{1, 0}, "u1", 10)
	require.NoError(t, err)

	require.NoError(t, s.PutChunks(ctx, link.ID, "u1", chunks))
	twice, err := s.SearchChunks(ctx, []float32{1, 0}, "u1", 10)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestMemoryStoreDeleteWinsOverLateWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	link := newLink("u1")
	require.NoError(t, s.CreateLink(ctx, link))

	require.NoError(t, s.DeleteLink(ctx, link.ID))

	err := s.PutChunks(ctx, link.ID, "u1", chunkSet(link.ID, []float32{1, 0}))
	assert.ErrorIs(t, err, types.ErrLinkNotFound)

	cands, err := s.SearchChunks(ctx, []float32{1, 0}, "", 10)
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestMemoryStoreDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	link := newLink("u1")
	require.NoError(t, s.CreateLink(ctx, link))

	require.NoError(t, s.DeleteLink(ctx, link.ID))
	require.NoError(t, s.DeleteLink(ctx, link.ID))
}

func TestMemoryStoreOwnerScoping(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	mine := newLink("u1")
	theirs := newLink("u2")
	require.NoError(t, s.CreateLink(ctx, mine))
	require.NoError(t, s.CreateLink(ctx, theirs))
	require.NoError(t, s.PutChunks(ctx, mine.ID, "u1", chunkSet(mine.ID, []float32{1, 0})))
	require.NoError(t, s.PutChunks(ctx, theirs.ID, "u2", chunkSet(theirs.ID, []float32{1, 0})))

	scoped, err := s.SearchChunks(ctx, []float32{1, 0}, "u1", 10)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, mine.ID, scoped[0].LinkID)

	global, err := s.SearchChunks(ctx, []float32{1, 0}, "", 10)
	require.NoError(t, err)
	assert.Len(t, global, 2)
}

func TestMemoryStoreSearchOrderedBySimilarity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	link := newLink("u1")
	require.NoError(t, s.CreateLink(ctx, link))

	chunks := chunkSet(link.ID, []float32{0, 1}, []float32{1, 0}, []float32{1, 1})
	require.NoError(t, s.PutChunks(ctx, link.ID, "u1", chunks))

	cands, err := s.SearchChunks(ctx, []float32{1, 0}, "u1", 2)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, 1, cands[0].Index)
	assert.Equal(t, 2, cands[1].Index)
	assert.Greater(t, cands[0].Similarity, cands[1].Similarity)
}
