package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"linkrag/chunk"
	"linkrag/fetch"
	"linkrag/model"
	"linkrag/store"
	"linkrag/types"
)

// Pipeline drives one link through pending → processing → ready|failed.
// Any failure along the way leaves the link failed with zero chunks
// persisted; a link is never left in processing once Ingest returns.
// Re-invoking Ingest on the same link is safe because the chunk write
// replaces atomically.
type Pipeline struct {
	logger     *slog.Logger
	store      store.Storer
	fetcher    fetch.Fetcher
	chunker    *chunk.Chunker
	embedder   model.Embedder
	summarizer model.Summarizer
}

func NewPipeline(st store.Storer, f fetch.Fetcher, c *chunk.Chunker, e model.Embedder, s model.Summarizer) *Pipeline {
	return &Pipeline{
		logger:     slog.Default(),
		store:      st,
		fetcher:    f,
		chunker:    c,
		embedder:   e,
		summarizer: s,
	}
}

// Ingest returns the error that caused a failed transition, nil on ready.
func (p *Pipeline) Ingest(ctx context.Context, link types.Link) error {
	if err := p.store.UpdateLinkStatus(ctx, link.ID, types.StatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	if err := p.run(ctx, link); err != nil {
		p.markFailed(ctx, link)
		return err
	}

	if err := p.store.UpdateLinkStatus(ctx, link.ID, types.StatusReady); err != nil {
		p.markFailed(ctx, link)
		return fmt.Errorf("mark ready: %w", err)
	}
	return nil
}

// markFailed transitions the link to failed and purges any chunk set left
// from an earlier successful ingestion, so a failed link never has
// searchable chunks. A link deleted in the meantime needs no purge.
func (p *Pipeline) markFailed(ctx context.Context, link types.Link) {
	if err := p.store.PutChunks(ctx, link.ID, link.UserID, nil); err != nil && !errors.Is(err, types.ErrLinkNotFound) {
		p.logger.Error("purge chunks", "link_id", link.ID, "error", err)
	}
	if err := p.store.UpdateLinkStatus(ctx, link.ID, types.StatusFailed); err != nil {
		p.logger.Error("mark link failed", "link_id", link.ID, "error", err)
	}
}

func (p *Pipeline) run(ctx context.Context, link types.Link) error {
	page, err := p.fetcher.Fetch(ctx, link.URL)
	if err != nil {
		return err
	}

	spans := p.chunker.Split(page.Text)
	if len(spans) == 0 {
		return types.ErrEmptyContent
	}

	texts := make([]string, len(spans))
	for i, span := range spans {
		texts[i] = span.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	chunks := make([]types.Chunk, len(spans))
	for i, span := range spans {
		chunks[i] = types.Chunk{
			LinkID:    link.ID,
			Index:     i,
			Text:      span.Text,
			Embedding: vectors[i],
			Start:     span.Start,
			End:       span.End,
		}
	}
	if err := p.store.PutChunks(ctx, link.ID, link.UserID, chunks); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}

	p.backfillMeta(ctx, link, page)

	p.logger.Info("link ingested", "link_id", link.ID, "chunks", len(chunks), "model", p.embedder.Model())
	return nil
}

// backfillMeta fills empty title/description from the fetched page and
// generates a summary of the content when none was provided. Best effort: a
// summarizer or metadata write failure does not fail the ingestion.
func (p *Pipeline) backfillMeta(ctx context.Context, link types.Link, page *fetch.Page) {
	title, description, summary := link.Title, link.Description, link.Summary
	if title == "" {
		title = page.Title
	}
	if description == "" {
		description = page.Description
	}
	if summary == "" && p.summarizer != nil {
		s, err := p.summarizer.Summarize(ctx, page.Text)
		if err != nil {
			p.logger.Warn("summarize link content", "link_id", link.ID, "error", err)
		} else {
			summary = strings.TrimSpace(s)
		}
	}
	if title == link.Title && description == link.Description && summary == link.Summary {
		return
	}
	if err := p.store.UpdateLinkMeta(ctx, link.ID, title, description, summary); err != nil {
		p.logger.Warn("backfill link metadata", "link_id", link.ID, "error", err)
	}
}
