package types

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery   = errors.New("query is empty")
	ErrEmptyContent = errors.New("no indexable content")
	ErrLinkNotFound = errors.New("link not found")
)

// FetchError is terminal for one ingestion attempt and is never retried by
// the pipeline itself.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EmbeddingError covers empty input, input over the model limit and provider
// failures. Terminal for ingestion, surfaced to the caller for search.
type EmbeddingError struct {
	Reason string
	Err    error
}

func (e *EmbeddingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding: %s: %v", e.Reason, e.Err)
	}
	return "embedding: " + e.Reason
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
