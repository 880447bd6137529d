package model

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

const (
	DefaultHashDimension = 256
	hashMaxRunes         = 32000
)

var tokenPattern = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

// HashEmbedder is a deterministic local embedder: a bag-of-words vector
// where each token is hashed into one of dim buckets, L2-normalized. It
// needs no external service and no corpus preparation, which makes it
// suitable for tests and offline deployments. Overlapping vocabulary yields
// positive cosine similarity; disjoint vocabulary yields zero.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Dimension() int { return e.dim }

func (e *HashEmbedder) Model() string { return fmt.Sprintf("feature-hash-%d", e.dim) }

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if err := checkInput(text, hashMaxRunes); err != nil {
		return nil, err
	}
	vec := make([]float64, e.dim)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(e.dim)]++
	}
	return toFloat32(normalize(vec)), nil
}

func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
