package model

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"linkrag/types"
)

// Embedder maps text to fixed-dimension dense vectors. All vectors compared
// against each other must come from one embedder with one model identity;
// changing the model or the dimension requires re-embedding every stored
// chunk.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// NewFromEnv selects the embedding backend. The default is the local
// feature-hashing embedder, which needs no external service.
func NewFromEnv() (Embedder, error) {
	switch backend := os.Getenv("EMBEDDER"); backend {
	case "", "local":
		return NewHashEmbedder(envInt("EMBEDDING_DIM", DefaultHashDimension)), nil
	case "ollama":
		apiURL := os.Getenv("OLLAMA_EMBEDDING_URL")
		name := os.Getenv("OLLAMA_EMBEDDING_MODEL")
		if apiURL == "" || name == "" {
			return nil, fmt.Errorf("OLLAMA_EMBEDDING_URL and OLLAMA_EMBEDDING_MODEL are required for the ollama embedder")
		}
		return NewOllamaEmbedder(apiURL, name, envInt("EMBEDDING_DIM", 768)), nil
	default:
		return nil, fmt.Errorf("unknown embedder backend %q", backend)
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// checkInput rejects text the model cannot embed. Callers are expected to
// chunk or truncate beforehand, not rely on silent clipping.
func checkInput(text string, maxRunes int) error {
	if strings.TrimSpace(text) == "" {
		return &types.EmbeddingError{Reason: "empty input"}
	}
	if n := len([]rune(text)); n > maxRunes {
		return &types.EmbeddingError{Reason: fmt.Sprintf("input of %d runes exceeds limit %d", n, maxRunes)}
	}
	return nil
}

// normalize scales a vector to unit length in place. A zero vector is left
// untouched.
func normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
