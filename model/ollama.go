package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"linkrag/types"
)

const ollamaMaxRunes = 32000

// OllamaEmbedder produces embeddings through the Ollama /api/embed batch
// endpoint. Vectors are L2-normalized before being returned so that dot
// products equal cosine similarity.
type OllamaEmbedder struct {
	apiURL    string
	model     string
	dim       int
	maxTokens int
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func NewOllamaEmbedder(apiURL, model string, dim int) *OllamaEmbedder {
	return &OllamaEmbedder{
		apiURL:    apiURL,
		model:     model,
		dim:       dim,
		maxTokens: 8192,
	}
}

func (e *OllamaEmbedder) Dimension() int { return e.dim }

func (e *OllamaEmbedder) Model() string { return "ollama/" + e.model }

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &types.EmbeddingError{Reason: "empty batch"}
	}
	for _, text := range texts {
		if err := checkInput(text, ollamaMaxRunes); err != nil {
			return nil, err
		}
		if n, err := countTokens(text); err == nil && n > e.maxTokens {
			return nil, &types.EmbeddingError{Reason: fmt.Sprintf("input of %d tokens exceeds limit %d", n, e.maxTokens)}
		}
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, &types.EmbeddingError{Reason: "marshal request", Err: err}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, &types.EmbeddingError{Reason: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, &types.EmbeddingError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &types.EmbeddingError{Reason: fmt.Sprintf("ollama API status %d: %s", resp.StatusCode, string(respBody))}
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, &types.EmbeddingError{Reason: "decode response", Err: err}
	}
	if len(embedResp.Embeddings) != len(texts) {
		return nil, &types.EmbeddingError{Reason: fmt.Sprintf("got %d embeddings for %d inputs", len(embedResp.Embeddings), len(texts))}
	}

	out := make([][]float32, len(embedResp.Embeddings))
	for i, vec := range embedResp.Embeddings {
		if len(vec) != e.dim {
			return nil, &types.EmbeddingError{Reason: fmt.Sprintf("vector of dimension %d, expected %d", len(vec), e.dim)}
		}
		out[i] = toFloat32(normalize(vec))
	}
	return out, nil
}

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
	encoderErr  error
)

// countTokens approximates the model's tokenizer with cl100k_base, which is
// close enough for a pre-flight limit check.
func countTokens(text string) (int, error) {
	encoderOnce.Do(func() {
		encoder, encoderErr = tiktoken.GetEncoding("cl100k_base")
	})
	if encoderErr != nil {
		return 0, encoderErr
	}
	return len(encoder.Encode(text, nil, nil)), nil
}
