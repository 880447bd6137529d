package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// summaryMaxRunes bounds how much of the page content is handed to the
// summarizer; the lead of a page carries most of its signal.
const summaryMaxRunes = 10000

// Summarizer condenses fetched page content into a short abstract stored on
// the link. Summaries are a convenience, not part of retrieval: a summarizer
// failure never fails an ingestion.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// NewSummarizerFromEnv selects the summarizer backend. The default is the
// local frequency summarizer, which needs no external service.
func NewSummarizerFromEnv() (Summarizer, error) {
	switch backend := os.Getenv("SUMMARIZER"); backend {
	case "", "local":
		return NewFrequencySummarizer(envInt("SUMMARY_SENTENCES", defaultSummarySentences)), nil
	case "ollama":
		apiURL := os.Getenv("OLLAMA_GENERATE_URL")
		name := os.Getenv("OLLAMA_GENERATE_MODEL")
		if apiURL == "" || name == "" {
			return nil, fmt.Errorf("OLLAMA_GENERATE_URL and OLLAMA_GENERATE_MODEL are required for the ollama summarizer")
		}
		return NewOllamaSummarizer(apiURL, name), nil
	default:
		return nil, fmt.Errorf("unknown summarizer backend %q", backend)
	}
}

// OllamaSummarizer generates abstractive summaries through the Ollama
// /api/generate endpoint.
type OllamaSummarizer struct {
	apiURL string
	model  string
}

type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func NewOllamaSummarizer(apiURL, model string) *OllamaSummarizer {
	return &OllamaSummarizer{apiURL: apiURL, model: model}
}

func (s *OllamaSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	text = capRunes(text, summaryMaxRunes)

	prompt := fmt.Sprintf(`Provide a concise summary of the following text in no more than 300 words. Focus on the main points and key information.
Text:
%s
Summary:`, text)

	reqBody, err := json.Marshal(generateRequest{
		Model:  s.model,
		System: "You summarize web page content. Answer with the summary only, without introductions.",
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API status %d: %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", err
	}
	return genResp.Response, nil
}

func capRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) > max {
		return string(runes[:max])
	}
	return text
}
