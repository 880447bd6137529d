package model

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

const defaultSummarySentences = 3

var (
	sentencePattern  = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
	summaryStopwords = buildStopwords()
)

// FrequencySummarizer is a deterministic local summarizer: sentences are
// scored by the normalized frequency of their non-stopword tokens and the top
// ones are returned in original order. No external service, same input always
// yields the same summary.
type FrequencySummarizer struct {
	sentences int
}

func NewFrequencySummarizer(sentences int) *FrequencySummarizer {
	if sentences <= 0 {
		sentences = defaultSummarySentences
	}
	return &FrequencySummarizer{sentences: sentences}
}

func (s *FrequencySummarizer) Summarize(_ context.Context, text string) (string, error) {
	text = capRunes(text, summaryMaxRunes)
	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}
	if len(sentences) <= s.sentences {
		return strings.TrimSpace(strings.Join(trimAll(sentences), " ")), nil
	}

	freq := map[string]float64{}
	for _, sentence := range sentences {
		for _, token := range summaryTokens(sentence) {
			if _, ok := summaryStopwords[token]; ok {
				continue
			}
			freq[token]++
		}
	}
	var maxFreq float64
	for _, v := range freq {
		if v > maxFreq {
			maxFreq = v
		}
	}
	if maxFreq > 0 {
		for k, v := range freq {
			freq[k] = v / maxFreq
		}
	}

	type ranked struct {
		idx   int
		score float64
	}
	scores := make([]ranked, len(sentences))
	for i, sentence := range sentences {
		tokens := summaryTokens(sentence)
		var score float64
		for _, token := range tokens {
			score += freq[token]
		}
		// dampen the long-sentence bias
		if n := float64(len(tokens)); n > 0 {
			score /= math.Sqrt(n)
		}
		scores[i] = ranked{idx: i, score: score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	selected := make([]int, s.sentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = strings.TrimSpace(sentences[idx])
	}
	return strings.Join(out, " "), nil
}

func summaryTokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func trimAll(sentences []string) []string {
	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func buildStopwords() map[string]struct{} {
	words := strings.Fields(
		"a an the and or but if then else for to of in on at by with as is are was were be been being " +
			"it this that these those from up down over under again further than so such into about between " +
			"through during before after above below out off own same too very can will just should now")
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
