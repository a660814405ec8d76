// Package extractive provides an offline answer provider that selects
// the context sentences most relevant to the query, weighted by token
// frequency. It stands in for a language model when none is configured.
package extractive

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

// NoContextAnswer is returned when nothing relevant is available.
const NoContextAnswer = "No relevant documents found. Upload a document and try again."

// DefaultMaxSentences bounds the length of an extracted answer.
const DefaultMaxSentences = 3

// Provider answers by extracting the best-matching sentences from the
// retrieved context.
type Provider struct {
	maxSentences int
	tokenPattern *regexp.Regexp
	sentencePat  *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewProvider creates an extractive provider returning at most
// maxSentences sentences per answer.
func NewProvider(maxSentences int) *Provider {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &Provider{
		maxSentences: maxSentences,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentencePat:  regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:    defaultStopwords(),
	}
}

// Answer scores every context sentence by query-token overlap and overall
// token frequency, and joins the top sentences in their original order.
func (p *Provider) Answer(_ context.Context, query string, contexts []string) (string, error) {
	var sentences []string
	for _, c := range contexts {
		found := p.sentencePat.FindAllString(c, -1)
		if len(found) == 0 {
			if trimmed := strings.TrimSpace(c); trimmed != "" {
				found = []string{trimmed}
			}
		}
		sentences = append(sentences, found...)
	}
	if len(sentences) == 0 {
		return NoContextAnswer, nil
	}

	// Corpus-wide token frequencies, normalized to [0, 1].
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range p.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	queryTokens := map[string]struct{}{}
	for _, tok := range p.tokens(query) {
		queryTokens[tok] = struct{}{}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		toks := p.tokens(sent)
		score := 0.0
		for _, tok := range toks {
			if _, ok := queryTokens[tok]; ok {
				score += 2
			}
			score += freq[tok]
		}
		if l := float64(len(toks)); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = pair{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	n := p.maxSentences
	if n > len(scores) {
		n = len(scores)
	}
	selected := make([]int, n)
	for i := 0; i < n; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, n)
	for _, idx := range selected {
		out = append(out, strings.TrimSpace(sentences[idx]))
	}
	return strings.Join(out, " "), nil
}

func (p *Provider) tokens(text string) []string {
	raw := p.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := p.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now", "what", "which", "who", "how", "where", "when",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
