// Package local provides a deterministic, offline embedding provider.
// It hashes tokens into a fixed number of buckets and L2-normalizes the
// result, so no network service is needed for development and tests.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultDimension is the vector size produced by the local provider.
const DefaultDimension = 128

// Provider embeds text as an L2-normalized bag of hashed tokens.
type Provider struct {
	dimension    int
	tokenPattern *regexp.Regexp
}

// NewProvider creates a local provider. A non-positive dimension falls
// back to DefaultDimension.
func NewProvider(dimension int) *Provider {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Provider{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
	}
}

// Embed returns one vector per input text. Texts with no tokens map to
// the zero vector.
func (p *Provider) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = p.embedOne(text)
	}
	return out, nil
}

func (p *Provider) embedOne(text string) []float64 {
	vec := make([]float64, p.dimension)
	tokens := p.tokenPattern.FindAllString(strings.ToLower(text), -1)
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		bucket := int(h.Sum32()) % p.dimension
		if bucket < 0 {
			bucket += p.dimension
		}
		// Sign bit decorrelates colliding tokens.
		if h.Sum32()&1 == 0 {
			vec[bucket]++
		} else {
			vec[bucket]--
		}
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
