package extractive

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswer_EmptyContext(t *testing.T) {
	p := NewProvider(3)
	answer, err := p.Answer(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, NoContextAnswer, answer)
}

func TestAnswer_PicksRelevantSentence(t *testing.T) {
	p := NewProvider(1)
	contexts := []string{
		"The warehouse opens at six in the morning. Shipping labels are printed in building two. " +
			"Forklift certification renews every year.",
	}
	answer, err := p.Answer(context.Background(), "when does forklift certification renew", contexts)
	require.NoError(t, err)
	assert.Contains(t, answer, "Forklift certification")
}

func TestAnswer_BoundedLength(t *testing.T) {
	p := NewProvider(2)
	contexts := []string{
		"One fact here. Another fact there. A third fact follows. A fourth fact ends it.",
	}
	answer, err := p.Answer(context.Background(), "fact", contexts)
	require.NoError(t, err)
	assert.LessOrEqual(t, strings.Count(answer, "."), 2)
}

func TestAnswer_ContextWithoutPunctuation(t *testing.T) {
	p := NewProvider(3)
	answer, err := p.Answer(context.Background(), "plain", []string{"plain fragment without punctuation"})
	require.NoError(t, err)
	assert.Equal(t, "plain fragment without punctuation", answer)
}
