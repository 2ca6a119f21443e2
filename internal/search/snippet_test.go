package search

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractSnippetBasic(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := testConv("c1", "t", created,
		"user", "short question about caching",
		"assistant", "use an LRU")

	got := extractSnippet(c, []string{c.Turns[0].ID})
	assert.Equal(t, "short question about caching", got)
}

func TestExtractSnippetTruncatesLongContent(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	long := strings.Repeat("caching strategy ", 20)
	c := testConv("c1", "t", created, "user", long)

	got := extractSnippet(c, []string{c.Turns[0].ID})
	assert.True(t, strings.HasSuffix(got, "..."), "got %q", got)
	assert.LessOrEqual(t, len([]rune(got)), snippetBudget+3)
}

func TestExtractSnippetCountsExtraMatches(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := testConv("c1", "t", created,
		"user", "first hit", "assistant", "second hit", "user", "third hit")

	got := extractSnippet(c, []string{c.Turns[0].ID, c.Turns[1].ID, c.Turns[2].ID})
	assert.Equal(t, "first hit (+2 more matches)", got)
}

func TestExtractSnippetFallbacks(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, snippetFallback, extractSnippet(nil, []string{"x"}))

	c := testConv("c1", "t", created, "user", "hello")
	assert.Equal(t, snippetFallback, extractSnippet(c, nil),
		"no matched turns means no preview")

	blank := testConv("c2", "t", created, "user", "   \n\t  ")
	assert.Equal(t, snippetFallback, extractSnippet(blank, []string{blank.Turns[0].ID}),
		"whitespace-only content degrades to the fallback")

	ghost := testConv("c3", "t", created, "user", "real content")
	assert.Equal(t, snippetFallback, extractSnippet(ghost, []string{"missing-turn-id"}))
}

func TestExtractSnippetRespectsRuneBoundaries(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	// Multibyte content long enough to get truncated.
	multi := strings.Repeat("héllo wörld ", 15)
	c := testConv("c1", "t", created, "user", multi)

	got := extractSnippet(c, []string{c.Turns[0].ID})
	assert.True(t, strings.HasSuffix(got, "..."))
	for _, r := range got {
		assert.NotEqual(t, '�', r, "truncation must not split a rune")
	}
}
