package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"error: nil pointer in pkg/http2", []string{"error", "nil", "pointer", "in", "pkg", "http2"}},
		{"a I x", nil},
		{"", nil},
		{"CamelCase stays one token", []string{"camelcase", "stays", "one", "token"}},
	}
	for _, tt := range tests {
		got := tokenize(tt.in)
		if len(tt.want) == 0 {
			assert.Empty(t, got, "input %q", tt.in)
		} else {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func TestCompileDedupesTermsAndDropsEmpty(t *testing.T) {
	cq := compile(&Query{
		Keywords: []string{"goroutine leak", "leak detector", "  ", "!!"},
		Phrases:  []string{" Exact Phrase ", ""},
		Exclude:  []string{"spam"},
	})

	assert.Len(t, cq.keywords, 2, "empty keyword groups are dropped")
	assert.Equal(t, 1, cq.unsatisfiable, "punctuation-only keywords are unmatchable, blank ones are ignored")
	assert.Equal(t, []string{"goroutine", "leak", "detector"}, cq.terms, "terms are deduped in first-seen order")
	assert.Equal(t, []string{"exact phrase"}, cq.phrases)
	assert.Len(t, cq.exclude, 1)
	assert.True(t, cq.hasCriteria())

	assert.False(t, compile(&Query{}).hasCriteria())
}

func TestAnalyzeAnyVsAll(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := testConv("c1", "mixed", created,
		"user", "python question about generators",
		"assistant", "generators pause at yield")

	q := &Query{Keywords: []string{"python", "async"}}
	cand := analyze(c, q, compile(q), newCorpusStats())
	require.NotNil(t, cand, "any-mode accepts a single matched keyword")

	qAll := &Query{Keywords: []string{"python", "async"}, MatchMode: MatchAll}
	assert.Nil(t, analyze(c, qAll, compile(qAll), newCorpusStats()),
		"all-mode requires every keyword")

	qBoth := &Query{Keywords: []string{"python", "generators"}, MatchMode: MatchAll}
	assert.NotNil(t, analyze(c, qBoth, compile(qBoth), newCorpusStats()))
}

func TestAnalyzeExclusionDominates(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := testConv("c1", "about rust", created,
		"user", "rust borrow checker fight", "assistant", "lifetimes again")

	q := &Query{Keywords: []string{"rust"}, Exclude: []string{"lifetimes"}}
	stats := newCorpusStats()
	cand := analyze(c, q, compile(q), stats)
	assert.Nil(t, cand, "an exclusion hit rejects the conversation even when keywords match")
	assert.Equal(t, 1, stats.docCount, "excluded conversations still feed corpus statistics")
}

func TestAnalyzeNonQualifyingStillFeedsStats(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	q := &Query{Keywords: []string{"kafka"}}
	cq := compile(q)
	stats := newCorpusStats()

	miss := testConv("miss", "off topic", created, "user", "tell me about gardening")
	hit := testConv("hit", "brokers", created, "user", "kafka partitions and consumer groups")

	assert.Nil(t, analyze(miss, q, cq, stats))
	require.NotNil(t, analyze(hit, q, cq, stats))

	assert.Equal(t, 2, stats.docCount)
	assert.Equal(t, 1, stats.docFreq["kafka"])
	assert.Greater(t, stats.totalTokens, 0)
}

func TestAnalyzePhraseIsExactSubstring(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := testConv("c1", "notes", created,
		"user", "I read the algorithm insights newsletter")

	q := &Query{Phrases: []string{"algo-insights"}}
	assert.Nil(t, analyze(c, q, compile(q), newCorpusStats()),
		"a hyphenated phrase must not match the spaced-out words")

	q2 := &Query{Phrases: []string{"algorithm insights"}}
	cand := analyze(c, q2, compile(q2), newCorpusStats())
	require.NotNil(t, cand)
	assert.Equal(t, 1, cand.phraseHits)
}

func TestAnalyzeNonTokenizableKeywordMatchesNothing(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := testConv("c1", "notes", created, "user", "plain english content")

	q := &Query{Keywords: []string{"世界"}}
	cq := compile(q)
	assert.True(t, cq.hasCriteria(), "a keyword that tokenizes to nothing still counts as criteria")
	assert.Nil(t, analyze(c, q, cq, newCorpusStats()),
		"an unmatchable keyword must not degrade into match-everything")

	// Under all-mode it also blocks an otherwise matching keyword.
	docker := testConv("c2", "infra", created, "user", "docker compose setup")
	qAll := &Query{Keywords: []string{"docker", "世界"}, MatchMode: MatchAll}
	assert.Nil(t, analyze(docker, qAll, compile(qAll), newCorpusStats()))

	// Under any-mode the matchable keyword still wins.
	qAny := &Query{Keywords: []string{"docker", "世界"}}
	assert.NotNil(t, analyze(docker, qAny, compile(qAny), newCorpusStats()))
}

func TestAnalyzeNoCriteriaMatchesEverything(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := testConv("c1", "anything", created, "user", "whatever content")

	q := &Query{MinMessages: 1}
	cand := analyze(c, q, compile(q), newCorpusStats())
	require.NotNil(t, cand, "a filter-only query qualifies every accepted conversation")
	assert.Empty(t, cand.matchedTurns)
}

func TestAnalyzeMatchedTurnsInOrder(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := testConv("c1", "ordered", created,
		"user", "first mention of docker here",
		"assistant", "nothing relevant",
		"user", "docker again at the end")

	q := &Query{Keywords: []string{"docker"}}
	cand := analyze(c, q, compile(q), newCorpusStats())
	require.NotNil(t, cand)
	assert.Equal(t, []string{c.Turns[0].ID, c.Turns[2].ID}, cand.matchedTurns)
}

func TestScoreCandidateNormalized(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	q := &Query{Keywords: []string{"docker"}}
	cq := compile(q)
	stats := newCorpusStats()

	heavy := testConv("heavy", "docker docker docker", created,
		"user", "docker compose docker swarm docker desktop")
	light := testConv("light", "one mention", created,
		"user", "docker showed up once in a long ramble about other things entirely")

	candHeavy := analyze(heavy, q, cq, stats)
	candLight := analyze(light, q, cq, stats)
	require.NotNil(t, candHeavy)
	require.NotNil(t, candLight)

	sHeavy := scoreCandidate(candHeavy, cq, stats)
	sLight := scoreCandidate(candLight, cq, stats)

	assert.Greater(t, sHeavy, 0.0)
	assert.Less(t, sHeavy, 1.0, "normalization keeps scores inside (0, 1)")
	assert.Greater(t, sHeavy, sLight, "term saturation still favors the denser document")
}

func TestScorePhraseContribution(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	q := &Query{Phrases: []string{"connection pool"}}
	cq := compile(q)
	stats := newCorpusStats()

	c := testConv("c1", "db tuning", created, "user", "resize the connection pool first")
	cand := analyze(c, q, cq, stats)
	require.NotNil(t, cand)

	// One phrase hit and no scoring terms: raw score is exactly the phrase
	// weight, normalized to weight/(weight+1).
	assert.InDelta(t, phraseWeight/(phraseWeight+1), scoreCandidate(cand, cq, stats), 1e-12)
}
