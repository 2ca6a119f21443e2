package search

import (
	"math"
	"strings"

	"github.com/jkastner/convoscan/internal/export"
)

// BM25 parameters: conventional saturation and length normalization.
const (
	bm25K1 = 1.5
	bm25B  = 0.75

	// phraseWeight is the fixed binary contribution of one matched phrase.
	phraseWeight = 1.0

	// scoreEpsilon bounds float comparisons when ordering results.
	scoreEpsilon = 1e-9
)

// tokenize lowercases text and splits it into alphanumeric runs, dropping
// single-character fragments. Keywords, exclusion terms and corpus text all
// go through this same function.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < 2 {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

// compiledQuery is the normalized form of a Query, computed once per pass.
type compiledQuery struct {
	keywords    [][]string // tokens per keyword, empty groups dropped
	keywordsRaw []string   // lowercased keyword strings, aligned with keywords
	phrases     []string   // lowercased phrases
	exclude     [][]string // tokens per exclusion term
	terms       []string   // deduped scoring terms across all keywords

	// unsatisfiable counts non-blank keywords that yield no indexable
	// tokens. Such a keyword can never match, so it still counts as search
	// criteria instead of silently matching everything.
	unsatisfiable int
}

func compile(q *Query) *compiledQuery {
	cq := &compiledQuery{}

	seen := map[string]bool{}
	for _, kw := range q.Keywords {
		tokens := tokenize(kw)
		if len(tokens) == 0 {
			if strings.TrimSpace(kw) != "" {
				cq.unsatisfiable++
			}
			continue
		}
		cq.keywords = append(cq.keywords, tokens)
		cq.keywordsRaw = append(cq.keywordsRaw, strings.ToLower(strings.TrimSpace(kw)))
		for _, tok := range tokens {
			if !seen[tok] {
				seen[tok] = true
				cq.terms = append(cq.terms, tok)
			}
		}
	}

	for _, phrase := range q.Phrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" {
			cq.phrases = append(cq.phrases, phrase)
		}
	}

	for _, term := range q.Exclude {
		tokens := tokenize(term)
		if len(tokens) > 0 {
			cq.exclude = append(cq.exclude, tokens)
		}
	}

	return cq
}

func (cq *compiledQuery) hasCriteria() bool {
	return len(cq.keywords) > 0 || len(cq.phrases) > 0 || cq.unsatisfiable > 0
}

// corpusStats carries the term statistics of the filtered candidate set.
// It is threaded explicitly into scoring so concurrent passes never share
// ambient state. Filtering deliberately changes these statistics: IDF is
// computed over the candidates that passed the filter stage, not the whole
// export.
type corpusStats struct {
	docCount    int
	totalTokens int
	docFreq     map[string]int
}

func newCorpusStats() *corpusStats {
	return &corpusStats{docFreq: make(map[string]int)}
}

func (s *corpusStats) avgDocLen() float64 {
	if s.docCount == 0 {
		return 0
	}
	return float64(s.totalTokens) / float64(s.docCount)
}

// candidate is the compact per-conversation record kept between the
// streaming pass and the scoring step. Only qualifying conversations are
// retained in full, so memory scales with the number of matches.
type candidate struct {
	conv         *export.Conversation
	termFreq     map[string]int // restricted to query terms
	docLen       int
	phraseHits   int
	matchedTurns []string
}

// analyze folds one filter-passed conversation into the corpus statistics
// and, when the conversation qualifies and is not excluded, returns its
// candidate record. Non-qualifying conversations still contribute to the
// corpus statistics; so do excluded ones, since exclusion applies after
// scoring and must not disturb the statistics of the candidate set.
func analyze(c *export.Conversation, q *Query, cq *compiledQuery, stats *corpusStats) *candidate {
	visible := visibleTurns(c, q)
	corpus := corpusText(c, visible)
	corpusLower := strings.ToLower(corpus)

	tokens := tokenize(corpus)
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}

	stats.docCount++
	stats.totalTokens += len(tokens)
	for _, term := range cq.terms {
		if tf[term] > 0 {
			stats.docFreq[term]++
		}
	}

	for _, group := range cq.exclude {
		if allPresent(group, tf) {
			return nil
		}
	}

	matchedKeywords := make([]bool, len(cq.keywords))
	anyKeyword, allKeywords := false, cq.unsatisfiable == 0
	for i, group := range cq.keywords {
		if allPresent(group, tf) {
			matchedKeywords[i] = true
			anyKeyword = true
		} else {
			allKeywords = false
		}
	}

	matchedPhrases := make([]bool, len(cq.phrases))
	anyPhrase, allPhrases := false, true
	for i, phrase := range cq.phrases {
		if strings.Contains(corpusLower, phrase) {
			matchedPhrases[i] = true
			anyPhrase = true
		} else {
			allPhrases = false
		}
	}

	qualified := true
	if cq.hasCriteria() {
		if q.matchMode() == MatchAll {
			qualified = allKeywords && allPhrases
		} else {
			qualified = anyKeyword || anyPhrase
		}
	}
	if !qualified {
		return nil
	}

	cand := &candidate{
		conv:     c,
		termFreq: make(map[string]int, len(cq.terms)),
		docLen:   len(tokens),
	}
	for _, term := range cq.terms {
		if tf[term] > 0 {
			cand.termFreq[term] = tf[term]
		}
	}
	for i := range matchedPhrases {
		if matchedPhrases[i] {
			cand.phraseHits++
		}
	}
	cand.matchedTurns = collectMatchedTurns(c, visible, cq, matchedKeywords, matchedPhrases)
	return cand
}

// corpusText concatenates the title and the content of the role-visible
// turns. This is the unit of scoring for one conversation.
func corpusText(c *export.Conversation, visible []int) string {
	var sb strings.Builder
	sb.WriteString(c.Title)
	for _, i := range visible {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(c.Turns[i].Content)
	}
	return sb.String()
}

func allPresent(tokens []string, tf map[string]int) bool {
	for _, tok := range tokens {
		if tf[tok] == 0 {
			return false
		}
	}
	return true
}

// collectMatchedTurns records, in original turn order, every visible turn
// whose content contains at least one matched keyword or phrase.
func collectMatchedTurns(c *export.Conversation, visible []int, cq *compiledQuery, matchedKeywords, matchedPhrases []bool) []string {
	var needles []string
	for i, matched := range matchedKeywords {
		if matched {
			needles = append(needles, cq.keywordsRaw[i])
		}
	}
	for i, matched := range matchedPhrases {
		if matched {
			needles = append(needles, cq.phrases[i])
		}
	}
	if len(needles) == 0 {
		return nil
	}

	var ids []string
	for _, i := range visible {
		content := strings.ToLower(c.Turns[i].Content)
		for _, needle := range needles {
			if strings.Contains(content, needle) {
				ids = append(ids, c.Turns[i].ID)
				break
			}
		}
	}
	return ids
}

// scoreCandidate computes the normalized relevance score: BM25 over the
// query terms plus a fixed weight per matched phrase, mapped into [0, 1]
// with score/(score+1) so results are comparable across queries.
func scoreCandidate(cand *candidate, cq *compiledQuery, stats *corpusStats) float64 {
	raw := float64(cand.phraseHits) * phraseWeight
	avgLen := stats.avgDocLen()

	for _, term := range cq.terms {
		tf := cand.termFreq[term]
		if tf == 0 {
			continue
		}
		df := stats.docFreq[term]
		idf := math.Log(1 + (float64(stats.docCount)-float64(df)+0.5)/(float64(df)+0.5))

		norm := 1 - bm25B
		if avgLen > 0 {
			norm = 1 - bm25B + bm25B*float64(cand.docLen)/avgLen
		}
		tfv := float64(tf)
		raw += idf * tfv * (bm25K1 + 1) / (tfv + bm25K1*norm)
	}

	return raw / (raw + 1)
}
