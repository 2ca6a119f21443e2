package search

import (
	"math"
	"sort"
	"strings"
)

// rank stable-sorts results by the query's sort key and direction. Whenever
// two results compare equal under the active key (scores within a fixed
// epsilon, identical dates, and so on) the conversation id in ascending
// lexicographic order decides, so repeated runs over the same file produce
// identical orderings. Truncation to the limit happens after sorting, never
// before.
func rank(results []Result, q *Query) []Result {
	key := q.sortBy()
	desc := q.descending()

	sort.SliceStable(results, func(i, j int) bool {
		if c := compareByKey(&results[i], &results[j], key); c != 0 {
			if desc {
				return c > 0
			}
			return c < 0
		}
		return results[i].Conversation.ID < results[j].Conversation.ID
	})

	if limit := q.limit(); len(results) > limit {
		results = results[:limit]
	}
	return results
}

// compareByKey orders a and b under the given key: negative when a sorts
// lower, zero when equal.
func compareByKey(a, b *Result, key string) int {
	switch key {
	case SortByDate:
		ad, bd := a.Conversation.EffectiveDate(), b.Conversation.EffectiveDate()
		if ad.Before(bd) {
			return -1
		}
		if ad.After(bd) {
			return 1
		}
		return 0
	case SortByTitle:
		return strings.Compare(
			strings.ToLower(a.Conversation.Title),
			strings.ToLower(b.Conversation.Title),
		)
	case SortByMessages:
		return a.Conversation.MessageCount() - b.Conversation.MessageCount()
	default: // SortByScore
		if math.Abs(a.Score-b.Score) <= scoreEpsilon {
			return 0
		}
		if a.Score < b.Score {
			return -1
		}
		return 1
	}
}
