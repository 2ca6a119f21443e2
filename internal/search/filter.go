package search

import (
	"strings"

	"github.com/jkastner/convoscan/internal/export"
)

// accept applies the pre-scoring predicates in a fixed cheapest-first order:
// message-count bounds, date range, role-scope non-emptiness, title
// substring. Each predicate short-circuits on first failure.
func accept(c *export.Conversation, q *Query) bool {
	n := c.MessageCount()
	if q.MinMessages > 0 && n < q.MinMessages {
		return false
	}
	if q.MaxMessages > 0 && n > q.MaxMessages {
		return false
	}

	if !q.From.IsZero() || !q.To.IsZero() {
		d := c.EffectiveDate()
		if !q.From.IsZero() && d.Before(q.From) {
			return false
		}
		if !q.To.IsZero() && d.After(q.To) {
			return false
		}
	}

	if q.Role != "" && !hasRole(c, q.Role) {
		return false
	}

	if q.TitleContains != "" &&
		!strings.Contains(strings.ToLower(c.Title), strings.ToLower(q.TitleContains)) {
		return false
	}

	return true
}

func hasRole(c *export.Conversation, role string) bool {
	for i := range c.Turns {
		if strings.EqualFold(c.Turns[i].Role, role) {
			return true
		}
	}
	return false
}

// visibleTurns returns the indices of turns all downstream stages may see.
// Role scoping narrows visibility here, before corpus-text construction, so
// it affects term-frequency statistics and not just the final result set.
func visibleTurns(c *export.Conversation, q *Query) []int {
	idx := make([]int, 0, len(c.Turns))
	for i := range c.Turns {
		if q.Role != "" && !strings.EqualFold(c.Turns[i].Role, q.Role) {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}
