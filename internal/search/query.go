package search

import (
	"errors"
	"fmt"
	"time"
)

// Sort keys.
const (
	SortByScore    = "score"
	SortByDate     = "date"
	SortByTitle    = "title"
	SortByMessages = "messages"
)

// Sort directions. The empty string picks the natural direction for the
// active key: descending for score, date and messages, ascending for title.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Match modes.
const (
	MatchAny = "any"
	MatchAll = "all"
)

// Result limits.
const (
	DefaultLimit = 10
	MaxLimit     = 1000
)

// ErrInvalidQuery is wrapped by every query-validation failure. Validation
// happens before any I/O: a bad query never opens the export.
var ErrInvalidQuery = errors.New("invalid query")

// Query describes one search request. Zero values mean "unset". A Query is
// treated as immutable once handed to Search.
type Query struct {
	Keywords []string
	Phrases  []string // exact, case-insensitive substring matches
	Exclude  []string // any hit rejects the conversation outright

	// MatchMode is MatchAny (default) or MatchAll. Under MatchAll every
	// keyword and every phrase must be present.
	MatchMode string

	// Role restricts visible turns to a single role before corpus-text
	// construction, matching and snippet extraction.
	Role string

	// TitleContains filters on a case-insensitive title substring.
	TitleContains string

	// From/To bound the conversation date, inclusive. Zero means unbounded.
	From time.Time
	To   time.Time

	// MinMessages/MaxMessages bound the turn count, inclusive. Zero means
	// unbounded.
	MinMessages int
	MaxMessages int

	// Limit caps the result count after sorting. Zero means DefaultLimit.
	Limit int

	SortBy string // SortBy* constant; empty means SortByScore
	Order  string // OrderAsc, OrderDesc, or empty for the key's natural order
}

// Validate rejects inconsistent queries before a pass begins.
func (q *Query) Validate() error {
	if q.MinMessages < 0 || q.MaxMessages < 0 {
		return fmt.Errorf("%w: negative message-count bound", ErrInvalidQuery)
	}
	if q.MinMessages > 0 && q.MaxMessages > 0 && q.MinMessages > q.MaxMessages {
		return fmt.Errorf("%w: min_messages %d exceeds max_messages %d", ErrInvalidQuery, q.MinMessages, q.MaxMessages)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return fmt.Errorf("%w: date range starts after it ends", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	if q.Limit > MaxLimit {
		return fmt.Errorf("%w: limit %d exceeds maximum %d", ErrInvalidQuery, q.Limit, MaxLimit)
	}
	switch q.MatchMode {
	case "", MatchAny, MatchAll:
	default:
		return fmt.Errorf("%w: unknown match mode %q", ErrInvalidQuery, q.MatchMode)
	}
	switch q.SortBy {
	case "", SortByScore, SortByDate, SortByTitle, SortByMessages:
	default:
		return fmt.Errorf("%w: unknown sort key %q", ErrInvalidQuery, q.SortBy)
	}
	switch q.Order {
	case "", OrderAsc, OrderDesc:
	default:
		return fmt.Errorf("%w: unknown sort order %q", ErrInvalidQuery, q.Order)
	}
	return nil
}

func (q *Query) matchMode() string {
	if q.MatchMode == "" {
		return MatchAny
	}
	return q.MatchMode
}

func (q *Query) limit() int {
	if q.Limit == 0 {
		return DefaultLimit
	}
	return q.Limit
}

func (q *Query) sortBy() string {
	if q.SortBy == "" {
		return SortByScore
	}
	return q.SortBy
}

// descending resolves the effective sort direction.
func (q *Query) descending() bool {
	switch q.Order {
	case OrderAsc:
		return false
	case OrderDesc:
		return true
	}
	return q.sortBy() != SortByTitle
}
