package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueryValidate(t *testing.T) {
	day1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		q       Query
		wantErr bool
	}{
		{"empty query is valid", Query{}, false},
		{"keywords only", Query{Keywords: []string{"golang"}}, false},
		{"full range", Query{From: day1, To: day2, MinMessages: 1, MaxMessages: 5}, false},
		{"negative min messages", Query{MinMessages: -1}, true},
		{"negative max messages", Query{MaxMessages: -3}, true},
		{"inverted message bounds", Query{MinMessages: 10, MaxMessages: 2}, true},
		{"inverted date range", Query{From: day2, To: day1}, true},
		{"negative limit", Query{Limit: -1}, true},
		{"limit at cap", Query{Limit: MaxLimit}, false},
		{"limit past cap", Query{Limit: MaxLimit + 1}, true},
		{"unknown match mode", Query{MatchMode: "fuzzy"}, true},
		{"unknown sort key", Query{SortBy: "relevancy"}, true},
		{"unknown order", Query{Order: "sideways"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuery)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueryDefaults(t *testing.T) {
	q := &Query{}
	assert.Equal(t, MatchAny, q.matchMode())
	assert.Equal(t, DefaultLimit, q.limit())
	assert.Equal(t, SortByScore, q.sortBy())
	assert.True(t, q.descending(), "score sorts descending by default")

	title := &Query{SortBy: SortByTitle}
	assert.False(t, title.descending(), "title sorts ascending by default")

	forced := &Query{SortBy: SortByTitle, Order: OrderDesc}
	assert.True(t, forced.descending())
}
