package search

import (
	"fmt"
	"strings"

	"github.com/jkastner/convoscan/internal/export"
)

const (
	// snippetBudget is the preview length in runes before truncation.
	snippetBudget = 100

	// snippetFallback is returned whenever a usable preview cannot be built.
	snippetFallback = "No preview available"
)

// extractSnippet derives a bounded preview from the first matched turn.
// It never fails: any unusable input degrades to the fallback string.
func extractSnippet(c *export.Conversation, matchedIDs []string) string {
	if c == nil || len(matchedIDs) == 0 {
		return snippetFallback
	}

	var content string
	for i := range c.Turns {
		if c.Turns[i].ID == matchedIDs[0] {
			content = c.Turns[i].Content
			break
		}
	}

	text := strings.TrimSpace(content)
	if text == "" {
		return snippetFallback
	}

	runes := []rune(text)
	if len(runes) > snippetBudget {
		text = strings.TrimSpace(string(runes[:snippetBudget])) + "..."
	}
	if extra := len(matchedIDs) - 1; extra > 0 {
		text += fmt.Sprintf(" (+%d more matches)", extra)
	}
	return text
}
