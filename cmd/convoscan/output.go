package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jkastner/convoscan/internal/export"
	"github.com/jkastner/convoscan/internal/search"
)

func writeResultsText(w io.Writer, results []search.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	for i, res := range results {
		c := res.Conversation
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%2d. [%.3f] %s\n", i+1, res.Score, title)
		fmt.Fprintf(w, "    id=%s  messages=%d  date=%s\n",
			c.ID, c.MessageCount(), c.EffectiveDate().Format("2006-01-02"))
		fmt.Fprintf(w, "    %s\n", res.Snippet)
	}
}

// resultRecord is the JSON shape for one search hit. Full turn content is
// deliberately omitted; the snippet is the preview.
type resultRecord struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Score          float64   `json:"score"`
	Messages       int       `json:"messages"`
	Date           time.Time `json:"date"`
	MatchedTurnIDs []string  `json:"matched_turn_ids"`
	Snippet        string    `json:"snippet"`
}

func toRecord(res search.Result) resultRecord {
	c := res.Conversation
	return resultRecord{
		ID:             c.ID,
		Title:          c.Title,
		Score:          res.Score,
		Messages:       c.MessageCount(),
		Date:           c.EffectiveDate(),
		MatchedTurnIDs: res.MatchedTurnIDs,
		Snippet:        res.Snippet,
	}
}

func writeResultsJSON(w io.Writer, results []search.Result) error {
	records := make([]resultRecord, 0, len(results))
	for _, res := range results {
		records = append(records, toRecord(res))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeResultsCSV(w io.Writer, results []search.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "title", "score", "messages", "date", "matched_turns", "snippet"}); err != nil {
		return err
	}
	for _, res := range results {
		rec := toRecord(res)
		row := []string{
			rec.ID,
			rec.Title,
			strconv.FormatFloat(rec.Score, 'f', 4, 64),
			strconv.Itoa(rec.Messages),
			rec.Date.Format(time.RFC3339),
			strconv.Itoa(len(rec.MatchedTurnIDs)),
			rec.Snippet,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeResultsMarkdown(w io.Writer, results []search.Result) error {
	if _, err := fmt.Fprintln(w, "| # | Score | Title | Messages | Date | Snippet |"); err != nil {
		return err
	}
	fmt.Fprintln(w, "|---|-------|-------|----------|------|---------|")
	for i, res := range results {
		rec := toRecord(res)
		title := rec.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "| %d | %.3f | %s | %d | %s | %s |\n",
			i+1, rec.Score,
			escapeMarkdownCell(title),
			rec.Messages,
			rec.Date.Format("2006-01-02"),
			escapeMarkdownCell(rec.Snippet))
	}
	return nil
}

func escapeMarkdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func writeStatsText(w io.Writer, stats export.ExportStatistics) {
	fmt.Fprintf(w, "Conversations:      %d\n", stats.TotalConversations)
	fmt.Fprintf(w, "Messages:           %d\n", stats.TotalMessages)
	fmt.Fprintf(w, "Average messages:   %.2f\n", stats.AverageMessages)
	if !stats.EarliestTimestamp.IsZero() {
		fmt.Fprintf(w, "Date range:         %s .. %s\n",
			stats.EarliestTimestamp.Format("2006-01-02"),
			stats.LatestTimestamp.Format("2006-01-02"))
	}
	if stats.LargestID != "" {
		fmt.Fprintf(w, "Largest:            %s (%d messages)\n", stats.LargestID, stats.LargestMessageCount)
		fmt.Fprintf(w, "Smallest:           %s (%d messages)\n", stats.SmallestID, stats.SmallestMessageCount)
	}
	if stats.SkippedMalformed > 0 {
		fmt.Fprintf(w, "Skipped malformed:  %d\n", stats.SkippedMalformed)
	}
}

func writeStatsJSONLine(w io.Writer, stats export.ExportStatistics) {
	enc := json.NewEncoder(w)
	_ = enc.Encode(stats)
}
