package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/jkastner/convoscan/internal/export"
)

// splitList turns a comma-separated flag value into trimmed items.
func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// dateFlagLayouts accepted by -from/-to.
var dateFlagLayouts = []string{
	"2006-01-02",
	time.RFC3339,
}

// parseDateFlag parses a -from/-to value. endOfDay extends a bare date to
// 23:59:59 so inclusive upper bounds behave the way users expect.
func parseDateFlag(value string, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateFlagLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		t = t.UTC()
		if endOfDay && layout == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q (want YYYY-MM-DD or RFC3339)", value)
}

// stderrIsTerminal reports whether progress output would reach a human.
func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// progressPrinter returns a progress callback that rewrites one stderr line,
// or nil when stderr is not a terminal (piped output stays clean).
func progressPrinter(label string) export.ProgressFunc {
	if !stderrIsTerminal() {
		return nil
	}
	return func(processed int) {
		fmt.Fprintf(os.Stderr, "\r%s: %d conversations...", label, processed)
	}
}

// clearProgress erases the progress line before real output is printed.
func clearProgress() {
	if stderrIsTerminal() {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
}
