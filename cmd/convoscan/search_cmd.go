package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jkastner/convoscan/internal/config"
	"github.com/jkastner/convoscan/internal/export"
	"github.com/jkastner/convoscan/internal/search"
)

// handleSearch parses search flags into a query and runs one pass per file.
func handleSearch(cfg *config.UserConfig, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	keywords := fs.String("keyword", "", "Comma-separated keywords")
	phrases := fs.String("phrase", "", "Comma-separated exact phrases")
	exclude := fs.String("exclude", "", "Comma-separated exclusion terms")
	matchMode := fs.String("match", "", "Match mode: any (default) or all")
	role := fs.String("role", "", "Restrict matching to turns with this role")
	title := fs.String("title", "", "Case-insensitive title substring")
	from := fs.String("from", "", "Earliest conversation date (YYYY-MM-DD or RFC3339)")
	to := fs.String("to", "", "Latest conversation date, inclusive")
	minMsgs := fs.Int("min-messages", 0, "Minimum turn count")
	maxMsgs := fs.Int("max-messages", 0, "Maximum turn count")
	limit := fs.Int("limit", 0, "Result limit (default from config)")
	sortBy := fs.String("sort", "", "Sort key: score, date, title, messages")
	order := fs.String("order", "", "Sort order: asc or desc")
	jsonOut := fs.Bool("json", false, "Print results as JSON")
	csvOut := fs.Bool("csv", false, "Print results as CSV")
	mdOut := fs.Bool("markdown", false, "Print results as Markdown")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: convoscan search [options] <file>...")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	paths := fs.Args()
	if len(paths) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	fromTime, err := parseDateFlag(*from, false)
	if err != nil {
		fatalf("Error: %v", err)
	}
	toTime, err := parseDateFlag(*to, true)
	if err != nil {
		fatalf("Error: %v", err)
	}

	q := &search.Query{
		Keywords:      splitList(*keywords),
		Phrases:       splitList(*phrases),
		Exclude:       splitList(*exclude),
		MatchMode:     *matchMode,
		Role:          *role,
		TitleContains: *title,
		From:          fromTime,
		To:            toTime,
		MinMessages:   *minMsgs,
		MaxMessages:   *maxMsgs,
		Limit:         *limit,
		SortBy:        *sortBy,
		Order:         *order,
	}
	if q.Limit == 0 && cfg.Search.DefaultLimit != search.DefaultLimit {
		q.Limit = cfg.Search.DefaultLimit
	}
	if q.SortBy == "" && cfg.Search.DefaultSort != search.SortByScore {
		q.SortBy = cfg.Search.DefaultSort
	}
	if err := q.Validate(); err != nil {
		fatalf("Error: %v", err)
	}

	results, err := runSearch(paths, q)
	clearProgress()
	if err != nil {
		if errors.Is(err, export.ErrNotFound) {
			fatalf("Error: %v", err)
		}
		var parseErr *export.ParseError
		if errors.As(err, &parseErr) {
			fatalf("Error: export is not well-formed JSON: %v", parseErr)
		}
		fatalf("Error: %v", err)
	}

	switch {
	case *jsonOut:
		err = writeResultsJSON(os.Stdout, results)
	case *csvOut:
		err = writeResultsCSV(os.Stdout, results)
	case *mdOut:
		err = writeResultsMarkdown(os.Stdout, results)
	default:
		writeResultsText(os.Stdout, results)
	}
	if err != nil {
		fatalf("Error: %v", err)
	}
}

func runSearch(paths []string, q *search.Query) ([]search.Result, error) {
	progress := progressPrinter("Scanning")

	if len(paths) == 1 {
		r, err := export.Open(paths[0])
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return search.Search(r, q, progress)
	}
	return search.SearchAll(context.Background(), paths, q, progress)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
