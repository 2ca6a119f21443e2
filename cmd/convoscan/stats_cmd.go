package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jkastner/convoscan/internal/export"
)

// handleStats runs the statistics pass over one export.
func handleStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "Print statistics as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: convoscan stats [options] <file>")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	stats, err := runStats(fs.Arg(0))
	clearProgress()
	if err != nil {
		fatalf("Error: %v", err)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fatalf("Error: %v", err)
		}
		return
	}
	writeStatsText(os.Stdout, stats)
}

func runStats(path string) (export.ExportStatistics, error) {
	r, err := export.Open(path)
	if err != nil {
		return export.ExportStatistics{}, err
	}
	defer r.Close()
	return export.CalculateStatistics(r, progressPrinter("Scanning"))
}
