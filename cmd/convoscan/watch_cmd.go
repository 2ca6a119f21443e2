package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jkastner/convoscan/internal/config"
	"github.com/jkastner/convoscan/internal/watch"
)

// handleWatch re-runs the statistics pass every time the export file is
// rewritten. Each rescan is a fresh pass from the start of the file.
func handleWatch(cfg *config.UserConfig, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "Print statistics as JSON on each change")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: convoscan watch [options] <file>")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	path := fs.Arg(0)

	w, err := watch.New(path, watch.Options{
		Debounce:         time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
		RescansPerMinute: cfg.Watch.RescansPerMinute,
	})
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer w.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	printStats(path, *jsonOut)
	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl-C to stop)\n", path)

	for {
		select {
		case <-w.Events():
			printStats(path, *jsonOut)
		case <-sigCh:
			return
		}
	}
}

func printStats(path string, jsonOut bool) {
	stats, err := runStats(path)
	clearProgress()
	if err != nil {
		// The file may be mid-rewrite; report and keep watching
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		return
	}
	if jsonOut {
		writeStatsJSONLine(os.Stdout, stats)
		return
	}
	fmt.Printf("--- %s ---\n", time.Now().UTC().Format(time.RFC3339))
	writeStatsText(os.Stdout, stats)
}
