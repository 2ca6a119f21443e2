package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jkastner/convoscan/internal/config"
	"github.com/jkastner/convoscan/internal/logging"
)

const Version = "0.3.1"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: bad config file: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		LogDir:                config.ConfigDir(),
		Level:                 cfg.Logs.Level,
		Format:                cfg.Logs.Format,
		MaxSizeMB:             cfg.Logs.MaxSizeMB,
		MaxBackups:            cfg.Logs.MaxBackups,
		MaxAgeDays:            cfg.Logs.RetentionDays,
		Compress:              cfg.Logs.GetCompress(),
		RingBufferSize:        cfg.Logs.RingBufferMB * 1024 * 1024,
		AggregateIntervalSecs: cfg.Logs.AggregateIntervalS,
	})
	defer logging.Shutdown()
	defer dumpOnPanic()

	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "search":
		handleSearch(cfg, os.Args[2:])
	case "stats":
		handleStats(os.Args[2:])
	case "watch":
		handleWatch(cfg, os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("convoscan v%s\n", Version)
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

// dumpOnPanic writes the in-memory log ring buffer next to the config so a
// crash on a multi-gigabyte scan leaves something to debug with.
func dumpOnPanic() {
	if r := recover(); r != nil {
		path := filepath.Join(config.ConfigDir(), "crash.log")
		_ = logging.DumpRingBuffer(path)
		fmt.Fprintf(os.Stderr, "panic: %v (debug log dumped to %s)\n", r, path)
		os.Exit(2)
	}
}

func printHelp() {
	fmt.Println("Usage: convoscan <command> [options]")
	fmt.Println()
	fmt.Println("Scan conversation-export files without loading them into memory.")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  search <file>...   Ranked relevance search over one or more exports")
	fmt.Println("  stats <file>       Aggregate statistics for an export")
	fmt.Println("  watch <file>       Re-run stats whenever the export changes")
	fmt.Println("  version            Print version")
	fmt.Println("  help               Show this help")
	fmt.Println()
	fmt.Println("Run 'convoscan <command> -h' for command options.")
}
