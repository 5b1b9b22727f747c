package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"shaker/internal/app"
	"shaker/internal/config"
)

var (
	configPath = flag.String("config", "./shaker.toml", "Path to config file")
	watch      = flag.Bool("watch", false, "Keep running and re-analyze on file changes")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("shaker v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./shaker.toml" {
			if cfg, err = config.Load("./shaker.example.toml"); err != nil {
				cfg = config.Default()
				err = nil
			}
		}
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	if args := flag.Args(); len(args) > 0 {
		cfg.Paths = args
	}

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	summary, err := a.Scan()
	if err != nil {
		slog.Error("scan failed", "error", err)
		os.Exit(1)
	}
	printSummary(summary)

	if !*watch {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.WatchLoop(ctx); err != nil && ctx.Err() == nil {
		slog.Error("watch failed", "error", err)
		os.Exit(1)
	}
}

func printSummary(s *app.Summary) {
	for _, f := range s.Files {
		removable := f.Total - f.Retained
		fmt.Printf("%s\tedges=%d exports=[%s] imports=[%s] removable=%d/%d\n",
			f.Path, f.Edges,
			strings.Join(f.Exports, ","),
			strings.Join(f.Imports, ","),
			removable, f.Total,
		)
	}
	if s.Skipped > 0 {
		fmt.Printf("skipped %d file(s)\n", s.Skipped)
	}
}
