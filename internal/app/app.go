package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/time/rate"

	"shaker/internal/analysis"
	"shaker/internal/config"
	"shaker/internal/history"
	"shaker/internal/output"
	"shaker/internal/parser"
	"shaker/internal/watcher"
)

// FileReport is the per-file outcome of one scan.
type FileReport struct {
	Path      string
	SessionID string
	Nodes     int
	Edges     int
	Exports   []string
	Imports   []string
	Retained  int
	Total     int
}

// Summary aggregates one scan over all analyzed files.
type Summary struct {
	Files   []FileReport
	Skipped int
}

// App wires the parser, the analyzer, reporting and the history store into
// one scan pipeline.
type App struct {
	cfg      *config.Config
	parser   *parser.Parser
	analyzer *analysis.Analyzer
	store    *history.Store

	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

func New(cfg *config.Config) (*App, error) {
	reg := analysis.NewSideEffectRegistry()
	for _, spec := range cfg.Analysis.Rules {
		rule, err := analysis.CompileRule(analysis.RuleSpec{
			Name:   spec.Name,
			Callee: spec.Callee,
			Action: spec.Action,
		})
		if err != nil {
			return nil, err
		}
		reg.Register(rule)
	}

	a := &App{
		cfg:      cfg,
		parser:   parser.NewParser(parser.NewGrammarLoader()),
		analyzer: analysis.NewAnalyzer(reg),
	}

	var err error
	if a.excludeDirs, err = compileGlobs(cfg.Exclude.Dirs); err != nil {
		return nil, fmt.Errorf("exclude.dirs: %w", err)
	}
	if a.excludeFiles, err = compileGlobs(cfg.Exclude.Files); err != nil {
		return nil, fmt.Errorf("exclude.files: %w", err)
	}

	if cfg.History.Path != "" {
		if a.store, err = history.Open(cfg.History.Path); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Scan walks the configured paths and analyzes every supported source file.
func (a *App) Scan() (*Summary, error) {
	files, err := a.collectFiles(a.cfg.Paths)
	if err != nil {
		return nil, err
	}
	return a.analyzeFiles(files)
}

// Rescan analyzes an explicit set of files, used by watch mode.
func (a *App) Rescan(paths []string) (*Summary, error) {
	eligible := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			eligible = append(eligible, p)
		}
	}
	sort.Strings(eligible)
	return a.analyzeFiles(eligible)
}

func (a *App) collectFiles(roots []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			base := filepath.Base(path)
			if d.IsDir() {
				for _, g := range a.excludeDirs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}
			if parser.DetectLanguage(path) == "" {
				return nil
			}
			for _, g := range a.excludeFiles {
				if g.Match(base) {
					return nil
				}
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func (a *App) analyzeFiles(files []string) (*Summary, error) {
	summary := &Summary{}
	for _, path := range files {
		report, err := a.analyzeFile(path)
		if err != nil {
			slog.Warn("skipping file", "path", path, "error", err)
			summary.Skipped++
			continue
		}
		summary.Files = append(summary.Files, *report)
	}
	return summary, nil
}

func (a *App) analyzeFile(path string) (*FileReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file, err := a.parser.ParseFile(path, content)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	res, err := a.analyzer.Analyze(file.Root(), file.Source)
	if err != nil {
		return nil, err
	}

	kept := res.Graph.Closure(analysis.DefaultRoots(res.Graph, file.Root()))
	report := &FileReport{
		Path:      path,
		SessionID: res.SessionID,
		Nodes:     res.Graph.NodeCount(),
		Edges:     res.Stats.Edges,
		Exports:   res.Graph.ExportNames(),
		Imports:   res.Graph.ImportSpecifiers(),
		Retained:  len(kept),
		Total:     res.Graph.NodeCount(),
	}

	slog.Info("analyzed",
		"path", path,
		"session", res.SessionID,
		"edges", report.Edges,
		"exports", len(report.Exports),
		"imports", len(report.Imports),
		"retained", report.Retained,
		"total", report.Total,
	)

	if a.cfg.Output.Dir != "" {
		if err := a.writeReports(file, res); err != nil {
			slog.Warn("failed to write reports", "path", path, "error", err)
		}
	}
	if a.store != nil {
		run := history.Run{
			Timestamp:   time.Now(),
			SessionID:   res.SessionID,
			Path:        path,
			NodeCount:   report.Nodes,
			EdgeCount:   report.Edges,
			ExportCount: len(report.Exports),
			ImportCount: len(report.Imports),
			Retained:    report.Retained,
			Total:       report.Total,
			Duration:    res.Stats.Duration,
		}
		if err := a.store.Record(run); err != nil {
			slog.Warn("failed to record history", "path", path, "error", err)
		}
	}
	return report, nil
}

func (a *App) writeReports(file *parser.ParsedFile, res *analysis.Result) error {
	if err := os.MkdirAll(a.cfg.Output.Dir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(file.Path), filepath.Ext(file.Path))

	dot := output.NewDOTGenerator(res, file.Root()).Generate()
	if err := os.WriteFile(filepath.Join(a.cfg.Output.Dir, base+".dot"), []byte(dot), 0o644); err != nil {
		return err
	}
	tsv := output.NewTSVGenerator(res).Generate()
	return os.WriteFile(filepath.Join(a.cfg.Output.Dir, base+".tsv"), []byte(tsv), 0o644)
}

// WatchLoop rescans changed files until the context is cancelled. Rescans
// are rate-limited so editor save storms collapse into few runs.
func (a *App) WatchLoop(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Limit(a.cfg.Watch.RescanRate), a.cfg.Watch.RescanBurst)
	changes := make(chan []string, 16)

	w, err := watcher.New(a.cfg.Watch.Debounce, a.cfg.Exclude.Dirs, a.cfg.Exclude.Files, func(paths []string) {
		select {
		case changes <- paths:
		default:
			slog.Warn("dropping change batch, rescan backlog full")
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(a.cfg.Paths); err != nil {
		return err
	}
	slog.Info("watching", "paths", strings.Join(a.cfg.Paths, ","))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case paths := <-changes:
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			if _, err := a.Rescan(paths); err != nil {
				slog.Error("rescan failed", "error", err)
			}
		}
	}
}
