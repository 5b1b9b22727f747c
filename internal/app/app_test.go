package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shaker/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib.js"), `function add(a, b) { return a + b; }
Object.defineProperty(exports, "add", { value: add });`)
	writeFile(t, filepath.Join(dir, "main.js"), `const { add } = require('./lib');
add(1, 2);`)
	writeFile(t, filepath.Join(dir, "readme.md"), `not source`)
	writeFile(t, filepath.Join(dir, "node_modules", "dep.js"), `ignored();`)

	cfg := config.Default()
	cfg.Paths = []string{dir}
	cfg.Exclude.Dirs = []string{"node_modules"}
	a := newTestApp(t, cfg)

	summary, err := a.Scan()
	require.NoError(t, err)
	require.Len(t, summary.Files, 2)
	assert.Equal(t, 0, summary.Skipped)

	// Files come back in path order.
	assert.Contains(t, summary.Files[0].Path, "lib.js")
	assert.Contains(t, summary.Files[1].Path, "main.js")

	lib := summary.Files[0]
	assert.Equal(t, []string{"add"}, lib.Exports)
	assert.NotEmpty(t, lib.SessionID)
	assert.Greater(t, lib.Edges, 0)
	assert.Greater(t, lib.Retained, 0)
	assert.LessOrEqual(t, lib.Retained, lib.Total)

	main := summary.Files[1]
	assert.Equal(t, []string{"./lib"}, main.Imports)
}

func TestScanExcludesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.js"), `1;`)
	writeFile(t, filepath.Join(dir, "app.min.js"), `1;`)

	cfg := config.Default()
	cfg.Paths = []string{dir}
	cfg.Exclude.Files = []string{"*.min.js"}
	a := newTestApp(t, cfg)

	summary, err := a.Scan()
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.Contains(t, summary.Files[0].Path, "app.js")
}

func TestScanWritesReports(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "reports")
	writeFile(t, filepath.Join(dir, "src", "mod.js"),
		`Object.defineProperty(exports, "x", { value: 1 });`)

	cfg := config.Default()
	cfg.Paths = []string{filepath.Join(dir, "src")}
	cfg.Output.Dir = outDir
	a := newTestApp(t, cfg)

	_, err := a.Scan()
	require.NoError(t, err)

	dot, err := os.ReadFile(filepath.Join(outDir, "mod.dot"))
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph retention")

	tsv, err := os.ReadFile(filepath.Join(outDir, "mod.tsv"))
	require.NoError(t, err)
	assert.Contains(t, string(tsv), "export\tx\t")
}

func TestScanRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.js"), `var a = 1;`)

	cfg := config.Default()
	cfg.Paths = []string{filepath.Join(dir, "src")}
	cfg.History.Path = filepath.Join(dir, "runs.db")
	a := newTestApp(t, cfg)

	summary, err := a.Scan()
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)

	runs, err := a.store.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.Files[0].SessionID, runs[0].SessionID)
	assert.Contains(t, runs[0].Path, "a.js")
}

func TestScanSkipsBrokenFilesButContinues(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ok.js"), `var a = 1;`)
	// Unreadable file: parse still succeeds on garbage, so force a read error.
	bad := filepath.Join(dir, "bad.js")
	writeFile(t, bad, `1;`)
	require.NoError(t, os.Chmod(bad, 0o000))
	t.Cleanup(func() { os.Chmod(bad, 0o644) })

	cfg := config.Default()
	cfg.Paths = []string{dir}
	a := newTestApp(t, cfg)

	summary, err := a.Scan()
	require.NoError(t, err)
	assert.Len(t, summary.Files, 1)
	assert.Equal(t, 1, summary.Skipped)
}

func TestRescanIgnoresMissingPaths(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.js")
	writeFile(t, keep, `var a = 1;`)

	cfg := config.Default()
	cfg.Paths = []string{dir}
	a := newTestApp(t, cfg)

	summary, err := a.Rescan([]string{keep, filepath.Join(dir, "deleted.js")})
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.Equal(t, keep, summary.Files[0].Path)
}

func TestNewRejectsBadRule(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Rules = []config.SideEffectRule{{Name: "bad", Callee: "[", Action: "retain-args"}}
	_, err := New(cfg)
	require.Error(t, err)
}

func TestConfiguredRuleReachesAnalyzer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ui.js"), `el.addEventListener('click', handler);`)

	cfg := config.Default()
	cfg.Paths = []string{dir}
	cfg.Analysis.Rules = []config.SideEffectRule{
		{Name: "listeners", Callee: "*.addEventListener", Action: "retain-args"},
	}
	a := newTestApp(t, cfg)

	summary, err := a.Scan()
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.Greater(t, summary.Files[0].Edges, 0)
}
