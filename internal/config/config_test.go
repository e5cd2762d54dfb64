package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"CLAUDE_SESSIONS_DIR", "SESSIONS_DIR", "CLAUDE_DESKTOP_DIR", "USERPROFILE", "WIN_HOME", "APPDATA"} {
		t.Setenv(k, "")
	}
	return home
}

func TestLoadFile_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := LoadFile(filepath.Join(home, "missing.toml"))
	require.NoError(t, err)

	assert.Contains(t, cfg.CLIRoots, filepath.Join(home, ".claude", "projects"))
	assert.Contains(t, cfg.DesktopRoots, filepath.Join(home, ".config", "Claude", "IndexedDB"))
	assert.Equal(t, int64(DefaultMaxBinaryBytes), cfg.MaxBinaryBytes)
	assert.Equal(t, 4000, cfg.MaxSnippets)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.RebuildBudget.Duration)
	assert.False(t, cfg.DesktopTextFallback)
}

func TestLoadFile_PrefersExistingRoots(t *testing.T) {
	home := isolate(t)
	claude := filepath.Join(home, ".claude", "projects")
	require.NoError(t, os.MkdirAll(claude, 0o755))

	cfg, err := LoadFile(filepath.Join(home, "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, []string{claude}, cfg.CLIRoots)
}

func TestLoadFile_TOML(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")
	body := strings.Join([]string{
		`cli_roots = ["~/logs", "/srv/logs", "~/logs"]`,
		`desktop_roots = ["~/idb"]`,
		`max_binary_bytes = 1024`,
		`rebuild_budget = "30s"`,
		`workers = 8`,
		`desktop_text_fallback = true`,
		`listen = "0.0.0.0:9000"`,
		`export_path = "~/out.db"`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(home, "logs"), "/srv/logs"}, cfg.CLIRoots)
	assert.Equal(t, []string{filepath.Join(home, "idb")}, cfg.DesktopRoots)
	assert.Equal(t, int64(1024), cfg.MaxBinaryBytes)
	assert.Equal(t, 30*time.Second, cfg.RebuildBudget.Duration)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.DesktopTextFallback)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, filepath.Join(home, "out.db"), cfg.ExportPath)
}

func TestLoadFile_BadDuration(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`rebuild_budget = "soon"`), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`cli_roots = ["/from/file"]`), 0o644))

	sep := string(os.PathListSeparator)
	t.Setenv("SESSIONS_DIR", "/from/sessions-dir")
	t.Setenv("CLAUDE_SESSIONS_DIR", "/a"+sep+" /b "+sep+sep+"/a")
	t.Setenv("CLAUDE_DESKTOP_DIR", "~/desk")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/a", "/b"}, cfg.CLIRoots)
	assert.Equal(t, []string{filepath.Join(home, "desk")}, cfg.DesktopRoots)

	t.Setenv("CLAUDE_SESSIONS_DIR", "")
	cfg, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/from/sessions-dir"}, cfg.CLIRoots)
}
