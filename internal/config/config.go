package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	CLIRoots            []string `toml:"cli_roots"`
	DesktopRoots        []string `toml:"desktop_roots"`
	MaxBinaryBytes      int64    `toml:"max_binary_bytes"`
	MaxSnippets         int      `toml:"max_snippets"`
	RebuildBudget       Duration `toml:"rebuild_budget"`
	Workers             int      `toml:"workers"`
	CacheSize           int      `toml:"cache_size"`
	DesktopTextFallback bool     `toml:"desktop_text_fallback"`
	Listen              string   `toml:"listen"`
	ExportPath          string   `toml:"export_path"`
	LogLevel            string   `toml:"log_level"`
}

// Duration reads TOML strings such as "30s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" || s == "0" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

const (
	DefaultMaxBinaryBytes = 2 * 1024 * 1024
	DefaultListen         = "127.0.0.1:8767"
)

// DefaultPath is where Load looks for the config file.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "aisv", "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile applies the TOML file at path, if it exists, over the defaults,
// then the environment overrides. CLAUDE_SESSIONS_DIR (or SESSIONS_DIR)
// replaces the structured-log roots and CLAUDE_DESKTOP_DIR replaces the
// binary-store roots; both take an os.PathListSeparator separated list.
func LoadFile(path string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cfg := defaults(home, os.Getenv)

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if raw := firstEnv("CLAUDE_SESSIONS_DIR", "SESSIONS_DIR"); raw != "" {
		cfg.CLIRoots = splitList(raw)
	}
	if raw := os.Getenv("CLAUDE_DESKTOP_DIR"); raw != "" {
		cfg.DesktopRoots = splitList(raw)
	}

	// expand ~ in paths
	for i, r := range cfg.CLIRoots {
		cfg.CLIRoots[i] = expandHome(r, home)
	}
	for i, r := range cfg.DesktopRoots {
		cfg.DesktopRoots[i] = expandHome(r, home)
	}
	cfg.CLIRoots = unique(cfg.CLIRoots)
	cfg.DesktopRoots = unique(cfg.DesktopRoots)
	cfg.ExportPath = expandHome(cfg.ExportPath, home)

	if cfg.MaxBinaryBytes <= 0 {
		cfg.MaxBinaryBytes = DefaultMaxBinaryBytes
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	return cfg, nil
}

func defaults(home string, getenv func(string) string) *Config {
	return &Config{
		CLIRoots:       preferExisting(cliCandidates(home, getenv)),
		DesktopRoots:   preferExisting(desktopCandidates(home, getenv)),
		MaxBinaryBytes: DefaultMaxBinaryBytes,
		MaxSnippets:    4000,
		Workers:        4,
		CacheSize:      2048,
		Listen:         DefaultListen,
		ExportPath:     filepath.Join(home, ".config", "aisv", "sessions.db"),
		LogLevel:       "info",
	}
}

// cliCandidates lists where Claude Code and Codex keep their logs,
// including Windows homes seen from WSL.
func cliCandidates(home string, getenv func(string) string) []string {
	out := []string{
		filepath.Join(home, ".claude", "projects"),
		filepath.Join(home, ".codex", "sessions"),
	}
	for _, h := range []string{getenv("USERPROFILE"), getenv("WIN_HOME")} {
		if h != "" {
			out = append(out, filepath.Join(h, ".claude", "projects"))
		}
	}
	for _, u := range wslUsers() {
		out = append(out, filepath.Join(u, ".claude", "projects"))
	}
	return out
}

func desktopCandidates(home string, getenv func(string) string) []string {
	var out []string
	if a := getenv("APPDATA"); a != "" {
		out = append(out, filepath.Join(a, "Claude", "IndexedDB"))
	}
	for _, h := range []string{getenv("USERPROFILE"), getenv("WIN_HOME")} {
		if h != "" {
			out = append(out, filepath.Join(h, "AppData", "Roaming", "Claude", "IndexedDB"))
		}
	}
	for _, u := range wslUsers() {
		out = append(out, filepath.Join(u, "AppData", "Roaming", "Claude", "IndexedDB"))
	}
	out = append(out,
		filepath.Join(home, "Library", "Application Support", "Claude", "IndexedDB"),
		filepath.Join(home, ".config", "Claude", "IndexedDB"),
	)
	return out
}

func wslUsers() []string {
	entries, err := os.ReadDir("/mnt/c/Users")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join("/mnt/c/Users", e.Name()))
		}
	}
	return out
}

// preferExisting keeps the candidates that exist, or all of them when
// none do so that doctor can report what was looked for.
func preferExisting(paths []string) []string {
	paths = unique(paths)
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) > 0 {
		return existing
	}
	return paths
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, string(os.PathListSeparator)) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func unique(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0:0]
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == '\\') {
		return filepath.Join(home, path[2:])
	}
	return path
}
