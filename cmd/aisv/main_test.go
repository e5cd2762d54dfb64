package main

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ai-session-viewer/internal/config"
	aerrors "github.com/Zuo-Peng/ai-session-viewer/internal/errors"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestSourcesFrom(t *testing.T) {
	cfg := &config.Config{
		CLIRoots:            []string{"/a"},
		DesktopRoots:        []string{"/b"},
		MaxBinaryBytes:      1024,
		MaxSnippets:         7,
		RebuildBudget:       config.Duration{Duration: time.Second},
		Workers:             3,
		DesktopTextFallback: true,
	}
	src := sourcesFrom(cfg)
	assert.Equal(t, []string{"/a"}, src.Roots.Structured)
	assert.Equal(t, []string{"/b"}, src.Roots.Binary)
	assert.Equal(t, int64(1024), src.MaxBinaryBytes)
	assert.Equal(t, 7, src.Extract.MaxSnippets)
	assert.True(t, src.Extract.Fallback)
	assert.Equal(t, time.Second, src.Budget)
	assert.Equal(t, 3, src.Workers)
}

func TestFilterFlags(t *testing.T) {
	ff := filterFlags{mode: "or", path: `C:\work`, since: "2026-02-01", until: "2026-02-11", source: "desktop", role: "user", limit: 5}
	f, err := ff.filters("deploy  service")
	require.NoError(t, err)
	assert.Equal(t, []string{"deploy", "service"}, f.Terms)
	assert.Equal(t, search.Or, f.Mode)
	assert.Equal(t, parse.BinaryStore, f.Source)
	assert.Equal(t, parse.RoleUser, f.Role)
	assert.True(t, f.Until.After(f.Since))
	assert.Equal(t, 5, f.Limit)

	ff.mode = "xor"
	_, err = ff.filters("")
	require.Error(t, err)
	assert.True(t, aerrors.Is(err, aerrors.ErrInvalidRequest))
}
