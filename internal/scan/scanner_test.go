package scan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	aerrors "github.com/Zuo-Peng/ai-session-viewer/internal/errors"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestScanRoots(t *testing.T) {
	cli := t.TempDir()
	desk := t.TempDir()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	touch(t, filepath.Join(cli, "C--work-app", "a.jsonl"), base)
	touch(t, filepath.Join(cli, "C--work-app", "b.jsonl"), base.Add(2*time.Hour))
	touch(t, filepath.Join(cli, "C--work-app", "subagents", "agent.jsonl"), base)
	touch(t, filepath.Join(cli, "C--work-app", "sessions-index.jsonl"), base)
	touch(t, filepath.Join(cli, "notes.txt"), base)
	touch(t, filepath.Join(desk, "https_claude.ai_0.indexeddb.leveldb", "000003.log"), base.Add(time.Hour))
	touch(t, filepath.Join(desk, "https_claude.ai_0.indexeddb.leveldb", "000005.ldb"), base)
	touch(t, filepath.Join(desk, "https_claude.ai_0.indexeddb.leveldb", "MANIFEST-000001"), base)
	touch(t, filepath.Join(desk, "https_claude.ai_0.indexeddb.leveldb", "LOCK"), base)

	res := ScanRoots(Roots{Structured: []string{cli}, Binary: []string{desk}})

	assert.Empty(t, res.Warnings)
	assert.Equal(t, 2, res.RootsOK)
	require.Len(t, res.Files, 5)

	assert.Equal(t, "b.jsonl", filepath.Base(res.Files[0].Path))
	assert.Equal(t, parse.StructuredLog, res.Files[0].Kind)
	assert.Equal(t, cli, res.Files[0].Root)
	assert.Equal(t, "000003.log", filepath.Base(res.Files[1].Path))
	assert.Equal(t, parse.BinaryStore, res.Files[1].Kind)

	var names []string
	for _, f := range res.Files {
		names = append(names, filepath.Base(f.Path))
	}
	assert.NotContains(t, names, "agent.jsonl")
	assert.NotContains(t, names, "sessions-index.jsonl")
	assert.NotContains(t, names, "LOCK")
	assert.Contains(t, names, "MANIFEST-000001")
}

func TestScanRoots_MissingRoot(t *testing.T) {
	cli := t.TempDir()
	touch(t, filepath.Join(cli, "p", "s.jsonl"), time.Now())
	missing := filepath.Join(t.TempDir(), "nope")
	file := filepath.Join(cli, "p", "s.jsonl")

	res := ScanRoots(Roots{Structured: []string{cli, missing}, Binary: []string{file}})

	assert.Equal(t, 1, res.RootsOK)
	assert.Equal(t, 2, res.RootsFailed)
	require.Len(t, res.Warnings, 2)
	assert.True(t, aerrors.Is(res.Warnings[0], aerrors.ErrSourceUnavailable))
	assert.Len(t, res.Files, 1)
}
