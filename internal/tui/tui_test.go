package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ai-session-viewer/internal/index"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/search"
)

func TestResumeCommand(t *testing.T) {
	tests := []struct {
		name string
		sess parse.Session
		want string
	}{
		{
			name: "claude with cwd",
			sess: parse.Session{Source: parse.StructuredLog, FilePath: "/h/.claude/projects/p/abc.jsonl", Cwd: "/work/app"},
			want: "cd /work/app && claude --resume abc",
		},
		{
			name: "claude without cwd",
			sess: parse.Session{Source: parse.StructuredLog, FilePath: "/h/.claude/projects/p/abc.jsonl"},
			want: "claude --resume abc",
		},
		{
			name: "codex rollout",
			sess: parse.Session{Source: parse.StructuredLog, FilePath: "/h/.codex/sessions/2026/01/26/rollout-2026-01-26T17-30-22-019bf9a3-d433-7fc1-8214-b82613804964.jsonl"},
			want: "codex resume 019bf9a3-d433-7fc1-8214-b82613804964",
		},
		{
			name: "desktop store",
			sess: parse.Session{Source: parse.BinaryStore, FilePath: "/h/Claude/IndexedDB/x/000003.log", Cwd: "/ignored"},
			want: "/h/Claude/IndexedDB/x/000003.log",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResumeCommand(&tt.sess))
		})
	}
}

func TestExtractUUID(t *testing.T) {
	assert.Equal(t, "019bf9a3-d433-7fc1-8214-b82613804964", extractUUID("rollout-x-019bf9a3-d433-7fc1-8214-b82613804964"))
	assert.Equal(t, "plain", extractUUID("plain"))
}

func TestFormatResultLine(t *testing.T) {
	r := search.Summary{
		ID:      "desktop:000003.log",
		Source:  parse.BinaryStore,
		Summary: "hello\nworld",
		Project: `(desktop)`,
		LastAt:  time.Date(2026, 2, 11, 12, 0, 0, 0, time.Local),
		Partial: true,
	}
	rows := formatResultLine(r, 60, true)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0], "02-11")
	assert.Contains(t, rows[0], "~hello world")
	assert.Contains(t, rows[1], "(desktop)")

	r.Snippet = "a >>>hit<<< here"
	rows = formatResultLine(r, 60, false)
	assert.True(t, strings.HasPrefix(rows[0], "  "))
	assert.Contains(t, rows[1], "a hit here")
}

func TestAdjustListScroll(t *testing.T) {
	m := model{results: make([]search.Summary, 20)}
	m.cursor = 8
	m.adjustListScroll(10) // five items visible
	assert.Equal(t, 4, m.listOffset)

	m.cursor = 2
	m.adjustListScroll(10)
	assert.Equal(t, 2, m.listOffset)
}

func TestUpdate_StaleResultsIgnored(t *testing.T) {
	m := initialModel(nil, index.Sources{}, "deploy", search.Filters{})
	next, _ := m.Update(searchResultMsg{query: "old", results: make([]search.Summary, 3)})
	assert.Empty(t, next.(model).results)
}

func TestUpdate_EnterSelects(t *testing.T) {
	m := initialModel(nil, index.Sources{}, "deploy", search.Filters{})
	m.results = []search.Summary{{ID: "cli:a"}, {ID: "cli:b"}}
	m.cursor = 1
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	fm := next.(model)
	require.NotNil(t, fm.openResult)
	assert.Equal(t, "cli:b", fm.openResult.ID)
	assert.True(t, fm.quitting)
	assert.NotNil(t, cmd)
}

func TestUpdate_ResultsApplied(t *testing.T) {
	m := initialModel(nil, index.Sources{}, "deploy", search.Filters{})
	m.cursor = 3
	next, cmd := m.Update(searchResultMsg{query: "deploy", gen: 4, results: []search.Summary{{ID: "cli:a"}}})
	fm := next.(model)
	assert.Len(t, fm.results, 1)
	assert.Equal(t, uint64(4), fm.gen)
	assert.Zero(t, fm.cursor)
	assert.NotNil(t, cmd) // preview load
}

func TestUpdate_CycleSource(t *testing.T) {
	m := initialModel(nil, index.Sources{}, "", search.Filters{})
	var seen []parse.SourceKind
	for i := 0; i < 3; i++ {
		next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m = next.(model)
		assert.NotNil(t, cmd)
		seen = append(seen, m.filters.Source)
	}
	assert.Equal(t, []parse.SourceKind{parse.StructuredLog, parse.BinaryStore, ""}, seen)

	// results for a source no longer selected are dropped
	next, _ := m.Update(searchResultMsg{query: "", source: parse.BinaryStore, results: make([]search.Summary, 2)})
	assert.Empty(t, next.(model).results)
}

func TestUpdate_Rebuild(t *testing.T) {
	m := initialModel(nil, index.Sources{}, "", search.Filters{})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m = next.(model)
	assert.True(t, m.rebuilding)
	assert.NotNil(t, cmd)

	// a second request while one is running is ignored
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Nil(t, cmd)
	m = next.(model)

	next, _ = m.Update(rebuildDoneMsg{gen: 2, stats: index.Stats{Sessions: 5}})
	m = next.(model)
	assert.False(t, m.rebuilding)
	assert.Contains(t, m.notice, "5 sessions")
}

func TestApplyPreview_Stale(t *testing.T) {
	m := initialModel(nil, index.Sources{}, "", search.Filters{})
	m.results = []search.Summary{{ID: "cli:a", HitIndex: 1}}
	m.gen = 2

	current := previewRequest{id: "cli:a", hit: 1, gen: 2}
	m = m.applyPreview(previewRenderedMsg{req: previewRequest{id: "cli:a", hit: 1, gen: 1}, content: "old"})
	assert.Empty(t, m.previewKey)

	m = m.applyPreview(previewRenderedMsg{req: current, content: "new"})
	assert.Equal(t, current.key(), m.previewKey)
	assert.Nil(t, m.loadCurrentPreview())

	m.onlyUser = true
	assert.NotNil(t, m.loadCurrentPreview())
}
