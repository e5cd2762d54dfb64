package search

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	aerrors "github.com/Zuo-Peng/ai-session-viewer/internal/errors"
	"github.com/Zuo-Peng/ai-session-viewer/internal/index"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/pathkey"
	"github.com/Zuo-Peng/ai-session-viewer/internal/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)

func msg(role parse.Role, text string, ts time.Time) parse.Message {
	return parse.Message{Role: role, Text: text, Timestamp: ts, Provenance: parse.Parsed, Kind: parse.KindText, Offset: -1}
}

func session(id string, kind parse.SourceKind, project string, msgs ...parse.Message) *parse.Session {
	return &parse.Session{
		ID:           id,
		Source:       kind,
		Project:      pathkey.Normalize(project),
		RelativePath: strings.SplitN(id, ":", 2)[1],
		Messages:     msgs,
	}
}

func ids(res []Summary) []string {
	out := make([]string, 0, len(res))
	for _, r := range res {
		out = append(out, r.ID)
	}
	return out
}

func testSnapshot() *index.Snapshot {
	return index.NewSnapshot(1, []*parse.Session{
		session("cli:C--junichi-takeda-source/both", parse.StructuredLog, `C:\junichi\takeda\source`,
			msg(parse.RoleUser, "Foo first", base),
			msg(parse.RoleAssistant, "then BAR", base.Add(time.Minute))),
		session("cli:C--work-app/foo-only", parse.StructuredLog, "C--work-app",
			msg(parse.RoleUser, "only foo here", base.Add(-time.Hour))),
		session("cli:C--work-app/bar-only", parse.StructuredLog, "C--work-app",
			msg(parse.RoleAssistant, "only bar here", base.Add(-2*time.Hour))),
		session("desktop:idb/000003.log", parse.BinaryStore, "(desktop)",
			parse.Message{Role: parse.RoleUnknown, Text: "foo and bar, untimed", Provenance: parse.Extracted, Kind: parse.KindSnippet, Offset: 10}),
		session("cli:C--work-app/neither", parse.StructuredLog, "C--work-app",
			msg(parse.RoleUser, "nothing relevant", base.Add(time.Hour))),
	}, index.Stats{})
}

func TestSearch_KeywordAnd(t *testing.T) {
	res := Search(testSnapshot(), Filters{Terms: []string{"foo", "bar"}, Mode: And})
	assert.Equal(t, []string{"cli:C--junichi-takeda-source/both", "desktop:idb/000003.log"}, ids(res))
}

func TestSearch_KeywordOr(t *testing.T) {
	res := Search(testSnapshot(), Filters{Terms: []string{"foo", "bar"}, Mode: Or})
	assert.Equal(t, []string{
		"cli:C--junichi-takeda-source/both",
		"cli:C--work-app/foo-only",
		"cli:C--work-app/bar-only",
		"desktop:idb/000003.log",
	}, ids(res))
}

func TestSearch_NoFiltersOrdering(t *testing.T) {
	res := Search(testSnapshot(), Filters{})
	assert.Equal(t, []string{
		"cli:C--work-app/neither",
		"cli:C--junichi-takeda-source/both",
		"cli:C--work-app/foo-only",
		"cli:C--work-app/bar-only",
		"desktop:idb/000003.log",
	}, ids(res))
}

func TestSearch_TiesByID(t *testing.T) {
	snap := index.NewSnapshot(1, []*parse.Session{
		session("cli:b", parse.StructuredLog, "p", msg(parse.RoleUser, "x", base)),
		session("cli:a", parse.StructuredLog, "p", msg(parse.RoleUser, "x", base)),
		session("cli:d", parse.StructuredLog, "p", msg(parse.RoleUser, "x", time.Time{})),
		session("cli:c", parse.StructuredLog, "p", msg(parse.RoleUser, "x", time.Time{})),
	}, index.Stats{})

	assert.Equal(t, []string{"cli:a", "cli:b", "cli:c", "cli:d"}, ids(Search(snap, Filters{})))
}

func TestSearch_DateRangeInclusive(t *testing.T) {
	lo := base.Add(-time.Hour)
	hi := base
	snap := index.NewSnapshot(1, []*parse.Session{
		session("cli:at-lower", parse.StructuredLog, "p", msg(parse.RoleUser, "a", lo)),
		session("cli:at-upper", parse.StructuredLog, "p", msg(parse.RoleUser, "b", hi)),
		session("cli:untimed", parse.StructuredLog, "p", msg(parse.RoleUser, "c", time.Time{})),
		session("cli:before", parse.StructuredLog, "p", msg(parse.RoleUser, "d", lo.Add(-time.Second))),
		session("cli:after", parse.StructuredLog, "p", msg(parse.RoleUser, "e", hi.Add(time.Second))),
		session("cli:straddle", parse.StructuredLog, "p",
			msg(parse.RoleUser, "f", lo.Add(-time.Hour)),
			msg(parse.RoleUser, "g", lo.Add(time.Minute)),
			msg(parse.RoleUser, "h", time.Time{})),
	}, index.Stats{})

	res := Search(snap, Filters{Since: lo, Until: hi})
	assert.ElementsMatch(t, []string{"cli:at-lower", "cli:at-upper", "cli:straddle"}, ids(res))

	res = Search(snap, Filters{Since: hi})
	assert.ElementsMatch(t, []string{"cli:at-upper", "cli:after"}, ids(res))

	res = Search(snap, Filters{Until: lo})
	assert.ElementsMatch(t, []string{"cli:at-lower", "cli:before", "cli:straddle"}, ids(res))
}

func TestSearch_Path(t *testing.T) {
	snap := testSnapshot()
	want := []string{"cli:C--junichi-takeda-source/both"}

	for _, frag := range []string{`C:\junichi\takeda`, "C:/junichi/takeda/source", "C--junichi-takeda", "takeda/source", `TAKEDA\SOURCE`} {
		assert.Equal(t, want, ids(Search(snap, Filters{Path: frag})), frag)
	}

	// relative path is matched too
	assert.Equal(t, []string{"cli:C--work-app/foo-only"}, ids(Search(snap, Filters{Path: "foo-only"})))
	assert.Empty(t, Search(snap, Filters{Path: "D:/junichi"}))
}

func TestSearch_SourceAndRole(t *testing.T) {
	snap := testSnapshot()

	res := Search(snap, Filters{Source: parse.BinaryStore})
	assert.Equal(t, []string{"desktop:idb/000003.log"}, ids(res))

	// "bar" only appears in assistant messages of these sessions
	res = Search(snap, Filters{Terms: []string{"bar"}, Role: parse.RoleUser})
	assert.Empty(t, res)

	res = Search(snap, Filters{Terms: []string{"bar"}, Role: parse.RoleAssistant})
	assert.Equal(t, []string{"cli:C--junichi-takeda-source/both", "cli:C--work-app/bar-only"}, ids(res))
	assert.Equal(t, 1, res[0].HitIndex)
}

func TestSearch_Combined(t *testing.T) {
	res := Search(testSnapshot(), Filters{
		Terms:  []string{"foo"},
		Mode:   Or,
		Path:   "work-app",
		Since:  base.Add(-90 * time.Minute),
		Source: parse.StructuredLog,
	})
	assert.Equal(t, []string{"cli:C--work-app/foo-only"}, ids(res))
}

func TestSearch_SummaryFields(t *testing.T) {
	res := Search(testSnapshot(), Filters{Terms: []string{"BAR"}, Limit: 1})
	require.Len(t, res, 1)
	s := res[0]

	assert.Equal(t, "cli:C--junichi-takeda-source/both", s.ID)
	assert.Equal(t, `C:\junichi\takeda\source`, s.Project)
	assert.Equal(t, "C--junichi-takeda-source", s.ProjectSlug)
	assert.Equal(t, "Foo first", s.Summary)
	assert.Equal(t, 2, s.MessageCount)
	assert.Equal(t, 1, s.HitIndex)
	assert.Equal(t, "then >>>BAR<<<", s.Snippet)
	assert.True(t, base.Equal(s.FirstAt))
	assert.True(t, base.Add(time.Minute).Equal(s.LastAt))

	res = Search(testSnapshot(), Filters{})
	assert.Equal(t, -1, res[0].HitIndex)
	assert.Empty(t, res[0].Snippet)
}

func TestGetSession(t *testing.T) {
	snap := testSnapshot()

	sess, err := GetSession(snap, "desktop:idb/000003.log")
	require.NoError(t, err)
	assert.Equal(t, parse.Extracted, sess.Messages[0].Provenance)

	_, err = GetSession(snap, "cli:nope")
	require.Error(t, err)
	assert.True(t, aerrors.Is(err, aerrors.ErrNotFound))
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, []string{"foo", "bar"}, ParseTerms("  foo \t bar "))
	assert.Empty(t, ParseTerms("   "))

	m, err := ParseMode("OR")
	require.NoError(t, err)
	assert.Equal(t, Or, m)
	_, err = ParseMode("xor")
	assert.True(t, aerrors.Is(err, aerrors.ErrInvalidRequest))

	k, err := ParseSource("desktop")
	require.NoError(t, err)
	assert.Equal(t, parse.BinaryStore, k)

	r, err := ParseRole("human")
	require.NoError(t, err)
	assert.Equal(t, parse.RoleUser, r)
	_, err = ParseRole("robot")
	assert.Error(t, err)

	since, err := ParseDate("2026-02-11", false)
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC).Equal(since))

	until, err := ParseDate("2026-02-11", true)
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 2, 11, 23, 59, 59, 999999999, time.UTC).Equal(until))

	ts, err := ParseDate("2026-02-11T10:00:00+09:00", true)
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 2, 11, 1, 0, 0, 0, time.UTC).Equal(ts))

	_, err = ParseDate("last week", false)
	assert.Error(t, err)
}

func TestMakeSnippet(t *testing.T) {
	text := strings.Repeat("a", 50) + "Needle" + strings.Repeat("b", 50)
	got := makeSnippet(text, "needle", 5)
	assert.Equal(t, "...aaaaa>>>Needle<<<bbbbb...", got)

	assert.Equal(t, "short", makeSnippet("short", "zzz", 5))
	assert.Equal(t, "line one >>>two<<<", makeSnippet("line one\ntwo", "two", 20))
}

func writeSession(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	line := `{"type":"user","timestamp":"2026-02-11T10:00:00Z","message":{"role":"user","content":"` + text + `"}}`
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0o644))
}

// A search racing a rebuild sees exactly one generation's sessions.
func TestSearch_ConcurrentWithRebuild(t *testing.T) {
	alpha := t.TempDir()
	beta := t.TempDir()
	for _, n := range []string{"1", "2", "3", "4"} {
		writeSession(t, filepath.Join(alpha, "proj", "alpha"+n+".jsonl"), "shared term alpha")
	}
	for _, n := range []string{"1", "2"} {
		writeSession(t, filepath.Join(beta, "proj", "beta"+n+".jsonl"), "shared term beta")
	}
	sources := []index.Sources{
		{Roots: scan.Roots{Structured: []string{alpha}}, Workers: 3},
		{Roots: scan.Roots{Structured: []string{beta}}, Workers: 3},
	}

	ix := index.New(32, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var stop atomic.Bool
	var mixed atomic.Int64
	var wg sync.WaitGroup

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				res := Search(ix.Current(), Filters{Terms: []string{"shared"}})
				var a, b int
				for _, s := range res {
					if strings.Contains(s.ID, "/alpha") {
						a++
					} else {
						b++
					}
				}
				if (a > 0 && b > 0) || (a != 0 && a != 4) || (b != 0 && b != 2) {
					mixed.Add(1)
				}
			}
		}()
	}

	for i := 0; i < 40; i++ {
		_, err := ix.Rebuild(context.Background(), sources[i%2])
		require.NoError(t, err)
	}
	stop.Store(true)
	wg.Wait()

	assert.Zero(t, mixed.Load())
}
