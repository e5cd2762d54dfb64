package search

import (
	"sort"
	"strings"
	"time"

	aerrors "github.com/Zuo-Peng/ai-session-viewer/internal/errors"
	"github.com/Zuo-Peng/ai-session-viewer/internal/index"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/pathkey"
)

type Mode int

const (
	And Mode = iota
	Or
)

func (m Mode) String() string {
	if m == Or {
		return "or"
	}
	return "and"
}

// Filters are ANDed together; zero fields do not constrain.
type Filters struct {
	Terms  []string
	Mode   Mode
	Path   string           // fragment matched against project and relative path
	Since  time.Time        // inclusive
	Until  time.Time        // inclusive
	Source parse.SourceKind // "" = all
	Role   parse.Role       // "" = all; also narrows keyword matching to that role
	Limit  int              // <= 0 = no limit
}

type Summary struct {
	ID           string
	Source       parse.SourceKind
	Project      string // Windows-style display
	ProjectSlug  string
	RelativePath string
	FilePath     string
	Summary      string
	FirstAt      time.Time
	LastAt       time.Time
	MessageCount int
	Partial      bool
	Snippet      string
	HitIndex     int // message index of the first keyword hit, -1 without terms
}

// Search runs f over one pinned snapshot and returns summaries ordered by
// latest message time, newest first. Sessions without timestamps come
// last; ties go to the smaller id.
func Search(snap *index.Snapshot, f Filters) []Summary {
	terms := lowerTerms(f.Terms)

	var out []Summary
	for _, sess := range snap.All() {
		hit, ok := matches(snap, sess, f, terms)
		if !ok {
			continue
		}
		out = append(out, summarize(sess, terms, hit))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.LastAt.IsZero() != b.LastAt.IsZero():
			return !a.LastAt.IsZero()
		case !a.LastAt.Equal(b.LastAt):
			return a.LastAt.After(b.LastAt)
		default:
			return a.ID < b.ID
		}
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// GetSession returns the full session, or NOT_FOUND.
func GetSession(snap *index.Snapshot, id string) (*parse.Session, error) {
	sess, ok := snap.Get(id)
	if !ok {
		return nil, aerrors.NewNotFound(id)
	}
	return sess, nil
}

func lowerTerms(terms []string) []string {
	var out []string
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// matches applies every filter and returns the index of the first message
// containing a term, or -1.
func matches(snap *index.Snapshot, sess *parse.Session, f Filters, terms []string) (int, bool) {
	if f.Source != "" && sess.Source != f.Source {
		return -1, false
	}
	if f.Path != "" && !pathkey.Matches(f.Path, sess.Project) && !pathkey.Matches(f.Path, pathkey.Normalize(sess.RelativePath)) {
		return -1, false
	}
	if !inRange(sess, f.Since, f.Until) {
		return -1, false
	}
	if f.Role != "" && !hasRole(sess, f.Role) {
		return -1, false
	}
	if len(terms) == 0 {
		return -1, true
	}

	text := snap.SearchText(sess.ID)
	if f.Role != "" {
		text = roleText(sess, f.Role)
	}
	if !keywordMatch(text, terms, f.Mode) {
		return -1, false
	}
	return firstHit(sess, terms, f.Role), true
}

func keywordMatch(text string, terms []string, mode Mode) bool {
	for _, t := range terms {
		found := strings.Contains(text, t)
		if mode == Or && found {
			return true
		}
		if mode == And && !found {
			return false
		}
	}
	return mode == And
}

// inRange is true when no bound is set, or when at least one message
// timestamp lies within the bounds.
func inRange(sess *parse.Session, since, until time.Time) bool {
	if since.IsZero() && until.IsZero() {
		return true
	}
	for _, m := range sess.Messages {
		ts := m.Timestamp
		if ts.IsZero() {
			continue
		}
		if !since.IsZero() && ts.Before(since) {
			continue
		}
		if !until.IsZero() && ts.After(until) {
			continue
		}
		return true
	}
	return false
}

func hasRole(sess *parse.Session, role parse.Role) bool {
	for _, m := range sess.Messages {
		if m.Role == role {
			return true
		}
	}
	return false
}

func roleText(sess *parse.Session, role parse.Role) string {
	var b strings.Builder
	for _, m := range sess.Messages {
		if m.Role != role {
			continue
		}
		b.WriteString(strings.ToLower(m.Text))
		b.WriteByte('\n')
	}
	return b.String()
}

func firstHit(sess *parse.Session, terms []string, role parse.Role) int {
	for i, m := range sess.Messages {
		if role != "" && m.Role != role {
			continue
		}
		lower := strings.ToLower(m.Text)
		for _, t := range terms {
			if strings.Contains(lower, t) {
				return i
			}
		}
	}
	return -1
}

func summarize(sess *parse.Session, terms []string, hit int) Summary {
	s := Summary{
		ID:           sess.ID,
		Source:       sess.Source,
		Project:      pathkey.Display(sess.Project, pathkey.Windows),
		ProjectSlug:  pathkey.Display(sess.Project, pathkey.Slug),
		RelativePath: sess.RelativePath,
		FilePath:     sess.FilePath,
		Summary:      sess.SummaryText(),
		FirstAt:      sess.FirstTimestamp(),
		LastAt:       sess.LastTimestamp(),
		MessageCount: len(sess.Messages),
		Partial:      sess.Partial,
		HitIndex:     hit,
	}
	if hit >= 0 {
		text := sess.Messages[hit].Text
		for _, t := range terms {
			if strings.Contains(strings.ToLower(text), t) {
				s.Snippet = makeSnippet(text, t, 30)
				break
			}
		}
	}
	return s
}
