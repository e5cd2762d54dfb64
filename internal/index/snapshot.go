package index

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
)

// Snapshot is one immutable generation of the index. Nothing in it is
// modified after it has been published by Rebuild.
type Snapshot struct {
	Generation uint64
	BuiltAt    time.Time
	Stats      Stats

	sessions map[string]*parse.Session
	order    []string          // ids, ascending
	text     map[string]string // lower-cased concatenated message text
}

// NewSnapshot assembles a snapshot from finished sessions. Rebuild uses it
// to publish each generation.
func NewSnapshot(gen uint64, sessions []*parse.Session, stats Stats) *Snapshot {
	s := &Snapshot{
		Generation: gen,
		BuiltAt:    time.Now(),
		Stats:      stats,
		sessions:   make(map[string]*parse.Session, len(sessions)),
		order:      make([]string, 0, len(sessions)),
		text:       make(map[string]string, len(sessions)),
	}
	for _, sess := range sessions {
		s.sessions[sess.ID] = sess
		s.order = append(s.order, sess.ID)
		s.text[sess.ID] = searchText(sess.Messages)
	}
	sort.Strings(s.order)
	s.Stats.Sessions = len(s.order)
	return s
}

func searchText(msgs []parse.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.ToLower(m.Text))
	}
	return b.String()
}

func (s *Snapshot) Get(id string) (*parse.Session, bool) {
	sess, ok := s.sessions[id]
	return sess, ok
}

// All returns the sessions in id order.
func (s *Snapshot) All() []*parse.Session {
	out := make([]*parse.Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id])
	}
	return out
}

func (s *Snapshot) Len() int { return len(s.order) }

// SearchText is the lower-cased text of every message of session id,
// newline separated.
func (s *Snapshot) SearchText(id string) string { return s.text[id] }

type Stats struct {
	Scanned            int // files discovered
	Parsed             int // files parsed this rebuild
	Cached             int // files reused from the parse cache
	Skipped            int // files left unscanned by the time budget
	Errors             int // files that could not be read
	MalformedLines     int
	UnparsableSegments int
	Partial            int // binary sessions built from sampled windows
	Sessions           int
	Duration           time.Duration
	Warnings           []error
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d parsed=%d cached=%d skipped=%d errors=%d malformed=%d unparsable=%d partial=%d sessions=%d",
		s.Scanned, s.Parsed, s.Cached, s.Skipped, s.Errors, s.MalformedLines, s.UnparsableSegments, s.Partial, s.Sessions)
}
