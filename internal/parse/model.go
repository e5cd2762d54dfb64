package parse

import (
	"strings"
	"time"

	"github.com/Zuo-Peng/ai-session-viewer/internal/pathkey"
)

type SourceKind string

const (
	StructuredLog SourceKind = "structured"
	BinaryStore   SourceKind = "binary"
)

// IDPrefix is the session id prefix for each source kind.
func (k SourceKind) IDPrefix() string {
	if k == BinaryStore {
		return "desktop"
	}
	return "cli"
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleUnknown   Role = "unknown"
)

// ParseRole maps the role spellings seen in session data onto Role.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "human":
		return RoleUser
	case "assistant", "claude", "ai":
		return RoleAssistant
	default:
		return RoleUnknown
	}
}

type Provenance string

const (
	Parsed    Provenance = "parsed"
	Extracted Provenance = "extracted"
)

// Message kinds.
const (
	KindText     = "text"
	KindThinking = "thinking"
	KindTool     = "tool"
	KindEvent    = "event"
	KindSnippet  = "snippet"
)

type Message struct {
	Role       Role
	Text       string
	Timestamp  time.Time // zero when the record carried none
	Provenance Provenance
	Kind       string
	Line       int   // 1-based source line, parsed messages only
	Offset     int64 // byte offset of the accepted span, extracted messages only; -1 otherwise
}

type Session struct {
	ID           string
	Source       SourceKind
	Project      pathkey.Key
	RelativePath string
	FilePath     string
	Cwd          string // raw working directory when the source recorded one
	Model        string
	Summary      string
	Messages     []Message
	Partial      bool // binary file was sampled, not fully read
	ParseErrors  int
	Mtime        time.Time
	Size         int64
}

// FirstTimestamp returns the earliest message timestamp, or zero.
func (s *Session) FirstTimestamp() time.Time {
	var first time.Time
	for _, m := range s.Messages {
		if m.Timestamp.IsZero() {
			continue
		}
		if first.IsZero() || m.Timestamp.Before(first) {
			first = m.Timestamp
		}
	}
	return first
}

// LastTimestamp returns the latest message timestamp, or zero.
func (s *Session) LastTimestamp() time.Time {
	var last time.Time
	for _, m := range s.Messages {
		if m.Timestamp.After(last) {
			last = m.Timestamp
		}
	}
	return last
}

// SummaryText prefers a recorded summary, then the first user message,
// then the first message of any role.
func (s *Session) SummaryText() string {
	if s.Summary != "" {
		return s.Summary
	}
	for _, m := range s.Messages {
		if m.Role == RoleUser && m.Kind == KindText {
			return Truncate(m.Text, 200)
		}
	}
	if len(s.Messages) > 0 {
		return Truncate(s.Messages[0].Text, 200)
	}
	return ""
}

// Truncate flattens newlines and cuts s to at most n runes.
func Truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
