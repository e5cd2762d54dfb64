package extract

import (
	"strings"
	"time"

	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
)

// Snippet is one accepted candidate: a complete span that parsed as JSON.
type Snippet struct {
	Value  Value
	Text   string // span text as decoded in View
	Offset int64  // absolute byte offset of the opening delimiter
	End    int64  // absolute byte offset just past the closing delimiter
	View   ViewKind
}

// Width is the span's size in bytes.
func (s Snippet) Width() int64 { return s.End - s.Offset }

// Policy turns an accepted snippet into a message. Returning false drops
// the snippet. Provenance, Kind and Offset are set by the extractor and
// need not be filled in.
type Policy func(Snippet) (parse.Message, bool)

var (
	textKeys = []string{"text", "content", "message", "prompt", "output", "input", "value", "body"}
	skipKeys = map[string]bool{
		"type": true, "id": true, "uuid": true, "role": true, "sender": true, "author": true,
		"version": true, "updatedAt": true, "createdAt": true, "created_at": true,
		"timestamp": true, "time": true, "ts": true, "model": true, "cwd": true,
	}
	roleKeys      = []string{"role", "sender", "author"}
	tsKeys        = []string{"timestamp", "time", "created_at", "createdAt", "ts"}
	projectKeys   = []string{"cwd", "projectPath", "project"}
	userTypes     = map[string]bool{"user": true, "human": true, "human_message": true}
	assistantType = map[string]bool{"assistant": true, "assistant_message": true}
)

// DefaultPolicy reads message-shaped keys: a role from message.role, role,
// sender, author or type, and text gathered recursively from text-like
// keys. A snippet with neither becomes an unknown-role message holding the
// raw snippet text. A snippet with message keys but no text is dropped.
func DefaultPolicy(s Snippet) (parse.Message, bool) {
	role, hasRole := guessRole(s.Value)
	hasText := false
	for _, k := range textKeys {
		if _, ok := s.Value.Get(k); ok {
			hasText = true
			break
		}
	}

	if !hasRole && !hasText {
		return parse.Message{
			Role:      parse.RoleUnknown,
			Text:      s.Text,
			Timestamp: snippetTime(s.Value),
		}, true
	}

	text := strings.TrimSpace(strings.Join(collectText(s.Value, 0), "\n"))
	if text == "" {
		return parse.Message{}, false
	}
	return parse.Message{
		Role:      role,
		Text:      text,
		Timestamp: snippetTime(s.Value),
	}, true
}

func guessRole(v Value) (parse.Role, bool) {
	if v.Kind != Object {
		return parse.RoleUnknown, false
	}
	if msg, ok := v.Get("message"); ok {
		if r, ok := msg.GetString("role"); ok {
			return parse.ParseRole(r), true
		}
	}
	for _, k := range roleKeys {
		if r, ok := v.GetString(k); ok {
			return parse.ParseRole(r), true
		}
	}
	if t, ok := v.GetString("type"); ok {
		low := strings.ToLower(t)
		switch {
		case userTypes[low]:
			return parse.RoleUser, true
		case assistantType[low]:
			return parse.RoleAssistant, true
		}
	}
	return parse.RoleUnknown, false
}

// collectText walks v, taking text-like keys first and then every other
// key that is not metadata.
func collectText(v Value, depth int) []string {
	if depth > maxDepth {
		return nil
	}
	switch v.Kind {
	case String:
		if s := strings.TrimSpace(v.Str); s != "" {
			return []string{s}
		}
	case Array:
		var out []string
		for _, it := range v.Items {
			out = append(out, collectText(it, depth+1)...)
		}
		return out
	case Object:
		var out []string
		for _, k := range textKeys {
			if c, ok := v.Get(k); ok {
				out = append(out, collectText(c, depth+1)...)
			}
		}
		for _, m := range v.Members {
			if skipKeys[m.Key] || isTextKey(m.Key) {
				continue
			}
			out = append(out, collectText(m.Value, depth+1)...)
		}
		return out
	}
	return nil
}

func isTextKey(k string) bool {
	for _, t := range textKeys {
		if t == k {
			return true
		}
	}
	return false
}

func snippetTime(v Value) time.Time {
	for _, k := range tsKeys {
		c, ok := v.Get(k)
		if !ok {
			continue
		}
		var ts time.Time
		switch c.Kind {
		case String:
			ts = parse.ParseTime(c.Str)
		case Number:
			if f, ok := c.Float(); ok {
				ts = parse.EpochTime(f)
			}
		}
		if !ts.IsZero() {
			return ts
		}
	}
	return time.Time{}
}

// projectHint returns the first working-directory-like string in v.
func projectHint(v Value) string {
	for _, k := range projectKeys {
		if s, ok := v.GetString(k); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
