package search

import (
	"strings"
	"time"

	aerrors "github.com/Zuo-Peng/ai-session-viewer/internal/errors"
	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
)

// ParseTerms splits a query on whitespace.
func ParseTerms(query string) []string {
	return strings.Fields(query)
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "and":
		return And, nil
	case "or":
		return Or, nil
	}
	return And, aerrors.NewInvalidRequest("mode must be and or or, got " + s)
}

// ParseSource accepts the source kind names and the cli/desktop id prefixes.
func ParseSource(s string) (parse.SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return "", nil
	case "structured", "cli", "claude_cli":
		return parse.StructuredLog, nil
	case "binary", "desktop", "claude_desktop":
		return parse.BinaryStore, nil
	}
	return "", aerrors.NewInvalidRequest("unknown source " + s)
}

func ParseRole(s string) (parse.Role, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return "", nil
	}
	r := parse.ParseRole(s)
	if r == parse.RoleUnknown && !strings.EqualFold(s, "unknown") {
		return "", aerrors.NewInvalidRequest("unknown role " + s)
	}
	return r, nil
}

const dateOnly = "2006-01-02"

// ParseDate reads an RFC3339 time or a YYYY-MM-DD date in UTC. With
// endOfDay set a bare date means the last instant of that day, so that an
// upper bound of "2026-02-11" includes the whole day.
func ParseDate(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		if endOfDay {
			return t.Add(24*time.Hour - time.Nanosecond), nil
		}
		return t, nil
	}
	if t := parse.ParseTime(s); !t.IsZero() {
		return t, nil
	}
	return time.Time{}, aerrors.NewInvalidRequest("invalid date " + s + ", want YYYY-MM-DD or RFC3339")
}
