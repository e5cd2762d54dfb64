package extract

import (
	"sort"
	"strings"

	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
)

const maxRunRunes = 300

// store housekeeping strings that are never conversation text
var runMarkers = []string{"IndexedDB", "LEVELDB", "leveldb"}

func readable(r rune) bool {
	return (r >= 0x20 && r <= 0x7E) ||
		(r >= 0x3040 && r <= 0x30FF) || // kana
		(r >= 0x4E00 && r <= 0x9FFF) // CJK
}

// readableRuns returns runs of at least min printable runes as unknown-role
// messages, in offset order. Long runs are cut every maxRunRunes.
func readableRuns(windows []Window, min, limit int) []parse.Message {
	seen := make(map[string]bool)
	var out []parse.Message

	emit := func(v *View, start, end int) {
		text := strings.TrimSpace(string(v.Runes[start:end]))
		if len([]rune(text)) < min {
			return
		}
		for _, m := range runMarkers {
			if strings.Contains(text, m) {
				return
			}
		}
		key := text
		if r := []rune(text); len(r) > 160 {
			key = string(r[:160])
		}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, parse.Message{
			Role:       parse.RoleUnknown,
			Text:       text,
			Provenance: parse.Extracted,
			Kind:       parse.KindSnippet,
			Offset:     v.Offsets[start],
		})
	}

	for _, w := range windows {
		for _, v := range Views(w.Data, w.Offset) {
			start := -1
			for i, r := range v.Runes {
				switch {
				case readable(r) && start < 0:
					start = i
				case readable(r) && i-start >= maxRunRunes:
					emit(&v, start, i)
					start = i
				case !readable(r) && start >= 0:
					emit(&v, start, i)
					start = -1
				}
			}
			if start >= 0 {
				emit(&v, start, len(v.Runes))
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

