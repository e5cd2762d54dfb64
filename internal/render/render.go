package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
	"github.com/Zuo-Peng/ai-session-viewer/internal/pathkey"
)

const (
	colorReset   = "\033[0m"
	colorUser    = "\033[1;34m" // bold blue
	colorAssist  = "\033[1;32m" // bold green
	colorThink   = "\033[2;35m" // dim magenta for thinking
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

// BinaryNotice heads every transcript recovered from a binary store.
const BinaryNotice = "Recovered by snippet extraction from a binary store; this is not a full reconstruction of the conversation."

type Options struct {
	Hit      int    // message index to center on, -1 for none
	Context  int    // messages before/after hit to show; 0 = 10, < 0 = all
	Width    int    // wrap width (0 = no wrap)
	Query    string // terms to highlight
	OnlyUser bool   // drop every message that is not from the user
	Reverse  bool   // newest message first
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	for _, term := range strings.Fields(query) {
		lower := strings.ToLower(term)
		var b strings.Builder
		rest := text
		for {
			idx := indexFold(rest, lower)
			if idx < 0 {
				b.WriteString(rest)
				break
			}
			end := idx + len(lower)
			b.WriteString(rest[:idx])
			b.WriteString(colorBoldRed + rest[idx:end] + colorReset)
			rest = rest[end:]
		}
		text = b.String()
	}
	return text
}

// indexFold finds lower in s ignoring ASCII and simple Unicode case. The
// returned index is a byte offset into s; matches whose lower-cased form
// changes byte length are not reported.
func indexFold(s, lower string) int {
	if lower == "" {
		return -1
	}
	for i := 0; i+len(lower) <= len(s); {
		if strings.EqualFold(s[i:i+len(lower)], lower) {
			return i
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}

func roleLabel(m parse.Message) (label, color string) {
	switch {
	case m.Role == parse.RoleUser:
		return "USER", colorUser
	case m.Role == parse.RoleAssistant && m.Kind == parse.KindThinking:
		return "THINK", colorThink
	case m.Role == parse.RoleAssistant:
		return "ASST", colorAssist
	default:
		return "????", colorDim
	}
}

// view applies the presentation policies and returns the visible messages
// with their original indexes.
func view(sess *parse.Session, opts Options) ([]parse.Message, []int) {
	var msgs []parse.Message
	var idx []int
	for i, m := range sess.Messages {
		if opts.OnlyUser && m.Role != parse.RoleUser {
			continue
		}
		msgs = append(msgs, m)
		idx = append(idx, i)
	}
	if opts.Reverse {
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
			idx[i], idx[j] = idx[j], idx[i]
		}
	}
	return msgs, idx
}

// Session renders a transcript and returns the content and the 0-based line
// number of the hit message header (-1 if no hit).
func Session(sess *parse.Session, opts Options) (string, int) {
	if opts.Context == 0 {
		opts.Context = 10
	}
	if opts.Context < 0 {
		opts.Context = 1000000 // no limit
	}

	msgs, orig := view(sess, opts)

	hitPos := -1
	for i, o := range orig {
		if o == opts.Hit {
			hitPos = i
		}
	}
	start, end := 0, len(msgs)
	if hitPos >= 0 {
		start = max(0, hitPos-opts.Context)
		end = min(len(msgs), hitPos+opts.Context+1)
	}

	var b strings.Builder
	hitLine := -1
	lineCount := 0
	separator := colorDim + "--------------------------------------------------" + colorReset

	// helper to track line count; wraps long lines if Width is set
	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
			lineCount++
		}
	}

	// header
	writeLine(fmt.Sprintf("%s--- %s [%s] %s ---%s", colorDim, sess.ID, sess.Source, pathkey.Display(sess.Project, pathkey.Windows), colorReset))
	if sess.Source == parse.BinaryStore {
		note := BinaryNotice
		if sess.Partial {
			note += " The file was sampled (head and tail only)."
		}
		writeLine(colorDim + note + colorReset)
	}
	if len(msgs) == 0 {
		writeLine("(empty session)")
		return b.String(), -1
	}

	if start > 0 {
		writeLine(fmt.Sprintf("%s... (%d messages before) ...%s", colorDim, start, colorReset))
	}

	for i := start; i < end; i++ {
		m := msgs[i]
		isHit := i == hitPos

		// separator between messages
		if i > start {
			writeLine(separator)
		}
		if isHit {
			hitLine = lineCount
		}

		label, color := roleLabel(m)
		meta := ""
		if !m.Timestamp.IsZero() {
			meta = m.Timestamp.Local().Format("2006-01-02 15:04:05")
		}
		if m.Provenance == parse.Extracted {
			meta = strings.TrimSpace(fmt.Sprintf("%s [extracted @%d]", meta, m.Offset))
		}

		if isHit {
			writeLine(fmt.Sprintf("%s>> %s > %s <<%s", colorHit, label, meta, colorReset))
		} else {
			writeLine(fmt.Sprintf("%s%s >%s %s%s%s", color, label, colorReset, colorDim, meta, colorReset))
		}

		text := m.Text
		if m.Kind == parse.KindThinking {
			text = colorDim + text + colorReset
		}
		text = highlightKeywords(text, opts.Query)
		for _, tl := range strings.Split(indentLines(text, "  "), "\n") {
			writeLine(tl)
		}
		writeLine("") // blank line after message
	}

	if after := len(msgs) - end; after > 0 {
		writeLine(fmt.Sprintf("%s... (%d messages after) ...%s", colorDim, after, colorReset))
	}

	return b.String(), hitLine
}
