package parse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Zuo-Peng/ai-session-viewer/internal/pathkey"
	"github.com/tidwall/gjson"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB
const maxTextSize = 64 * 1024        // 64KB per message

var (
	timestampKeys = []string{"timestamp", "time", "created_at", "createdAt", "ts"}
	modelKeys     = []string{"model", "model_name", "modelName", "message.model"}
)

// ParseFile parses one structured-log file found under root.
func ParseFile(filePath, root string) (*Session, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(root, filePath)
	if err != nil {
		rel = filePath
	}

	sess, err := ParseJSONL(f, rel)
	if sess != nil {
		sess.FilePath = filePath
		sess.Mtime = info.ModTime()
		sess.Size = info.Size()
	}
	return sess, err
}

// ParseJSONL reads line-delimited JSON records into one Session.
// Lines that are not JSON objects are skipped and counted in ParseErrors.
// relPath is the file's path relative to its scan root and becomes the
// session identity.
func ParseJSONL(r io.Reader, relPath string) (*Session, error) {
	rel := filepath.ToSlash(relPath)
	sess := &Session{
		ID:           StructuredLog.IDPrefix() + ":" + strings.TrimSuffix(rel, ".jsonl"),
		Source:       StructuredLog,
		RelativePath: rel,
	}

	br := bufio.NewReaderSize(r, 64*1024)
	var buf []byte
	lineNum := 0
	for {
		raw, oversized, err := readLine(br, buf)
		buf = raw[:0]
		if len(raw) > 0 || oversized {
			lineNum++
			if oversized {
				sess.ParseErrors++
			} else {
				sess.addLine(bytes.TrimSpace(raw), lineNum)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			sess.Project = projectKey(sess.Cwd, rel)
			return sess, err
		}
	}

	sess.Project = projectKey(sess.Cwd, rel)
	return sess, nil
}

// readLine reads up to and including the next newline into buf. A line
// longer than maxLineSize is consumed but not kept and reported as
// oversized, so the lines after it are still read.
func readLine(br *bufio.Reader, buf []byte) (line []byte, oversized bool, err error) {
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversized {
			if len(buf)+len(chunk) > maxLineSize+1 {
				oversized = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return buf, oversized, err
	}
}

func (sess *Session) addLine(line []byte, lineNum int) {
	if len(line) == 0 {
		return
	}
	if !gjson.ValidBytes(line) || !gjson.ParseBytes(line).IsObject() {
		sess.ParseErrors++
		return
	}

	ts := probeTimestamp(line)
	if sess.Model == "" {
		sess.Model = probeString(line, modelKeys...)
	}
	if sess.Cwd == "" {
		sess.Cwd = gjson.GetBytes(line, "cwd").Str
	}

	var rec lineRecord
	switch {
	case gjson.GetBytes(line, "payload").Exists():
		rec = decodeCodexLine(line)
	case isClaudeType(gjson.GetBytes(line, "type").Str):
		rec = decodeClaudeLine(line)
	default:
		rec = decodeGenericLine(line)
	}
	if rec.malformed {
		sess.ParseErrors++
		return
	}
	if rec.cwd != "" && sess.Cwd == "" {
		sess.Cwd = rec.cwd
	}
	if rec.summary != "" {
		sess.Summary = Truncate(rec.summary, 200)
	}

	for _, m := range rec.messages {
		if m.Text == "" {
			continue
		}
		m.Text = cutBytes(m.Text, maxTextSize)
		m.Timestamp = ts
		m.Provenance = Parsed
		m.Line = lineNum
		m.Offset = -1
		sess.Messages = append(sess.Messages, m)
	}
}

// lineRecord is what one dialect decoder recovers from a line.
type lineRecord struct {
	messages  []Message
	cwd       string
	summary   string
	malformed bool
}

// projectKey prefers the recorded cwd, falling back to the project slug
// directory that holds the session file.
func projectKey(cwd, rel string) pathkey.Key {
	if strings.TrimSpace(cwd) != "" {
		return pathkey.Normalize(cwd)
	}
	if i := strings.IndexByte(rel, '/'); i > 0 {
		return pathkey.Normalize(rel[:i])
	}
	return pathkey.Normalize("")
}

func probeString(line []byte, keys ...string) string {
	for _, r := range gjson.GetManyBytes(line, keys...) {
		if r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

func probeTimestamp(line []byte) time.Time {
	for _, r := range gjson.GetManyBytes(line, timestampKeys...) {
		var ts time.Time
		switch r.Type {
		case gjson.Number:
			ts = EpochTime(r.Num)
		case gjson.String:
			ts = ParseTime(r.Str)
		}
		if !ts.IsZero() {
			return ts
		}
	}
	return time.Time{}
}

// EpochTime converts epoch seconds, or milliseconds when n > 1e12, to UTC.
func EpochTime(n float64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	if n > 1_000_000_000_000 {
		return time.UnixMilli(int64(n)).UTC()
	}
	sec := int64(n)
	return time.Unix(sec, int64((n-float64(sec))*1e9)).UTC()
}

// ParseTime accepts RFC3339, RFC3339Nano, zone-less ISO 8601 and
// 10 to 16 digit epoch strings. Unrecognized input yields the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if len(s) >= 10 && len(s) <= 16 && isDigits(s) {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}
		}
		return EpochTime(n)
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// decodeGenericLine handles objects that follow neither known dialect.
// A role-like and a text-like field make a message; anything else is kept
// as an event holding the compacted record.
func decodeGenericLine(line []byte) lineRecord {
	role := probeString(line, "message.role", "role", "sender", "author")
	text := probeString(line, "text", "content", "message.content", "prompt", "message")
	if strings.TrimSpace(text) == "" {
		return lineRecord{messages: []Message{{
			Role: ParseRole(role),
			Text: compactJSON(line, 1000),
			Kind: KindEvent,
		}}}
	}
	return lineRecord{messages: []Message{{
		Role: ParseRole(role),
		Text: strings.TrimSpace(text),
		Kind: KindText,
	}}}
}

func compactJSON(raw []byte, max int) string {
	return cutBytes(string(raw), max)
}

// cutBytes shortens s to at most max bytes without splitting a rune.
func cutBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func labelled(label string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.TrimSpace(fmt.Sprintf("[%s] %s", label, strings.Join(kept, " ")))
}
