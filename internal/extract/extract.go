// Package extract recovers JSON-shaped message fragments from opaque binary
// buffers such as LevelDB tables written by desktop chat clients.
//
// Each buffer is decoded twice, as UTF-8 and as UTF-16LE, and every decoded
// view is scanned for balanced {...} and [...] spans. A span is kept only if
// it parses completely as JSON. Accepted spans from all views are merged,
// deduplicated, ordered by byte offset, and handed to a Policy that decides
// what message, if any, each one represents.
package extract

import (
	"sort"

	"github.com/Zuo-Peng/ai-session-viewer/internal/parse"
)

type Options struct {
	MinSpanRunes int  // shorter spans are ignored
	MaxSpanRunes int  // an opener unmatched within this many runes is abandoned
	MaxSnippets  int  // accepted snippets kept per buffer
	Fallback     bool // emit readable text runs when no snippet is accepted
}

func DefaultOptions() Options {
	return Options{
		MinSpanRunes: 24,
		MaxSpanRunes: 200_000,
		MaxSnippets:  4000,
	}
}

// Window is a slice of a file together with its absolute offset.
type Window struct {
	Offset int64
	Data   []byte
}

type Result struct {
	Messages    []parse.Message
	Snippets    []Snippet // accepted, deduplicated, offset order
	Rejected    int       // complete spans that failed to parse
	ProjectHint string
}

type Extractor struct {
	opts   Options
	policy Policy
}

// New returns an Extractor. Zero option fields take their defaults and a
// nil policy means DefaultPolicy.
func New(opts Options, policy Policy) *Extractor {
	def := DefaultOptions()
	if opts.MinSpanRunes <= 0 {
		opts.MinSpanRunes = def.MinSpanRunes
	}
	if opts.MaxSpanRunes <= 0 {
		opts.MaxSpanRunes = def.MaxSpanRunes
	}
	if opts.MaxSnippets <= 0 {
		opts.MaxSnippets = def.MaxSnippets
	}
	if policy == nil {
		policy = DefaultPolicy
	}
	return &Extractor{opts: opts, policy: policy}
}

// Extract scans a whole buffer that starts at file offset 0.
func (e *Extractor) Extract(buf []byte) Result {
	return e.ExtractWindows([]Window{{Offset: 0, Data: buf}})
}

// ExtractWindows scans each window independently and merges the results.
// Nothing in a buffer is fatal: spans that do not parse are counted in
// Rejected and skipped.
func (e *Extractor) ExtractWindows(windows []Window) Result {
	var res Result
	best := make(map[string]Snippet)

	for _, w := range windows {
		for _, v := range Views(w.Data, w.Offset) {
			res.Rejected += e.scanView(&v, best)
		}
	}

	snips := make([]Snippet, 0, len(best))
	for _, s := range best {
		snips = append(snips, s)
	}
	sort.Slice(snips, func(i, j int) bool {
		if snips[i].Offset != snips[j].Offset {
			return snips[i].Offset < snips[j].Offset
		}
		return snips[i].End > snips[j].End
	})
	if len(snips) > e.opts.MaxSnippets {
		snips = snips[:e.opts.MaxSnippets]
	}
	res.Snippets = snips

	for _, s := range snips {
		if res.ProjectHint == "" {
			res.ProjectHint = projectHint(s.Value)
		}
		msg, ok := e.policy(s)
		if !ok {
			continue
		}
		msg.Provenance = parse.Extracted
		msg.Kind = parse.KindSnippet
		msg.Offset = s.Offset
		msg.Line = 0
		res.Messages = append(res.Messages, msg)
	}

	if len(snips) == 0 && e.opts.Fallback {
		res.Messages = readableRuns(windows, e.opts.MinSpanRunes, e.opts.MaxSnippets)
	}
	return res
}

// scanView adds the view's accepted spans to best, keyed by compact text.
// Of two spans with the same content the wider one wins, then the earlier.
func (e *Extractor) scanView(v *View, best map[string]Snippet) (rejected int) {
	sc := &spanScanner{runes: v.Runes, minSpan: e.opts.MinSpanRunes, maxSpan: e.opts.MaxSpanRunes}
	sc.each(e.opts.MaxSnippets, func(start, end int) bool {
		val, err := parseRunes(v.Runes[start : end+1])
		if err != nil {
			if !interleaved(v.Runes[start+1 : end]) {
				rejected++
			}
			return false
		}
		s := Snippet{
			Value:  val,
			Text:   string(v.Runes[start : end+1]),
			Offset: v.Offsets[start],
			End:    v.End(end),
			View:   v.Kind,
		}
		key := val.Compact()
		if prev, ok := best[key]; !ok || wider(s, prev) {
			best[key] = s
		}
		return true
	})
	return rejected
}

// interleaved reports whether the first non-blank rune inside a span is a
// control character. That is how UTF-16 text reads in the UTF-8 view, and
// such a span is the other view's to accept, not a rejection.
func interleaved(inner []rune) bool {
	for _, r := range inner {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return r < 0x20
	}
	return false
}

func wider(a, b Snippet) bool {
	if a.Width() != b.Width() {
		return a.Width() > b.Width()
	}
	return a.Offset < b.Offset
}
