package extract

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "invalid"
}

// Member is one key/value pair of an Object, in source order.
type Member struct {
	Key   string
	Value Value
}

// Value is a parsed JSON value. Only the fields matching Kind are set.
// Numbers keep their literal text.
type Value struct {
	Kind    Kind
	Bool    bool
	Num     string
	Str     string
	Items   []Value
	Members []Member
}

// Get returns the first member named key of an Object.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != Object {
		return Value{}, false
	}
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// GetString returns the member named key when it is a String.
func (v Value) GetString(key string) (string, bool) {
	m, ok := v.Get(key)
	if !ok || m.Kind != String {
		return "", false
	}
	return m.Str, true
}

// Float returns a Number's value.
func (v Value) Float() (float64, bool) {
	if v.Kind != Number {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.Num, 64)
	return f, err == nil
}

// Compact renders v as minimal JSON. Two snippets with equal Compact text
// are the same record.
func (v Value) Compact() string {
	var b strings.Builder
	v.writeCompact(&b)
	return b.String()
}

func (v Value) writeCompact(b *strings.Builder) {
	switch v.Kind {
	case Null:
		b.WriteString("null")
	case Bool:
		b.WriteString(strconv.FormatBool(v.Bool))
	case Number:
		b.WriteString(v.Num)
	case String:
		writeQuoted(b, v.Str)
	case Array:
		b.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				b.WriteByte(',')
			}
			it.writeCompact(b)
		}
		b.WriteByte(']')
	case Object:
		b.WriteByte('{')
		for i, m := range v.Members {
			if i > 0 {
				b.WriteByte(',')
			}
			writeQuoted(b, m.Key)
			b.WriteByte(':')
			m.Value.writeCompact(b)
		}
		b.WriteByte('}')
	}
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r < 0x20:
			fmt.Fprintf(b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

// SyntaxError reports where a candidate stopped being valid JSON.
type SyntaxError struct {
	Pos int // rune index
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d: %s", e.Pos, e.Msg)
}

const maxDepth = 256

// Parse parses text as exactly one JSON value with optional surrounding
// whitespace. There is no repair: any deviation is an error.
func Parse(text string) (Value, error) {
	return parseRunes([]rune(text))
}

func parseRunes(s []rune) (Value, error) {
	p := &parser{s: s}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return Value{}, p.fail("trailing data")
	}
	return v, nil
}

type parser struct {
	s     []rune
	pos   int
	depth int
}

func (p *parser) fail(msg string) error {
	return &SyntaxError{Pos: p.pos, Msg: msg}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) literal(word string) bool {
	if p.pos+len(word) > len(p.s) {
		return false
	}
	for i, c := range word {
		if p.s[p.pos+i] != c {
			return false
		}
	}
	p.pos += len(word)
	return true
}

func (p *parser) value() (Value, error) {
	if p.pos >= len(p.s) {
		return Value{}, p.fail("unexpected end of input")
	}
	switch c := p.s[p.pos]; {
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '"':
		s, err := p.str()
		return Value{Kind: String, Str: s}, err
	case c == 't':
		if p.literal("true") {
			return Value{Kind: Bool, Bool: true}, nil
		}
	case c == 'f':
		if p.literal("false") {
			return Value{Kind: Bool}, nil
		}
	case c == 'n':
		if p.literal("null") {
			return Value{Kind: Null}, nil
		}
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number()
	}
	return Value{}, p.fail(fmt.Sprintf("unexpected %q", p.s[p.pos]))
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return p.fail("nesting too deep")
	}
	return nil
}

func (p *parser) object() (Value, error) {
	if err := p.enter(); err != nil {
		return Value{}, err
	}
	defer func() { p.depth-- }()

	p.pos++ // {
	v := Value{Kind: Object}
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == '}' {
		p.pos++
		return v, nil
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.s) || p.s[p.pos] != '"' {
			return Value{}, p.fail("expected object key")
		}
		key, err := p.str()
		if err != nil {
			return Value{}, err
		}
		p.skipSpace()
		if p.pos >= len(p.s) || p.s[p.pos] != ':' {
			return Value{}, p.fail("expected ':'")
		}
		p.pos++
		p.skipSpace()
		val, err := p.value()
		if err != nil {
			return Value{}, err
		}
		v.Members = append(v.Members, Member{Key: key, Value: val})
		p.skipSpace()
		if p.pos >= len(p.s) {
			return Value{}, p.fail("unterminated object")
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return v, nil
		default:
			return Value{}, p.fail("expected ',' or '}'")
		}
	}
}

func (p *parser) array() (Value, error) {
	if err := p.enter(); err != nil {
		return Value{}, err
	}
	defer func() { p.depth-- }()

	p.pos++ // [
	v := Value{Kind: Array}
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == ']' {
		p.pos++
		return v, nil
	}
	for {
		p.skipSpace()
		item, err := p.value()
		if err != nil {
			return Value{}, err
		}
		v.Items = append(v.Items, item)
		p.skipSpace()
		if p.pos >= len(p.s) {
			return Value{}, p.fail("unterminated array")
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return v, nil
		default:
			return Value{}, p.fail("expected ',' or ']'")
		}
	}
}

func (p *parser) str() (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case c == '"':
			p.pos++
			return b.String(), nil
		case c < 0x20:
			return "", p.fail("control character in string")
		case c == '\\':
			p.pos++
			if p.pos >= len(p.s) {
				return "", p.fail("unterminated escape")
			}
			switch e := p.s[p.pos]; e {
			case '"', '\\', '/':
				b.WriteRune(e)
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'u':
				r, err := p.unicodeEscape()
				if err != nil {
					return "", err
				}
				b.WriteRune(r)
				continue
			default:
				return "", p.fail(fmt.Sprintf("invalid escape %q", e))
			}
			p.pos++
		default:
			b.WriteRune(c)
			p.pos++
		}
	}
	return "", p.fail("unterminated string")
}

// unicodeEscape decodes \uXXXX with p.pos on the 'u', joining surrogate
// pairs. A lone surrogate decodes to U+FFFD.
func (p *parser) unicodeEscape() (rune, error) {
	r1, ok := p.hex4(p.pos + 1)
	if !ok {
		return 0, p.fail("invalid \\u escape")
	}
	p.pos += 5
	if !utf16.IsSurrogate(r1) {
		return r1, nil
	}
	if p.pos+1 < len(p.s) && p.s[p.pos] == '\\' && p.s[p.pos+1] == 'u' {
		if r2, ok := p.hex4(p.pos + 2); ok {
			if r := utf16.DecodeRune(r1, r2); r != utf8.RuneError {
				p.pos += 6
				return r, nil
			}
		}
	}
	return utf8.RuneError, nil
}

func (p *parser) hex4(at int) (rune, bool) {
	if at+4 > len(p.s) {
		return 0, false
	}
	var r rune
	for _, c := range p.s[at : at+4] {
		r <<= 4
		switch {
		case c >= '0' && c <= '9':
			r |= c - '0'
		case c >= 'a' && c <= 'f':
			r |= c - 'a' + 10
		case c >= 'A' && c <= 'F':
			r |= c - 'A' + 10
		default:
			return 0, false
		}
	}
	return r, true
}

func (p *parser) number() (Value, error) {
	start := p.pos
	digits := func() int {
		n := 0
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
			n++
		}
		return n
	}

	if p.s[p.pos] == '-' {
		p.pos++
	}
	if p.pos >= len(p.s) {
		return Value{}, p.fail("truncated number")
	}
	if p.s[p.pos] == '0' {
		p.pos++
	} else if digits() == 0 {
		return Value{}, p.fail("expected digit")
	}
	if p.pos < len(p.s) && p.s[p.pos] == '.' {
		p.pos++
		if digits() == 0 {
			return Value{}, p.fail("expected fraction digits")
		}
	}
	if p.pos < len(p.s) && (p.s[p.pos] == 'e' || p.s[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.s) && (p.s[p.pos] == '+' || p.s[p.pos] == '-') {
			p.pos++
		}
		if digits() == 0 {
			return Value{}, p.fail("expected exponent digits")
		}
	}
	return Value{Kind: Number, Num: string(p.s[start:p.pos])}, nil
}
