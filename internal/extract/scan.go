package extract

// spanScanner finds balanced {...} and [...] spans in a rune sequence.
// Bracket characters inside string literals do not count; \" and \\ inside
// a string do not end it.
type spanScanner struct {
	runes   []rune
	minSpan int
	maxSpan int
	stack   []rune
}

// match returns the index of the delimiter that closes the opener at start.
// A mismatched closer, or running past maxSpan or the end of input, means
// the opener has no complete span.
func (s *spanScanner) match(start int) (int, bool) {
	s.stack = s.stack[:0]
	limit := len(s.runes)
	if s.maxSpan > 0 && start+s.maxSpan < limit {
		limit = start + s.maxSpan
	}

	inStr, esc := false, false
	for j := start; j < limit; j++ {
		c := s.runes[j]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			s.stack = append(s.stack, '}')
		case '[':
			s.stack = append(s.stack, ']')
		case '}', ']':
			if len(s.stack) == 0 || s.stack[len(s.stack)-1] != c {
				return 0, false
			}
			s.stack = s.stack[:len(s.stack)-1]
			if len(s.stack) == 0 {
				return j, true
			}
		}
	}
	return 0, false
}

// each calls accept for every complete span, left to right. When accept
// returns true scanning resumes after the span; otherwise it resumes at the
// next rune so that spans nested inside a rejected one are still found.
// It stops early once accept has returned true max times (max <= 0 means
// no limit).
func (s *spanScanner) each(max int, accept func(start, end int) bool) {
	accepted := 0
	for i := 0; i < len(s.runes); {
		c := s.runes[i]
		if c != '{' && c != '[' {
			i++
			continue
		}
		end, ok := s.match(i)
		if ok && end-i+1 >= s.minSpan && accept(i, end) {
			accepted++
			if max > 0 && accepted >= max {
				return
			}
			i = end + 1
			continue
		}
		i++
	}
}
