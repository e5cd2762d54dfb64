package search

import (
	"strings"
	"unicode"
)

// makeSnippet extracts a snippet around the first case-insensitive
// occurrence of query in text, marking the match with >>> and <<<.
func makeSnippet(text, query string, contextChars int) string {
	runes := []rune(strings.ReplaceAll(text, "\n", " "))
	q := []rune(strings.ToLower(query))
	pos := indexFold(runes, q)
	if pos < 0 {
		// no match, return head
		if len(runes) > contextChars*2 {
			return string(runes[:contextChars*2]) + "..."
		}
		return string(runes)
	}

	start := pos - contextChars
	if start < 0 {
		start = 0
	}
	end := pos + len(q) + contextChars
	if end > len(runes) {
		end = len(runes)
	}
	prefix := ""
	suffix := ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	return prefix + string(runes[start:pos]) +
		">>>" + string(runes[pos:pos+len(q)]) + "<<<" +
		string(runes[pos+len(q):end]) + suffix
}

func indexFold(runes, q []rune) int {
	if len(q) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(q) <= len(runes); i++ {
		for j, r := range q {
			if unicode.ToLower(runes[i+j]) != r {
				continue outer
			}
		}
		return i
	}
	return -1
}
