// Package pathkey canonicalizes project paths written as Windows paths,
// slash paths, or Claude project slugs into one comparable key.
//
// Every '-', '/' and '\' is a separator. A slug cannot tell a hyphen inside a
// directory name from a separator, so hyphens split segments in every input
// form; "C:\my-app" and "C--my-app" both normalize to C, [my app].
package pathkey

import (
	"strings"
)

// Style selects how a key is rendered by Display.
type Style int

const (
	Windows Style = iota // C:\a\b
	Slash                // C:/a/b
	Slug                 // C--a-b
)

// PosixRoot is the root token of absolute paths without a drive.
const PosixRoot = "/"

// Key is a canonical path: a root token plus ordered segments.
// Root is an upper-case drive letter, PosixRoot, or empty for relative paths.
// A Verbatim key holds unrecognized input as its only segment.
type Key struct {
	Root     string
	Segments []string
	Verbatim bool
}

func isSep(c byte) bool {
	return c == '-' || c == '/' || c == '\\'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func splitSegments(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '/' || r == '\\'
	})
	if len(parts) == 0 {
		return nil
	}
	return parts
}

// Normalize parses raw in any supported form. It never fails; input without
// drive or segment structure comes back as a Verbatim key.
func Normalize(raw string) Key {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Key{Segments: []string{s}, Verbatim: true}
	}

	// drive forms: "C:\..", "C:/..", "C:" and the slug "C--.."
	if len(s) >= 2 && isLetter(s[0]) && s[1] == ':' {
		return Key{Root: strings.ToUpper(s[:1]), Segments: splitSegments(s[2:])}
	}
	if len(s) >= 3 && isLetter(s[0]) && s[1] == '-' && s[2] == '-' {
		return Key{Root: strings.ToUpper(s[:1]), Segments: splitSegments(s[3:])}
	}

	if isSep(s[0]) {
		segs := splitSegments(s)
		// /mnt/c/.. and -mnt-c-.. are WSL views of a Windows drive
		if len(segs) >= 2 && strings.EqualFold(segs[0], "mnt") && len(segs[1]) == 1 && isLetter(segs[1][0]) {
			return Key{Root: strings.ToUpper(segs[1]), Segments: nilIfEmpty(segs[2:])}
		}
		return Key{Root: PosixRoot, Segments: segs}
	}

	if !strings.ContainsAny(s, `-/\`) {
		return Key{Segments: []string{s}, Verbatim: true}
	}
	return Key{Segments: splitSegments(s)}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// IsDrive reports whether the key is rooted at a drive letter.
func (k Key) IsDrive() bool {
	return len(k.Root) == 1 && isLetter(k.Root[0])
}

// String returns the canonical lower-case form used for matching:
// "c:/a/b", "/a/b" or "a/b".
func (k Key) String() string {
	if k.Verbatim {
		return strings.ToLower(strings.Join(k.Segments, ""))
	}
	tail := strings.ToLower(strings.Join(k.Segments, "/"))
	switch {
	case k.IsDrive():
		return strings.ToLower(k.Root) + ":/" + tail
	case k.Root == PosixRoot:
		return "/" + tail
	default:
		return tail
	}
}

// Equal reports whether two keys denote the same canonical path.
func (k Key) Equal(o Key) bool {
	return k.Verbatim == o.Verbatim && k.String() == o.String()
}

// Display renders the key in the given style.
func Display(k Key, style Style) string {
	if k.Verbatim {
		return strings.Join(k.Segments, "")
	}
	var sep, rootSep string
	switch style {
	case Slash:
		sep, rootSep = "/", ":/"
	case Slug:
		sep, rootSep = "-", "--"
	default:
		sep, rootSep = `\`, `:\`
	}
	tail := strings.Join(k.Segments, sep)
	switch {
	case k.IsDrive():
		return k.Root + rootSep + tail
	case k.Root == PosixRoot:
		return sep + tail
	default:
		return tail
	}
}

// Matches reports whether fragment occurs in key, ignoring separator style
// and case. An empty fragment matches every key.
func Matches(fragment string, key Key) bool {
	f := canonicalFragment(fragment)
	if f == "" {
		return true
	}
	return strings.Contains(key.String(), f)
}

func canonicalFragment(fragment string) string {
	s := strings.TrimSpace(fragment)
	if s == "" {
		return ""
	}
	if len(s) >= 2 && isLetter(s[0]) && (s[1] == ':' || (len(s) >= 3 && s[1] == '-' && s[2] == '-')) {
		k := Normalize(s)
		if len(k.Segments) == 0 {
			return strings.ToLower(k.Root) + ":/"
		}
		return k.String()
	}
	return strings.ToLower(strings.Join(splitSegments(s), "/"))
}
