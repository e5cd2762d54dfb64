package extract

import (
	"unicode/utf16"
	"unicode/utf8"
)

type ViewKind string

const (
	View8  ViewKind = "utf8"
	View16 ViewKind = "utf16le"
)

// View is one decoded reading of a byte buffer. Offsets[i] is the absolute
// byte offset at which Runes[i] was decoded.
type View struct {
	Kind    ViewKind
	Runes   []rune
	Offsets []int64
}

// End returns the byte offset just past rune i.
func (v *View) End(i int) int64 {
	r := v.Runes[i]
	if v.Kind == View16 {
		if r > 0xFFFF {
			return v.Offsets[i] + 4
		}
		return v.Offsets[i] + 2
	}
	return v.Offsets[i] + int64(utf8.RuneLen(r))
}

// Decode8 reads buf as UTF-8. An invalid byte is dropped and decoding
// resumes at the next byte.
func Decode8(buf []byte, base int64) View {
	v := View{Kind: View8, Runes: make([]rune, 0, len(buf)), Offsets: make([]int64, 0, len(buf))}
	for i := 0; i < len(buf); {
		r, size := utf8.DecodeRune(buf[i:])
		if r == utf8.RuneError && size <= 1 {
			i++
			continue
		}
		v.Runes = append(v.Runes, r)
		v.Offsets = append(v.Offsets, base+int64(i))
		i += size
	}
	return v
}

// Decode16 reads buf as little-endian UTF-16 starting at byte phase 0 or 1.
// A lone surrogate is dropped and decoding resumes at the next unit of the
// same phase; text at the other phase is the other view's job.
func Decode16(buf []byte, base int64, phase int) View {
	n := (len(buf) - phase) / 2
	if n < 0 {
		n = 0
	}
	v := View{Kind: View16, Runes: make([]rune, 0, n), Offsets: make([]int64, 0, n)}
	unit := func(i int) rune { return rune(uint16(buf[i]) | uint16(buf[i+1])<<8) }

	for i := phase; i+1 < len(buf); {
		u := unit(i)
		switch {
		case utf16.IsSurrogate(u) && u < 0xDC00 && i+3 < len(buf):
			r := utf16.DecodeRune(u, unit(i+2))
			if r == utf8.RuneError {
				i += 2
				continue
			}
			v.Runes = append(v.Runes, r)
			v.Offsets = append(v.Offsets, base+int64(i))
			i += 4
		case utf16.IsSurrogate(u):
			i += 2
		default:
			v.Runes = append(v.Runes, u)
			v.Offsets = append(v.Offsets, base+int64(i))
			i += 2
		}
	}
	return v
}

// Views returns every decoded reading of buf: UTF-8, then UTF-16LE at both
// byte phases, since embedded UTF-16 text may start at an odd offset.
func Views(buf []byte, base int64) []View {
	return []View{
		Decode8(buf, base),
		Decode16(buf, base, 0),
		Decode16(buf, base, 1),
	}
}
