package normalize

import (
	"strings"
	"unicode/utf8"
)

// Sanitize strips bytes that must never reach the classifier or the
// database: NUL, ASCII controls other than tab newline and CR, DEL, the
// C1 control block U+0080..U+009F, and invalid UTF-8 sequences. A query
// that is already clean comes back unchanged without allocating
func Sanitize(s string) string {
	i := firstDirty(s)
	if i < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(s[:i])
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			i++ // invalid byte, drop it
			continue
		}
		if keepRune(r) {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// firstDirty returns the byte offset of the first rune Sanitize would
// drop, or -1 when the string needs no cleaning
func firstDirty(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		if !keepRune(r) {
			return i
		}
		i += size
	}
	return -1
}

func keepRune(r rune) bool {
	switch {
	case r == '\n' || r == '\r' || r == '\t':
		return true
	case r < 0x20:
		return false
	case r == 0x7F:
		return false
	case r >= 0x80 && r <= 0x9F:
		return false
	}
	return true
}
