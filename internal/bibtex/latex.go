package bibtex

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// accentMarks maps LaTeX accent commands to Unicode combining marks.
var accentMarks = map[byte]rune{
	'\'': '\u0301',
	'`':  '\u0300',
	'^':  '\u0302',
	'"':  '\u0308',
	'~':  '\u0303',
	'=':  '\u0304',
	'.':  '\u0307',
	'c':  '\u0327',
	'v':  '\u030C',
	'u':  '\u0306',
	'H':  '\u030B',
	'k':  '\u0328',
	'r':  '\u030A',
}

// specialLetters maps named LaTeX letter commands to Unicode.
var specialLetters = map[string]string{
	"ss": "ß", "o": "ø", "O": "Ø", "ae": "æ", "AE": "Æ",
	"oe": "œ", "OE": "Œ", "aa": "å", "AA": "Å", "l": "ł", "L": "Ł",
	"i": "ı", "j": "ȷ",
}

// DecodeLaTeX converts LaTeX accent commands, special letters and escaped
// characters to their Unicode equivalents. Unknown commands are kept.
func DecodeLaTeX(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			i++
			continue
		}
		next := s[i+1]

		// Escaped special characters: \& \% \$ \# \_ \{ \}
		if strings.IndexByte(`&%$#_{}`, next) >= 0 {
			b.WriteByte(next)
			i += 2
			continue
		}

		if mark, ok := accentMarks[next]; ok {
			base, n, ok := accentArgument(s[i+2:], isLetter(next))
			if ok {
				if base == "" {
					// \~{} and \^{} stand for the bare symbol
					b.WriteByte(next)
				} else {
					b.WriteString(norm.NFC.String(base + string(mark)))
				}
				i += 2 + n
				continue
			}
		}

		j := i + 1
		for j < len(s) && isLetter(s[j]) {
			j++
		}
		if rep, ok := specialLetters[s[i+1:j]]; ok {
			b.WriteString(rep)
			i = j
			// A command is terminated by one space or an empty group
			if strings.HasPrefix(s[i:], "{}") {
				i += 2
			} else if i < len(s) && s[i] == ' ' {
				i++
			}
			continue
		}

		b.WriteByte(s[i])
		i++
	}

	return b.String()
}

// accentArgument reads the letter an accent applies to. Letter accents
// (\c, \v, ...) need a braced argument so ordinary commands are not mistaken
// for accents. Returns the base text and the number of bytes consumed.
func accentArgument(rest string, needBraces bool) (string, int, bool) {
	if strings.HasPrefix(rest, "{") {
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return "", 0, false
		}
		return dotlessBase(rest[1:end]), end + 1, true
	}
	if needBraces || rest == "" {
		return "", 0, false
	}
	if strings.HasPrefix(rest, `\i`) || strings.HasPrefix(rest, `\j`) {
		return rest[1:2], 2, true
	}
	r, size := utf8.DecodeRuneInString(rest)
	if !unicode.IsLetter(r) {
		return "", 0, false
	}
	return string(r), size, true
}

// dotlessBase maps \i and \j inside accent arguments to plain letters.
func dotlessBase(s string) string {
	switch strings.TrimSpace(s) {
	case `\i`:
		return "i"
	case `\j`:
		return "j"
	}
	return strings.TrimSpace(s)
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
