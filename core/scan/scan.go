package scan

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Extract decodes the current prefix of the target string field from a JSON
// candidate that may still be incomplete.
//
// It reports false while the field cannot be located yet: the quoted key has
// not fully arrived, no colon follows it, or the value's opening quote has
// not been seen (which also covers non-string values such as numbers). Once
// the opening quote is present it reports true and returns everything decoded
// so far — the full value when the closing quote has arrived, a partial
// prefix otherwise.
//
// Standard JSON escapes are decoded, including \uXXXX and surrogate pairs.
// An escape cut off by the end of the buffer withholds output up to the
// escape rather than guessing; an unrecognized escape passes the escaped
// character through verbatim. Extract never fails on any input.
//
// The key is located by literal text search, so a key that coincidentally
// appears inside an earlier string value can be matched. Cost is O(len(candidate))
// per call; callers re-invoking it on every received chunk pay O(n²) over a
// turn, which is fine at chat-message scale.
func Extract(candidate, key string) (string, bool) {
	needle := `"` + key + `"`
	keyIdx := strings.Index(candidate, needle)
	if keyIdx < 0 {
		return "", false
	}

	rest := candidate[keyIdx+len(needle):]
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return "", false
	}
	rest = rest[colon+1:]

	quote := strings.IndexByte(rest, '"')
	if quote < 0 {
		return "", false
	}

	return decodeValue(rest[quote+1:]), true
}

// decodeValue walks the string value starting right after its opening quote,
// decoding escapes until the closing quote or the end of the buffer.
func decodeValue(s string) string {
	var out strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '"':
			// Unescaped closing quote: the value is complete.
			return out.String()

		case c != '\\':
			out.WriteByte(c)
			i++

		default:
			if i+1 >= len(s) {
				// Bare backslash at the end of the buffer: wait for the
				// escape character.
				return out.String()
			}
			switch e := s[i+1]; e {
			case '"':
				out.WriteByte('"')
				i += 2
			case '\\':
				out.WriteByte('\\')
				i += 2
			case '/':
				out.WriteByte('/')
				i += 2
			case 'b':
				out.WriteByte('\b')
				i += 2
			case 'f':
				out.WriteByte('\f')
				i += 2
			case 'n':
				out.WriteByte('\n')
				i += 2
			case 'r':
				out.WriteByte('\r')
				i += 2
			case 't':
				out.WriteByte('\t')
				i += 2
			case 'u':
				r, size, waiting := decodeUnicode(s[i:])
				if waiting {
					// The escape (or the second half of a surrogate pair) is
					// cut off by the buffer end; stop before it.
					return out.String()
				}
				out.WriteRune(r)
				i += size
			default:
				// Unrecognized escape: keep the escaped character verbatim
				// instead of failing the whole extraction.
				out.WriteByte(e)
				i += 2
			}
		}
	}
	return out.String()
}

// decodeUnicode decodes a \uXXXX escape, combining surrogate pairs, at the
// start of s. size is the number of bytes consumed. waiting reports that the
// escape is cut off by the end of the buffer and more input is needed before
// anything can be emitted.
func decodeUnicode(s string) (r rune, size int, waiting bool) {
	if len(s) < 6 {
		return 0, 0, true
	}
	hi, err := strconv.ParseUint(s[2:6], 16, 32)
	if err != nil {
		// Not four hex digits: treat like an unrecognized escape and pass
		// the 'u' through verbatim.
		return 'u', 2, false
	}

	r = rune(hi)
	if !utf16.IsSurrogate(r) {
		return r, 6, false
	}
	if r >= 0xDC00 {
		// Unpaired low surrogate, same substitution encoding/json makes.
		return utf8.RuneError, 6, false
	}

	// High surrogate: emit nothing until the low half is fully buffered, so
	// that the pair decodes to a single character exactly once.
	if len(s) < 7 {
		return 0, 0, true
	}
	if s[6] != '\\' {
		return utf8.RuneError, 6, false
	}
	if len(s) < 8 {
		return 0, 0, true
	}
	if s[7] != 'u' {
		return utf8.RuneError, 6, false
	}
	if len(s) < 12 {
		return 0, 0, true
	}
	lo, err := strconv.ParseUint(s[8:12], 16, 32)
	if err != nil {
		return utf8.RuneError, 6, false
	}
	combined := utf16.DecodeRune(rune(hi), rune(lo))
	if combined == utf8.RuneError {
		return utf8.RuneError, 6, false
	}
	return combined, 12, false
}
