// Package unwrap isolates the JSON candidate region of raw model output from
// markdown fence decoration and surrounding prose.
package unwrap

import "strings"

const fenceMarker = "```"

// Candidate returns the trimmed JSON candidate substring of raw model output.
//
// The candidate starts after the first opening fence marker (including its
// info string, e.g. "json") when one exists, otherwise at the beginning of
// the text. It ends at the last closing fence marker after that point when
// one exists, otherwise at the end of the text — an open fence is normal
// while the stream is still running. Text without any fence markers is
// returned whole, trimmed, so unwrapping already-unwrapped text is a no-op.
//
// Boundary detection is lossy by design: a value that itself contains
// fence-like text can confuse it.
func Candidate(raw string) string {
	start := 0
	if open := strings.Index(raw, fenceMarker); open >= 0 {
		start = open + len(fenceMarker)
		start += infoStringLen(raw[start:])
	}

	candidate := raw[start:]
	if end := strings.LastIndex(candidate, fenceMarker); end >= 0 {
		candidate = candidate[:end]
	}

	return strings.TrimSpace(candidate)
}

// infoStringLen returns the length of the fence info string ("json", "JSON5",
// ...) directly after the opening backticks, so it is excluded from the
// candidate even when the newline ending the fence line has not arrived yet.
func infoStringLen(s string) int {
	n := 0
	for n < len(s) && isInfoByte(s[n]) {
		n++
	}
	return n
}

func isInfoByte(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '-' || c == '_'
}
