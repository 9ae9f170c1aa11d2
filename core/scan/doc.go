// Package scan decodes the best-effort prefix of a single target string field
// from a possibly incomplete JSON candidate, so the field can be rendered
// live while the document is still being streamed token by token.
//
// The scanner is a pure function over the caller's cumulative buffer: it is
// recomputed from scratch on every call, holds no state between calls, and
// never fails — any malformed or truncated input degrades to a shorter (or
// absent) prefix. Results are monotonic within a turn: while the field has
// not yet closed, the prefix decoded from a buffer is always a prefix of what
// a longer buffer of the same turn decodes.
//
// The primary entry point is [Extract].
package scan
