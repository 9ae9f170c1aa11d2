// Package envelope defines the document schema produced by a structured model
// turn and the result types shared by the unwrap, scan, finalize and turn
// packages.
//
// The wire format is a single JSON object carrying a required narrative field
// ("response"), an optional language tag, and any number of optional arrays of
// flat string-to-string records, optionally wrapped in a ```json markdown
// fence.
package envelope
