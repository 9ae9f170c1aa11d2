// Package turn owns the per-turn chunk buffer and orchestrates the unwrap,
// scan and finalize steps over it.
//
// A [Turn] is created empty at the start of a model generation cycle, fed
// every received chunk for live extraction of the target field, and finalized
// once the transport signals end of turn. [Updates] wraps the same lifecycle
// as an iter.Seq2 stream for range-over-func consumption.
package turn
