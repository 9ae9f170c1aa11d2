package turn

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/leofalp/streamfield/core/envelope"
	"github.com/leofalp/streamfield/core/finalize"
	"github.com/leofalp/streamfield/core/scan"
	"github.com/leofalp/streamfield/core/unwrap"
	"github.com/leofalp/streamfield/internal/utils"
)

// Turn accumulates the chunks of one model generation cycle and exposes the
// live extraction and completion parse over the cumulative buffer.
//
// Turn is not safe for concurrent use; the intended model is a single
// consuming goroutine calling Feed once per received chunk. The underlying
// scan and finalize steps are pure functions of the buffer snapshot, so each
// call is idempotent given identical buffer contents.
type Turn struct {
	target string
	logger *slog.Logger
	repair bool

	buf    strings.Builder
	chunks int
	last   string
	found  bool
}

// Option configures a Turn.
type Option func(*Turn)

// WithTargetField overrides the name of the streamed string field.
// The default is [envelope.DefaultTargetField].
func WithTargetField(name string) Option {
	return func(t *Turn) { t.target = name }
}

// WithLogger attaches a structured logger for turn lifecycle events.
// Without it the turn is silent.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Turn) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithRepair enables jsonrepair recovery at finalization, for display
// consumers that prefer a best-effort envelope over a pending result when the
// model stopped mid-document.
func WithRepair() Option {
	return func(t *Turn) { t.repair = true }
}

// New creates an empty Turn.
func New(opts ...Option) *Turn {
	t := &Turn{
		target: envelope.DefaultTargetField,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Feed appends a received chunk to the buffer and returns the current decoded
// prefix of the target field, or ok == false while the field cannot be
// located yet. Previously returned prefixes are never retracted: while the
// field has not closed, each result extends the previous one.
func (t *Turn) Feed(chunk string) (text string, ok bool) {
	t.buf.WriteString(chunk)
	t.chunks++

	candidate := unwrap.Candidate(t.buf.String())
	text, ok = scan.Extract(candidate, t.target)
	if ok {
		t.last, t.found = text, true
	}

	t.logger.LogAttrs(context.Background(), slog.LevelDebug, "turn.chunk",
		slog.Int("chunk", t.chunks),
		slog.Int("buffer_len", t.buf.Len()),
		slog.Bool("located", ok),
		slog.String("preview", utils.TruncateString(chunk, 80)),
	)
	return text, ok
}

// Text returns the last non-absent extraction produced by Feed.
func (t *Turn) Text() (string, bool) {
	return t.last, t.found
}

// Buffer returns the cumulative buffer received so far.
func (t *Turn) Buffer() string {
	return t.buf.String()
}

// Len returns the cumulative buffer length in bytes.
func (t *Turn) Len() int {
	return t.buf.Len()
}

// Finalize runs the completion parse over the current buffer. It is meant to
// be called once the transport signals end of turn, but may be called
// opportunistically at any point; before the document is complete it reports
// StatusPending.
func (t *Turn) Finalize() envelope.FinalResult {
	started := time.Now()
	candidate := unwrap.Candidate(t.buf.String())

	var result envelope.FinalResult
	if t.repair {
		result = finalize.Recover(candidate, t.target)
	} else {
		result = finalize.Finalize(candidate, t.target)
	}

	t.logger.LogAttrs(context.Background(), slog.LevelInfo, "turn.finalize",
		slog.String("status", string(result.Status)),
		slog.Bool("repaired", result.Repaired),
		slog.Int("chunks", t.chunks),
		slog.Int("buffer_len", t.buf.Len()),
		slog.Duration("duration", time.Since(started)),
	)
	return result
}

// Reset discards the buffer so the Turn can be reused for the next cycle.
func (t *Turn) Reset() {
	t.buf.Reset()
	t.chunks = 0
	t.last = ""
	t.found = false
}
