package turn

import (
	"iter"
	"strings"

	"github.com/leofalp/streamfield/core/envelope"
)

// UpdateType identifies the kind of payload carried by an Update.
type UpdateType string

const (
	// UpdateText carries a newly decoded fragment of the target field.
	UpdateText UpdateType = "text"
	// UpdateFinal carries the completion parse result; it is always the last
	// update of a stream that ended normally.
	UpdateFinal UpdateType = "final"
)

// Update is a single event yielded while consuming a turn's chunk stream.
type Update struct {
	Type UpdateType `json:"type"`
	// Text is the delta of the target field decoded since the previous
	// update (Type == UpdateText). Concatenating all deltas reproduces the
	// field exactly; nothing is ever retracted.
	Text string `json:"text,omitempty"`
	// Final is the completion parse result (Type == UpdateFinal).
	Final *envelope.FinalResult `json:"final,omitempty"`
}

// Stream adapts a turn's chunk sequence into a sequence of Updates. It must
// be consumed via Iter() or Collect(); breaking out of an Iter() range loop
// early is safe.
type Stream struct {
	iterator iter.Seq2[Update, error]
}

// Updates consumes an ordered chunk sequence for one turn and yields text
// deltas of the target field as they become decodable, followed by the
// completion parse result when the chunk sequence ends.
//
// A chunk-source error terminates the stream immediately after being yielded;
// no final result is produced in that case.
func Updates(chunks iter.Seq2[string, error], opts ...Option) *Stream {
	t := New(opts...)

	iterator := func(yield func(Update, error) bool) {
		emitted := 0 // bytes of the decoded field already yielded

		for chunk, err := range chunks {
			if err != nil {
				yield(Update{}, err)
				return
			}
			text, ok := t.Feed(chunk)
			if !ok || len(text) <= emitted {
				continue
			}
			delta := text[emitted:]
			emitted = len(text)
			if !yield(Update{Type: UpdateText, Text: delta}, nil) {
				return
			}
		}

		final := t.Finalize()
		yield(Update{Type: UpdateFinal, Final: &final}, nil)
	}

	return &Stream{iterator: iterator}
}

// Iter returns the underlying iterator for range-over-func consumption.
//
// Example:
//
//	for update, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    switch update.Type {
//	    case turn.UpdateText:
//	        fmt.Print(update.Text) // typewriter effect
//	    case turn.UpdateFinal:
//	        handle(update.Final)
//	    }
//	}
func (s *Stream) Iter() iter.Seq2[Update, error] {
	return s.iterator
}

// Collect drains the stream and returns the accumulated field text together
// with the completion parse result. Use this when streaming transport is
// wanted but intermediate updates are not. A mid-stream error terminates
// collection and returns what was accumulated up to that point.
func (s *Stream) Collect() (string, envelope.FinalResult, error) {
	var text strings.Builder
	final := envelope.Pending()

	for update, err := range s.iterator {
		if err != nil {
			return text.String(), final, err
		}
		switch update.Type {
		case UpdateText:
			text.WriteString(update.Text)
		case UpdateFinal:
			final = *update.Final
		}
	}
	return text.String(), final, nil
}
