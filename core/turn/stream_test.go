package turn

import (
	"errors"
	"iter"
	"testing"

	"github.com/leofalp/streamfield/core/envelope"
)

func chunksOf(chunks ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func TestUpdates_DeltasAndFinal(t *testing.T) {
	stream := Updates(chunksOf(
		"```json\n{\"respon",
		"se\": \"Hel",
		"lo\\nWorld\"}\n```",
	))

	var deltas []string
	var final *envelope.FinalResult
	for update, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		switch update.Type {
		case UpdateText:
			deltas = append(deltas, update.Text)
		case UpdateFinal:
			final = update.Final
		}
	}

	wantDeltas := []string{"Hel", "lo\nWorld"}
	if len(deltas) != len(wantDeltas) {
		t.Fatalf("got %d deltas %q, want %q", len(deltas), deltas, wantDeltas)
	}
	for i := range deltas {
		if deltas[i] != wantDeltas[i] {
			t.Errorf("delta %d = %q, want %q", i, deltas[i], wantDeltas[i])
		}
	}

	if final == nil {
		t.Fatalf("stream produced no final update")
	}
	if final.Status != envelope.StatusParsed {
		t.Fatalf("final status = %q, want parsed (reason: %s)", final.Status, final.Reason)
	}
	if final.Envelope.Response != "Hello\nWorld" {
		t.Errorf("final response = %q, want %q", final.Envelope.Response, "Hello\nWorld")
	}
}

func TestUpdates_Collect(t *testing.T) {
	stream := Updates(chunksOf(
		`{"response": "ab`,
		`c", "language": "en"}`,
	))

	text, final, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if text != "abc" {
		t.Errorf("Collect() text = %q, want %q", text, "abc")
	}
	if final.Status != envelope.StatusParsed {
		t.Fatalf("Collect() status = %q, want parsed (reason: %s)", final.Status, final.Reason)
	}
	if final.Envelope.Language != "en" {
		t.Errorf("Collect() language = %q, want %q", final.Envelope.Language, "en")
	}
}

func TestUpdates_PendingWhenStreamEndsEarly(t *testing.T) {
	_, final, err := Updates(chunksOf(`{"response": "abc`)).Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if final.Status != envelope.StatusPending {
		t.Errorf("final status = %q, want pending", final.Status)
	}
}

func TestUpdates_ChunkSourceError(t *testing.T) {
	sourceErr := errors.New("transport failed")
	chunks := func(yield func(string, error) bool) {
		if !yield(`{"response": "par`, nil) {
			return
		}
		yield("", sourceErr)
	}

	text, final, err := Updates(chunks).Collect()
	if !errors.Is(err, sourceErr) {
		t.Fatalf("Collect() error = %v, want %v", err, sourceErr)
	}
	if text != "par" {
		t.Errorf("Collect() text before error = %q, want %q", text, "par")
	}
	// No final result is produced on a transport error.
	if final.Status != envelope.StatusPending {
		t.Errorf("final status = %q, want pending", final.Status)
	}
}

func TestUpdates_EarlyBreakIsSafe(t *testing.T) {
	stream := Updates(chunksOf(
		`{"response": "one`,
		` two`,
		` three"}`,
	))

	var first string
	for update, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		if update.Type == UpdateText {
			first = update.Text
			break
		}
	}
	if first != "one" {
		t.Errorf("first delta = %q, want %q", first, "one")
	}
}
