package turn

import (
	"io"
	"log/slog"
	"testing"

	"github.com/leofalp/streamfield/core/envelope"
)

func TestTurn_FencedStreamLifecycle(t *testing.T) {
	chunks := []string{
		"```json\n{\"respon",
		"se\": \"Hel",
		"lo\\nWorld\"}\n```",
	}
	wantAfter := []struct {
		text string
		ok   bool
	}{
		{text: "", ok: false},
		{text: "Hel", ok: true},
		{text: "Hello\nWorld", ok: true},
	}

	tn := New()
	for i, chunk := range chunks {
		text, ok := tn.Feed(chunk)
		if ok != wantAfter[i].ok {
			t.Fatalf("after chunk %d: ok = %v, want %v", i+1, ok, wantAfter[i].ok)
		}
		if ok && text != wantAfter[i].text {
			t.Fatalf("after chunk %d: text = %q, want %q", i+1, text, wantAfter[i].text)
		}
	}

	final := tn.Finalize()
	if final.Status != envelope.StatusParsed {
		t.Fatalf("Finalize() status = %q, want parsed (reason: %s)", final.Status, final.Reason)
	}
	if final.Envelope.Response != "Hello\nWorld" {
		t.Errorf("Response = %q, want %q", final.Envelope.Response, "Hello\nWorld")
	}

	if text, ok := tn.Text(); !ok || text != "Hello\nWorld" {
		t.Errorf("Text() = %q, %v, want %q, true", text, ok, "Hello\nWorld")
	}
}

func TestTurn_UnterminatedValueStaysPending(t *testing.T) {
	tn := New()
	tn.Feed(`{"response": "abc`)

	for i := 0; i < 3; i++ {
		if final := tn.Finalize(); final.Status != envelope.StatusPending {
			t.Fatalf("Finalize() #%d status = %q, want pending", i+1, final.Status)
		}
	}
	if text, ok := tn.Text(); !ok || text != "abc" {
		t.Errorf("Text() = %q, %v, want %q, true", text, ok, "abc")
	}
}

func TestTurn_WrongTypeIsInvalid(t *testing.T) {
	tn := New()
	if _, ok := tn.Feed(`{"response": 42}`); ok {
		t.Errorf("Feed() located a string value in a numeric field")
	}
	final := tn.Finalize()
	if final.Status != envelope.StatusInvalid {
		t.Fatalf("Finalize() status = %q, want invalid", final.Status)
	}
	if final.Reason == "" {
		t.Errorf("invalid result has empty reason")
	}
}

func TestTurn_WithTargetField(t *testing.T) {
	tn := New(WithTargetField("answer"))
	text, ok := tn.Feed(`{"answer": "forty-two"}`)
	if !ok || text != "forty-two" {
		t.Errorf("Feed() = %q, %v, want %q, true", text, ok, "forty-two")
	}
	if final := tn.Finalize(); final.Status != envelope.StatusParsed {
		t.Errorf("Finalize() status = %q, want parsed (reason: %s)", final.Status, final.Reason)
	}
}

func TestTurn_WithRepair(t *testing.T) {
	tn := New(WithRepair())
	tn.Feed(`{"response": "cut off here", "language": "en"`)

	final := tn.Finalize()
	if final.Status != envelope.StatusParsed {
		t.Fatalf("Finalize() status = %q, want parsed (reason: %s)", final.Status, final.Reason)
	}
	if !final.Repaired {
		t.Errorf("Finalize() repaired = false, want true")
	}
	if final.Envelope.Response != "cut off here" {
		t.Errorf("Response = %q, want %q", final.Envelope.Response, "cut off here")
	}
}

func TestTurn_Reset(t *testing.T) {
	tn := New()
	tn.Feed(`{"response": "first turn"}`)
	tn.Reset()

	if tn.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", tn.Len())
	}
	if _, ok := tn.Text(); ok {
		t.Errorf("Text() after Reset still reports a value")
	}

	text, ok := tn.Feed(`{"response": "second turn"}`)
	if !ok || text != "second turn" {
		t.Errorf("Feed() after Reset = %q, %v, want %q, true", text, ok, "second turn")
	}
}

func TestTurn_WithLoggerDoesNotChangeResults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tn := New(WithLogger(logger))

	text, ok := tn.Feed(`{"response": "logged"}`)
	if !ok || text != "logged" {
		t.Errorf("Feed() = %q, %v, want %q, true", text, ok, "logged")
	}
	if final := tn.Finalize(); final.Status != envelope.StatusParsed {
		t.Errorf("Finalize() status = %q, want parsed", final.Status)
	}
}
