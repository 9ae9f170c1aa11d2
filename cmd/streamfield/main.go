// Command streamfield streams a structured model turn and renders the target
// field live while the JSON document is still arriving.
//
// By default it sends a chat-completions request with stream enabled to an
// OpenAI-compatible endpoint and feeds each content delta into a turn
// accumulator. With -replay it reads chunks from stdin instead, so the
// pipeline can be exercised without network access:
//
//	streamfield -prompt "Introduce yourself in French"
//	cat recorded-turn.txt | streamfield -replay
//
// Configuration comes from the environment (optionally via a .env file):
// OPENAI_API_KEY and, for OpenAI-compatible gateways, STREAMFIELD_BASE_URL.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/leofalp/streamfield/core/envelope"
	"github.com/leofalp/streamfield/core/turn"
	"github.com/leofalp/streamfield/internal/httpstream"
	"github.com/leofalp/streamfield/internal/utils"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	defaultModel            = "gpt-4o-mini"
	chatCompletionsEndpoint = "/chat/completions"

	// systemPrompt asks the model for the envelope shape this tool renders.
	systemPrompt = `Answer with a JSON object in a fenced code block. ` +
		`Put your answer in a required "response" string field, the answer's ` +
		`language code in an optional "language" field, and any tabular data ` +
		`as arrays of flat objects with string values.`
)

const (
	ansiGreen = "\x1b[32m"
	ansiDim   = "\x1b[2m"
	ansiReset = "\x1b[0m"
)

// replayChunkSize is how many bytes of stdin are delivered per chunk in
// replay mode, small enough to exercise mid-escape and mid-fence splits.
const replayChunkSize = 16

func main() {
	// A .env file is optional; the environment may already be populated.
	_ = godotenv.Load()

	var (
		model   string
		prompt  string
		field   string
		replay  bool
		repair  bool
		noColor bool
		verbose bool
	)
	flag.StringVar(&model, "model", defaultModel, "model to request")
	flag.StringVar(&prompt, "prompt", "", "user prompt to send (required unless -replay)")
	flag.StringVar(&field, "field", envelope.DefaultTargetField, "target string field to stream")
	flag.BoolVar(&replay, "replay", false, "read chunks from stdin instead of calling the API")
	flag.BoolVar(&repair, "repair", false, "attempt jsonrepair recovery when the turn ends mid-document")
	flag.BoolVar(&noColor, "no-color", false, "disable colorized output")
	flag.BoolVar(&verbose, "v", false, "log turn lifecycle events to stderr")
	flag.Parse()

	if !replay && prompt == "" {
		fmt.Fprintln(os.Stderr, "streamfield: -prompt is required (or use -replay)")
		flag.Usage()
		os.Exit(2)
	}

	out := io.Writer(os.Stdout)
	color := !noColor && isatty.IsTerminal(os.Stdout.Fd())
	if color {
		out = colorable.NewColorableStdout()
	}

	options := []turn.Option{turn.WithTargetField(field)}
	if repair {
		options = append(options, turn.WithRepair())
	}
	if verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		options = append(options, turn.WithLogger(logger))
	}

	var chunks iter.Seq2[string, error]
	if replay {
		chunks = stdinChunks()
	} else {
		baseURL := os.Getenv("STREAMFIELD_BASE_URL")
		if baseURL == "" {
			baseURL = defaultBaseURL
		}
		chunks = completionChunks(context.Background(), baseURL, os.Getenv("OPENAI_API_KEY"), model, prompt)
	}

	if err := render(out, color, turn.Updates(chunks, options...)); err != nil {
		fmt.Fprintf(os.Stderr, "streamfield: %v\n", err)
		os.Exit(1)
	}
}

// render consumes the update stream, printing field deltas as they arrive and
// the validated envelope once the turn completes.
func render(out io.Writer, color bool, stream *turn.Stream) error {
	for update, err := range stream.Iter() {
		if err != nil {
			return err
		}
		switch update.Type {
		case turn.UpdateText:
			if color {
				fmt.Fprint(out, ansiGreen+update.Text+ansiReset)
			} else {
				fmt.Fprint(out, update.Text)
			}
		case turn.UpdateFinal:
			fmt.Fprintln(out)
			return renderFinal(out, color, update.Final)
		}
	}
	return nil
}

func renderFinal(out io.Writer, color bool, final *envelope.FinalResult) error {
	switch final.Status {
	case envelope.StatusParsed:
		env := final.Envelope
		if final.Repaired {
			dimln(out, color, "(document recovered via repair)")
		}
		if env.Language != "" {
			dimln(out, color, "language: "+env.Language)
		}
		for name, records := range env.Lists {
			dimln(out, color, name+": "+utils.JSONToString(records))
		}
		return nil
	case envelope.StatusInvalid:
		return fmt.Errorf("invalid envelope: %s", final.Reason)
	default:
		dimln(out, color, "(turn ended before the document completed)")
		return nil
	}
}

func dimln(out io.Writer, color bool, line string) {
	if color {
		fmt.Fprintln(out, ansiDim+line+ansiReset)
	} else {
		fmt.Fprintln(out, line)
	}
}

// stdinChunks yields stdin in small fixed-size reads, simulating
// token-by-token arrival while preserving the content exactly.
func stdinChunks() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		reader := bufio.NewReader(os.Stdin)
		chunk := make([]byte, replayChunkSize)
		for {
			n, err := reader.Read(chunk)
			if n > 0 {
				if !yield(string(chunk[:n]), nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("error reading stdin: %w", err))
				return
			}
		}
	}
}

// completionChunks opens a streaming chat-completions request and yields each
// content delta as one chunk.
func completionChunks(ctx context.Context, baseURL, apiKey, model, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		body := map[string]any{
			"model":  model,
			"stream": true,
			"messages": []map[string]string{
				{"role": "system", "content": systemPrompt},
				{"role": "user", "content": prompt},
			},
		}

		response, err := httpstream.PostStream(ctx, http.DefaultClient, baseURL+chatCompletionsEndpoint, apiKey, body)
		if err != nil {
			yield("", err)
			return
		}
		defer func() { _ = response.Body.Close() }()

		scanner := httpstream.NewScanner(response.Body)
		for {
			payload, err := scanner.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}

			var event struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				// Non-delta payloads (usage frames, keep-alives) are skipped.
				continue
			}
			if len(event.Choices) == 0 {
				continue
			}
			if content := event.Choices[0].Delta.Content; content != "" {
				if !yield(content, nil) {
					return
				}
			}
		}
	}
}
