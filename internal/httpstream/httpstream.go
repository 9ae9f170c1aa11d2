// Package httpstream provides the HTTP plumbing for consuming Server-Sent
// Events from OpenAI-compatible streaming endpoints.
package httpstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxLineSize is the maximum size of a single SSE line (1 MB). The default
// bufio.Scanner limit of 64 KiB is too small for large events such as long
// completions. A longer line surfaces as a wrapped bufio.ErrTooLong from
// Scanner.Next.
const maxLineSize = 1 * 1024 * 1024

// maxErrorBodySize caps how much of a non-2xx response body is read into the
// returned error, preventing unbounded allocation from rogue responses.
const maxErrorBodySize int64 = 10 * 1024 * 1024

// PostStream performs an HTTP POST with a JSON body and returns the response
// with its body left open for SSE reading. The caller must close the body
// when done. On error paths the body is consumed and closed before returning.
func PostStream(ctx context.Context, client *http.Client, url, apiKey string, body any) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	response, err := client.Do(req)
	if err != nil {
		return response, fmt.Errorf("error sending stream request: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer func() { _ = response.Body.Close() }()
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))
		if readErr != nil {
			return response, fmt.Errorf("non-2xx status %d (failed to read body: %v)", response.StatusCode, readErr)
		}
		return response, fmt.Errorf("non-2xx status %d: %s", response.StatusCode, string(errorBody))
	}

	return response, nil
}

// Scanner reads Server-Sent Events from an io.Reader. It handles multi-line
// data fields, skips comments and empty lines, and detects the [DONE]
// sentinel used by OpenAI-compatible APIs.
type Scanner struct {
	scanner *bufio.Scanner
}

// NewScanner creates a Scanner over reader. Individual SSE lines up to
// maxLineSize (1 MB) are supported.
func NewScanner(reader io.Reader) *Scanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{scanner: scanner}
}

// Next returns the next SSE data payload. Multiple consecutive "data:" lines
// of one event are joined with newlines. It returns io.EOF when the stream
// ends or the [DONE] sentinel is encountered.
func (s *Scanner) Next() (string, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Empty line signals end of an event; flush accumulated data lines.
		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		// Skip SSE comments.
		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return "", io.EOF
			}
			dataLines = append(dataLines, data)
			continue
		}

		// Other SSE fields (event:, id:, retry:) are ignored.
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE scanner error: %w", err)
	}

	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}
	return "", io.EOF
}
