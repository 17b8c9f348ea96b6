// Package stream reconstructs discrete events from an incremental,
// line-oriented event stream whose bytes arrive in arbitrary chunks. The
// Scanner slices the byte stream into logical frames; Events turns frames
// into typed deltas, source lists, and a completion signal delivered exactly
// once per session.
package stream

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineSize is the maximum size of a single stream line (1 MB). The
// default bufio.Scanner limit is 64 KiB, which is too small for large events
// such as long completions. A longer line surfaces as a wrapped
// bufio.ErrTooLong from Next.
const maxLineSize = 1 * 1024 * 1024

// doneSentinel is the literal frame payload that marks end-of-stream in
// OpenAI-compatible event streams.
const doneSentinel = "[DONE]"

// Scanner reads blank-line-delimited frames from an event stream. It makes
// no assumption about how the underlying reader chunks its bytes: frames and
// lines may be split anywhere, including inside a multi-byte character,
// because framing is resolved on the buffered byte stream rather than per
// read call.
type Scanner struct {
	scanner *bufio.Scanner
}

// NewScanner creates a Scanner reading frames from r.
func NewScanner(r io.Reader) *Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{scanner: scanner}
}

// Next returns the next frame's accumulated data payload.
//
// Within a frame, each "data:" line contributes one value; multiple data
// lines are joined with newlines in order. Comment lines (leading ':') and
// other fields (event:, id:, retry:) are skipped, and a frame with no data
// lines yields nothing. Next returns io.EOF at end of input and when the
// frame payload equals the [DONE] sentinel; a frame cut off by end of input
// without its closing blank line is still returned.
func (s *Scanner) Next() (string, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// A blank line closes the current frame.
		if strings.TrimSpace(line) == "" {
			if len(dataLines) == 0 {
				continue
			}
			return s.payload(dataLines)
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			dataLines = append(dataLines, data)
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("stream scanner error: %w", err)
	}

	if len(dataLines) > 0 {
		return s.payload(dataLines)
	}

	return "", io.EOF
}

func (s *Scanner) payload(dataLines []string) (string, error) {
	payload := strings.Join(dataLines, "\n")
	if payload == doneSentinel {
		return "", io.EOF
	}
	return payload, nil
}
