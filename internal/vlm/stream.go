package vlm

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxFrameSize bounds one server-sent-event line.
const maxFrameSize = 1024 * 1024

// DeltaStream yields decoded visible text deltas until exhaustion or
// cancellation. Implemented by *Stream; the engine accepts the
// interface so tests can substitute scripted streams.
type DeltaStream interface {
	// Recv returns the next visible delta. io.EOF signals normal
	// completion; any other error terminates the attempt.
	Recv() (string, error)
	Close() error
	// RequestPayload returns the verbatim request body.
	RequestPayload() []byte
}

// Stream reads newline-delimited "data: {json}" frames from an open
// chat-completions response, feeding every token delta through the
// thinking-block filter so only post-thinking content is emitted.
type Stream struct {
	resp    *http.Response
	scanner *bufio.Scanner
	filter  ThinkFilter
	cancel  context.CancelFunc
	payload []byte
	done    bool
}

type streamFrame struct {
	Choices []streamChoice `json:"choices"`
}

type streamChoice struct {
	Delta        streamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type streamDelta struct {
	Content string `json:"content"`
}

// Stream opens a streaming completion. The caller must Close the
// stream; closing aborts the underlying request.
func (c *Client) Stream(ctx context.Context, messages []Message) (DeltaStream, error) {
	ctx, cancel := context.WithCancel(ctx)

	body, resp, err := c.do(ctx, messages, true)
	if err != nil {
		cancel()
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		cancel()
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody)), RawResponse: respBody}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	return &Stream{resp: resp, scanner: scanner, cancel: cancel, payload: body}, nil
}

// Recv returns the next visible delta, skipping frames the filter
// swallows. A finish_reason of "length" short-circuits the stream
// with a TruncationError instead of a normal completion.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			s.done = true
			if tail := s.filter.Flush(); tail != "" {
				return tail, nil
			}
			return "", io.EOF
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			// Tolerate unknown frames (comments, keep-alives).
			continue
		}
		if len(frame.Choices) == 0 {
			continue
		}

		ch := frame.Choices[0]
		if ch.FinishReason == finishReasonLength {
			s.done = true
			return "", &TruncationError{}
		}
		if ch.Delta.Content == "" {
			continue
		}
		if visible := s.filter.Feed(ch.Delta.Content); visible != "" {
			return visible, nil
		}
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		return "", &RequestError{Op: "read stream", Err: err}
	}
	if tail := s.filter.Flush(); tail != "" {
		return tail, nil
	}
	return "", io.EOF
}

// Close aborts the request and releases the connection.
func (s *Stream) Close() error {
	s.done = true
	if s.cancel != nil {
		s.cancel()
	}
	if s.resp != nil && s.resp.Body != nil {
		return s.resp.Body.Close()
	}
	return nil
}

// RequestPayload returns the verbatim request body bytes.
func (s *Stream) RequestPayload() []byte {
	return s.payload
}
