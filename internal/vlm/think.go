package vlm

import (
	"regexp"
	"strings"
)

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

var thinkSpan = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinking removes thinking-block markup from a complete
// response body. Non-streaming paths and the streaming decoder share
// this notion of a thinking block so the two never diverge.
func StripThinking(raw string) string {
	return strings.TrimSpace(thinkSpan.ReplaceAllString(raw, ""))
}

type thinkState int

const (
	stateInitial thinkState = iota
	stateSkippingThink
	stateStreaming
)

// ThinkFilter is the incremental counterpart of StripThinking: a
// three-state machine fed one delta at a time. Until the stream's
// opening content is classified it buffers; a leading thinking block
// is swallowed up to its closing marker; after that every delta
// passes through verbatim. The zero value is ready to use.
type ThinkFilter struct {
	state thinkState
	buf   strings.Builder
}

// Feed consumes one inbound delta and returns the visible text to
// emit for it, which may be empty.
func (f *ThinkFilter) Feed(delta string) string {
	switch f.state {
	case stateStreaming:
		return delta

	case stateInitial:
		f.buf.WriteString(delta)
		trimmed := strings.TrimSpace(f.buf.String())
		if trimmed == "" {
			return ""
		}
		if strings.HasPrefix(trimmed, thinkOpen) {
			f.state = stateSkippingThink
			return f.drainThink()
		}
		// The buffer may still grow into the opening marker when the
		// marker arrives split across deltas.
		if strings.HasPrefix(thinkOpen, trimmed) {
			return ""
		}
		f.state = stateStreaming
		out := f.buf.String()
		f.buf.Reset()
		return out

	default: // stateSkippingThink
		f.buf.WriteString(delta)
		return f.drainThink()
	}
}

// Flush returns any text still buffered when the stream ends without
// the machine reaching the streaming state.
func (f *ThinkFilter) Flush() string {
	if f.state != stateInitial {
		return ""
	}
	out := strings.TrimSpace(f.buf.String())
	f.buf.Reset()
	if strings.HasPrefix(thinkOpen, out) {
		return ""
	}
	return out
}

func (f *ThinkFilter) drainThink() string {
	accumulated := f.buf.String()
	idx := strings.Index(accumulated, thinkClose)
	if idx < 0 {
		return ""
	}
	f.state = stateStreaming
	f.buf.Reset()
	return strings.TrimLeft(accumulated[idx+len(thinkClose):], " \t\r\n")
}
