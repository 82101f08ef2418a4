// Package analysis defines the result types shared by the execution
// engine, the history store, and the output renderers.
package analysis

import (
	"encoding/json"
	"math"
	"time"
)

// Status tracks the lifecycle of one analysis attempt.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// BoundingBox is one detected object in the 0-1000 normalized
// coordinate space. Box order is [x1, y1, x2, y2].
type BoundingBox struct {
	Box   [4]float64 `json:"box"`
	Label string     `json:"label"`
}

// Valid reports whether the box is renderable (x1<x2 and y1<y2).
func (b BoundingBox) Valid() bool {
	return b.Box[0] < b.Box[2] && b.Box[1] < b.Box[3]
}

// Equal reports structural equality of label and coordinates. This is
// the join key used to correlate fan-out child results back to their
// originating detection.
func (b BoundingBox) Equal(other BoundingBox) bool {
	return b.Label == other.Label && b.Box == other.Box
}

// BboxChildResult is the outcome of running one fan-out child prompt
// against one detected object. ResultData holds a string, a float64,
// or nil when the per-object call never produced a value.
type BboxChildResult struct {
	ParentBox  BoundingBox `json:"parent_box"`
	ResultData any         `json:"result_data"`
}

// MarshalJSON encodes a NaN numeric value (failed extraction) as null
// so exported histories stay valid JSON.
func (r BboxChildResult) MarshalJSON() ([]byte, error) {
	type alias BboxChildResult
	a := alias(r)
	if f, ok := a.ResultData.(float64); ok && math.IsNaN(f) {
		a.ResultData = nil
	}
	return json.Marshal(a)
}

// Turn is one question/answer exchange. Turn 0 is the original prompt
// and its answer; later turns are user follow-ups.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Result is one attempt at answering a prompt for one image.
//
// Data is discriminated by the prompt's result type: string for
// text/yes-no/category, float64 for number/score (NaN when numeric
// extraction failed), []BoundingBox for detections, []BboxChildResult
// for fan-out children, and arbitrary decoded JSON otherwise.
type Result struct {
	Status       Status `json:"status"`
	Data         any    `json:"data,omitempty"`
	Error        string `json:"error,omitempty"`
	Conversation []Turn `json:"conversation,omitempty"`

	// RequestPayload and RawResponse are retained verbatim for
	// inspection and never interpreted by the engine.
	RequestPayload string `json:"request_payload,omitempty"`
	RawResponse    string `json:"raw_response,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Answer returns the latest visible answer text for text results.
func (r Result) Answer() string {
	if len(r.Conversation) > 0 {
		return r.Conversation[len(r.Conversation)-1].Answer
	}
	if s, ok := r.Data.(string); ok {
		return s
	}
	return ""
}

// MarshalJSON keeps exported history valid JSON: a NaN numeric result
// (failed extraction) is encoded as null.
func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	a := alias(r)
	if f, ok := a.Data.(float64); ok && math.IsNaN(f) {
		a.Data = nil
	}
	return json.Marshal(a)
}
