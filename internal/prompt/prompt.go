// Package prompt defines the analysis prompt model: a forest of
// typed instructions whose children execute conditionally on their
// parent's result.
package prompt

import (
	"fmt"
	"strings"
)

// ResultType determines how a prompt's raw model answer is coerced
// and which instruction suffix is appended to its request text.
type ResultType string

const (
	ResultText        ResultType = "text"
	ResultBoundingBox ResultType = "bounding_box"
	ResultScore       ResultType = "score"
	ResultNumber      ResultType = "number"
	ResultYesNo       ResultType = "yes_no"
	ResultCategory    ResultType = "category"
	ResultJSON        ResultType = "json"
)

// Condition triggers a child of a yes/no parent.
type Condition string

const (
	ConditionYes Condition = "yes"
	ConditionNo  Condition = "no"
)

// Operator triggers a child of a score parent.
type Operator string

const (
	OperatorAbove Operator = "above"
	OperatorBelow Operator = "below"
)

// RegionType narrows a text prompt's attention to a sub-area of the
// image, expressed in the 0-1000 normalized grid.
type RegionType string

const (
	RegionPoint RegionType = "point"
	RegionBox   RegionType = "bbox"
)

// Prompt is one node in the forest.
type Prompt struct {
	ID         string     `json:"id" yaml:"id"`
	Text       string     `json:"text" yaml:"text"`
	ResultType ResultType `json:"result_type" yaml:"result_type"`

	// ParentID links a conditional child to its parent. Empty means
	// top-level: independently runnable without a trigger.
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`

	// Trigger fields, meaningful only when ParentID is set and the
	// parent's type matches. Children of bounding-box parents carry
	// no trigger; they fan out over every detection.
	Condition         Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	ConditionOperator Operator  `json:"condition_operator,omitempty" yaml:"condition_operator,omitempty"`
	ConditionValue    float64   `json:"condition_value,omitempty" yaml:"condition_value,omitempty"`

	// Type-specific configuration.
	ScoreRange [2]float64 `json:"score_range,omitempty" yaml:"score_range,omitempty"`
	Categories []string   `json:"categories,omitempty" yaml:"categories,omitempty"`
	JSONSchema string     `json:"json_schema,omitempty" yaml:"json_schema,omitempty"`

	RegionType   RegionType `json:"region_type,omitempty" yaml:"region_type,omitempty"`
	RegionCoords []float64  `json:"region_coords,omitempty" yaml:"region_coords,omitempty"`
}

// IsTopLevel reports whether the prompt runs without a trigger.
func (p Prompt) IsTopLevel() bool {
	return strings.TrimSpace(p.ParentID) == ""
}

// Validate checks fields that do not depend on the rest of the forest.
func (p Prompt) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("prompt id is required")
	}
	if strings.TrimSpace(p.Text) == "" {
		return fmt.Errorf("prompt %s: text is required", p.ID)
	}
	switch p.ResultType {
	case ResultText, ResultBoundingBox, ResultScore, ResultNumber, ResultYesNo, ResultCategory, ResultJSON:
	default:
		return fmt.Errorf("prompt %s: unknown result type %q", p.ID, p.ResultType)
	}
	if p.ResultType == ResultScore && p.ScoreRange[0] >= p.ScoreRange[1] {
		return fmt.Errorf("prompt %s: score range min must be below max", p.ID)
	}
	if p.ResultType == ResultCategory && len(p.Categories) == 0 {
		return fmt.Errorf("prompt %s: categories are required", p.ID)
	}
	switch p.RegionType {
	case "":
	case RegionPoint:
		if len(p.RegionCoords) != 2 {
			return fmt.Errorf("prompt %s: point region needs 2 coordinates", p.ID)
		}
	case RegionBox:
		if len(p.RegionCoords) != 4 {
			return fmt.Errorf("prompt %s: bbox region needs 4 coordinates", p.ID)
		}
	default:
		return fmt.Errorf("prompt %s: unknown region type %q", p.ID, p.RegionType)
	}
	return nil
}
