package engine

import (
	"context"
	"math"
	"strings"

	"github.com/promptlens/promptlens/internal/analysis"
	"github.com/promptlens/promptlens/internal/prompt"
)

// runChildren evaluates a parent's direct children against its latest
// result and executes the eligible ones, recursively. Children that
// already hold history are never re-run implicitly, but their own
// pending descendants still get evaluated so multi-level chains
// resume after new prompts are added.
func (e *Engine) runChildren(ctx context.Context, parent prompt.Prompt, imageID string, tracker *progressTracker) error {
	children := e.Forest.Children(parent.ID)
	if len(children) == 0 {
		return nil
	}

	latest, ok := e.History.Latest(imageID, parent.ID)
	if !ok || latest.Status != analysis.StatusSuccess {
		// An errored or missing parent result makes every child
		// ineligible for this run.
		return nil
	}

	if parent.ResultType == prompt.ResultBoundingBox {
		return e.fanOut(ctx, parent, latest, children, imageID, tracker)
	}

	var firstErr error
	for _, child := range children {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if e.History.HasResult(imageID, child.ID) {
			if err := e.runChildren(ctx, child, imageID, tracker); err != nil && firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !conditionMet(parent, child, latest) {
			continue
		}
		if err := e.executeTracked(ctx, child, imageID, tracker); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// conditionMet applies the condition-resolution rule for one child
// against the parent's successful result.
func conditionMet(parent, child prompt.Prompt, latest analysis.Result) bool {
	switch parent.ResultType {
	case prompt.ResultYesNo:
		answer, _ := latest.Data.(string)
		met := prompt.ConditionNo
		if strings.Contains(strings.ToLower(answer), "yes") {
			met = prompt.ConditionYes
		}
		return child.Condition == met

	case prompt.ResultScore:
		value, ok := latest.Data.(float64)
		if !ok || math.IsNaN(value) {
			return false
		}
		switch child.ConditionOperator {
		case prompt.OperatorAbove:
			return value > child.ConditionValue
		case prompt.OperatorBelow:
			return value < child.ConditionValue
		}
		return false

	default:
		return false
	}
}
