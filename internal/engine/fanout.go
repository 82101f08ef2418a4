package engine

import (
	"context"
	"sync"

	"github.com/promptlens/promptlens/internal/analysis"
	"github.com/promptlens/promptlens/internal/coerce"
	"github.com/promptlens/promptlens/internal/prompt"
	"github.com/promptlens/promptlens/internal/vlm"
)

// fanOut executes every pending child of a bounding-box parent once
// per detected object. Per-object calls for one child run
// concurrently and are joined before the child's status becomes
// terminal; a failing object is captured in its slot instead of
// failing the batch.
func (e *Engine) fanOut(ctx context.Context, parent prompt.Prompt, latest analysis.Result, children []prompt.Prompt, imageID string, tracker *progressTracker) error {
	boxes, _ := latest.Data.([]analysis.BoundingBox)
	if len(boxes) == 0 {
		// No detections: no children run, regardless of configuration.
		return nil
	}

	var firstErr error
	for _, child := range children {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if e.History.HasResult(imageID, child.ID) {
			continue
		}
		if err := e.fanOutChild(ctx, child, boxes, imageID, tracker); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (e *Engine) fanOutChild(ctx context.Context, child prompt.Prompt, boxes []analysis.BoundingBox, imageID string, tracker *progressTracker) error {
	attempt, actx := e.History.StartAttempt(ctx, imageID, child.ID)
	tracker.step()

	attempt.Update(func(r *analysis.Result) {
		r.Data = []analysis.BboxChildResult{}
	})

	imageURI, err := e.Images.DataURI(actx, imageID)
	if err != nil {
		if aborted(actx, err) {
			attempt.Drop()
			return nil
		}
		attempt.Finish(analysis.Result{Status: analysis.StatusError, Error: err.Error()})
		return err
	}

	results := make([]analysis.BboxChildResult, len(boxes))

	var wg sync.WaitGroup
	for i, box := range boxes {
		wg.Add(1)
		go func(i int, box analysis.BoundingBox) {
			defer wg.Done()
			results[i] = e.runObjectCall(actx, child, box, imageURI)
		}(i, box)
	}
	wg.Wait()

	if aborted(actx, nil) {
		attempt.Drop()
		return nil
	}

	attempt.Finish(analysis.Result{
		Status: analysis.StatusSuccess,
		Data:   results,
	})
	return nil
}

// runObjectCall issues one single-shot call scoped to one detection.
// Failures are folded into the slot's result data.
func (e *Engine) runObjectCall(ctx context.Context, child prompt.Prompt, box analysis.BoundingBox, imageURI string) analysis.BboxChildResult {
	text := prompt.BuildRequestText(child, &box)
	completion, err := e.Client.Complete(ctx, []vlm.Message{vlm.UserMessage(text, imageURI)})
	if err != nil {
		return analysis.BboxChildResult{ParentBox: box, ResultData: "error: " + err.Error()}
	}
	return coerce.ForChild(child.ResultType, vlm.StripThinking(completion.Content), box)
}
