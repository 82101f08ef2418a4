// Package engine orchestrates conditional prompt execution against a
// vision model: independent prompts run sequentially, and each
// completed parent's children are evaluated and recursively executed
// when their trigger condition holds.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/promptlens/promptlens/internal/analysis"
	"github.com/promptlens/promptlens/internal/coerce"
	"github.com/promptlens/promptlens/internal/history"
	"github.com/promptlens/promptlens/internal/prompt"
	"github.com/promptlens/promptlens/internal/vlm"
)

// ModelClient is the slice of the vlm client the engine drives.
type ModelClient interface {
	Complete(ctx context.Context, messages []vlm.Message) (*vlm.Completion, error)
	Stream(ctx context.Context, messages []vlm.Message) (vlm.DeltaStream, error)
}

// ImageSource produces the encoded image blob for an image id. The
// collaborator caches per image after the first computation.
type ImageSource interface {
	DataURI(ctx context.Context, imageID string) (string, error)
}

// ProgressSink receives observational step counters and per-image
// terminal status. Never a control-flow input.
type ProgressSink interface {
	Step(current, total int)
	ImageDone(imageID string, status analysis.Status)
}

// Engine coordinates the prompt forest, the model client, and the
// result history for one run surface.
type Engine struct {
	Client   ModelClient
	Forest   *prompt.Forest
	History  *history.Store
	Images   ImageSource
	Progress ProgressSink
	Logger   *zap.Logger
	Clock    func() time.Time
}

// New wires an engine with defaults applied.
func New(client ModelClient, forest *prompt.Forest, hist *history.Store, images ImageSource) *Engine {
	return &Engine{
		Client:  client,
		Forest:  forest,
		History: hist,
		Images:  images,
		Logger:  zap.NewNop(),
		Clock:   func() time.Time { return time.Now().UTC() },
	}
}

// RunOne executes a single prompt for one image as an explicit user
// action: history for the prompt and its full descendant set is
// cleared first, then the prompt (and any triggered children) run.
func (e *Engine) RunOne(ctx context.Context, promptID, imageID string) error {
	p, ok := e.Forest.Get(promptID)
	if !ok {
		return fmt.Errorf("prompt %s does not exist", promptID)
	}

	stale := []string{p.ID}
	for _, d := range e.Forest.Descendants(p.ID) {
		stale = append(stale, d.ID)
	}
	e.History.ClearPromptsForImage(imageID, stale...)

	return e.execute(ctx, p, imageID)
}

// RunPendingForImage runs every prompt that has no result yet for the
// image: eligible independent prompts first, then children of
// already-completed parents are re-evaluated so prompts added after a
// parent finished still get their chance without re-running the
// parent.
func (e *Engine) RunPendingForImage(ctx context.Context, imageID string) (analysis.Status, error) {
	tracker := e.newProgress(imageID)

	var firstErr error
	for _, p := range e.Forest.TopLevel() {
		if ctx.Err() != nil {
			return analysis.StatusError, ctx.Err()
		}
		if !e.History.HasResult(imageID, p.ID) {
			if err := e.executeTracked(ctx, p, imageID, tracker); err != nil && firstErr == nil {
				firstErr = err
			}
			continue
		}
		// Parent already terminal: evaluate pending children only.
		if err := e.runChildren(ctx, p, imageID, tracker); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	status := e.imageStatus(imageID)
	if e.Progress != nil {
		e.Progress.ImageDone(imageID, status)
	}
	return status, firstErr
}

// RunForAllImages runs the full pending algorithm for each image in
// turn, strictly sequentially. A failing image does not halt the
// batch; the per-image status map records the outcomes.
func (e *Engine) RunForAllImages(ctx context.Context, imageIDs []string) (map[string]analysis.Status, error) {
	statuses := make(map[string]analysis.Status, len(imageIDs))
	for _, imageID := range imageIDs {
		if err := ctx.Err(); err != nil {
			return statuses, err
		}
		status, err := e.RunPendingForImage(ctx, imageID)
		statuses[imageID] = status
		if err != nil && errors.Is(err, context.Canceled) {
			return statuses, err
		}
	}
	return statuses, nil
}

// DeletePrompt removes a prompt and its whole subtree from the
// forest and cascades the deletion to the stored result histories for
// every image. Confirmation for non-empty subtrees is the caller's
// concern.
func (e *Engine) DeletePrompt(promptID string) []string {
	removed := e.Forest.Delete(promptID)
	if len(removed) > 0 {
		e.History.DeletePrompts(removed...)
	}
	return removed
}

// RemoveImage drops every stored result for an image. In-flight
// attempts referencing the image are cancelled and dropped without
// surfacing errors.
func (e *Engine) RemoveImage(imageID string) {
	e.History.DeleteImage(imageID)
}

// execute runs one attempt for (p, imageID) and, on success,
// evaluates the prompt's direct children.
func (e *Engine) execute(ctx context.Context, p prompt.Prompt, imageID string) error {
	return e.executeTracked(ctx, p, imageID, nil)
}

func (e *Engine) executeTracked(ctx context.Context, p prompt.Prompt, imageID string, tracker *progressTracker) error {
	attempt, actx := e.History.StartAttempt(ctx, imageID, p.ID)
	tracker.step()

	result, err := e.runAttempt(actx, p, imageID)
	if err != nil {
		if aborted(actx, err) {
			attempt.Drop()
			e.Logger.Debug("attempt aborted",
				zap.String("prompt_id", p.ID),
				zap.String("image_id", imageID))
			return nil
		}
		attempt.Finish(analysis.Result{
			Status:         analysis.StatusError,
			Error:          err.Error(),
			RequestPayload: result.RequestPayload,
			RawResponse:    rawFromError(err),
		})
		e.Logger.Warn("prompt attempt failed",
			zap.String("prompt_id", p.ID),
			zap.String("image_id", imageID),
			zap.Error(err))
		return err
	}

	if !attempt.Finish(result) {
		// Superseded while in flight; the newer attempt owns history.
		return nil
	}

	e.Logger.Debug("prompt attempt succeeded",
		zap.String("prompt_id", p.ID),
		zap.String("image_id", imageID))

	return e.runChildren(ctx, p, imageID, tracker)
}

// runAttempt issues the model call for one prompt and coerces the
// answer. It never touches history.
func (e *Engine) runAttempt(ctx context.Context, p prompt.Prompt, imageID string) (analysis.Result, error) {
	text := prompt.BuildRequestText(p, nil)

	imageURI, err := e.Images.DataURI(ctx, imageID)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("load image %s: %w", imageID, err)
	}

	messages := []vlm.Message{vlm.UserMessage(text, imageURI)}

	if p.ResultType == prompt.ResultText {
		answer, payload, err := e.streamAnswer(ctx, messages)
		if err != nil {
			return analysis.Result{RequestPayload: payload}, err
		}
		return analysis.Result{
			Status:         analysis.StatusSuccess,
			Data:           answer,
			Conversation:   []analysis.Turn{{Question: text, Answer: answer}},
			RequestPayload: payload,
		}, nil
	}

	completion, err := e.Client.Complete(ctx, messages)
	if err != nil {
		return analysis.Result{}, err
	}

	stripped := vlm.StripThinking(completion.Content)
	data, err := coerce.ForType(p.ResultType, stripped)
	if err != nil {
		return analysis.Result{
			RequestPayload: string(completion.RequestPayload),
			RawResponse:    string(completion.RawResponse),
		}, err
	}

	return analysis.Result{
		Status:         analysis.StatusSuccess,
		Data:           data,
		RequestPayload: string(completion.RequestPayload),
		RawResponse:    string(completion.RawResponse),
	}, nil
}

// streamAnswer consumes a streaming completion and accumulates the
// visible deltas into the final answer.
func (e *Engine) streamAnswer(ctx context.Context, messages []vlm.Message) (string, string, error) {
	stream, err := e.Client.Stream(ctx, messages)
	if err != nil {
		return "", "", err
	}
	defer stream.Close() // nolint:errcheck // best-effort cleanup

	payload := string(stream.RequestPayload())

	var b strings.Builder
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", payload, err
		}
		b.WriteString(delta)
	}
	return strings.TrimSpace(b.String()), payload, nil
}

// ImageStatus aggregates the image's top-level results: error wins
// over success.
func (e *Engine) ImageStatus(imageID string) analysis.Status {
	return e.imageStatus(imageID)
}

func (e *Engine) imageStatus(imageID string) analysis.Status {
	for _, p := range e.Forest.TopLevel() {
		if latest, ok := e.History.Latest(imageID, p.ID); ok && latest.Status == analysis.StatusError {
			return analysis.StatusError
		}
	}
	return analysis.StatusSuccess
}

// aborted reports whether the attempt was cancelled (superseded or
// user-initiated) rather than failed.
func aborted(ctx context.Context, err error) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

func rawFromError(err error) string {
	var provider *vlm.ProviderError
	if errors.As(err, &provider) {
		return string(provider.RawResponse)
	}
	var parse *coerce.ParseError
	if errors.As(err, &parse) {
		return parse.Raw
	}
	return ""
}

// progressTracker counts executed attempts against the pending total
// captured at the start of a run.
type progressTracker struct {
	sink    ProgressSink
	current int
	total   int
}

func (e *Engine) newProgress(imageID string) *progressTracker {
	total := 0
	for _, p := range e.Forest.All() {
		if !e.History.HasResult(imageID, p.ID) {
			total++
		}
	}
	return &progressTracker{sink: e.Progress, total: total}
}

func (t *progressTracker) step() {
	if t == nil || t.sink == nil {
		return
	}
	t.current++
	if t.current > t.total {
		t.total = t.current
	}
	t.sink.Step(t.current, t.total)
}
