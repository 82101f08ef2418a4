package engine

import (
	"context"
	"fmt"

	"github.com/promptlens/promptlens/internal/analysis"
	"github.com/promptlens/promptlens/internal/prompt"
	"github.com/promptlens/promptlens/internal/vlm"
)

// SendFollowUp appends one conversational turn to a text prompt's
// latest successful result: the full prior conversation is replayed
// as alternating user/assistant turns before the new question, and
// the streamed answer is recorded as a new history entry carrying the
// extended conversation.
func (e *Engine) SendFollowUp(ctx context.Context, promptID, imageID, question string) error {
	p, ok := e.Forest.Get(promptID)
	if !ok {
		return fmt.Errorf("prompt %s does not exist", promptID)
	}
	if p.ResultType != prompt.ResultText {
		return fmt.Errorf("prompt %s: follow-ups are only supported for text prompts", promptID)
	}

	latest, ok := e.History.Latest(imageID, promptID)
	if !ok || latest.Status != analysis.StatusSuccess || len(latest.Conversation) == 0 {
		return fmt.Errorf("prompt %s has no completed conversation for image %s", promptID, imageID)
	}

	imageURI, err := e.Images.DataURI(ctx, imageID)
	if err != nil {
		return fmt.Errorf("load image %s: %w", imageID, err)
	}

	messages := make([]vlm.Message, 0, len(latest.Conversation)*2+1)
	for i, turn := range latest.Conversation {
		uri := ""
		if i == 0 {
			// The image rides on the opening turn only.
			uri = imageURI
		}
		messages = append(messages, vlm.UserMessage(turn.Question, uri))
		messages = append(messages, vlm.AssistantMessage(turn.Answer))
	}
	messages = append(messages, vlm.UserMessage(question, ""))

	attempt, actx := e.History.StartAttempt(ctx, imageID, promptID)

	answer, payload, err := e.streamAnswer(actx, messages)
	if err != nil {
		if aborted(actx, err) {
			attempt.Drop()
			return nil
		}
		attempt.Finish(analysis.Result{
			Status:         analysis.StatusError,
			Error:          err.Error(),
			Conversation:   latest.Conversation,
			RequestPayload: payload,
		})
		return err
	}

	conversation := append(append([]analysis.Turn{}, latest.Conversation...), analysis.Turn{Question: question, Answer: answer})
	attempt.Finish(analysis.Result{
		Status:         analysis.StatusSuccess,
		Data:           answer,
		Conversation:   conversation,
		RequestPayload: payload,
	})
	return nil
}
