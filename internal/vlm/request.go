package vlm

import (
	"fmt"
	"strings"
)

// Message is one conversational turn in provider-agnostic form.
type Message struct {
	Role     string
	Text     string
	ImageURI string // data URI, attached to user messages only
}

// UserMessage builds a user turn carrying text plus an image.
func UserMessage(text, imageURI string) Message {
	return Message{Role: "user", Text: text, ImageURI: imageURI}
}

// AssistantMessage builds an assistant turn replayed on follow-ups.
func AssistantMessage(text string) Message {
	return Message{Role: "assistant", Text: text}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

func (c *Client) buildChatRequest(messages []Message, stream bool) (*chatCompletionRequest, error) {
	if strings.TrimSpace(c.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	converted := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, chatMessage{Role: msg.Role, Content: convertContent(msg)})
	}

	return &chatCompletionRequest{
		Model:       c.Model,
		Messages:    converted,
		Stream:      stream,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}, nil
}

func convertContent(msg Message) any {
	if msg.ImageURI == "" {
		return msg.Text
	}
	return []contentPart{
		{Type: "text", Text: msg.Text},
		{Type: "image_url", ImageURL: &imageURL{URL: msg.ImageURI}},
	}
}
