package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"

	"github.com/liliang-cn/ragchat/internal/domain"
)

// Completer runs chat completions with deterministic (temperature 0) decoding.
type Completer struct {
	client openai.Client
	model  string
}

// NewCompleter creates a completer for the given model or Azure deployment.
func NewCompleter(client openai.Client, model string) *Completer {
	return &Completer{client: client, model: model}
}

// Complete returns the full completion for messages.
func (c *Completer) Complete(ctx context.Context, messages []domain.PromptMessage) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(messages))
	if err != nil {
		return "", providerError("complete", err)
	}
	if len(resp.Choices) == 0 {
		return "", providerError("complete", fmt.Errorf("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream runs a streaming completion, calling onToken for every content
// delta as it arrives, and returns the concatenated text.
func (c *Completer) Stream(ctx context.Context, messages []domain.PromptMessage, onToken func(string)) (string, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(messages))
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		sb.WriteString(token)
		if onToken != nil {
			onToken(token)
		}
	}
	if err := stream.Err(); err != nil {
		return "", providerError("stream", err)
	}
	return sb.String(), nil
}

// ModelName returns the chat model or deployment name.
func (c *Completer) ModelName() string {
	return c.model
}

func (c *Completer) params(messages []domain.PromptMessage) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case domain.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    msgs,
		Temperature: openai.Float(0),
	}
}
