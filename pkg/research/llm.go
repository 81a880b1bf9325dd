package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// Message is one turn of a model conversation. Role is "system", "user" or
// "assistant"; the wire role "ai" from clients is normalized to "assistant"
// before a Message is built.
type Message struct {
	Role    string
	Content string
}

func toMessageContent(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		var role schema.ChatMessageType
		switch m.Role {
		case "system":
			role = schema.ChatMessageTypeSystem
		case "assistant":
			role = schema.ChatMessageTypeAI
		default:
			role = schema.ChatMessageTypeHuman
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}

// complete runs a single bounded model call and returns the trimmed text.
// An empty completion yields the literal placeholder rather than an error so
// downstream stages always have a string to work with.
func (p *Pipeline) complete(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	callCtx := ctx
	if p.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.CallTimeout)
		defer cancel()
	}

	resp, err := p.LLM.GenerateContent(callCtx, toMessageContent(messages),
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "No response generated.", nil
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// defaultCallTimeout bounds a single model call when no timeout is configured.
const defaultCallTimeout = 60 * time.Second
