package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikeboe/aria-backend/pkg/storage"
)

// HistoryMessage is a client-supplied conversation turn. Role "ai" marks
// assistant output on the wire and is mapped to "assistant" internally.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOutput is the result of one chat turn.
type ChatOutput struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// buildChatMessages assembles the model conversation for a chat turn.
// Client-supplied history takes precedence over stored session context; when
// history is present the current message is appended only if the history does
// not already end with it as a user turn.
func buildChatMessages(session *storage.Session, message string, history []HistoryMessage) []Message {
	messages := []Message{{Role: "system", Content: chatSystemPrompt(session.CurrentTopic)}}

	if len(history) > 0 {
		for _, h := range history {
			if h.Content == "" {
				continue
			}
			switch h.Role {
			case "user":
				messages = append(messages, Message{Role: "user", Content: h.Content})
			case "ai":
				messages = append(messages, Message{Role: "assistant", Content: h.Content})
			}
		}
		last := messages[len(messages)-1]
		if !(last.Role == "user" && last.Content == message) {
			messages = append(messages, Message{Role: "user", Content: message})
		}
		return messages
	}

	var context strings.Builder
	if len(session.ResearchHistory) > 0 {
		latest := session.ResearchHistory[len(session.ResearchHistory)-1]
		fmt.Fprintf(&context, `
CURRENT RESEARCH CONTEXT:
Topic: %s
Summary: %s
Key Insights: %s

PREVIOUS CONVERSATION:
`, latest.Topic, latest.Summary, latest.Insights)

		turns := session.ConversationHistory
		if len(turns) > 5 {
			turns = turns[len(turns)-5:]
		}
		for _, turn := range turns {
			fmt.Fprintf(&context, "User: %s\nARIA: %s\n\n", turn.User, turn.Assistant)
		}
	}

	messages = append(messages, Message{
		Role:    "user",
		Content: fmt.Sprintf("\nCONTEXT FROM CURRENT SESSION:\n%s\n\nUSER QUESTION/MESSAGE:\n%s\n", context.String(), message),
	})
	return messages
}

// RunChatTurn answers one user message in the context of a session and
// appends the exchange to the session's conversation history.
func (p *Pipeline) RunChatTurn(ctx context.Context, sessionID, message string, history []HistoryMessage) (*ChatOutput, error) {
	session, err := p.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages := buildChatMessages(session, message, history)

	response, err := p.complete(ctx, messages, 0.4, 600)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	timestamp := storage.Now()
	session.ConversationHistory = append(session.ConversationHistory, storage.ConversationTurn{
		Timestamp: timestamp,
		User:      message,
		Assistant: response,
	})
	if err := p.Store.UpdateSession(ctx, session); err != nil {
		p.Logger.Error("failed to persist conversation turn", "session_id", sessionID, "error", err)
	}

	return &ChatOutput{
		SessionID: sessionID,
		Response:  response,
		Timestamp: timestamp,
	}, nil
}
