package storage

import (
	"time"

	"github.com/mikeboe/aria-backend/pkg/search"
)

// Timestamps are RFC3339 strings so a record round-trips identically through
// the JSON, BSON and DynamoDB codecs.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Session is one continuous research conversation, keyed by SessionID.
type Session struct {
	SessionID           string             `json:"session_id" bson:"session_id" dynamodbav:"session_id"`
	UserID              string             `json:"user_id,omitempty" bson:"user_id,omitempty" dynamodbav:"user_id,omitempty"`
	CurrentTopic        string             `json:"current_topic,omitempty" bson:"current_topic,omitempty" dynamodbav:"current_topic,omitempty"`
	ResearchHistory     []ResearchEntry    `json:"research_history" bson:"research_history" dynamodbav:"research_history"`
	ConversationHistory []ConversationTurn `json:"conversation_history" bson:"conversation_history" dynamodbav:"conversation_history"`
	Sources             []search.Result    `json:"sources,omitempty" bson:"sources,omitempty" dynamodbav:"sources,omitempty"`
	CreatedAt           string             `json:"created_at" bson:"created_at" dynamodbav:"created_at"`
	UpdatedAt           string             `json:"updated_at" bson:"updated_at" dynamodbav:"updated_at"`
}

// ResearchEntry is one completed research action. Entries are append-only and
// never mutated after insertion.
type ResearchEntry struct {
	Timestamp      string          `json:"timestamp" bson:"timestamp" dynamodbav:"timestamp"`
	Topic          string          `json:"topic" bson:"topic" dynamodbav:"topic"`
	OriginalTopic  string          `json:"original_topic,omitempty" bson:"original_topic,omitempty" dynamodbav:"original_topic,omitempty"`
	CorrectionMade bool            `json:"correction_made" bson:"correction_made" dynamodbav:"correction_made"`
	Results        []search.Result `json:"results" bson:"results" dynamodbav:"results"`
	Summary        string          `json:"summary" bson:"summary" dynamodbav:"summary"`
	Notes          string          `json:"notes" bson:"notes" dynamodbav:"notes"`
	Insights       string          `json:"insights" bson:"insights" dynamodbav:"insights"`
	Sources        []search.Result `json:"sources" bson:"sources" dynamodbav:"sources"`
}

// ConversationTurn is one user/assistant exchange.
type ConversationTurn struct {
	Timestamp string `json:"timestamp" bson:"timestamp" dynamodbav:"timestamp"`
	User      string `json:"user" bson:"user" dynamodbav:"user"`
	Assistant string `json:"assistant" bson:"assistant" dynamodbav:"assistant"`
}

// SearchHistoryEntry records one search issued for a session. Append-only.
type SearchHistoryEntry struct {
	SessionID  string `json:"session_id" bson:"session_id" dynamodbav:"session_id"`
	Query      string `json:"query" bson:"query" dynamodbav:"query"`
	Timestamp  string `json:"timestamp" bson:"timestamp" dynamodbav:"timestamp"`
	NumResults int    `json:"num_results" bson:"num_results" dynamodbav:"num_results"`
}

// SavedResearch is one saved section of a research result. Deletion is scoped
// to (session_id, query): removing a query removes every section saved under it.
type SavedResearch struct {
	SessionID   string `json:"session_id" bson:"session_id" dynamodbav:"session_id"`
	Query       string `json:"query" bson:"query" dynamodbav:"query"`
	SectionName string `json:"section_name" bson:"section_name" dynamodbav:"section_name"`
	Content     string `json:"content" bson:"content" dynamodbav:"content"`
	SavedAt     string `json:"saved_at" bson:"saved_at" dynamodbav:"saved_at"`
}
