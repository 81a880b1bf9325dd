package server

import (
	"github.com/mikeboe/aria-backend/pkg/research"
	"github.com/mikeboe/aria-backend/pkg/storage"
)

type SessionRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// SessionInfo is the session summary returned by the session endpoints.
// AllStorage carries each backend's copy keyed by backend name so clients can
// see where the session actually lives.
type SessionInfo struct {
	SessionID         string                      `json:"session_id"`
	CurrentTopic      string                      `json:"current_topic"`
	ResearchCount     int                         `json:"research_count"`
	ConversationCount int                         `json:"conversation_count"`
	CreatedAt         string                      `json:"created_at"`
	AllStorage        map[string]*storage.Session `json:"all_storage"`
}

type ResearchRequest struct {
	Topic      string `json:"topic" binding:"required"`
	NumResults int    `json:"num_results"`
}

type ChatRequest struct {
	SessionID string                    `json:"session_id" binding:"required"`
	Message   string                    `json:"message" binding:"required"`
	History   []research.HistoryMessage `json:"history"`
}

type SaveResearchRequest struct {
	SessionID   string `json:"session_id" binding:"required"`
	Query       string `json:"query" binding:"required"`
	SectionName string `json:"section_name" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

type FullResearchRequest struct {
	Query      string `json:"query" binding:"required"`
	NumResults int    `json:"num_results"`
}

func sessionInfo(session *storage.Session, all map[string]*storage.Session) SessionInfo {
	return SessionInfo{
		SessionID:         session.SessionID,
		CurrentTopic:      session.CurrentTopic,
		ResearchCount:     len(session.ResearchHistory),
		ConversationCount: len(session.ConversationHistory),
		CreatedAt:         session.CreatedAt,
		AllStorage:        all,
	}
}
