package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mikeboe/aria-backend/pkg/research"
	"github.com/mikeboe/aria-backend/pkg/storage"
)

const apiVersion = "1.0.0"

type Handler struct {
	Pipeline *research.Pipeline
	Store    *storage.Manager
}

func NewHandler(pipeline *research.Pipeline, store *storage.Manager) *Handler {
	return &Handler{Pipeline: pipeline, Store: store}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.root)
	r.GET("/health", h.health)

	r.POST("/session", h.createOrGetSession)
	r.GET("/session/:session_id", h.getSession)
	r.DELETE("/session/:session_id", h.deleteSession)

	r.POST("/research", h.conductResearch)
	r.POST("/full-research", h.fullResearch)
	r.POST("/chat", h.chat)

	r.GET("/search-history/:session_id", h.getSearchHistory)
	r.POST("/save-research", h.saveResearch)
	r.GET("/saved-research/:session_id", h.getSavedResearch)
	r.DELETE("/saved-research/:session_id/:query", h.deleteSavedResearch)

	r.POST("/mcp", h.MCPHandler)
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "ARIA - Academic Research Intelligence Assistant API",
		"version":   apiVersion,
		"status":    "healthy",
		"timestamp": storage.Now(),
		"endpoints": gin.H{
			"research":      "/research - Conduct comprehensive research on a topic",
			"full_research": "/full-research - Run the deep multi-agent research pipeline",
			"chat":          "/chat - Chat with ARIA about research",
			"session":       "/session - Create or get session info",
		},
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": storage.Now(),
		"message":   "ARIA API is running",
		"backends":  h.Store.Backends(),
	})
}

func (h *Handler) createOrGetSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	ctx := c.Request.Context()
	all := h.Store.GetSessionAll(ctx, sessionID)
	if session := preferredSession(all); session != nil {
		c.JSON(http.StatusOK, sessionInfo(session, all))
		return
	}

	created, err := h.Store.CreateSession(ctx, sessionID, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionInfo(created, h.Store.GetSessionAll(ctx, sessionID)))
}

func (h *Handler) getSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	ctx := c.Request.Context()

	all := h.Store.GetSessionAll(ctx, sessionID)
	if session := preferredSession(all); session != nil {
		c.JSON(http.StatusOK, sessionInfo(session, all))
		return
	}

	// Unknown IDs get a fresh session rather than a 404.
	created, err := h.Store.CreateSession(ctx, sessionID, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionInfo(created, h.Store.GetSessionAll(ctx, sessionID)))
}

func preferredSession(all map[string]*storage.Session) *storage.Session {
	for _, name := range []string{storage.BackendMongoDB, storage.BackendDynamo, storage.BackendFile} {
		if s, ok := all[name]; ok {
			return s
		}
	}
	return nil
}

func (h *Handler) deleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.Store.DeleteSession(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Session %s and all related data deleted successfully", sessionID)})
}

func (h *Handler) conductResearch(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID is required for research"})
		return
	}

	var req ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.Pipeline.RunResearch(c.Request.Context(), sessionID, req.Topic, req.NumResults)
	if err != nil {
		if errors.Is(err, research.ErrNoResults) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No search results found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Research error: %s", err)})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) fullResearch(c *gin.Context) {
	var req FullResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.Pipeline.RunFullResearch(c.Request.Context(), req.Query, req.NumResults)
	if err != nil {
		if errors.Is(err, research.ErrNoResults) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No articles found for the query."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.Pipeline.RunChatTurn(c.Request.Context(), req.SessionID, req.Message, req.History)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Chat error: %s", err)})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) getSearchHistory(c *gin.Context) {
	searches := h.Store.GetSearchHistory(c.Request.Context(), c.Param("session_id"))
	if searches == nil {
		searches = []storage.SearchHistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"searches": searches, "total": len(searches)})
}

func (h *Handler) saveResearch(c *gin.Context) {
	var req SaveResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := storage.SavedResearch{
		SessionID:   req.SessionID,
		Query:       req.Query,
		SectionName: req.SectionName,
		Content:     req.Content,
		SavedAt:     storage.Now(),
	}
	if err := h.Store.SaveResearch(c.Request.Context(), rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Error saving research: %s", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Research section '%s' saved successfully", req.SectionName)})
}

func (h *Handler) getSavedResearch(c *gin.Context) {
	items := h.Store.GetSavedResearch(c.Request.Context(), c.Param("session_id"))
	if items == nil {
		items = []storage.SavedResearch{}
	}
	c.JSON(http.StatusOK, gin.H{"saved_research": items, "total": len(items)})
}

func (h *Handler) deleteSavedResearch(c *gin.Context) {
	sessionID := c.Param("session_id")
	query := c.Param("query")
	if err := h.Store.DeleteSavedResearch(c.Request.Context(), sessionID, query); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Error deleting saved research: %s", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Saved research for '%s' deleted successfully", query)})
}
