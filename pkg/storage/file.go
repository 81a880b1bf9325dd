package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mikeboe/aria-backend/pkg/search"
)

const (
	sessionsFile      = "sessions.json"
	searchHistoryFile = "search_history.json"
	savedResearchFile = "saved_research.json"
)

// FileStore keeps everything in process memory and mirrors each map to a JSON
// file after every mutation (full rewrite, no incremental append). With an
// empty dir it runs purely in memory, which is what the tests use.
//
// Not safe for concurrent writers across processes; the mutex only covers
// goroutines inside this one.
type FileStore struct {
	dir    string
	logger *slog.Logger

	mu            sync.RWMutex
	sessions      map[string]*Session
	searchHistory map[string][]SearchHistoryEntry
	savedResearch map[string][]SavedResearch
}

// NewFileStore loads any existing data files from dir. An empty dir disables
// the disk mirror.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &FileStore{
		dir:           dir,
		logger:        logger,
		sessions:      make(map[string]*Session),
		searchHistory: make(map[string][]SearchHistoryEntry),
		savedResearch: make(map[string][]SavedResearch),
	}

	if dir == "" {
		return s, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	loadFile(filepath.Join(dir, sessionsFile), &s.sessions, logger)
	loadFile(filepath.Join(dir, searchHistoryFile), &s.searchHistory, logger)
	loadFile(filepath.Join(dir, savedResearchFile), &s.savedResearch, logger)

	return s, nil
}

func loadFile[T any](path string, dst *T, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to load data file", "path", path, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.Warn("Failed to parse data file", "path", path, "error", err)
	}
}

// writeFile rewrites one data file in full. Callers hold the write lock.
func (s *FileStore) writeFile(name string, data interface{}) {
	if s.dir == "" {
		return
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		s.logger.Error("Failed to marshal data file", "file", name, "error", err)
		return
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), raw, 0644); err != nil {
		s.logger.Error("Failed to write data file", "file", name, "error", err)
	}
}

func (s *FileStore) Name() string { return BackendFile }

// cloneSession copies the session together with its history slices, so the
// store's record and the caller's never share a backing array. The element
// structs are append-only and are not duplicated.
func cloneSession(session *Session) *Session {
	copied := *session
	copied.ResearchHistory = make([]ResearchEntry, len(session.ResearchHistory))
	copy(copied.ResearchHistory, session.ResearchHistory)
	copied.ConversationHistory = make([]ConversationTurn, len(session.ConversationHistory))
	copy(copied.ConversationHistory, session.ConversationHistory)
	copied.Sources = make([]search.Result, len(session.Sources))
	copy(copied.Sources, session.Sources)
	return &copied
}

func (s *FileStore) CreateSession(ctx context.Context, sessionID, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := Now()
	session := &Session{
		SessionID:           sessionID,
		UserID:              userID,
		ResearchHistory:     []ResearchEntry{},
		ConversationHistory: []ConversationTurn{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	s.sessions[sessionID] = session
	s.writeFile(sessionsFile, s.sessions)

	return cloneSession(session), nil
}

func (s *FileStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(session), nil
}

func (s *FileStore) UpdateSession(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := cloneSession(session)
	copied.UpdatedAt = Now()
	s.sessions[session.SessionID] = copied
	s.writeFile(sessionsFile, s.sessions)
	return nil
}

// DeleteSession removes the session and cascades to its search history and
// saved research, rewriting all three files.
func (s *FileStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; ok {
		delete(s.sessions, sessionID)
		s.writeFile(sessionsFile, s.sessions)
	}
	if _, ok := s.searchHistory[sessionID]; ok {
		delete(s.searchHistory, sessionID)
		s.writeFile(searchHistoryFile, s.searchHistory)
	}
	if _, ok := s.savedResearch[sessionID]; ok {
		delete(s.savedResearch, sessionID)
		s.writeFile(savedResearchFile, s.savedResearch)
	}
	return nil
}

func (s *FileStore) AddSearchHistory(ctx context.Context, entry SearchHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searchHistory[entry.SessionID] = append(s.searchHistory[entry.SessionID], entry)
	s.writeFile(searchHistoryFile, s.searchHistory)
	return nil
}

func (s *FileStore) GetSearchHistory(ctx context.Context, sessionID string) ([]SearchHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.searchHistory[sessionID]
	out := make([]SearchHistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *FileStore) SaveResearch(ctx context.Context, rec SavedResearch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.savedResearch[rec.SessionID] = append(s.savedResearch[rec.SessionID], rec)
	s.writeFile(savedResearchFile, s.savedResearch)
	return nil
}

func (s *FileStore) GetSavedResearch(ctx context.Context, sessionID string) ([]SavedResearch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.savedResearch[sessionID]
	out := make([]SavedResearch, len(items))
	copy(out, items)
	return out, nil
}

func (s *FileStore) DeleteSavedResearch(ctx context.Context, sessionID, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.savedResearch[sessionID]
	if !ok {
		return nil
	}
	kept := items[:0]
	for _, item := range items {
		if item.Query != query {
			kept = append(kept, item)
		}
	}
	s.savedResearch[sessionID] = kept
	s.writeFile(savedResearchFile, s.savedResearch)
	return nil
}
