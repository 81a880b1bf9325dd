package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// preference orders backend results when a single value is needed. Document
// and table stores are authoritative, local files are a last resort.
var preference = []string{BackendMongoDB, BackendDynamo, BackendFile}

// Manager fans writes out to every configured backend and merges reads from
// all of them. Writes are best effort per backend: one failing store is
// logged and the others still receive the write. The file store acts as a
// fallback when no other backend is configured or none returns a result.
type Manager struct {
	backends []Backend
	fallback Backend
	logger   *slog.Logger
}

func NewManager(fallback Backend, logger *slog.Logger, backends ...Backend) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		backends: backends,
		fallback: fallback,
		logger:   logger,
	}
}

// Backends reports the names of the configured backends, fallback excluded.
func (m *Manager) Backends() []string {
	names := make([]string, 0, len(m.backends))
	for _, b := range m.backends {
		names = append(names, b.Name())
	}
	return names
}

// targets returns the stores a write goes to. With no backends configured
// everything lands in the fallback file store.
func (m *Manager) targets() []Backend {
	if len(m.backends) == 0 {
		return []Backend{m.fallback}
	}
	return m.backends
}

func (m *Manager) CreateSession(ctx context.Context, sessionID, userID string) (*Session, error) {
	var created *Session
	for _, b := range m.targets() {
		session, err := b.CreateSession(ctx, sessionID, userID)
		if err != nil {
			m.logger.Error("failed to create session", "backend", b.Name(), "session_id", sessionID, "error", err)
			continue
		}
		if created == nil {
			created = session
		}
	}
	if created == nil {
		return nil, fmt.Errorf("failed to create session %s in any backend", sessionID)
	}
	return created, nil
}

// GetSessionAll returns each backend's copy of the session, keyed by backend
// name. Backends without the session are simply absent from the map.
func (m *Manager) GetSessionAll(ctx context.Context, sessionID string) map[string]*Session {
	results := make(map[string]*Session)
	for _, b := range m.targets() {
		session, err := b.GetSession(ctx, sessionID)
		if err != nil {
			if err != ErrNotFound {
				m.logger.Error("failed to get session", "backend", b.Name(), "session_id", sessionID, "error", err)
			}
			continue
		}
		results[b.Name()] = session
	}
	if len(results) == 0 && len(m.backends) > 0 {
		if session, err := m.fallback.GetSession(ctx, sessionID); err == nil {
			results[m.fallback.Name()] = session
		}
	}
	return results
}

// GetSession picks a single session from the merged results, preferring
// authoritative backends.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	results := m.GetSessionAll(ctx, sessionID)
	for _, name := range preference {
		if session, ok := results[name]; ok {
			return session, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Manager) UpdateSession(ctx context.Context, session *Session) error {
	var lastErr error
	ok := false
	for _, b := range m.targets() {
		if err := b.UpdateSession(ctx, session); err != nil {
			m.logger.Error("failed to update session", "backend", b.Name(), "session_id", session.SessionID, "error", err)
			lastErr = err
			continue
		}
		ok = true
	}
	if !ok {
		return fmt.Errorf("failed to update session %s in any backend: %w", session.SessionID, lastErr)
	}
	return nil
}

func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	var lastErr error
	ok := false
	for _, b := range m.targets() {
		if err := b.DeleteSession(ctx, sessionID); err != nil {
			m.logger.Error("failed to delete session", "backend", b.Name(), "session_id", sessionID, "error", err)
			lastErr = err
			continue
		}
		ok = true
	}
	if !ok {
		return fmt.Errorf("failed to delete session %s in any backend: %w", sessionID, lastErr)
	}
	return nil
}

func (m *Manager) AddSearchHistory(ctx context.Context, entry SearchHistoryEntry) error {
	var lastErr error
	ok := false
	for _, b := range m.targets() {
		if err := b.AddSearchHistory(ctx, entry); err != nil {
			m.logger.Error("failed to add search history", "backend", b.Name(), "session_id", entry.SessionID, "error", err)
			lastErr = err
			continue
		}
		ok = true
	}
	if !ok {
		return fmt.Errorf("failed to add search history in any backend: %w", lastErr)
	}
	return nil
}

// GetSearchHistoryAll returns every backend's history for the session, keyed
// by backend name.
func (m *Manager) GetSearchHistoryAll(ctx context.Context, sessionID string) map[string][]SearchHistoryEntry {
	results := make(map[string][]SearchHistoryEntry)
	for _, b := range m.targets() {
		entries, err := b.GetSearchHistory(ctx, sessionID)
		if err != nil {
			m.logger.Error("failed to get search history", "backend", b.Name(), "session_id", sessionID, "error", err)
			continue
		}
		if len(entries) > 0 {
			results[b.Name()] = entries
		}
	}
	if len(results) == 0 && len(m.backends) > 0 {
		if entries, err := m.fallback.GetSearchHistory(ctx, sessionID); err == nil && len(entries) > 0 {
			results[m.fallback.Name()] = entries
		}
	}
	return results
}

// GetSearchHistory picks the preferred backend's history.
func (m *Manager) GetSearchHistory(ctx context.Context, sessionID string) []SearchHistoryEntry {
	results := m.GetSearchHistoryAll(ctx, sessionID)
	for _, name := range preference {
		if entries, ok := results[name]; ok {
			return entries
		}
	}
	return []SearchHistoryEntry{}
}

func (m *Manager) SaveResearch(ctx context.Context, rec SavedResearch) error {
	var lastErr error
	ok := false
	for _, b := range m.targets() {
		if err := b.SaveResearch(ctx, rec); err != nil {
			m.logger.Error("failed to save research", "backend", b.Name(), "session_id", rec.SessionID, "error", err)
			lastErr = err
			continue
		}
		ok = true
	}
	if !ok {
		return fmt.Errorf("failed to save research in any backend: %w", lastErr)
	}
	return nil
}

// GetSavedResearchAll returns every backend's saved research for the session,
// keyed by backend name.
func (m *Manager) GetSavedResearchAll(ctx context.Context, sessionID string) map[string][]SavedResearch {
	results := make(map[string][]SavedResearch)
	for _, b := range m.targets() {
		items, err := b.GetSavedResearch(ctx, sessionID)
		if err != nil {
			m.logger.Error("failed to get saved research", "backend", b.Name(), "session_id", sessionID, "error", err)
			continue
		}
		if len(items) > 0 {
			results[b.Name()] = items
		}
	}
	if len(results) == 0 && len(m.backends) > 0 {
		if items, err := m.fallback.GetSavedResearch(ctx, sessionID); err == nil && len(items) > 0 {
			results[m.fallback.Name()] = items
		}
	}
	return results
}

// GetSavedResearch picks the preferred backend's saved research.
func (m *Manager) GetSavedResearch(ctx context.Context, sessionID string) []SavedResearch {
	results := m.GetSavedResearchAll(ctx, sessionID)
	for _, name := range preference {
		if items, ok := results[name]; ok {
			return items
		}
	}
	return []SavedResearch{}
}

func (m *Manager) DeleteSavedResearch(ctx context.Context, sessionID, query string) error {
	var lastErr error
	ok := false
	for _, b := range m.targets() {
		if err := b.DeleteSavedResearch(ctx, sessionID, query); err != nil {
			m.logger.Error("failed to delete saved research", "backend", b.Name(), "session_id", sessionID, "error", err)
			lastErr = err
			continue
		}
		ok = true
	}
	if !ok {
		return fmt.Errorf("failed to delete saved research in any backend: %w", lastErr)
	}
	return nil
}
