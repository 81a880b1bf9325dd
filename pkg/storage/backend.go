package storage

import (
	"context"
	"errors"
)

// ErrNotFound reports an unknown session. Callers must be able to tell a
// missing record apart from a transport failure.
var ErrNotFound = errors.New("session not found")

// Backend names used as keys in merged read results.
const (
	BackendFile    = "file"
	BackendMongoDB = "mongodb"
	BackendDynamo  = "dynamodb"
)

// Backend is one concrete store behind the Manager. Adapters are constructed
// explicitly and injected; the Manager never probes for availability.
type Backend interface {
	Name() string

	CreateSession(ctx context.Context, sessionID, userID string) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	DeleteSession(ctx context.Context, sessionID string) error

	AddSearchHistory(ctx context.Context, entry SearchHistoryEntry) error
	GetSearchHistory(ctx context.Context, sessionID string) ([]SearchHistoryEntry, error)

	SaveResearch(ctx context.Context, rec SavedResearch) error
	GetSavedResearch(ctx context.Context, sessionID string) ([]SavedResearch, error)
	DeleteSavedResearch(ctx context.Context, sessionID, query string) error
}
