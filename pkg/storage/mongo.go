package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	sessionsCollection      = "sessions"
	searchHistoryCollection = "search_history"
	savedResearchCollection = "saved_research"
)

// MongoStore is the document-store backend.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects, pings and creates the lookup indexes.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &MongoStore{
		client: client,
		db:     client.Database(dbName),
	}
	if err := s.createIndexes(ctx); err != nil {
		// Index creation is best effort; lookups still work without them.
		return s, nil
	}
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	_, err := s.db.Collection(sessionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	for _, coll := range []string{searchHistoryCollection, savedResearchCollection} {
		_, err = s.db.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "session_id", Value: 1}},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Name() string { return BackendMongoDB }

func (s *MongoStore) CreateSession(ctx context.Context, sessionID, userID string) (*Session, error) {
	now := Now()
	session := &Session{
		SessionID:           sessionID,
		UserID:              userID,
		ResearchHistory:     []ResearchEntry{},
		ConversationHistory: []ConversationTurn{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if _, err := s.db.Collection(sessionsCollection).InsertOne(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return session, nil
}

func (s *MongoStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	err := s.db.Collection(sessionsCollection).
		FindOne(ctx, bson.M{"session_id": sessionID}).
		Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (s *MongoStore) UpdateSession(ctx context.Context, session *Session) error {
	session.UpdatedAt = Now()
	_, err := s.db.Collection(sessionsCollection).ReplaceOne(ctx,
		bson.M{"session_id": session.SessionID},
		session,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.Collection(sessionsCollection).DeleteOne(ctx, bson.M{"session_id": sessionID}); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if _, err := s.db.Collection(searchHistoryCollection).DeleteMany(ctx, bson.M{"session_id": sessionID}); err != nil {
		return fmt.Errorf("failed to delete search history: %w", err)
	}
	if _, err := s.db.Collection(savedResearchCollection).DeleteMany(ctx, bson.M{"session_id": sessionID}); err != nil {
		return fmt.Errorf("failed to delete saved research: %w", err)
	}
	return nil
}

func (s *MongoStore) AddSearchHistory(ctx context.Context, entry SearchHistoryEntry) error {
	if _, err := s.db.Collection(searchHistoryCollection).InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert search history: %w", err)
	}
	return nil
}

func (s *MongoStore) GetSearchHistory(ctx context.Context, sessionID string) ([]SearchHistoryEntry, error) {
	cursor, err := s.db.Collection(searchHistoryCollection).Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query search history: %w", err)
	}
	var entries []SearchHistoryEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode search history: %w", err)
	}
	return entries, nil
}

func (s *MongoStore) SaveResearch(ctx context.Context, rec SavedResearch) error {
	if _, err := s.db.Collection(savedResearchCollection).InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert saved research: %w", err)
	}
	return nil
}

func (s *MongoStore) GetSavedResearch(ctx context.Context, sessionID string) ([]SavedResearch, error) {
	cursor, err := s.db.Collection(savedResearchCollection).Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "saved_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved research: %w", err)
	}
	var items []SavedResearch
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode saved research: %w", err)
	}
	return items, nil
}

func (s *MongoStore) DeleteSavedResearch(ctx context.Context, sessionID, query string) error {
	_, err := s.db.Collection(savedResearchCollection).DeleteMany(ctx, bson.M{
		"session_id": sessionID,
		"query":      query,
	})
	if err != nil {
		return fmt.Errorf("failed to delete saved research: %w", err)
	}
	return nil
}
