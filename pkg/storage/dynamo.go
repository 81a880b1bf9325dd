package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoTables names the three tables the key-value backend uses.
// sessions:        PK session_id
// search_history:  PK session_id, SK timestamp
// saved_research:  PK session_id, SK sk ("query#section" with escaped
// separators), so several sections can live under one query.
type DynamoTables struct {
	Sessions      string
	SearchHistory string
	SavedResearch string
}

// DynamoStore is the key-value cloud-table backend.
type DynamoStore struct {
	client *dynamodb.Client
	tables DynamoTables
}

func NewDynamoStore(ctx context.Context, region string, tables DynamoTables) (*DynamoStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &DynamoStore{
		client: dynamodb.NewFromConfig(cfg),
		tables: tables,
	}, nil
}

func (s *DynamoStore) Name() string { return BackendDynamo }

func sessionKey(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: sessionID},
	}
}

func (s *DynamoStore) CreateSession(ctx context.Context, sessionID, userID string) (*Session, error) {
	now := Now()
	session := &Session{
		SessionID:           sessionID,
		UserID:              userID,
		ResearchHistory:     []ResearchEntry{},
		ConversationHistory: []ConversationTurn{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	item, err := attributevalue.MarshalMap(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Sessions),
		Item:      item,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put session: %w", err)
	}
	return session, nil
}

func (s *DynamoStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Sessions),
		Key:       sessionKey(sessionID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var session Session
	if err := attributevalue.UnmarshalMap(out.Item, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// UpdateSession rewrites the whole item. Sessions are always read, mutated and
// written back in full, so a put is equivalent to a field-wise update here.
func (s *DynamoStore) UpdateSession(ctx context.Context, session *Session) error {
	session.UpdatedAt = Now()
	item, err := attributevalue.MarshalMap(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Sessions),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (s *DynamoStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tables.Sessions),
		Key:       sessionKey(sessionID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := s.deleteBySession(ctx, s.tables.SearchHistory, "timestamp", sessionID); err != nil {
		return err
	}
	return s.deleteBySession(ctx, s.tables.SavedResearch, "sk", sessionID)
}

// deleteBySession removes every item under a session partition.
func (s *DynamoStore) deleteBySession(ctx context.Context, table, sortAttr, sessionID string) error {
	// "timestamp" is a reserved word, so the sort attribute goes through an
	// expression attribute name.
	pager := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(table),
		KeyConditionExpression: aws.String("session_id = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
		},
		ExpressionAttributeNames: map[string]string{"#sk": sortAttr},
		ProjectionExpression:     aws.String("session_id, #sk"),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", table, err)
		}
		for _, item := range page.Items {
			_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(table),
				Key: map[string]types.AttributeValue{
					"session_id": item["session_id"],
					sortAttr:     item[sortAttr],
				},
			})
			if err != nil {
				return fmt.Errorf("failed to delete from %s: %w", table, err)
			}
		}
	}
	return nil
}

func (s *DynamoStore) AddSearchHistory(ctx context.Context, entry SearchHistoryEntry) error {
	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal search history: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.SearchHistory),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put search history: %w", err)
	}
	return nil
}

func (s *DynamoStore) GetSearchHistory(ctx context.Context, sessionID string) ([]SearchHistoryEntry, error) {
	pager := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.SearchHistory),
		KeyConditionExpression: aws.String("session_id = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
		},
	})
	var entries []SearchHistoryEntry
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query search history: %w", err)
		}
		var batch []SearchHistoryEntry
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal search history: %w", err)
		}
		entries = append(entries, batch...)
	}
	return entries, nil
}

// savedResearchSortKey builds the composite sort key. Separator characters
// inside the query or section name are escaped, so distinct (query, section)
// pairs never produce the same key.
func savedResearchSortKey(query, sectionName string) string {
	return escapeSortKeyPart(query) + "#" + escapeSortKeyPart(sectionName)
}

func escapeSortKeyPart(part string) string {
	part = strings.ReplaceAll(part, `\`, `\\`)
	return strings.ReplaceAll(part, "#", `\#`)
}

func (s *DynamoStore) SaveResearch(ctx context.Context, rec SavedResearch) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal saved research: %w", err)
	}
	item["sk"] = &types.AttributeValueMemberS{Value: savedResearchSortKey(rec.Query, rec.SectionName)}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.SavedResearch),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put saved research: %w", err)
	}
	return nil
}

func (s *DynamoStore) GetSavedResearch(ctx context.Context, sessionID string) ([]SavedResearch, error) {
	pager := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.SavedResearch),
		KeyConditionExpression: aws.String("session_id = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
		},
	})
	var items []SavedResearch
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query saved research: %w", err)
		}
		var batch []SavedResearch
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal saved research: %w", err)
		}
		items = append(items, batch...)
	}
	return items, nil
}

// DeleteSavedResearch matches on the stored query attribute rather than a sort
// key prefix. A prefix match would also hit another query whose name starts
// with this query plus the separator.
func (s *DynamoStore) DeleteSavedResearch(ctx context.Context, sessionID, query string) error {
	// "query" needs an expression attribute name like "timestamp" does.
	pager := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.SavedResearch),
		KeyConditionExpression: aws.String("session_id = :sid"),
		FilterExpression:       aws.String("#q = :q"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
			":q":   &types.AttributeValueMemberS{Value: query},
		},
		ExpressionAttributeNames: map[string]string{"#q": "query"},
		ProjectionExpression:     aws.String("session_id, sk"),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to query saved research: %w", err)
		}
		for _, item := range page.Items {
			_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(s.tables.SavedResearch),
				Key: map[string]types.AttributeValue{
					"session_id": item["session_id"],
					"sk":         item["sk"],
				},
			})
			if err != nil {
				return fmt.Errorf("failed to delete saved research: %w", err)
			}
		}
	}
	return nil
}
