package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/aria-backend/pkg/search"
	"github.com/mikeboe/aria-backend/pkg/storage"
)

// ErrNoResults is returned when the search collaborator finds nothing for a
// topic. Nothing is persisted in that case.
var ErrNoResults = errors.New("no search results found")

const defaultNumResults = 3

// CorrectFunc optionally rewrites a raw topic before searching, for example
// spell correction. The identity function is used when nil.
type CorrectFunc func(topic string) string

// Pipeline runs the staged research flow: search, then a fixed sequence of
// model calls, then persistence. Stages are strictly sequential and fail
// fast; a failed stage persists nothing.
type Pipeline struct {
	LLM         llms.Model
	Store       *storage.Manager
	Search      search.Searcher
	Scrape      func(ctx context.Context, url string) string
	Correct     CorrectFunc
	Logger      *slog.Logger
	CallTimeout time.Duration
}

func NewPipeline(llm llms.Model, store *storage.Manager, searcher search.Searcher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		LLM:         llm,
		Store:       store,
		Search:      searcher,
		Logger:      logger,
		CallTimeout: defaultCallTimeout,
	}
}

// ResearchOutput is the assembled artifact of one research run.
type ResearchOutput struct {
	SessionID           string          `json:"session_id"`
	Topic               string          `json:"topic"`
	OriginalTopic       string          `json:"original_topic"`
	CorrectionMade      bool            `json:"correction_made"`
	Timestamp           string          `json:"timestamp"`
	Summary             string          `json:"summary"`
	Notes               string          `json:"notes"`
	KeyInsights         string          `json:"key_insights"`
	Sources             []search.Result `json:"sources"`
	Suggestions         []string        `json:"suggestions"`
	Report              string          `json:"report"`
	ReflectingQuestions []string        `json:"reflecting_questions"`
}

// RunResearch executes the full staged flow for a topic and persists the
// result into the session. numResults <= 0 falls back to the default of 3.
func (p *Pipeline) RunResearch(ctx context.Context, sessionID, topic string, numResults int) (*ResearchOutput, error) {
	correctedTopic := topic
	if p.Correct != nil {
		correctedTopic = p.Correct(topic)
	}
	correctionMade := !strings.EqualFold(strings.TrimSpace(correctedTopic), strings.TrimSpace(topic))

	if numResults <= 0 {
		numResults = defaultNumResults
	}

	p.Logger.Info("starting research", "session_id", sessionID, "topic", correctedTopic, "num_results", numResults)

	results, err := p.Search.Search(ctx, correctedTopic, numResults)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	summary, err := p.complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: summaryPrompt(correctedTopic, results)},
	}, 0.3, 500)
	if err != nil {
		return nil, fmt.Errorf("summary stage failed: %w", err)
	}

	notes, err := p.complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: notesPrompt(correctedTopic, results)},
	}, 0.2, 350)
	if err != nil {
		return nil, fmt.Errorf("notes stage failed: %w", err)
	}

	snippets := make([]string, 0, len(results))
	for _, r := range results {
		if r.Snippet != "" {
			snippets = append(snippets, r.Snippet)
		}
	}
	insights, err := p.complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: insightsPrompt(correctedTopic, snippets)},
	}, 0.3, 350)
	if err != nil {
		return nil, fmt.Errorf("insights stage failed: %w", err)
	}

	suggestionsText, err := p.complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: suggestionsPrompt(correctedTopic)},
	}, 0.4, 200)
	if err != nil {
		return nil, fmt.Errorf("suggestions stage failed: %w", err)
	}
	suggestions := parseSuggestions(suggestionsText)

	reflectingText, err := p.complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: reflectingQuestionsPrompt(correctedTopic)},
	}, 0.4, 120)
	if err != nil {
		return nil, fmt.Errorf("reflecting questions stage failed: %w", err)
	}
	reflectingQuestions := parseReflectingQuestions(reflectingText)

	report, err := p.complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: reportPrompt(correctedTopic, summary, notes, insights, suggestions, results)},
	}, 0.3, 700)
	if err != nil {
		return nil, fmt.Errorf("report stage failed: %w", err)
	}

	timestamp := storage.Now()
	entry := storage.ResearchEntry{
		Timestamp:      timestamp,
		Topic:          correctedTopic,
		OriginalTopic:  topic,
		CorrectionMade: correctionMade,
		Results:        results,
		Summary:        summary,
		Notes:          notes,
		Insights:       insights,
		Sources:        results,
	}

	session, err := p.Store.GetSession(ctx, sessionID)
	if err == nil {
		session.ResearchHistory = append(session.ResearchHistory, entry)
		session.CurrentTopic = correctedTopic
		session.Sources = append(session.Sources, results...)
		if err := p.Store.UpdateSession(ctx, session); err != nil {
			p.Logger.Error("failed to persist research entry", "session_id", sessionID, "error", err)
		}
	} else {
		p.Logger.Warn("session not found, research not appended", "session_id", sessionID, "error", err)
	}

	if err := p.Store.AddSearchHistory(ctx, storage.SearchHistoryEntry{
		SessionID:  sessionID,
		Query:      correctedTopic,
		Timestamp:  timestamp,
		NumResults: numResults,
	}); err != nil {
		p.Logger.Error("failed to record search history", "session_id", sessionID, "error", err)
	}

	return &ResearchOutput{
		SessionID:           sessionID,
		Topic:               correctedTopic,
		OriginalTopic:       topic,
		CorrectionMade:      correctionMade,
		Timestamp:           timestamp,
		Summary:             summary,
		Notes:               notes,
		KeyInsights:         insights,
		Sources:             results,
		Suggestions:         suggestions,
		Report:              report,
		ReflectingQuestions: reflectingQuestions,
	}, nil
}
