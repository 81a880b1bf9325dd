package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/mikeboe/aria-backend/pkg/search"
	"github.com/mikeboe/aria-backend/pkg/storage"
)

// fakeModel answers each call by matching a marker string against the last
// user message. Unmatched prompts get the fallback.
type fakeModel struct {
	responses map[string]string
	fallback  string
	calls     int
	prompts   []string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	var prompt string
	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt += text.Text
			}
		}
	}
	f.prompts = append(f.prompts, prompt)
	content := f.fallback
	for marker, resp := range f.responses {
		if strings.Contains(prompt, marker) {
			content = resp
			break
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

type fakeSearcher struct {
	results map[string][]search.Result
	delays  map[string]time.Duration
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, numResults int) ([]search.Result, error) {
	if d := f.delays[query]; d > 0 {
		time.Sleep(d)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func newTestStore(t *testing.T) *storage.Manager {
	t.Helper()
	fileStore, err := storage.NewFileStore("", slog.Default())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return storage.NewManager(fileStore, slog.Default())
}

func testResults() []search.Result {
	return []search.Result{
		{Title: "Study A", Link: "https://example.com/a", Author: "Journal A", Published: "2024-01-01", Snippet: "Snippet about the topic from study A."},
		{Title: "Study B", Link: "https://example.com/b", Author: "Journal B", Published: "2024-02-01", Snippet: "Snippet about the topic from study B."},
	}
}

func TestRunResearch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if _, err := store.CreateSession(ctx, "sess-1", "user-1"); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	model := &fakeModel{
		responses: map[string]string{
			"Academic Summary Synthesis":             "A synthesized summary.",
			"Structured Academic Note Generation":    "- Note one\n- Note two",
			"Academic Insight Extraction":            "Insight one. Insight two.",
			"Academic Research Question Development": "1. How does the topic interact with adjacent fields over time?\n2. What methodological gaps persist in current studies?\n3. Which populations remain understudied in this area?\n4. Extra question that should be dropped by the cap entirely?",
			"Reflecting Question Generation":         "1. Why does this matter?\n2. Who is affected most?\n3. What would change your mind?",
			"Academic Report Generation":             "Introduction\nBody\nConclusion",
		},
		fallback: "fallback",
	}
	searcher := &fakeSearcher{results: map[string][]search.Result{"quantum computing": testResults()}}

	p := NewPipeline(model, store, searcher, slog.Default())

	out, err := p.RunResearch(ctx, "sess-1", "quantum computing", 2)
	if err != nil {
		t.Fatalf("RunResearch() error = %v", err)
	}

	if out.Topic != "quantum computing" || out.OriginalTopic != "quantum computing" {
		t.Errorf("topic = %q, original = %q", out.Topic, out.OriginalTopic)
	}
	if out.CorrectionMade {
		t.Error("CorrectionMade = true without a corrector")
	}
	if out.Summary != "A synthesized summary." {
		t.Errorf("Summary = %q", out.Summary)
	}
	if len(out.Suggestions) != 3 {
		t.Errorf("len(Suggestions) = %d, want 3", len(out.Suggestions))
	}
	if len(out.ReflectingQuestions) != 3 {
		t.Errorf("len(ReflectingQuestions) = %d, want 3", len(out.ReflectingQuestions))
	}
	if len(out.Sources) != 2 {
		t.Errorf("len(Sources) = %d, want 2", len(out.Sources))
	}
	if model.calls != 6 {
		t.Errorf("model calls = %d, want 6", model.calls)
	}

	session, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if session.CurrentTopic != "quantum computing" {
		t.Errorf("CurrentTopic = %q", session.CurrentTopic)
	}
	if len(session.ResearchHistory) != 1 {
		t.Fatalf("len(ResearchHistory) = %d, want 1", len(session.ResearchHistory))
	}
	if session.ResearchHistory[0].Summary != "A synthesized summary." {
		t.Errorf("persisted summary = %q", session.ResearchHistory[0].Summary)
	}
	if len(session.Sources) != 2 {
		t.Errorf("len(session.Sources) = %d, want 2", len(session.Sources))
	}

	history := store.GetSearchHistory(ctx, "sess-1")
	if len(history) != 1 {
		t.Fatalf("len(search history) = %d, want 1", len(history))
	}
	if history[0].Query != "quantum computing" || history[0].NumResults != 2 {
		t.Errorf("history entry = %+v", history[0])
	}
}

func TestRunResearchCorrection(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if _, err := store.CreateSession(ctx, "sess-1", ""); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	model := &fakeModel{fallback: "text"}
	searcher := &fakeSearcher{results: map[string][]search.Result{"quantum computing": testResults()}}

	p := NewPipeline(model, store, searcher, slog.Default())
	p.Correct = func(topic string) string { return "quantum computing" }

	out, err := p.RunResearch(ctx, "sess-1", "quantam computing", 2)
	if err != nil {
		t.Fatalf("RunResearch() error = %v", err)
	}
	if !out.CorrectionMade {
		t.Error("CorrectionMade = false, want true")
	}
	if out.Topic != "quantum computing" || out.OriginalTopic != "quantam computing" {
		t.Errorf("topic = %q, original = %q", out.Topic, out.OriginalTopic)
	}
}

func TestRunResearchNoResults(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if _, err := store.CreateSession(ctx, "sess-1", ""); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	p := NewPipeline(&fakeModel{fallback: "x"}, store, &fakeSearcher{}, slog.Default())

	_, err := p.RunResearch(ctx, "sess-1", "nothing here", 3)
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("RunResearch() error = %v, want ErrNoResults", err)
	}

	session, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if len(session.ResearchHistory) != 0 {
		t.Errorf("len(ResearchHistory) = %d, want 0", len(session.ResearchHistory))
	}
	if len(store.GetSearchHistory(ctx, "sess-1")) != 0 {
		t.Error("search history recorded despite failed run")
	}
}

func TestCompleteEmptyResponse(t *testing.T) {
	model := &fakeModel{fallback: "   "}
	p := NewPipeline(model, newTestStore(t), &fakeSearcher{}, slog.Default())

	got, err := p.complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.3, 100)
	if err != nil {
		t.Fatalf("complete() error = %v", err)
	}
	if got != "No response generated." {
		t.Errorf("complete() = %q, want placeholder", got)
	}
}

func TestBuildChatMessages(t *testing.T) {
	session := &storage.Session{
		CurrentTopic: "reef ecology",
		ResearchHistory: []storage.ResearchEntry{
			{Topic: "reef ecology", Summary: "reef summary", Insights: "reef insights"},
		},
		ConversationHistory: []storage.ConversationTurn{
			{User: "q1", Assistant: "a1"},
			{User: "q2", Assistant: "a2"},
			{User: "q3", Assistant: "a3"},
			{User: "q4", Assistant: "a4"},
			{User: "q5", Assistant: "a5"},
			{User: "q6", Assistant: "a6"},
		},
	}

	t.Run("history takes precedence", func(t *testing.T) {
		history := []HistoryMessage{
			{Role: "user", Content: "first question"},
			{Role: "ai", Content: "first answer"},
		}
		msgs := buildChatMessages(session, "second question", history)
		if len(msgs) != 4 {
			t.Fatalf("len(msgs) = %d, want 4", len(msgs))
		}
		if msgs[0].Role != "system" {
			t.Errorf("msgs[0].Role = %q", msgs[0].Role)
		}
		if msgs[2].Role != "assistant" || msgs[2].Content != "first answer" {
			t.Errorf("msgs[2] = %+v, want assistant turn", msgs[2])
		}
		if msgs[3].Role != "user" || msgs[3].Content != "second question" {
			t.Errorf("msgs[3] = %+v", msgs[3])
		}
	})

	t.Run("trailing duplicate not re-appended", func(t *testing.T) {
		history := []HistoryMessage{
			{Role: "user", Content: "same question"},
		}
		msgs := buildChatMessages(session, "same question", history)
		if len(msgs) != 2 {
			t.Fatalf("len(msgs) = %d, want 2", len(msgs))
		}
	})

	t.Run("unknown roles and empty content skipped", func(t *testing.T) {
		history := []HistoryMessage{
			{Role: "system", Content: "injected"},
			{Role: "user", Content: ""},
			{Role: "user", Content: "real question"},
		}
		msgs := buildChatMessages(session, "follow up", history)
		if len(msgs) != 3 {
			t.Fatalf("len(msgs) = %d, want 3", len(msgs))
		}
		if msgs[1].Content != "real question" {
			t.Errorf("msgs[1].Content = %q", msgs[1].Content)
		}
	})

	t.Run("session context without history", func(t *testing.T) {
		msgs := buildChatMessages(session, "what about bleaching?", nil)
		if len(msgs) != 2 {
			t.Fatalf("len(msgs) = %d, want 2", len(msgs))
		}
		content := msgs[1].Content
		if !strings.Contains(content, "reef summary") || !strings.Contains(content, "reef insights") {
			t.Error("context missing latest research entry")
		}
		if strings.Contains(content, "User: q1") {
			t.Error("context includes turns older than the last five")
		}
		for i := 2; i <= 6; i++ {
			if !strings.Contains(content, fmt.Sprintf("User: q%d", i)) {
				t.Errorf("context missing turn q%d", i)
			}
		}
		if !strings.Contains(content, "what about bleaching?") {
			t.Error("context missing the user message")
		}
	})
}

func TestRunChatTurn(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if _, err := store.CreateSession(ctx, "sess-1", ""); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	model := &fakeModel{fallback: "an answer"}
	p := NewPipeline(model, store, &fakeSearcher{}, slog.Default())

	out, err := p.RunChatTurn(ctx, "sess-1", "hello", nil)
	if err != nil {
		t.Fatalf("RunChatTurn() error = %v", err)
	}
	if out.Response != "an answer" {
		t.Errorf("Response = %q", out.Response)
	}

	session, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if len(session.ConversationHistory) != 1 {
		t.Fatalf("len(ConversationHistory) = %d, want 1", len(session.ConversationHistory))
	}
	turn := session.ConversationHistory[0]
	if turn.User != "hello" || turn.Assistant != "an answer" {
		t.Errorf("turn = %+v", turn)
	}
}

func TestRunChatTurnUnknownSession(t *testing.T) {
	p := NewPipeline(&fakeModel{fallback: "x"}, newTestStore(t), &fakeSearcher{}, slog.Default())
	_, err := p.RunChatTurn(context.Background(), "missing", "hello", nil)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("RunChatTurn() error = %v, want ErrNotFound", err)
	}
}

func TestFetchArticlesDedupeAndCap(t *testing.T) {
	// Every reformulated query returns the same 6 links plus one unique per
	// query, so the merged set must contain each link once.
	shared := make([]search.Result, 6)
	for i := range shared {
		shared[i] = search.Result{
			Title: fmt.Sprintf("Shared %d", i),
			Link:  fmt.Sprintf("https://example.com/shared/%d", i),
		}
	}
	results := make(map[string][]search.Result)
	for i, q := range queryReformulations("ocean currents") {
		unique := search.Result{
			Title: fmt.Sprintf("Unique %d", i),
			Link:  fmt.Sprintf("https://example.com/unique/%d", i),
		}
		results[q] = append(append([]search.Result{}, shared...), unique)
	}

	p := NewPipeline(&fakeModel{fallback: "x"}, newTestStore(t), &fakeSearcher{results: results}, slog.Default())

	articles := p.fetchArticles(context.Background(), "ocean currents", 10)
	if len(articles) != 11 {
		t.Fatalf("len(articles) = %d, want 11 (6 shared + 5 unique)", len(articles))
	}
	seen := make(map[string]bool)
	for _, a := range articles {
		if seen[a.Link] {
			t.Errorf("duplicate link %q", a.Link)
		}
		seen[a.Link] = true
	}
}

func TestFetchArticlesCap(t *testing.T) {
	results := make(map[string][]search.Result)
	n := 0
	for _, q := range queryReformulations("big topic") {
		var batch []search.Result
		for i := 0; i < 10; i++ {
			batch = append(batch, search.Result{Link: fmt.Sprintf("https://example.com/%d", n)})
			n++
		}
		results[q] = batch
	}

	p := NewPipeline(&fakeModel{fallback: "x"}, newTestStore(t), &fakeSearcher{results: results}, slog.Default())

	articles := p.fetchArticles(context.Background(), "big topic", 10)
	if len(articles) != 20 {
		t.Fatalf("len(articles) = %d, want 20", len(articles))
	}
}

func TestFetchArticlesOrderFollowsReformulations(t *testing.T) {
	// The earlier queries get the longer delays, so goroutine completion
	// order is the reverse of reformulation order. The merged list must
	// still follow reformulation order.
	queries := queryReformulations("deep sea mining")
	results := make(map[string][]search.Result)
	delays := make(map[string]time.Duration)
	for i, q := range queries {
		results[q] = []search.Result{{
			Title: fmt.Sprintf("Article %d", i),
			Link:  fmt.Sprintf("https://example.com/%d", i),
		}}
		delays[q] = time.Duration(len(queries)-i) * 5 * time.Millisecond
	}

	p := NewPipeline(&fakeModel{fallback: "x"}, newTestStore(t), &fakeSearcher{results: results, delays: delays}, slog.Default())

	articles := p.fetchArticles(context.Background(), "deep sea mining", 1)
	if len(articles) != len(queries) {
		t.Fatalf("len(articles) = %d, want %d", len(articles), len(queries))
	}
	for i, a := range articles {
		if want := fmt.Sprintf("https://example.com/%d", i); a.Link != want {
			t.Errorf("articles[%d].Link = %q, want %q", i, a.Link, want)
		}
	}
}

func TestRunFullResearch(t *testing.T) {
	model := &fakeModel{
		responses: map[string]string{
			"Advanced Article Comparison":              "SECTION 1: EXECUTIVE SUMMARY\nKey material.",
			"Comprehensive Academic Report Generation": "# Title\n\n\n\nAbstract\nBody text.",
		},
		fallback: "fallback",
	}
	results := map[string][]search.Result{}
	for _, q := range queryReformulations("solar storms") {
		results[q] = testResults()
	}

	p := NewPipeline(model, newTestStore(t), &fakeSearcher{results: results}, slog.Default())

	out, err := p.RunFullResearch(context.Background(), "solar storms", 5)
	if err != nil {
		t.Fatalf("RunFullResearch() error = %v", err)
	}
	if out.RelevantSummary != "SECTION 1: EXECUTIVE SUMMARY\nKey material." {
		t.Errorf("RelevantSummary = %q", out.RelevantSummary)
	}
	// cleanReport strips the heading hash and collapses blank lines.
	if out.StructuredReport != "Title\n\nAbstract\nBody text." {
		t.Errorf("StructuredReport = %q", out.StructuredReport)
	}
	if len(out.Articles) != 2 {
		t.Errorf("len(Articles) = %d, want 2", len(out.Articles))
	}
}

func TestRunFullResearchScrapesTopArticles(t *testing.T) {
	model := &fakeModel{fallback: "analysis"}
	results := map[string][]search.Result{}
	for _, q := range queryReformulations("tidal power") {
		results[q] = testResults()
	}

	p := NewPipeline(model, newTestStore(t), &fakeSearcher{results: results}, slog.Default())
	p.Scrape = func(ctx context.Context, url string) string {
		return "scraped body for " + url
	}

	if _, err := p.RunFullResearch(context.Background(), "tidal power", 5); err != nil {
		t.Fatalf("RunFullResearch() error = %v", err)
	}

	// The report prompt is the last model call and must carry the excerpts.
	last := model.prompts[len(model.prompts)-1]
	if !strings.Contains(last, "ARTICLE EXCERPTS") {
		t.Error("report prompt missing the excerpts block")
	}
	if !strings.Contains(last, "scraped body for https://example.com/a") {
		t.Error("report prompt missing scraped article text")
	}
}

func TestRunFullResearchNoArticles(t *testing.T) {
	p := NewPipeline(&fakeModel{fallback: "x"}, newTestStore(t), &fakeSearcher{}, slog.Default())
	_, err := p.RunFullResearch(context.Background(), "empty", 5)
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("RunFullResearch() error = %v, want ErrNoResults", err)
	}
}
