package research

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mikeboe/aria-backend/pkg/search"
)

const (
	maxFullResearchArticles = 20
	maxRelevantArticles     = 5
)

// FullResearchOutput is the result of the three-stage deep research chain.
type FullResearchOutput struct {
	Articles         []search.Result `json:"articles"`
	RelevantSummary  string          `json:"relevant_summary"`
	StructuredReport string          `json:"structured_report"`
}

// queryReformulations derives the set of queries the fetch stage issues.
// The variants widen coverage of the topic without drifting off it.
func queryReformulations(query string) []string {
	return []string{
		query,
		query + " overview",
		query + " analysis",
		query + " research findings",
		query + " latest developments",
	}
}

// fetchArticles runs all reformulated queries concurrently, merges results,
// deduplicates by link and caps the set at 20 articles. Each query's batch
// lands in its own slot and the flatten walks the slots in reformulation
// order, so the merged list and the cap are deterministic regardless of
// goroutine scheduling.
func (p *Pipeline) fetchArticles(ctx context.Context, query string, perQuery int) []search.Result {
	queries := queryReformulations(query)
	batches := make([][]search.Result, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			results, err := p.Search.Search(ctx, q, perQuery)
			if err != nil {
				p.Logger.Error("article fetch failed", "query", q, "error", err)
				return
			}
			batches[i] = results
		}(i, q)
	}
	wg.Wait()

	unique := make([]search.Result, 0, maxFullResearchArticles)
	seen := make(map[string]bool)
	for _, batch := range batches {
		for _, r := range batch {
			if seen[r.Link] {
				continue
			}
			seen[r.Link] = true
			unique = append(unique, r)
			if len(unique) >= maxFullResearchArticles {
				return unique
			}
		}
	}
	return unique
}

// scrapeArticles pulls full text for the selected articles so the report
// stage has more than snippets to work from. Scrape never errors; failed
// fetches produce a diagnostic line the model can ignore.
func (p *Pipeline) scrapeArticles(ctx context.Context, articles []search.Result) string {
	var sb strings.Builder
	for _, a := range articles {
		text := p.Scrape(ctx, a.Link)
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "Source: %s\n%s\n\n", a.Title, text)
	}
	return strings.TrimSpace(sb.String())
}

// RunFullResearch runs the deep research chain: fetch articles across
// reformulated queries, extract the most relevant material in one batched
// analysis call, and generate a structured plain-text report from it.
func (p *Pipeline) RunFullResearch(ctx context.Context, query string, numResults int) (*FullResearchOutput, error) {
	if numResults <= 0 || numResults > maxFullResearchArticles {
		numResults = maxFullResearchArticles
	}

	p.Logger.Info("starting full research", "query", query, "num_results", numResults)

	articles := p.fetchArticles(ctx, query, numResults)
	if len(articles) == 0 {
		return nil, ErrNoResults
	}

	relevantSummary, err := p.complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: analysisPrompt(query, query, articles)},
	}, 0.3, 600)
	if err != nil {
		return nil, fmt.Errorf("analysis stage failed: %w", err)
	}

	// TODO: the analysis prompt asks the model for a relevance ranking but
	// the selection below still takes the first five articles in fetch
	// order. Parse the ranking out of relevantSummary and reorder.
	topArticles := articles
	if len(topArticles) > maxRelevantArticles {
		topArticles = topArticles[:maxRelevantArticles]
	}

	reportData := relevantSummary
	if p.Scrape != nil {
		if excerpts := p.scrapeArticles(ctx, topArticles); excerpts != "" {
			reportData += "\n\nARTICLE EXCERPTS:\n" + excerpts
		}
	}

	report, err := p.complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: structuredReportPrompt(query, reportData, topArticles)},
	}, 0.3, 900)
	if err != nil {
		return nil, fmt.Errorf("report stage failed: %w", err)
	}

	return &FullResearchOutput{
		Articles:         articles,
		RelevantSummary:  relevantSummary,
		StructuredReport: cleanReport(report),
	}, nil
}
