package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Result represents a single search result.
type Result struct {
	Title     string `json:"title" bson:"title" dynamodbav:"title"`
	Link      string `json:"link" bson:"link" dynamodbav:"link"`
	Author    string `json:"author" bson:"author" dynamodbav:"author"`
	Published string `json:"published" bson:"published" dynamodbav:"published"`
	Snippet   string `json:"snippet" bson:"snippet" dynamodbav:"snippet"`
}

// Searcher is the contract the research pipeline depends on. A zero-result
// query is not an error; only transport failures are.
type Searcher interface {
	Search(ctx context.Context, query string, numResults int) ([]Result, error)
}

// Client queries the SerpAPI Google engine.
type Client struct {
	APIKey     string
	BaseURL    string
	Engine     string
	HTTPClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: "https://serpapi.com/search",
		Engine:  "google",
		HTTPClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type serpOrganicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Source  string `json:"source"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
}

type serpResponse struct {
	OrganicResults []serpOrganicResult `json:"organic_results"`
}

// Search runs one query and maps the organic results. Missing fields get the
// same placeholders the frontend already expects.
func (c *Client) Search(ctx context.Context, query string, numResults int) ([]Result, error) {
	if numResults <= 0 {
		numResults = 3
	}

	params := url.Values{}
	params.Add("q", query)
	params.Add("api_key", c.APIKey)
	params.Add("engine", c.Engine)
	params.Add("num", strconv.Itoa(numResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search API error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("Search API returned non-200 status", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("search API error: status %d", resp.StatusCode)
	}

	var data serpResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search response: %w", err)
	}

	results := make([]Result, 0, len(data.OrganicResults))
	for i, item := range data.OrganicResults {
		if i >= numResults {
			break
		}
		r := Result{
			Title:     item.Title,
			Link:      item.Link,
			Author:    item.Source,
			Published: item.Date,
			Snippet:   item.Snippet,
		}
		if r.Title == "" {
			r.Title = "No Title"
		}
		if r.Link == "" {
			r.Link = "No URL"
		}
		if r.Author == "" {
			r.Author = "Unknown Source"
		}
		if r.Published == "" {
			r.Published = "Accessed on " + time.Now().Format("2006-01-02")
		}
		results = append(results, r)
	}

	return results, nil
}
