package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// articleTextCap bounds how much scraped text a single article contributes.
const articleTextCap = 5000

// ArticleText fetches a page and concatenates the text of its <p> elements.
// On any failure it returns a diagnostic string instead of an error, so one
// unreachable article never aborts a research run.
func ArticleText(ctx context.Context, pageURL string) string {
	client := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fmt.Sprintf("Could not retrieve article: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Sprintf("Could not retrieve article: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("Could not retrieve article: status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return fmt.Sprintf("Could not retrieve article: %v", err)
	}

	var paragraphs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				paragraphs = append(paragraphs, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	text := strings.Join(paragraphs, " ")
	runes := []rune(text)
	if len(runes) > articleTextCap {
		text = string(runes[:articleTextCap])
	}
	return text
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}
