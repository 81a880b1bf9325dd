package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestArticleTextCollectsParagraphs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<h1>Heading is ignored</h1>
			<p>First paragraph.</p>
			<div><p>Second <b>paragraph</b>.</p></div>
			<script>ignored()</script>
		</body></html>`))
	}))
	defer srv.Close()

	got := ArticleText(context.Background(), srv.URL)
	want := "First paragraph. Second paragraph."
	if got != want {
		t.Errorf("ArticleText() = %q, want %q", got, want)
	}
}

func TestArticleTextCap(t *testing.T) {
	long := strings.Repeat("a", 9000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>" + long + "</p></body></html>"))
	}))
	defer srv.Close()

	got := ArticleText(context.Background(), srv.URL)
	if len(got) != 5000 {
		t.Errorf("len = %d, want 5000", len(got))
	}
}

func TestArticleTextFailureReturnsDiagnostic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	got := ArticleText(context.Background(), srv.URL)
	if !strings.HasPrefix(got, "Could not retrieve article:") {
		t.Errorf("ArticleText() = %q, want diagnostic prefix", got)
	}

	// Unreachable host also yields a diagnostic, not a panic or empty string.
	got = ArticleText(context.Background(), "http://127.0.0.1:0/nope")
	if !strings.HasPrefix(got, "Could not retrieve article:") {
		t.Errorf("ArticleText() = %q, want diagnostic prefix", got)
	}
}
