package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mikeboe/aria-backend/pkg/storage"
)

func newTestRouter(t *testing.T) (*gin.Engine, *storage.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fileStore, err := storage.NewFileStore("", slog.Default())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	store := storage.NewManager(fileStore, slog.Default())

	h := NewHandler(nil, store)
	r := gin.New()
	h.RegisterRoutes(r)
	return r, store
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status field = %v", resp["status"])
	}
}

func TestSessionCreateAndGet(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/session", SessionRequest{SessionID: "sess-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var info SessionInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.SessionID != "sess-1" || info.ResearchCount != 0 {
		t.Errorf("info = %+v", info)
	}
	if _, ok := info.AllStorage[storage.BackendFile]; !ok {
		t.Error("all_storage missing the file backend entry")
	}

	// Same ID again returns the existing session, not a new one.
	w = doJSON(t, r, http.MethodPost, "/session", SessionRequest{SessionID: "sess-1"})
	var again SessionInfo
	if err := json.Unmarshal(w.Body.Bytes(), &again); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if again.CreatedAt != info.CreatedAt {
		t.Errorf("CreatedAt changed: %q vs %q", again.CreatedAt, info.CreatedAt)
	}

	// Omitting the ID generates one.
	w = doJSON(t, r, http.MethodPost, "/session", SessionRequest{})
	var generated SessionInfo
	if err := json.Unmarshal(w.Body.Bytes(), &generated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if generated.SessionID == "" || generated.SessionID == "sess-1" {
		t.Errorf("SessionID = %q", generated.SessionID)
	}
}

func TestGetSessionCreatesUnknown(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/session/brand-new", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var info SessionInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.SessionID != "brand-new" {
		t.Errorf("SessionID = %q", info.SessionID)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	r, store := newTestRouter(t)
	ctx := context.Background()

	doJSON(t, r, http.MethodPost, "/session", SessionRequest{SessionID: "sess-1"})
	doJSON(t, r, http.MethodPost, "/save-research", SaveResearchRequest{
		SessionID: "sess-1", Query: "q", SectionName: "summary", Content: "c",
	})

	w := doJSON(t, r, http.MethodDelete, "/session/sess-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	if _, err := store.GetSession(ctx, "sess-1"); err == nil {
		t.Error("session survived deletion")
	}
	if items := store.GetSavedResearch(ctx, "sess-1"); len(items) != 0 {
		t.Errorf("saved research survived deletion: %v", items)
	}
}

func TestSavedResearchRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/save-research", SaveResearchRequest{
		SessionID: "sess-1", Query: "alpha", SectionName: "summary", Content: "the summary",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/saved-research/sess-1", nil)
	var resp struct {
		SavedResearch []storage.SavedResearch `json:"saved_research"`
		Total         int                     `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.SavedResearch[0].Content != "the summary" {
		t.Errorf("resp = %+v", resp)
	}

	w = doJSON(t, r, http.MethodDelete, "/saved-research/sess-1/alpha", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/saved-research/sess-1", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("total after delete = %d", resp.Total)
	}
}

func TestSaveResearchValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/save-research", map[string]string{"session_id": "sess-1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchHistoryEmpty(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/search-history/nothing", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Searches []storage.SearchHistoryEntry `json:"searches"`
		Total    int                          `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Searches == nil {
		t.Error("searches is null, want empty list")
	}
	if resp.Total != 0 {
		t.Errorf("total = %d", resp.Total)
	}
}

func TestResearchRequiresSessionID(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/research", ResearchRequest{Topic: "anything"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMCPLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	// initialize issues a session header.
	w := doJSON(t, r, http.MethodPost, "/mcp", MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	if w.Code != http.StatusOK {
		t.Fatalf("initialize status = %d", w.Code)
	}
	sessionID := w.Header().Get("Mcp-Session-Id")
	if sessionID == "" {
		t.Fatal("no Mcp-Session-Id header issued")
	}

	// tools/list with the session returns the three tools.
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(MCPRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Mcp-Session-Id", sessionID)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range resp.Result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"research_topic", "get_search_history", "save_research"} {
		if !names[want] {
			t.Errorf("tools/list missing %q", want)
		}
	}

	// Requests without a session are rejected.
	w = doJSON(t, r, http.MethodPost, "/mcp", MCPRequest{JSONRPC: "2.0", ID: 3, Method: "tools/list"})
	var errResp MCPResponse
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Error == nil || errResp.Error.Code != -32000 {
		t.Errorf("error = %+v, want -32000", errResp.Error)
	}
}
