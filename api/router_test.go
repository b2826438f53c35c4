package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	anser "github.com/anserhq/anser"
	"github.com/anserhq/anser/models"
	"github.com/anserhq/anser/stores"
	"github.com/anserhq/anser/tools"
)

func newTestRouter(t *testing.T) (*gin.Engine, stores.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := stores.NewPebbleStore(stores.NewStoreConfig("pebble", t.TempDir()))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	config := &anser.Config{
		Store:    store,
		Registry: tools.DefaultRegistry(),
	}
	return NewRouter(config), store
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testChat(id, userID string) *models.Chat {
	return &models.Chat{
		ID:        id,
		Title:     "weather in tokyo",
		UserID:    userID,
		Path:      "/search/" + id,
		CreatedAt: time.Now(),
		Messages: []models.Message{
			{ID: "t1", Role: models.RoleUser, Type: models.TypeInput, Content: `{"input":"weather in tokyo"}`},
			{ID: "t1", Role: models.RoleAssistant, Type: models.TypeAnswer, Content: "It is **sunny** today."},
			{ID: "t1", Role: models.RoleAssistant, Type: models.TypeEnd, Content: ""},
		},
	}
}

func TestChatLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/chats?userId=u1", testChat("c1", "u1"))
	if w.Code != http.StatusOK {
		t.Fatalf("save returned %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/chats/c1?userId=u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get returned %d", w.Code)
	}
	var got models.Chat
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode chat: %v", err)
	}
	if got.Title != "weather in tokyo" || len(got.Messages) != 3 {
		t.Errorf("unexpected chat: title=%q messages=%d", got.Title, len(got.Messages))
	}

	// Another user cannot see it.
	w = doJSON(t, router, http.MethodGet, "/api/chats/c1?userId=u2", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign user, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/chats?userId=u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list returned %d", w.Code)
	}
	var listed []*models.Chat
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 chat, got %d", len(listed))
	}

	w = doJSON(t, router, http.MethodDelete, "/api/chats/c1?userId=u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete returned %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/chats/c1?userId=u1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestSaveChatFillsDefaults(t *testing.T) {
	router, _ := newTestRouter(t)

	chat := &models.Chat{
		Messages: []models.Message{
			{ID: "t1", Role: models.RoleUser, Type: models.TypeInput, Content: `{"input":"hello"}`},
		},
	}
	w := doJSON(t, router, http.MethodPost, "/api/chats?userId=u1", chat)
	if w.Code != http.StatusOK {
		t.Fatalf("save returned %d: %s", w.Code, w.Body.String())
	}
	var saved models.Chat
	if err := json.Unmarshal(w.Body.Bytes(), &saved); err != nil {
		t.Fatalf("failed to decode chat: %v", err)
	}
	if saved.ID == "" {
		t.Error("expected a generated chat id")
	}
	if saved.Title != "hello" {
		t.Errorf("expected title from first input, got %q", saved.Title)
	}
	if saved.Path != "/search/"+saved.ID {
		t.Errorf("unexpected path %q", saved.Path)
	}
}

func TestShareFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/chats?userId=u1", testChat("c1", "u1"))

	// Unshared chats are invisible on the public endpoints.
	w := doJSON(t, router, http.MethodGet, "/api/share/c1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before sharing, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/chats/c1/share?userId=u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("share returned %d: %s", w.Code, w.Body.String())
	}
	var shared models.Chat
	if err := json.Unmarshal(w.Body.Bytes(), &shared); err != nil {
		t.Fatalf("failed to decode shared chat: %v", err)
	}
	if shared.SharePath != "/share/c1" {
		t.Errorf("unexpected share path %q", shared.SharePath)
	}

	w = doJSON(t, router, http.MethodGet, "/api/share/c1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("shared chat fetch returned %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/share/c1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("share page returned %d", w.Code)
	}
	page := w.Body.String()
	if !strings.Contains(page, "<h2>weather in tokyo</h2>") {
		t.Errorf("share page missing question heading: %s", page)
	}
	if !strings.Contains(page, "<strong>sunny</strong>") {
		t.Errorf("share page did not render answer markdown: %s", page)
	}
}

func TestSharePageNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/share/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestModelsFallbackToDefaults(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/models", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get models returned %d", w.Code)
	}
	var resp struct {
		Models []models.ModelConfig `json:"models"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode models: %v", err)
	}
	if len(resp.Models) == 0 {
		t.Fatal("expected default models when nothing is saved")
	}

	custom := models.SaveModelsRequest{Models: []models.ModelConfig{{
		ID:           "my-model",
		Name:         "My Model",
		Provider:     "OpenAI",
		ProviderID:   "openai",
		Enabled:      true,
		ToolCallType: "native",
	}}}
	w = doJSON(t, router, http.MethodPost, "/api/models", custom)
	if w.Code != http.StatusOK {
		t.Fatalf("save models returned %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/models", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode models: %v", err)
	}
	if len(resp.Models) != 1 || resp.Models[0].ID != "my-model" {
		t.Errorf("expected saved catalog, got %+v", resp.Models)
	}
}

func TestModelUpdateAndDelete(t *testing.T) {
	router, _ := newTestRouter(t)

	seed := models.SaveModelsRequest{Models: []models.ModelConfig{
		{ID: "m1", Name: "One", Provider: "OpenAI", ProviderID: "openai", Enabled: true, ToolCallType: "native"},
		{ID: "m2", Name: "Two", Provider: "Groq", ProviderID: "groq", Enabled: false, ToolCallType: "native"},
	}}
	if w := doJSON(t, router, http.MethodPost, "/api/models", seed); w.Code != http.StatusOK {
		t.Fatalf("seed returned %d: %s", w.Code, w.Body.String())
	}

	update := models.ModelConfig{
		ID: "m2", Name: "Two Renamed", Provider: "Groq", ProviderID: "groq",
		Enabled: true, ToolCallType: "native",
	}
	w := doJSON(t, router, http.MethodPut, "/api/models/m2", update)
	if w.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPut, "/api/models/missing", update)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown model, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/models/m1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete returned %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/models", nil)
	var resp struct {
		Models []models.ModelConfig `json:"models"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode models: %v", err)
	}
	if len(resp.Models) != 1 || resp.Models[0].Name != "Two Renamed" || !resp.Models[0].Enabled {
		t.Errorf("unexpected catalog after edits: %+v", resp.Models)
	}
}

func TestResolveModelOnFreshStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := stores.NewPebbleStore(stores.NewStoreConfig("pebble", t.TempDir()))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	t.Setenv("OPENAI_API_KEY", "test-key")

	server := NewServer(&anser.Config{Store: store, Registry: tools.DefaultRegistry()})

	// Nothing saved yet: resolution must fall back to the default catalog
	// instead of failing on the missing record.
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/ws/chat/c1", nil)
	model, err := server.resolveModel(c)
	if err != nil {
		t.Fatalf("resolveModel on fresh store failed: %v", err)
	}
	if model.ID() != "gpt-4o-mini" {
		t.Errorf("expected first enabled default model, got %q", model.ID())
	}

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/ws/chat/c1?modelId=nope", nil)
	if _, err := server.resolveModel(c); err == nil {
		t.Error("expected an error for an unknown model id")
	}
}

func TestSaveModelsValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	bad := models.SaveModelsRequest{Models: []models.ModelConfig{{ID: "incomplete"}}}
	w := doJSON(t, router, http.MethodPost, "/api/models", bad)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for incomplete model config, got %d", w.Code)
	}
}

func TestProviderEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/providers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("providers returned %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/providers", map[string]string{"providerId": "openai"})
	if w.Code != http.StatusOK {
		t.Fatalf("check provider returned %d", w.Code)
	}
	var check struct {
		ProviderID string `json:"providerId"`
		Configured bool   `json:"configured"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &check); err != nil {
		t.Fatalf("failed to decode check: %v", err)
	}
	if check.ProviderID != "openai" {
		t.Errorf("unexpected provider id %q", check.ProviderID)
	}

	w = doJSON(t, router, http.MethodPost, "/api/providers", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing providerId, got %d", w.Code)
	}
}

func TestSearchRequestValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/search", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing query, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/retrieve", map[string]string{"url": "not a url"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid url, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/video-search", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing query, got %d", w.Code)
	}
}

func TestSearchHistoryEndpoints(t *testing.T) {
	router, store := newTestRouter(t)

	for _, q := range []string{"first", "second"} {
		err := store.SaveSearchHistory("u1", models.SearchHistoryEntry{
			Query:     q,
			Timestamp: time.Now(),
			Results:   3,
			Source:    models.ToolSearch,
		})
		if err != nil {
			t.Fatalf("failed to seed history: %v", err)
		}
	}

	w := doJSON(t, router, http.MethodGet, "/api/search-history?userId=u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history returned %d", w.Code)
	}
	var resp struct {
		History []models.SearchHistoryEntry `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(resp.History) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.History))
	}
	if resp.History[0].Query != "second" {
		t.Errorf("expected newest entry first, got %q", resp.History[0].Query)
	}

	w = doJSON(t, router, http.MethodGet, "/api/search-history?userId=u1&limit=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/search-history?userId=u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("clear history returned %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/search-history?userId=u1", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(resp.History) != 0 {
		t.Errorf("expected empty history after clear, got %d", len(resp.History))
	}
}

func TestUserEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/users", map[string]string{"id": "u1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create user returned %d: %s", w.Code, w.Body.String())
	}
	var user models.User
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("failed to decode user: %v", err)
	}
	if user.Preferences.Theme != "system" || !user.Preferences.HistoryEnabled {
		t.Errorf("expected default preferences, got %+v", user.Preferences)
	}

	// Creating again returns the existing record.
	w = doJSON(t, router, http.MethodPost, "/api/users", map[string]string{"id": "u1"})
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for existing user, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/users/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown user, got %d", w.Code)
	}

	prefs := models.Preferences{Theme: "dark", HistoryEnabled: false, NotificationsEnabled: true}
	w = doJSON(t, router, http.MethodPut, "/api/users/u1/preferences", prefs)
	if w.Code != http.StatusOK {
		t.Fatalf("save preferences returned %d: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("failed to decode user: %v", err)
	}
	if user.Preferences.Theme != "dark" || user.Preferences.HistoryEnabled {
		t.Errorf("preferences not applied: %+v", user.Preferences)
	}

	w = doJSON(t, router, http.MethodPut, "/api/users/u1/preferences",
		map[string]string{"theme": "neon"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid theme, got %d", w.Code)
	}
}
