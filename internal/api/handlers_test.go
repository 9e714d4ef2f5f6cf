package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/juniperhq/concierge/internal/flow"
	"github.com/juniperhq/concierge/internal/integrations"
	"github.com/juniperhq/concierge/internal/models"
	"github.com/juniperhq/concierge/internal/store"
)

type stubGenAI struct {
	reply string
}

func (s *stubGenAI) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.reply, nil
}

type stubBridge struct {
	lastAuth string
}

func (b *stubBridge) CreateEvent(ctx context.Context, authHeader string, ev integrations.EventRequest) (*integrations.EventResult, error) {
	b.lastAuth = authHeader
	return &integrations.EventResult{Provider: "google"}, nil
}

func (b *stubBridge) GetEmails(ctx context.Context, authHeader string) ([]models.EmailMeta, error) {
	b.lastAuth = authHeader
	return nil, nil
}

func newTestServer(t *testing.T) (*Server, *stubBridge, *store.InMemoryStore) {
	t.Helper()
	bridge := &stubBridge{}
	st := store.NewInMemoryStore()
	engine := flow.NewEngine(&stubGenAI{reply: "Hello there"}, bridge)
	return NewServer(engine, st), bridge, st
}

func TestChatHandlerHappyPath(t *testing.T) {
	srv, _, st := newTestServer(t)

	body := `{"message":"Book a meeting called \"Sales review\" tomorrow at 5pm","conversation_state":{},"session_id":"sess-1"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.chatHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.Contains(resp.Response, "Sales review") {
		t.Errorf("expected response to echo the title, got %q", resp.Response)
	}
	if !resp.State.ReadyToConfirm {
		t.Errorf("expected state to be ready to confirm, got %+v", resp.State)
	}

	turns, err := st.ListTurns("sess-1")
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("expected 1 recorded turn, got %d", len(turns))
	}
	if turns[0].Intent != models.IntentMeetingRequest {
		t.Errorf("expected recorded intent %q, got %q", models.IntentMeetingRequest, turns[0].Intent)
	}
}

func TestChatHandlerForwardsAuthorization(t *testing.T) {
	srv, bridge, _ := newTestServer(t)

	state := models.ConversationState{
		ReadyToConfirm: true,
		MeetingContext: true,
		MeetingDetails: &models.MeetingDetails{Title: "Sync", Time: "tomorrow 2pm"},
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("failed to marshal state: %v", err)
	}
	body := `{"message":"confirm","conversation_state":` + string(stateJSON) + `}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer token-123")
	w := httptest.NewRecorder()
	srv.chatHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if bridge.lastAuth != "Bearer token-123" {
		t.Errorf("expected Authorization header forwarded to bridge, got %q", bridge.lastAuth)
	}
}

func TestChatHandlerInvalidJSON(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	srv.chatHandler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != models.APIStatusError {
		t.Errorf("expected error status, got %q", resp.Status)
	}
	if resp.Result == nil {
		t.Error("expected example payload in error response")
	}
}

func TestChatHandlerEmptyMessage(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"   ","conversation_state":{}}`))
	w := httptest.NewRecorder()
	srv.chatHandler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "empty") {
		t.Errorf("expected empty-message error, got %s", w.Body.String())
	}
}

func TestChatHandlerMessageTooLong(t *testing.T) {
	srv, _, _ := newTestServer(t)

	long := strings.Repeat("a", models.MaxMessageLength+1)
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"`+long+`","conversation_state":{}}`))
	w := httptest.NewRecorder()
	srv.chatHandler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestChatHandlerMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	w := httptest.NewRecorder()
	srv.chatHandler(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", w.Code)
	}
	if allow := w.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("expected Allow header %q, got %q", http.MethodPost, allow)
	}
}

func TestChatHandlerStatePassThroughOnGeneralChat(t *testing.T) {
	srv, _, _ := newTestServer(t)

	state := models.ConversationState{
		MeetingContext: true,
		PartialDetails: &models.PartialDetails{Title: "Budget review"},
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("failed to marshal state: %v", err)
	}
	// A meeting-context message advances the flow; check the partial title
	// survives the round trip.
	body := `{"message":"make it tomorrow 3pm","conversation_state":` + string(stateJSON) + `}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.chatHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp models.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.State.PartialDetails == nil || resp.State.PartialDetails.Title != "Budget review" {
		t.Errorf("expected prior title preserved, got %+v", resp.State.PartialDetails)
	}
}

func TestHealthHandler(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.healthHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != models.APIStatusOK {
		t.Errorf("expected ok status, got %q", resp.Status)
	}
}

func TestSessionTurnsHandler(t *testing.T) {
	srv, _, st := newTestServer(t)

	if err := st.SaveTurn(models.TurnRecord{SessionID: "sess-9", Message: "hi", Response: "hello"}); err != nil {
		t.Fatalf("SaveTurn failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/sessions/sess-9/turns", nil)
	w := httptest.NewRecorder()
	srv.sessionTurnsHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "sess-9") {
		t.Errorf("expected session id in response, got %s", w.Body.String())
	}
}

func TestSessionTurnsHandlerBadPath(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, path := range []string{"/sessions//turns", "/sessions/a/b/turns", "/sessions/sess-1"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.sessionTurnsHandler(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("path %q: expected status 404, got %d", path, w.Code)
		}
	}
}

func TestRecoverMiddleware(t *testing.T) {
	srv, _, _ := newTestServer(t)

	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	w := httptest.NewRecorder()
	srv.recoverMiddleware(panicky).ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.RequestID == "" {
		t.Error("expected a request id on the fault response")
	}
	if resp.Timestamp == "" {
		t.Error("expected a timestamp on the fault response")
	}
}
