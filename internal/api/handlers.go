package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/juniperhq/concierge/internal/metrics"
	"github.com/juniperhq/concierge/internal/models"
)

// exampleChatRequest is returned alongside 400 responses so callers can see
// the expected request shape without reading docs.
var exampleChatRequest = models.ChatRequest{
	Message:           "Book a sales review tomorrow at 5pm",
	ConversationState: models.ConversationState{},
	SessionID:         "optional-session-id",
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.chatHandler: processing chat request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.chatHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.ErrorWithExample("Invalid JSON format", exampleChatRequest))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.chatHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.ErrorWithExample(err.Error(), exampleChatRequest))
		return
	}

	start := time.Now()
	turn := s.engine.ProcessTurn(r.Context(), req.Message, req.ConversationState, r.Header.Get("Authorization"))
	metrics.ObserveTurn(string(turn.Intent), time.Since(start).Seconds())

	if s.st != nil && req.SessionID != "" {
		rec := models.TurnRecord{
			SessionID: req.SessionID,
			Message:   req.Message,
			Intent:    turn.Intent,
			Response:  turn.Response,
			Phase:     turn.State.Phase(),
			CreatedAt: time.Now().UTC(),
		}
		if err := s.st.SaveTurn(rec); err != nil {
			// Transcript persistence is an audit sink; never fail the turn over it.
			slog.Error("Server.chatHandler: failed to save turn record", "error", err, "session_id", req.SessionID)
		}
	}

	slog.Info("Server.chatHandler: turn processed", "intent", turn.Intent, "phase", turn.State.Phase(), "session_id", req.SessionID)
	writeJSONResponse(w, http.StatusOK, models.ChatResponse{Response: turn.Response, State: turn.State})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := map[string]string{"service": "concierge", "time": time.Now().UTC().Format(time.RFC3339)}
	if s.st != nil {
		if _, err := s.st.ListTurns("health-probe"); err != nil {
			slog.Error("Server.healthHandler: store check failed", "error", err)
			writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Transcript store unavailable"))
			return
		}
		status["store"] = "ok"
	}
	writeJSONResponse(w, http.StatusOK, models.Success(status))
}

// sessionTurnsHandler serves GET /sessions/{id}/turns, the operator view of
// a session transcript.
func (s *Server) sessionTurnsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID, ok := parseSessionTurnsPath(r.URL.Path)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}
	if s.st == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Transcript store not configured"))
		return
	}
	turns, err := s.st.ListTurns(sessionID)
	if err != nil {
		slog.Error("Server.sessionTurnsHandler: failed to list turns", "error", err, "session_id", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list turns"))
		return
	}
	if turns == nil {
		turns = []models.TurnRecord{}
	}
	slog.Debug("Server.sessionTurnsHandler: listed turns", "session_id", sessionID, "count", len(turns))
	writeJSONResponse(w, http.StatusOK, models.Success(turns))
}

// parseSessionTurnsPath extracts the session id from /sessions/{id}/turns.
func parseSessionTurnsPath(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/sessions/")
	if !ok {
		return "", false
	}
	sessionID, ok := strings.CutSuffix(rest, "/turns")
	if !ok || sessionID == "" || strings.Contains(sessionID, "/") {
		return "", false
	}
	return sessionID, true
}
