package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/app"
	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/domain"
)

// RESTHandler serves session creation and the read-side queries. Commands
// that drive a running session live on the websocket.
type RESTHandler struct {
	service *app.SessionService
}

func NewRESTHandler(service *app.SessionService) *RESTHandler {
	return &RESTHandler{service: service}
}

// Register mounts the routes on mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("GET /sessions/{id}/snapshot", h.snapshot)
	mux.HandleFunc("GET /sessions/{id}/questions/{index}/aggregates", h.aggregates)
	mux.HandleFunc("GET /sessions/{id}/leaderboard", h.leaderboard)
}

type createSessionRequest struct {
	HostID string                 `json:"hostId"`
	QuizID string                 `json:"quizId,omitempty"`
	Quiz   *domain.QuizDefinition `json:"quiz,omitempty"`
}

func (h *RESTHandler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &domain.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}

	var created app.CreatedSession
	var err error
	switch {
	case req.Quiz != nil:
		created, err = h.service.CreateSession(r.Context(), *req.Quiz, req.HostID)
	case req.QuizID != "":
		created, err = h.service.CreateSessionFromStore(r.Context(), req.QuizID, req.HostID)
	default:
		err = &domain.ValidationError{Field: "quiz", Reason: "either quiz or quizId is required"}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *RESTHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *RESTHandler) aggregates(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, &domain.ValidationError{Field: "index", Reason: "not a number"})
		return
	}
	dist, err := h.service.Aggregates(r.Context(), r.PathValue("id"), index, bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dist)
}

func (h *RESTHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context(), r.PathValue("id"), bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return r.URL.Query().Get("token")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code, status := errorCode(err)
	writeJSON(w, status, errorPayload{Code: code, Message: err.Error()})
}
