package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/app"
	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/auth"
	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/domain"
	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.SessionService) {
	t.Helper()
	store := memory.NewSessionStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(nil), time.Minute)
	service := app.NewSessionService(store, quizRepo, auth.NewTokenIssuer("test-secret"), app.SessionConfig{})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service).ServeWS)
	NewRESTHandler(service).Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func sampleQuiz() domain.QuizDefinition {
	return domain.QuizDefinition{
		ID:    "quiz-1",
		Title: "Sample",
		Questions: []domain.Question{
			{
				Text:         "What is 2 + 2?",
				Type:         domain.QuestionMultipleChoice,
				Options:      []string{"3", "4", "5"},
				CorrectIndex: 1,
				TimeLimitSec: 30,
			},
		},
	}
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", query, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readNext(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wireMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg
}

// waitFor reads until a message of the wanted type appears, skipping
// interleaved events whose order relative to command replies is not fixed.
func waitFor(t *testing.T, conn *websocket.Conn, want string) wireMessage {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readNext(t, conn)
		if msg.Type == want {
			return msg
		}
	}
	t.Fatalf("never saw message type %s", want)
	return wireMessage{}
}

func TestWebSocketSessionFlow(t *testing.T) {
	server, service := newTestServer(t)

	created, err := service.CreateSession(context.Background(), sampleQuiz(), "host-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	host := dial(t, server, "sessionId="+created.SessionID+"&token="+created.HostToken)
	if msg := readNext(t, host); msg.Type != "snapshot" {
		t.Fatalf("host expected snapshot, got %s", msg.Type)
	}

	// Players join with the shareable code.
	player := dial(t, server, "code="+created.JoinCode+"&name=Alice")
	joined := waitFor(t, player, "joined")
	var joinedBody struct {
		Participant domain.Participant     `json:"participant"`
		Snapshot    domain.SessionSnapshot `json:"snapshot"`
	}
	if err := json.Unmarshal(joined.Payload, &joinedBody); err != nil {
		t.Fatalf("joined payload: %v", err)
	}
	if joinedBody.Snapshot.SessionID != created.SessionID {
		t.Fatalf("joined wrong session: %+v", joinedBody.Snapshot)
	}
	waitFor(t, player, "snapshot")

	if err := host.WriteJSON(map[string]any{"type": "start"}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	waitFor(t, host, "sessionStarted")
	waitFor(t, player, "sessionStarted")

	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionIndex": 0,
			"answer":        map[string]any{"optionIndex": 1},
		},
	}
	if err := player.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	result := waitFor(t, player, "answerResult")
	var record domain.AnswerRecord
	if err := json.Unmarshal(result.Payload, &record); err != nil {
		t.Fatalf("answerResult payload: %v", err)
	}
	if !record.IsCorrect || record.Score < 100 {
		t.Fatalf("unexpected answer result %+v", record)
	}

	// The host sees the aggregate event live; the player must not until reveal.
	answerEv := waitFor(t, host, "answerRecorded")
	var ev domain.Event
	if err := json.Unmarshal(answerEv.Payload, &ev); err != nil {
		t.Fatalf("event payload: %v", err)
	}
	if ev.Delta == nil || ev.Delta.Total != 1 || ev.Delta.AnswerKey != "1" {
		t.Fatalf("unexpected delta %+v", ev.Delta)
	}

	if err := host.WriteJSON(map[string]any{"type": "reveal"}); err != nil {
		t.Fatalf("write reveal: %v", err)
	}
	reveal := waitFor(t, player, "resultsRevealed")
	if err := json.Unmarshal(reveal.Payload, &ev); err != nil {
		t.Fatalf("reveal payload: %v", err)
	}
	if ev.Distribution == nil || ev.Distribution.Counts["1"] != 1 {
		t.Fatalf("reveal missing distribution: %+v", ev.Distribution)
	}

	if err := host.WriteJSON(map[string]any{"type": "advance"}); err != nil {
		t.Fatalf("write advance: %v", err)
	}
	waitFor(t, player, "sessionFinished")

	if err := host.WriteJSON(map[string]any{"type": "revealLeaderboard"}); err != nil {
		t.Fatalf("write revealLeaderboard: %v", err)
	}
	final := waitFor(t, player, "leaderboardRevealed")
	if err := json.Unmarshal(final.Payload, &ev); err != nil {
		t.Fatalf("leaderboard payload: %v", err)
	}
	if ev.Leaderboard == nil || len(ev.Leaderboard.Entries) != 1 || ev.Leaderboard.Entries[0].DisplayName != "Alice" {
		t.Fatalf("unexpected leaderboard %+v", ev.Leaderboard)
	}
}

func TestWebSocketPlayerCannotDriveSession(t *testing.T) {
	server, service := newTestServer(t)

	created, err := service.CreateSession(context.Background(), sampleQuiz(), "host-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	player := dial(t, server, "sessionId="+created.SessionID+"&name=Mallory")
	waitFor(t, player, "snapshot")

	if err := player.WriteJSON(map[string]any{"type": "start"}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	errMsg := waitFor(t, player, "error")
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(errMsg.Payload, &payload); err != nil {
		t.Fatalf("error payload: %v", err)
	}
	if payload.Code != "forbidden" {
		t.Fatalf("expected forbidden, got %q", payload.Code)
	}
}

func TestRESTSessionLifecycle(t *testing.T) {
	server, _ := newTestServer(t)

	body := map[string]any{"hostId": "host-1", "quiz": sampleQuiz()}
	raw, _ := json.Marshal(body)
	resp, err := http.Post(server.URL+"/sessions", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created app.CreatedSession
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	snapResp, err := http.Get(server.URL + "/sessions/" + created.SessionID + "/snapshot")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	defer snapResp.Body.Close()
	var snapshot domain.SessionSnapshot
	if err := json.NewDecoder(snapResp.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Status != domain.StatusWaiting || snapshot.JoinCode != created.JoinCode {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	// Player aggregates are locked before reveal; host token opens them.
	aggURL := server.URL + "/sessions/" + created.SessionID + "/questions/0/aggregates"
	lockedResp, err := http.Get(aggURL)
	if err != nil {
		t.Fatalf("get aggregates: %v", err)
	}
	lockedResp.Body.Close()
	if lockedResp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for player, got %d", lockedResp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, aggURL, nil)
	req.Header.Set("Authorization", "Bearer "+created.HostToken)
	hostResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("host aggregates: %v", err)
	}
	hostResp.Body.Close()
	if hostResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for host, got %d", hostResp.StatusCode)
	}
}

func TestRESTRejectsInvalidQuiz(t *testing.T) {
	server, _ := newTestServer(t)

	quiz := sampleQuiz()
	quiz.Questions[0].TimeLimitSec = 1000
	raw, _ := json.Marshal(map[string]any{"hostId": "host-1", "quiz": quiz})
	resp, err := http.Post(server.URL+"/sessions", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
