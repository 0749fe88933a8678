package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/app"
	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/domain"
)

type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SessionService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionIndex int                `json:"questionIndex"`
	Answer        domain.AnswerValue `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type joinedPayload struct {
	Participant domain.Participant     `json:"participant"`
	Snapshot    domain.SessionSnapshot `json:"snapshot"`
}

// ServeWS upgrades the connection and wires it into the session use cases.
// Players connect with ?sessionId=… (or ?code=…) and &name=…; the host
// connects with the token minted at session creation instead of a name.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("sessionId")
	if ref == "" {
		ref = r.URL.Query().Get("code")
	}
	token := r.URL.Query().Get("token")
	displayName := r.URL.Query().Get("name")
	if ref == "" || (token == "" && displayName == "") {
		http.Error(w, "missing sessionId/code and name or token", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sendError := func(err error) {
		code, _ := errorCode(err)
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Code: code, Message: err.Error()}})
	}

	var participantID, sessionID string
	if token == "" {
		participant, snapshot, err := h.service.Join(r.Context(), ref, displayName)
		if err != nil {
			sendError(err)
			return
		}
		participantID = participant.ID
		sessionID = snapshot.SessionID
		defer h.service.SetConnected(r.Context(), sessionID, participantID, false)
		if err := conn.WriteJSON(outboundMessage[joinedPayload]{Type: "joined", Payload: joinedPayload{Participant: participant, Snapshot: snapshot}}); err != nil {
			return
		}
	} else {
		snapshot, err := h.service.Snapshot(r.Context(), ref)
		if err != nil {
			sendError(err)
			return
		}
		sessionID = snapshot.SessionID
	}

	events, cancel, err := h.service.Subscribe(r.Context(), ref, token)
	if err != nil {
		sendError(err)
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: string(ev.Type), Payload: ev}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handleInbound(r, inbound, sessionID, participantID, token, send)
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleInbound(r *http.Request, inbound inboundMessage, sessionID, participantID, token string, send chan<- outboundMessage[any]) {
	sendError := func(err error) {
		code, _ := errorCode(err)
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: err.Error()}}
	}

	switch inbound.Type {
	case "answer":
		if participantID == "" {
			sendError(domain.ErrForbidden)
			return
		}
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			sendError(&domain.ValidationError{Field: "payload", Reason: "invalid answer payload"})
			return
		}
		record, err := h.service.SubmitAnswer(r.Context(), sessionID, payload.QuestionIndex, participantID, payload.Answer)
		if err != nil {
			sendError(err)
			return
		}
		// The scored record goes to the submitter only; everyone else sees
		// aggregates through the event stream.
		send <- outboundMessage[any]{Type: "answerResult", Payload: record}
	case "start":
		if err := h.service.Start(r.Context(), sessionID, token); err != nil {
			sendError(err)
		}
	case "reveal":
		if err := h.service.RevealResults(r.Context(), sessionID, token); err != nil {
			sendError(err)
		}
	case "advance":
		if err := h.service.Advance(r.Context(), sessionID, token); err != nil {
			sendError(err)
		}
	case "revealLeaderboard":
		if err := h.service.RevealLeaderboard(r.Context(), sessionID, token); err != nil {
			sendError(err)
		}
	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "unsupported", Message: "unsupported message type"}}
	}
}
