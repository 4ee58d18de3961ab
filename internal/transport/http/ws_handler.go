package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(service *app.QuizService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option *int `json:"option"`
}

type bookmarkPayload struct {
	QuestionID string `json:"questionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type startedPayload struct {
	SessionID string              `json:"sessionId"`
	Topic     domain.TopicSummary `json:"topic"`
	State     domain.SessionView  `json:"state"`
}

// ServeWS upgrades the request and runs one quiz attempt over the socket. The attempt is
// closed when the socket goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := app.StartRequest{
		UserID:  q.Get("userId"),
		TopicID: q.Get("topicId"),
		Mode:    domain.Mode(q.Get("mode")),
	}
	if req.UserID == "" || req.TopicID == "" {
		http.Error(w, "missing userId or topicId", http.StatusBadRequest)
		return
	}
	if raw := q.Get("count"); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid count", http.StatusBadRequest)
			return
		}
		req.QuestionCount = count
	}
	if raw := q.Get("bot"); raw != "" {
		accuracy, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "invalid bot accuracy", http.StatusBadRequest)
			return
		}
		req.WithBot = true
		req.BotAccuracy = accuracy
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session, err := h.service.Start(ctx, req)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := session.ID()
	defer h.service.Close(ctx, sessionID)

	events, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// single writer; gorilla connections do not allow concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Str("session_id", sessionID).Msg("ws write error")
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "started", Payload: startedPayload{
		SessionID: sessionID,
		Topic:     session.Topic(),
		State:     session.View(),
	}}

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: string(ev.Type), Payload: ev.Payload}:
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
		for _, msg := range h.handle(r, session, inbound) {
			send <- msg
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// handle runs one inbound command and returns the direct replies. Timer driven events
// (ticks, auto-advance, results) arrive through the subscription instead.
func (h *WSHandler) handle(r *http.Request, session *app.Session, in inboundMessage) []outboundMessage[any] {
	ctx := r.Context()
	sessionID := session.ID()

	var (
		view domain.SessionView
		err  error
	)
	switch in.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil || payload.Option == nil {
			return errorReply("invalid select payload")
		}
		feedback, view, err := h.service.Select(ctx, sessionID, *payload.Option)
		if err != nil {
			return errorReply(err.Error())
		}
		replies := []outboundMessage[any]{{Type: "state", Payload: view}}
		if view.Mode == domain.ModePractice {
			replies = append(replies, outboundMessage[any]{Type: "feedback", Payload: feedback})
		}
		return replies
	case "next":
		view, err = h.service.Next(ctx, sessionID)
	case "prev":
		view, err = h.service.Prev(ctx, sessionID)
	case "skip":
		view, err = h.service.Skip(ctx, sessionID)
	case "restart":
		view, err = h.service.Restart(ctx, sessionID)
	case "submit":
		// a finished attempt fires no new event, so repeat the stored result
		if session.View().State == "terminated" {
			if entry, ok := session.LastEntry(); ok {
				return []outboundMessage[any]{{Type: string(app.EventResult), Payload: entry}}
			}
		}
		// otherwise the result is pushed by the finish event
		if _, err := h.service.Submit(ctx, sessionID); err != nil {
			return errorReply(err.Error())
		}
		return nil
	case "bookmark":
		var payload bookmarkPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return errorReply("invalid bookmark payload")
		}
		questionID := payload.QuestionID
		if questionID == "" {
			questionID = session.View().Question.ID
		}
		bookmark, err := h.service.AddBookmark(ctx, session.UserID(), session.Topic().ID, questionID)
		if err != nil {
			return errorReply(err.Error())
		}
		return []outboundMessage[any]{{Type: "bookmarked", Payload: bookmark}}
	default:
		return errorReply("unsupported message type")
	}
	if err != nil {
		return errorReply(err.Error())
	}
	return []outboundMessage[any]{{Type: "state", Payload: view}}
}

func errorReply(msg string) []outboundMessage[any] {
	return []outboundMessage[any]{{Type: "error", Payload: errorPayload{Message: msg}}}
}
