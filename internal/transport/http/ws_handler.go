package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"course-assessment-service/internal/app"
	"course-assessment-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service       *app.AssessmentService
	upgrader      websocket.Upgrader
	submitTimeout time.Duration
}

func NewWSHandler(service *app.AssessmentService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		submitTimeout: 30 * time.Second,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	OptionIndex *int `json:"optionIndex"`
}

type gotoPayload struct {
	Index *int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// quizView is what the client needs to render questions; correct options stay on the server.
type quizView struct {
	ID               string         `json:"id"`
	CourseName       string         `json:"courseName"`
	Skill            string         `json:"skill"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	PassingScore     int            `json:"passingScore"`
	TimeLimitMinutes int            `json:"timeLimitMinutes"`
	Questions        []questionView `json:"questions"`
}

type questionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

func newQuizView(q domain.QuizDefinition) quizView {
	view := quizView{
		ID:               q.ID,
		CourseName:       q.CourseName,
		Skill:            q.Skill,
		Title:            q.Title,
		Description:      q.Description,
		PassingScore:     q.PassingScore,
		TimeLimitMinutes: q.TimeLimitMinutes,
		Questions:        make([]questionView, len(q.Questions)),
	}
	for i, question := range q.Questions {
		view.Questions[i] = questionView{ID: question.ID, Prompt: question.Prompt, Options: question.Options}
	}
	return view
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

// ServeWS upgrades HTTP requests to websockets and attaches the connection to
// the user's assessment session. The session is abandoned when its last
// connection closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if quizID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing quizId, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if _, err := h.service.Start(ctx, quizID, userID, displayName); err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer h.service.Abandon(context.Background(), userID, quizID)

	quiz, err := h.service.Quiz(ctx, quizID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}

	updates, cancel, err := h.service.Subscribe(ctx, userID, quizID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-closeSignals:
			return false
		}
	}

	send <- outboundMessage[any]{Type: "quiz", Payload: newQuizView(quiz)}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if !push(outboundMessage[any]{Type: "session", Payload: update.Snapshot}) {
					return
				}
				if update.Result == nil {
					continue
				}
				if !push(outboundMessage[any]{Type: "result", Payload: update.Result}) {
					return
				}
				if update.Result.Certificate != nil {
					if !push(outboundMessage[any]{Type: "certificateEarned", Payload: update.Result.Certificate}) {
						return
					}
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
		err := h.dispatch(ctx, userID, quizID, inbound)
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			// out-of-range selections are ignored; resend the unchanged state
			if snap, serr := h.service.Snapshot(ctx, userID, quizID); serr == nil {
				push(outboundMessage[any]{Type: "session", Payload: snap})
			}
		case err != nil:
			push(errorMessage(err))
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

var errInvalidPayload = errors.New("invalid payload")

// dispatch applies one client command. Snapshots and results reach the client
// through the session subscription, so only failures are returned here.
func (h *WSHandler) dispatch(ctx context.Context, userID, quizID string, inbound inboundMessage) error {
	switch inbound.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.OptionIndex == nil {
			return errInvalidPayload
		}
		_, err := h.service.SelectAnswer(ctx, userID, quizID, *payload.OptionIndex)
		return err
	case "goto":
		var payload gotoPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Index == nil {
			return errInvalidPayload
		}
		_, err := h.service.GoToQuestion(ctx, userID, quizID, *payload.Index)
		return err
	case "submit":
		// recording outlives the connection
		submitCtx, cancel := context.WithTimeout(context.Background(), h.submitTimeout)
		defer cancel()
		_, err := h.service.Submit(submitCtx, userID, quizID)
		if domain.IsPersistenceFailure(err) {
			// the result update already carries the save error
			return nil
		}
		return err
	case "reset":
		_, err := h.service.Reset(ctx, userID, quizID)
		return err
	default:
		return errors.New("unsupported message type")
	}
}
