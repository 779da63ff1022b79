package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"learningfun/internal/content"
	"learningfun/internal/service"
	"learningfun/internal/session"
)

// eventWriteTimeout bounds a single WebSocket write to a slow client.
const eventWriteTimeout = 5 * time.Second

// PracticeHandler handles exercise session HTTP requests
type PracticeHandler struct {
	practiceService *service.PracticeService
	allowedOrigins  []string
	log             *zap.Logger
}

// NewPracticeHandler creates a new practice handler. allowedOrigins are host
// patterns accepted on WebSocket upgrades besides the request's own host.
func NewPracticeHandler(practiceService *service.PracticeService, allowedOrigins []string, log *zap.Logger) *PracticeHandler {
	return &PracticeHandler{
		practiceService: practiceService,
		allowedOrigins:  allowedOrigins,
		log:             log.Named("practice"),
	}
}

// Catalog lists the exercises a student can start, optionally for ?subject=.
func (h *PracticeHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, content.Catalog(r.URL.Query().Get("subject")))
}

// StartPractice starts a new session
func (h *PracticeHandler) StartPractice(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	started, err := h.practiceService.Start(r.Context(), service.StartRequest{
		Subject: req.Subject,
		Type:    req.Type,
		Grade:   req.Grade,
	})
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, started)
}

// ShowPractice returns the session's current snapshot.
func (h *PracticeHandler) ShowPractice(w http.ResponseWriter, r *http.Request) {
	snap, err := h.practiceService.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// SelectAnswer records a tentative choice without grading it.
func (h *PracticeHandler) SelectAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	id := r.PathValue("id")
	if err := h.practiceService.Select(r.Context(), id, req.Answer); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	h.ShowPractice(w, r)
}

type submitResponse struct {
	Result  session.Result   `json:"result"`
	Session session.Snapshot `json:"session"`
}

// SubmitAnswer grades the answer to the current question.
func (h *PracticeHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	result, snap, err := h.practiceService.Submit(r.Context(), r.PathValue("id"), req.Answer)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Result: result, Session: snap})
}

// NextQuestion leaves the feedback state without waiting for the delay.
func (h *PracticeHandler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	snap, err := h.practiceService.Advance(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ExitPractice abandons the session. Points already paid are kept.
func (h *PracticeHandler) ExitPractice(w http.ResponseWriter, r *http.Request) {
	if err := h.practiceService.Quit(r.Context(), r.PathValue("id")); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events upgrades to a WebSocket and streams session events until the
// session ends or the client goes away. Client messages are ignored.
func (h *PracticeHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Check the session before upgrading so errors are plain JSON responses.
	if _, err := h.practiceService.Snapshot(r.Context(), id); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.allowedOrigins})
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	events, err := h.practiceService.Subscribe(ctx, id)
	if err != nil {
		conn.Close(websocket.StatusPolicyViolation, rootMessage(err))
		return
	}

	if err := h.streamEvents(ctx, conn, events); err != nil {
		if !errors.Is(err, context.Canceled) && websocket.CloseStatus(err) == -1 {
			h.log.Debug("event stream ended", zap.String("session_id", id), zap.Error(err))
		}
		return
	}
	conn.Close(websocket.StatusNormalClosure, "session ended")
}

func (h *PracticeHandler) streamEvents(ctx context.Context, conn *websocket.Conn, events <-chan session.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
