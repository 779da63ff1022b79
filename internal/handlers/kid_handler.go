package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"learningfun/internal/models"
	"learningfun/internal/service"
)

// KidHandler serves the student home screen and reward endpoints.
type KidHandler struct {
	practiceService *service.PracticeService
	log             *zap.Logger
}

// NewKidHandler creates a new kid handler
func NewKidHandler(practiceService *service.PracticeService, log *zap.Logger) *KidHandler {
	return &KidHandler{
		practiceService: practiceService,
		log:             log.Named("kid"),
	}
}

// Dashboard returns profile, stats, recent progress and today's challenges.
func (h *KidHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.practiceService.Dashboard(r.Context())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// Stats returns the student's points, badges and streak.
func (h *KidHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.practiceService.Stats(r.Context())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type pointsRequest struct {
	Points int `json:"points"`
}

// AddPoints credits points from an activity played outside a session.
func (h *KidHandler) AddPoints(w http.ResponseWriter, r *http.Request) {
	var req pointsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	stats, err := h.practiceService.AddPoints(r.Context(), req.Points)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type badgeRequest struct {
	Badge string `json:"badge"`
}

// AddBadge grants a badge. Holding it already is not an error.
func (h *KidHandler) AddBadge(w http.ResponseWriter, r *http.Request) {
	var req badgeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	stats, err := h.practiceService.AddBadge(r.Context(), req.Badge)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// RecordProgress stores a finished run reported by the client.
func (h *KidHandler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	var req models.StudentProgress
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	recorded, err := h.practiceService.RecordProgress(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, recorded)
}

// Challenges returns today's challenges, creating them on the first visit.
func (h *KidHandler) Challenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.practiceService.TodaysChallenges(r.Context())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, challenges)
}

// CompleteChallenge marks a challenge done and pays its points once.
func (h *KidHandler) CompleteChallenge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	challenge, err := h.practiceService.CompleteChallenge(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}
