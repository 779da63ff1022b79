package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"learningfun/internal/gateway"
	"learningfun/internal/models"
)

// ExerciseHandler handles saved exercise HTTP requests
type ExerciseHandler struct {
	gw  *gateway.Gateway
	log *zap.Logger
}

// NewExerciseHandler creates a new exercise handler
func NewExerciseHandler(gw *gateway.Gateway, log *zap.Logger) *ExerciseHandler {
	return &ExerciseHandler{gw: gw, log: log.Named("exercises")}
}

// ListExercises returns the public exercises and the caller's own, filtered
// by ?subject= and ?grade=.
func (h *ExerciseHandler) ListExercises(w http.ResponseWriter, r *http.Request) {
	grade, err := queryInt(r, "grade")
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	list, err := h.gw.ListExercises(r.Context(), gateway.ExerciseFilter{
		Subject:    r.URL.Query().Get("subject"),
		GradeLevel: grade,
	})
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	if list == nil {
		list = []models.Exercise{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ViewExercise returns one exercise
func (h *ExerciseHandler) ViewExercise(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	e, err := h.gw.GetExercise(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// CreateExercise saves a new exercise owned by the caller
func (h *ExerciseHandler) CreateExercise(w http.ResponseWriter, r *http.Request) {
	var e models.Exercise
	if err := decodeJSON(w, r, &e); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	created, err := h.gw.CreateExercise(r.Context(), e)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateExercise applies a partial update. Only the owner may change it.
func (h *ExerciseHandler) UpdateExercise(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	var update models.ExerciseUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	updated, err := h.gw.UpdateExercise(r.Context(), id, update)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteExercise removes an exercise owned by the caller
func (h *ExerciseHandler) DeleteExercise(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	if err := h.gw.DeleteExercise(r.Context(), id); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
