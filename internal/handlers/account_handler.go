package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"learningfun/internal/gateway"
	"learningfun/internal/models"
)

// AccountHandler serves the signed-in user's own records.
type AccountHandler struct {
	gw  *gateway.Gateway
	log *zap.Logger
}

func NewAccountHandler(gw *gateway.Gateway, log *zap.Logger) *AccountHandler {
	return &AccountHandler{gw: gw, log: log.Named("account")}
}

func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.gw.FetchProfile(r.Context())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update models.ProfileUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	profile, err := h.gw.UpdateProfile(r.Context(), update)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Progress returns the caller's most recent runs.
func (h *AccountHandler) Progress(w http.ResponseWriter, r *http.Request) {
	rows, err := h.gw.FetchProgress(r.Context())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	if rows == nil {
		rows = []models.StudentProgress{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *AccountHandler) GetSchool(w http.ResponseWriter, r *http.Request) {
	details, err := h.gw.FetchSchoolDetails(r.Context())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// SaveSchool creates or replaces the caller's school details.
func (h *AccountHandler) SaveSchool(w http.ResponseWriter, r *http.Request) {
	var details models.SchoolDetails
	if err := decodeJSON(w, r, &details); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	saved, err := h.gw.SaveSchoolDetails(r.Context(), details)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *AccountHandler) DeleteSchool(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.DeleteSchoolDetails(r.Context()); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
