package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"learningfun/internal/gateway"
	"learningfun/internal/models"
	"learningfun/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ParentHandler lets parents and teachers follow students.
type ParentHandler struct {
	gw      *gateway.Gateway
	reports *service.ReportService
	log     *zap.Logger
}

// NewParentHandler creates a new parent handler
func NewParentHandler(gw *gateway.Gateway, reports *service.ReportService, log *zap.Logger) *ParentHandler {
	return &ParentHandler{gw: gw, reports: reports, log: log.Named("parent")}
}

// LinkStudent starts following the student with the given email.
func (h *ParentHandler) LinkStudent(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	student, err := h.gw.LinkStudent(r.Context(), req.Email)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

// ListStudents returns the students the caller follows.
func (h *ParentHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.gw.LinkedStudents(r.Context())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	if students == nil {
		students = []models.UserProfile{}
	}
	writeJSON(w, http.StatusOK, students)
}

// StudentDetails returns a followed student's profile, stats and history.
func (h *ParentHandler) StudentDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	report, err := h.reports.Build(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DownloadReport returns the student's progress as an XLSX workbook.
func (h *ParentHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	report, err := h.reports.Build(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	// Render fully before writing so a failure can still become a JSON error.
	var buf bytes.Buffer
	if err := h.reports.WriteXLSX(report, &buf); err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrInternalServerError, "failed to render report", err)
		return
	}

	filename := fmt.Sprintf("progress-%d-%s.xlsx", id, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// EmailReport mails the student's progress report to the caller.
func (h *ParentHandler) EmailReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	if err := h.reports.Email(r.Context(), id); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "report sent"})
}
