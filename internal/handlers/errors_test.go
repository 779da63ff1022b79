package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"learningfun/internal/content"
	"learningfun/internal/gateway"
	"learningfun/internal/llm"
	"learningfun/internal/service"
	"learningfun/internal/session"
	"learningfun/internal/validation"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, rec.Body.String())
	}
	return body
}

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, zap.NewNop(), 418, "Teapot", "", nil)

	if recorder.Code != 418 {
		t.Fatalf("expected status 418, got %d", recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}
	if body := decodeError(t, recorder); body.Error != "Teapot" {
		t.Fatalf("expected error 'Teapot', got %q", body.Error)
	}
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	recorder := httptest.NewRecorder()

	respondWithError(recorder, zap.New(core), 500, "Internal server error", "", errors.New("boom"))

	entries := logs.FilterMessage("Internal server error").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry with the user message, got %d", logs.Len())
	}
	if got := entries[0].ContextMap()["error"]; got != "boom" {
		t.Fatalf("expected log to include error, got %v", got)
	}
}

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		field     string
		retryable bool
		logged    bool
	}{
		{"validation", validation.ValidationError{Field: "email", Message: "email is required"}, http.StatusBadRequest, "email", false, false},
		{"wrapped validation", fmt.Errorf("register: %w", validation.ValidationError{Field: "password", Message: "too short"}), http.StatusBadRequest, "password", false, false},
		{"email taken", service.ErrEmailTaken, http.StatusConflict, "", false, false},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "", false, false},
		{"expired session", service.ErrSessionExpired, http.StatusUnauthorized, "", false, false},
		{"not signed in", gateway.ErrNotAuthenticated, http.StatusUnauthorized, "", false, false},
		{"forbidden", gateway.ErrForbidden, http.StatusForbidden, "", false, false},
		{"not found", gateway.ErrNotFound, http.StatusNotFound, "", false, false},
		{"unknown exercise", fmt.Errorf("%w: math/calculus", content.ErrUnknownExercise), http.StatusNotFound, "", false, false},
		{"no live session", session.ErrSessionNotFound, http.StatusNotFound, "", false, false},
		{"not in progress", session.ErrNotInProgress, http.StatusConflict, "", false, false},
		{"empty bank", session.ErrEmptyBank, http.StatusConflict, "", false, false},
		{"store down", &gateway.RemoteError{Op: "stats.fetch", Err: errors.New("connection refused")}, http.StatusBadGateway, "", true, true},
		{"llm busy", &llm.RateLimitError{Err: errors.New("429")}, http.StatusTooManyRequests, "", true, false},
		{"llm down", &llm.UnavailableError{Err: errors.New("503")}, http.StatusBadGateway, "", true, true},
		{"mail off", service.ErrMailerUnavailable, http.StatusServiceUnavailable, "", false, true},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			rec := httptest.NewRecorder()

			respondWithServiceError(rec, zap.New(core), tt.err)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			body := decodeError(t, rec)
			if body.Field != tt.field {
				t.Errorf("field = %q, want %q", body.Field, tt.field)
			}
			if body.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", body.Retryable, tt.retryable)
			}
			if body.Error == "" {
				t.Error("error message is empty")
			}
			if got := logs.Len() > 0; got != tt.logged {
				t.Errorf("logged = %v, want %v", got, tt.logged)
			}
		})
	}
}

func TestServerErrorsDoNotLeakDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	respondWithServiceError(rec, zap.NewNop(), &gateway.RemoteError{Op: "users.get", Err: errors.New("pq: password authentication failed")})

	body := decodeError(t, rec)
	if body.Error != "the data service is unavailable, please try again" {
		t.Fatalf("unexpected message %q", body.Error)
	}
}

func TestUnknownExerciseShowsRootMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	respondWithServiceError(rec, zap.NewNop(), fmt.Errorf("start: %w", content.ErrUnknownExercise))

	if body := decodeError(t, rec); body.Error != content.ErrUnknownExercise.Error() {
		t.Fatalf("expected root message, got %q", body.Error)
	}
}
