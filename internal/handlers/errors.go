package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"learningfun/internal/content"
	"learningfun/internal/gateway"
	"learningfun/internal/generator"
	"learningfun/internal/llm"
	"learningfun/internal/service"
	"learningfun/internal/session"
	"learningfun/internal/validation"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func respondWithError(w http.ResponseWriter, log *zap.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Error(logMsg, zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: userMsg})
}

// respondWithServiceError maps a service or gateway error onto a status code.
// Anything unrecognized is logged and reported as a 500 with a generic message.
func respondWithServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	status, body := classify(err)
	switch {
	case status >= http.StatusInternalServerError:
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	case status == http.StatusTooManyRequests:
		log.Warn("upstream rate limited", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, errorBody) {
	var (
		ve        validation.ValidationError
		remoteErr *gateway.RemoteError
		rateErr   *llm.RateLimitError
		downErr   *llm.UnavailableError
		replyErr  *llm.InvalidResponseError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, errorBody{Error: ve.Message, Field: ve.Field}

	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, errorBody{Error: "an account with this email already exists"}
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody{Error: "invalid email or password"}
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionExpired):
		return http.StatusUnauthorized, errorBody{Error: "session expired, please sign in again"}
	case errors.Is(err, service.ErrInvalidResetToken):
		return http.StatusBadRequest, errorBody{Error: "reset link is invalid or has expired", Field: "token"}
	case errors.Is(err, gateway.ErrNotAuthenticated):
		return http.StatusUnauthorized, errorBody{Error: err.Error()}
	case errors.Is(err, gateway.ErrForbidden):
		return http.StatusForbidden, errorBody{Error: "you are not allowed to do that"}

	case errors.Is(err, gateway.ErrNotFound),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, content.ErrUnknownExercise),
		errors.Is(err, generator.ErrUnknownActivity):
		return http.StatusNotFound, errorBody{Error: rootMessage(err)}

	case errors.Is(err, session.ErrNotInProgress),
		errors.Is(err, session.ErrNotAnswered),
		errors.Is(err, session.ErrAlreadyStarted),
		errors.Is(err, session.ErrEmptyBank):
		return http.StatusConflict, errorBody{Error: rootMessage(err)}

	case errors.As(err, &remoteErr):
		return http.StatusBadGateway, errorBody{Error: "the data service is unavailable, please try again", Retryable: true}
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests, errorBody{Error: "the question generator is busy, please try again shortly", Retryable: true}
	case errors.As(err, &downErr), errors.As(err, &replyErr):
		return http.StatusBadGateway, errorBody{Error: "the question generator failed, please try again", Retryable: true}
	case errors.Is(err, llm.ErrNotConfigured), errors.Is(err, service.ErrMailerUnavailable):
		return http.StatusServiceUnavailable, errorBody{Error: err.Error()}
	}
	return http.StatusInternalServerError, errorBody{Error: ErrInternalServerError}
}

// rootMessage returns the innermost error text so wrapping context stays server side.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
