package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"learningfun/internal/models"
	"learningfun/internal/validation"
)

type registerRequest struct {
	Email      string          `json:"email"`
	Password   string          `json:"password"`
	FullName   string          `json:"full_name"`
	UserType   models.UserType `json:"user_type"`
	GradeLevel *int            `json:"grade_level"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token     string              `json:"access_token"`
	ExpiresAt time.Time           `json:"expires_at"`
	Profile   *models.UserProfile `json:"profile"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type startRequest struct {
	Subject string `json:"subject"`
	Type    string `json:"type"`
	Grade   int    `json:"grade"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type linkRequest struct {
	Email string `json:"email"`
}

type activityRequest struct {
	Grade         int    `json:"grade"`
	Customization string `json:"customization"`
}

// decodeJSON reads a single JSON object from the body. Failures come back as
// validation errors so they map to 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return validation.ValidationError{Field: "body", Message: "request body is empty"}
		}
		return validation.ValidationError{Field: "body", Message: fmt.Sprintf("%s: %v", ErrInvalidJSON, err)}
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, validation.ValidationError{Field: name, Message: ErrInvalidID}
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validation.ValidationError{Field: name, Message: "must be a whole number"}
	}
	return n, nil
}
