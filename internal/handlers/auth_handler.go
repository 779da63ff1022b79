package handlers

import (
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"learningfun/internal/gateway"
	"learningfun/internal/security"
	"learningfun/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService    *service.AuthService
	oauthProviders map[string]OAuthProvider
	publicURL      string
	store          sessions.Store
	log            *zap.Logger
}

// NewAuthHandler creates a new auth handler. store keeps OAuth state between
// the start and callback requests.
func NewAuthHandler(authService *service.AuthService, oauthProviders map[string]OAuthProvider, publicURL string, store sessions.Store, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		oauthProviders: oauthProviders,
		publicURL:      publicURL,
		store:          store,
		log:            log.Named("auth"),
	}
}

// Register handles sign-up. It does not sign the new user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	profile, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		UserType:   req.UserType,
		GradeLevel: req.GradeLevel,
	})
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// Login checks credentials, sets the session cookie and returns the access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	in, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	h.signedIn(w, r, in)
}

func (h *AuthHandler) signedIn(w http.ResponseWriter, r *http.Request, in *service.SignIn) {
	http.SetCookie(w, security.AccessTokenCookie(r, in.Token, in.Session.ExpiresAt))
	writeJSON(w, http.StatusOK, signInResponse{
		Token:     in.Token,
		ExpiresAt: in.Session.ExpiresAt,
		Profile:   in.Profile,
	})
}

// Logout handles logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth, ok := gateway.AuthSessionFrom(r.Context())
	if !ok {
		respondWithServiceError(w, h.log, gateway.ErrNotAuthenticated)
		return
	}
	if err := h.authService.Logout(r.Context(), auth.SessionID); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	http.SetCookie(w, security.ClearAccessTokenCookie(r))
	w.WriteHeader(http.StatusNoContent)
}

// RequestPasswordReset mails a reset link. The answer is the same whether or
// not the address has an account.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	if err := h.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if an account exists for that address, a reset link is on its way",
	})
}

// ValidateResetToken reports whether ?token= can still be used.
func (h *AuthHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	valid, err := h.authService.ValidatePasswordResetToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// ResetPassword sets a new password from a reset token.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	if err := h.authService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
