package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"learningfun/internal/security"
	"learningfun/internal/service"
	"learningfun/internal/validation"
)

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
	AuthParams  map[string]string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

type oauthProviderView struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	URL   string `json:"start_url"`
}

// errOAuth marks a failed handshake; the message is safe to show.
var errOAuth = errors.New("oauth sign-in failed")

// OAuthProviders lists the configured providers and where to start each flow.
func (h *AuthHandler) OAuthProviders(w http.ResponseWriter, r *http.Request) {
	views := []oauthProviderView{}
	for key, provider := range h.oauthProviders {
		if !provider.configured() {
			continue
		}
		views = append(views, oauthProviderView{
			Name:  key,
			Label: provider.Label,
			URL:   fmt.Sprintf("%s/auth/%s/start", strings.TrimRight(h.publicURL, "/"), key),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// StartOAuth initiates the OAuth flow for a provider
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "OAuth provider not configured"})
		return
	}

	state := security.NewID()
	sess, _ := h.store.Get(r, oauthSessionName)
	sess.Values["state"] = state
	sess.Values["provider"] = providerKey
	sess.Options = h.stateCookieOptions(r, oauthStateTTL)
	if err := sess.Save(r, w); err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrInternalServerError, "failed to save oauth state", err)
		return
	}

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(providerKey)

	options := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	for key, value := range provider.AuthParams {
		options = append(options, oauth2.SetAuthURLParam(key, value))
	}

	http.Redirect(w, r, config.AuthCodeURL(state, options...), http.StatusFound)
}

// OAuthCallback handles the OAuth provider callback and signs the user in.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "OAuth provider not configured"})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing authorization code"})
		return
	}

	sess, _ := h.store.Get(r, oauthSessionName)
	state, _ := sess.Values["state"].(string)
	savedProvider, _ := sess.Values["provider"].(string)
	if state == "" || state != r.URL.Query().Get("state") {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid OAuth state"})
		return
	}
	if savedProvider != providerKey {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "OAuth provider mismatch"})
		return
	}

	// The state is single use.
	sess.Options = h.stateCookieOptions(r, -1)
	if err := sess.Save(r, w); err != nil {
		h.log.Warn("failed to clear oauth state", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		respondWithError(w, h.log, http.StatusBadGateway, "failed to exchange OAuth code", "oauth exchange failed", err)
		return
	}

	identity, err := fetchOAuthUserInfo(ctx, provider, token)
	if err != nil {
		respondWithError(w, h.log, http.StatusBadGateway, err.Error(), "oauth user info failed", err)
		return
	}
	identity.Provider = providerKey

	in, err := h.authService.OAuthLogin(r.Context(), identity)
	if err != nil {
		var ve validation.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "the provider did not share a usable email address", Field: "email"})
			return
		}
		respondWithServiceError(w, h.log, err)
		return
	}
	h.signedIn(w, r, in)
}

// fetchOAuthUserInfo reads id, email and name from the provider's user info
// endpoint. Google and Facebook both answer with these field names.
func fetchOAuthUserInfo(ctx context.Context, provider OAuthProvider, token *oauth2.Token) (service.OAuthIdentity, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return service.OAuthIdentity{}, fmt.Errorf("%w: failed to fetch %s user info", errOAuth, provider.Label)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return service.OAuthIdentity{}, fmt.Errorf("%w: %s user info returned %d", errOAuth, provider.Label, resp.StatusCode)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return service.OAuthIdentity{}, fmt.Errorf("%w: failed to parse %s user info", errOAuth, provider.Label)
	}
	if payload.ID == "" {
		return service.OAuthIdentity{}, fmt.Errorf("%w: %s returned no user id", errOAuth, provider.Label)
	}

	return service.OAuthIdentity{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func (h *AuthHandler) oauthRedirectURL(providerKey string) string {
	return fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(h.publicURL, "/"), providerKey)
}

func (h *AuthHandler) stateCookieOptions(r *http.Request, ttl time.Duration) *sessions.Options {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	return &sessions.Options{
		Path:     "/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}
