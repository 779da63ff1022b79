package security

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionCookieName carries the access token for browser clients.
const SessionCookieName = "session_id"

// NewID returns a random uuid for auth sessions, OAuth state and similar
// one-off identifiers.
func NewID() string {
	return uuid.NewString()
}

// IsSecureRequest reports whether the client reached us over HTTPS, directly
// or through a proxy that sets X-Forwarded-Proto.
func IsSecureRequest(r *http.Request) bool {
	switch {
	case r.TLS != nil:
		return true
	case strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https"):
		return true
	default:
		return r.URL.Scheme == "https"
	}
}

// AccessTokenCookie wraps a signed access token for browser clients. It
// expires with the auth session.
func AccessTokenCookie(r *http.Request, token string, expires time.Time) *http.Cookie {
	c := tokenCookie(r)
	c.Value = token
	c.Expires = expires
	return c
}

// ClearAccessTokenCookie tells the browser to drop the access token.
func ClearAccessTokenCookie(r *http.Request) *http.Cookie {
	c := tokenCookie(r)
	c.MaxAge = -1
	return c
}

func tokenCookie(r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}
