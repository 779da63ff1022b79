package handlers

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"learningfun/internal/gateway"
	"learningfun/internal/security"
	"learningfun/internal/service"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	apiKey      string
	limiter     security.Limiter
	log         *zap.Logger
}

// NewMiddleware creates a new middleware instance. A nil limiter disables RateLimit.
func NewMiddleware(authService *service.AuthService, apiKey string, limiter security.Limiter, log *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		apiKey:      apiKey,
		limiter:     limiter,
		log:         log,
	}
}

// APIKey rejects requests that do not present the public API key. Browsers
// cannot set headers on a WebSocket upgrade, so the query parameter is accepted too.
func (m *Middleware) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			key = r.URL.Query().Get(APIKeyHeader)
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth is middleware that requires a valid session. The access token
// is read from the Authorization header, then the session cookie.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := accessToken(r)
		if token == "" {
			respondWithServiceError(w, m.log, gateway.ErrNotAuthenticated)
			return
		}

		auth, err := m.authService.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrSessionNotFound) || errors.Is(err, service.ErrSessionExpired) {
				// Clear invalid cookie
				http.SetCookie(w, security.ClearAccessTokenCookie(r))
			}
			respondWithServiceError(w, m.log, err)
			return
		}

		next(w, r.WithContext(gateway.WithAuthSession(r.Context(), auth)))
	}
}

// RateLimit limits requests per client IP. Limiter failures let the request through.
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter == nil {
			next(w, r)
			return
		}
		ip := security.GetClientIP(r)
		ok, err := m.limiter.Allow(r.Context(), ip)
		if err != nil {
			m.log.Warn("rate limiter unavailable", zap.String("ip", ip), zap.Error(err))
			ok = true
		}
		if !ok {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many requests, please wait a minute", Retryable: true})
			return
		}
		next(w, r)
	}
}

func accessToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack lets WebSocket upgrades through the logging wrapper.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Logging middleware logs HTTP requests
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// Recover turns a handler panic into a logged 500.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					log.Error("handler panic", zap.Any("panic", v), zap.String("path", r.URL.Path), zap.Stack("stack"))
					writeJSON(w, http.StatusInternalServerError, errorBody{Error: ErrInternalServerError})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
