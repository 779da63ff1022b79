package handlers

import "time"

const (
	// APIKeyHeader carries the public API key on every /api request.
	APIKeyHeader = "apikey"

	oauthSessionName = "oauth"
	oauthStateTTL    = 10 * time.Minute

	maxJSONBody = 1 << 20

	ErrInvalidJSON         = "invalid JSON body"
	ErrInvalidID           = "invalid id"
	ErrInternalServerError = "internal server error"
)
