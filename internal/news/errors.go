package news

import "errors"

// Errors callers are expected to handle. Everything else is an internal
// failure.
var (
	ErrUnauthorized       = errors.New("news: unauthorized")
	ErrNoPreferences      = errors.New("news: no preferences set")
	ErrMissingKeyword     = errors.New("news: keyword required")
	ErrMissingFields      = errors.New("news: missing required fields")
	ErrInvalidCredentials = errors.New("news: invalid credentials")
	ErrInvalidInput       = errors.New("news: invalid input")
)
