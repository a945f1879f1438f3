package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pders01/newsd/internal/auth"
	"github.com/pders01/newsd/internal/logging"
	"github.com/pders01/newsd/internal/news"
	"github.com/pders01/newsd/internal/storage"
)

const (
	msgUnauthorized       = "Unauthorized"
	msgInvalidCredentials = "Invalid credentials"
	msgNoPreferences      = "No preferences set"
	msgKeywordRequired    = "Keyword required"
	msgMissingFields      = "Missing required fields"
	msgUserExists         = "User already exists"
	msgInvalidBody        = "Invalid request body"
	msgRateLimited        = "Rate limit exceeded"
	msgInternal           = "Internal server error"
)

// statusFor maps a service error to its HTTP status and client message.
// Anything unrecognized is an internal error whose detail stays in the log.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, news.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, news.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, news.ErrNoPreferences):
		return http.StatusBadRequest, msgNoPreferences
	case errors.Is(err, news.ErrMissingKeyword):
		return http.StatusBadRequest, msgKeywordRequired
	case errors.Is(err, news.ErrMissingFields):
		return http.StatusBadRequest, msgMissingFields
	case errors.Is(err, storage.ErrUserExists):
		return http.StatusBadRequest, msgUserExists
	case errors.Is(err, news.ErrInvalidInput):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), "news: ")
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.WithFields(map[string]any{
			"request_id": c.GetString(ctxRequestID),
			"path":       c.Request.URL.Path,
		}).Errorf("request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": msg})
}
