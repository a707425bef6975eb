package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/axellelanca/shortener/internal/errors"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrAliasTaken), errors.Is(err, apperrors.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrUnauthorized), errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrCodeSpaceExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondOwnerError is respondError for the owner-only link routes, where a
// missing login is refused like a foreign one: 403.
func respondOwnerError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrUnauthorized) {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	respondError(c, err)
}

// respondError writes the error response. Server errors get an opaque body;
// the details reach the request log through c.Error.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal server error"})
	case http.StatusServiceUnavailable:
		c.AbortWithStatusJSON(status, gin.H{"error": "Unable to generate unique short code. Please try again later."})
	default:
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
	}
}
