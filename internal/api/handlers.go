package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/axellelanca/shortener/internal/errors"
	"github.com/axellelanca/shortener/internal/models"
	"github.com/axellelanca/shortener/internal/services"
)

// expiryLayouts are the accepted formats of the expires_at field, tried in order.
// Values without a zone are read as UTC.
var expiryLayouts = []string{time.RFC3339, "2006-01-02T15:04"}

// ShortenRequest is the body of POST /links/shorten (form or JSON).
type ShortenRequest struct {
	OriginalURL string `form:"original_url" json:"original_url" binding:"required"`
	CustomAlias string `form:"custom_alias" json:"custom_alias"`
	ExpiresAt   string `form:"expires_at" json:"expires_at"`
}

// UpdateLinkRequest is the body of PUT /links/:code.
type UpdateLinkRequest struct {
	NewURL string `form:"new_url" json:"new_url" binding:"required"`
}

// CredentialsRequest is the body of the register and token endpoints.
type CredentialsRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// LinkResponse is the JSON view of a link.
type LinkResponse struct {
	ID          uint      `json:"id"`
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      *uint     `json:"user_id"`
	ClickCount  int64     `json:"click_count"`
}

func newLinkResponse(link *models.Link, baseURL string) LinkResponse {
	return LinkResponse{
		ID:          link.ID,
		OriginalURL: link.OriginalURL,
		ShortCode:   link.ShortCode,
		ShortURL:    strings.TrimSuffix(baseURL, "/") + "/links/" + link.ShortCode,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
		UserID:      link.UserID,
		ClickCount:  link.ClickCount,
	}
}

// LinkCounter reports the number of stored links.
type LinkCounter interface {
	CountLinks(ctx context.Context) (int64, error)
}

// HealthCheckHandler handles the /health route to verify service status
func HealthCheckHandler(counter LinkCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := counter.CountLinks(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "links": n})
	}
}

// RegisterHandler creates an account.
func RegisterHandler(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CredentialsRequest
		if err := c.ShouldBind(&req); err != nil {
			respondError(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
			return
		}

		user, err := authService.Register(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.Identity{UserID: user.ID, Username: user.Username})
	}
}

// TokenHandler logs a user in and hands the visitor's anonymous links over to them.
func TokenHandler(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CredentialsRequest
		if err := c.ShouldBind(&req); err != nil {
			respondError(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
			return
		}

		token, err := authService.Login(c.Request.Context(), req.Username, req.Password, c.GetString(VisitorUUIDKey))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
	}
}

// LogoutHandler revokes the bearer token of the request.
func LogoutHandler(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetString(bearerTokenKey)
		if token == "" {
			respondError(c, fmt.Errorf("%w: bearer token required", apperrors.ErrUnauthorized))
			return
		}
		if err := authService.Revoke(token); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ShortenHandler creates a short link, owned by the caller when authenticated.
func ShortenHandler(linkService *services.LinkService, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ShortenRequest
		if err := c.ShouldBind(&req); err != nil {
			respondError(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
			return
		}

		expiresAt, err := parseExpiry(req.ExpiresAt)
		if err != nil {
			respondError(c, err)
			return
		}

		link, err := linkService.Shorten(c.Request.Context(), services.ShortenInput{
			OriginalURL: req.OriginalURL,
			CustomAlias: req.CustomAlias,
			ExpiresAt:   expiresAt,
			UserID:      requesterID(c),
			VisitorID:   c.GetString(VisitorUUIDKey),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newLinkResponse(link, baseURL))
	}
}

// SearchHandler finds the link of an original URL.
func SearchHandler(linkService *services.LinkService, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		originalURL := c.Query("original_url")
		if originalURL == "" {
			respondError(c, fmt.Errorf("%w: original_url query parameter is required", apperrors.ErrValidation))
			return
		}

		link, err := linkService.FindByOriginalURL(c.Request.Context(), originalURL)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newLinkResponse(link, baseURL))
	}
}

// RedirectHandler sends the client to the original URL. The click is counted
// in the background.
func RedirectHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, err := linkService.Resolve(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, target)
	}
}

// UpdateLinkHandler points a link owned by the caller at a new URL.
func UpdateLinkHandler(linkService *services.LinkService, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requester := requesterID(c)
		if requester == nil {
			respondOwnerError(c, fmt.Errorf("%w: login required", apperrors.ErrUnauthorized))
			return
		}

		var req UpdateLinkRequest
		if err := c.ShouldBind(&req); err != nil {
			respondError(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
			return
		}

		link, err := linkService.UpdateURL(c.Request.Context(), c.Param("code"), req.NewURL, requester)
		if err != nil {
			respondOwnerError(c, err)
			return
		}
		c.JSON(http.StatusOK, newLinkResponse(link, baseURL))
	}
}

// DeleteLinkHandler removes a link owned by the caller.
func DeleteLinkHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := linkService.Delete(c.Request.Context(), c.Param("code"), requesterID(c)); err != nil {
			respondOwnerError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// StatsHandler returns the usage of a link.
func StatsHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := linkService.Stats(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func parseExpiry(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: expires_at must be RFC 3339 or YYYY-MM-DDTHH:MM", apperrors.ErrValidation)
}
