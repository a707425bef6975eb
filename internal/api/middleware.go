package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/axellelanca/shortener/internal/auth"
	"github.com/axellelanca/shortener/internal/models"
	"github.com/axellelanca/shortener/internal/services"
)

const (
	identityKey       = "identity"
	bearerTokenKey    = "bearerToken"
	VisitorUUIDKey    = "visitorUUID"
	VisitorCookieName = "visitor"
	VisitorCookieTTL  = 30 * 24 * time.Hour
)

// LoggerMiddleware logs every request once it is served. It must be first in the chain.
func LoggerMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	log := logger.WithField("module", "api")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		statusCode := c.Writer.Status()
		l := log.WithFields(logrus.Fields{
			"URI":     c.Request.RequestURI,
			"latency": fmt.Sprintf("%d ms", latency.Milliseconds()),
			"status":  statusCode,
			"method":  c.Request.Method,
		})
		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			l = l.WithField("error", errorMessage)
		}

		switch {
		case statusCode >= http.StatusInternalServerError:
			l.Error("Server error")
		case statusCode >= http.StatusBadRequest:
			l.Warn("Client error")
		default:
			l.Info("Request processed")
		}
	}
}

// OptionalAuthMiddleware attaches the identity behind a valid bearer token.
// Requests without one continue anonymously.
func OptionalAuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token != "" {
			c.Set(bearerTokenKey, token)
			if identity := authService.CurrentUser(token); identity != nil {
				c.Set(identityKey, identity)
			}
		}
		c.Next()
	}
}

// VisitorCookieMiddleware gives each anonymous client a signed visitor id,
// renewing the cookie when it is missing or invalid.
func VisitorCookieMiddleware(signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		visitorCookie, err := c.Request.Cookie(VisitorCookieName)
		if err != nil && !errors.Is(err, http.ErrNoCookie) {
			_ = c.Error(fmt.Errorf("visitor cookie middleware: %w", err))
			c.Next()
			return
		}

		var visitorUUID string
		if visitorCookie != nil {
			id, validateErr := signer.ValidateVisitorJWT(visitorCookie.Value)
			if validateErr != nil {
				_ = c.Error(fmt.Errorf("visitor cookie middleware: %w", validateErr))
			} else {
				visitorUUID = id
			}
		}

		if visitorUUID == "" {
			visitorUUID = uuid.NewString()
			tokenString, tokenErr := signer.GenerateVisitorJWT(visitorUUID, VisitorCookieTTL)
			if tokenErr != nil {
				_ = c.Error(fmt.Errorf("visitor cookie middleware: %w", tokenErr))
				c.Next()
				return
			}
			c.SetCookie(VisitorCookieName, tokenString, int(VisitorCookieTTL.Seconds()), "/", "", false, true)
		}

		c.Set(VisitorUUIDKey, visitorUUID)
		c.Next()
	}
}

// currentIdentity returns the authenticated user, or nil for anonymous requests.
func currentIdentity(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*models.Identity)
	return identity
}

// requesterID returns the id of the authenticated user, or nil.
func requesterID(c *gin.Context) *uint {
	identity := currentIdentity(c)
	if identity == nil {
		return nil
	}
	id := identity.UserID
	return &id
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
