package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/axellelanca/shortener/internal/auth"
	"github.com/axellelanca/shortener/internal/services"
)

// RouterDeps groups what the HTTP layer needs.
type RouterDeps struct {
	LinkService *services.LinkService
	AuthService *services.AuthService
	Signer      *auth.Signer
	BaseURL     string
	Logger      *logrus.Logger
}

// NewRouter builds the gin engine with its middleware chain and every route.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(LoggerMiddleware(deps.Logger))
	router.Use(gin.Recovery())
	SetupRoutes(router, deps)
	return router
}

// SetupRoutes configures all API routes on router.
func SetupRoutes(router *gin.Engine, deps RouterDeps) {
	router.GET("/health", HealthCheckHandler(deps.LinkService))

	withClient := router.Group("/",
		VisitorCookieMiddleware(deps.Signer),
		OptionalAuthMiddleware(deps.AuthService),
	)

	authGroup := withClient.Group("/auth")
	{
		authGroup.POST("/register", RegisterHandler(deps.AuthService))
		authGroup.POST("/token", TokenHandler(deps.AuthService))
		authGroup.POST("/logout", LogoutHandler(deps.AuthService))
	}

	links := withClient.Group("/links")
	{
		links.POST("/shorten", ShortenHandler(deps.LinkService, deps.BaseURL))
		links.GET("/search", SearchHandler(deps.LinkService, deps.BaseURL))
		links.GET("/:code", RedirectHandler(deps.LinkService))
		links.PUT("/:code", UpdateLinkHandler(deps.LinkService, deps.BaseURL))
		links.DELETE("/:code", DeleteLinkHandler(deps.LinkService))
		links.GET("/:code/stats", StatsHandler(deps.LinkService))
	}
}
