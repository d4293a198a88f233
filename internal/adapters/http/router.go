package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/loquichat/loqui/internal/adapters/auth"
	"github.com/loquichat/loqui/internal/adapters/signal"
	"github.com/loquichat/loqui/internal/adapters/store"
	"github.com/loquichat/loqui/internal/app"
	"github.com/loquichat/loqui/internal/config"
	"github.com/loquichat/loqui/internal/domain"
)

// API bundles what the REST handlers need. Everything is injected; the
// router owns no state of its own.
type API struct {
	Cfg    *config.Config
	Orch   *app.Orchestrator
	Store  *store.Store
	Tokens *auth.JWTVerifier
}

// RequireAuth verifies the jwt cookie and resolves the identity record,
// mirroring the websocket handshake for plain HTTP routes.
func (a *API) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(signal.TokenCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		id, err := a.Tokens.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		identity, err := a.Store.FindIdentity(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "identity not found"})
			return
		}
		c.Set("identity", identity)
		c.Next()
	}
}

func currentIdentity(c *gin.Context) *domain.Identity {
	return c.MustGet("identity").(*domain.Identity)
}

func SetupRouter(ctx context.Context, api *API) *gin.Engine {
	cfg := api.Cfg
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/signup", api.handleSignup)
	authGroup.POST("/login", api.handleLogin)
	authGroup.POST("/logout", api.handleLogout)
	authGroup.GET("/me", api.RequireAuth(), api.handleMe)

	authed := apiGroup.Group("")
	authed.Use(api.RequireAuth())
	authed.GET("/presence", api.handlePresence)
	authed.GET("/messages/contacts", api.handleContacts)
	authed.GET("/messages/chats", api.handleChats)
	authed.GET("/messages/:id", api.handleHistory)
	authed.POST("/messages/:id", api.handleSendMessage)
	authed.GET("/rtc/config", api.handleRTCConfig)

	limiter := signal.NewCallRateLimiter(cfg.CallRateLimit, cfg.CallRateWindow)
	ctrl := signal.NewSignalWSController(api.Orch, api.Tokens, api.Store, limiter)
	if cfg.ReadLimit > 0 {
		ctrl.ReadLimit = cfg.ReadLimit
	}
	if cfg.PingPeriod > 0 {
		ctrl.PingPeriod = cfg.PingPeriod
	}
	apiGroup.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
