package http

import (
	"context"
	"log/slog"

	"github.com/geocoder89/catalogapi/internal/auth"
	"github.com/geocoder89/catalogapi/internal/config"
	"github.com/geocoder89/catalogapi/internal/http/handlers"
	"github.com/geocoder89/catalogapi/internal/http/middlewares"
	"github.com/geocoder89/catalogapi/internal/observability"
	"github.com/geocoder89/catalogapi/internal/resource"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type UserStore interface {
	auth.UserReader
	handlers.UserStore
}

// Deps are the wired stores and services the routes run on.
type Deps struct {
	Users    UserStore
	Registry *resource.Registry
	Tokens   *auth.Manager
	Prom     *observability.Prom

	// Ready backs /readyz; nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// ClientIP reads X-Forwarded-For only from these peers
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Error("invalid trusted proxies, trusting none", "err", err)
		_ = r.SetTrustedProxies(nil)
	}

	// middleware

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.ErrorContext(c.Request.Context(), "panic_recovered", "panic", recovered)
		handlers.RespondInternal(c, "internal server error")
		c.Abort()
	}))
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(observability.ServiceName))
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))

	var obs middlewares.AuthObserver
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(deps.Prom.Handler()))
		obs = deps.Prom
	}

	// health
	h := handlers.NewHealthHandler(deps.Ready)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// auth pipeline stages
	authMW := middlewares.NewAuthMiddleware(auth.NewBasicAuthenticator(deps.Users), deps.Tokens, obs, log)
	limiter := middlewares.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	limit := limiter.RateLimiterMiddleware(middlewares.KeyByIP)

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens, log)
	r.POST("/signup", limit, middlewares.RequireJSON(), authHandler.SignUp)
	r.POST("/signin", limit, authMW.RequireBasic(), authHandler.SignIn)
	r.GET("/secret", authMW.RequireBearer(), authHandler.Secret)
	r.GET("/users", authMW.RequireBearer(), authMW.RequireCapability(auth.CapDelete), authHandler.ListUsers)

	records := handlers.NewRecordsHandler(log)
	resolve := middlewares.ResolveModel(deps.Registry)

	// v1 is open
	v1 := r.Group("/api/v1/:model", resolve, middlewares.RequireJSON())
	{
		v1.GET("", records.GetAll)
		v1.GET("/:id", records.GetOne)
		v1.POST("", records.Create)
		v1.PUT("/:id", records.Update)
		v1.DELETE("/:id", records.Delete)
	}

	// v2: resolve model, authenticate, gate, handle
	v2 := r.Group("/api/v2/:model", resolve)
	{
		v2.GET("", authMW.RequireAny(), records.GetAll)
		v2.GET("/:id", authMW.RequireAny(), records.GetOne)
		v2.POST("", authMW.RequireBearer(), authMW.RequireCapability(auth.CapCreate), middlewares.RequireJSON(), records.Create)
		v2.PUT("/:id", authMW.RequireBearer(), authMW.RequireCapability(auth.CapUpdate), middlewares.RequireJSON(), records.Update)
		v2.DELETE("/:id", authMW.RequireBearer(), authMW.RequireCapability(auth.CapDelete), records.Delete)
	}

	r.NoRoute(func(c *gin.Context) {
		handlers.RespondNotFound(c, "not_found", "Route not found")
	})

	return r
}
