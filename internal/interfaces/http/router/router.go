package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/netesim/backend/internal/infrastructure/config"
	"github.com/netesim/backend/internal/infrastructure/logger"
	"github.com/netesim/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration. Webhook and API routes live in
// separate groups: webhooks sit at the root and skip the API rate limit so
// Shopify deliveries are never throttled away.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	api        []RouteRegistrar
	root       []RouteRegistrar
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine) *Router {
	return &Router{
		engine:     engine,
		apiVersion: "v1",
	}
}

// RegisterAPI adds a registrar under the versioned API group
func (r *Router) RegisterAPI(registrar RouteRegistrar) *Router {
	r.api = append(r.api, registrar)
	return r
}

// RegisterRoot adds a registrar at the engine root (webhooks, health)
func (r *Router) RegisterRoot(registrar RouteRegistrar) *Router {
	r.root = append(r.root, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup(cfg *config.HTTPConfig) {
	root := r.engine.Group("/")
	for _, registrar := range r.root {
		registrar.RegisterRoutes(root)
	}

	api := r.engine.Group("/api/" + r.apiVersion)
	if cfg != nil && cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
		api.Use(middleware.RateLimit(limiter))
	}
	for _, registrar := range r.api {
		registrar.RegisterRoutes(api)
	}
}

// NewEngine builds a gin engine with the standard middleware chain
func NewEngine(cfg *config.Config, log *zap.Logger) (*gin.Engine, error) {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	return engine, nil
}
