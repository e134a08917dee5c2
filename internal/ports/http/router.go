package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/videolens/server/internal/utils/logger"
	"github.com/videolens/server/internal/utils/metrics"
	"github.com/videolens/server/internal/utils/middleware"
)

// Handlers groups every HTTP handler of the service.
type Handlers struct {
	Plan        *PlanHandler
	Usage       *UsageHandler
	Entitlement *EntitlementHandler
	Checkout    *CheckoutHandler
	Webhook     *WebhookHandler
}

// RouterConfig holds the cross-cutting dependencies of the router.
type RouterConfig struct {
	Debug     bool
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	CORS      middleware.CORSConfig
	Validator middleware.TokenValidator

	// Redis backs checkout idempotency. Nil disables it.
	Redis       goredis.UniversalClient
	Idempotency middleware.IdempotencyConfig
	// Limiter throttles checkout creation. Nil disables it.
	Limiter   middleware.Limiter
	RateLimit middleware.RateLimitConfig
}

// NewRouter creates the Gin engine with global middleware and all routes.
func NewRouter(h *Handlers, cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New(nil)
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	h.Webhook.RegisterRoutes(&r.RouterGroup)

	v1 := r.Group("/api/v1")
	h.Plan.RegisterRoutes(v1)
	h.Usage.RegisterRoutes(v1)

	protected := v1.Group("")
	protected.Use(middleware.RequireAuth(cfg.Validator))
	h.Entitlement.RegisterProtectedRoutes(protected)

	var guards []gin.HandlerFunc
	if cfg.Limiter != nil {
		guards = append(guards, middleware.RateLimitByUser(cfg.Limiter, cfg.RateLimit))
	}
	if cfg.Redis != nil {
		guards = append(guards, middleware.Idempotency(cfg.Redis, cfg.Idempotency))
	}
	h.Checkout.RegisterProtectedRoutes(protected, guards...)

	return r
}
