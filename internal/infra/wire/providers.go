package wire

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	// Domain
	"github.com/videolens/server/internal/domain/billing"
	"github.com/videolens/server/internal/domain/checkout"
	"github.com/videolens/server/internal/domain/entitlement"
	"github.com/videolens/server/internal/domain/plan"
	"github.com/videolens/server/internal/domain/usage"

	// Infrastructure
	"github.com/videolens/server/internal/infra/auth"
	"github.com/videolens/server/internal/infra/cache"
	"github.com/videolens/server/internal/infra/config"
	"github.com/videolens/server/internal/infra/events"
	"github.com/videolens/server/internal/infra/httpclient"
	"github.com/videolens/server/internal/infra/payment"
	"github.com/videolens/server/internal/infra/persistence"
	"github.com/videolens/server/internal/infra/scheduler"

	// Ports - HTTP
	portshttp "github.com/videolens/server/internal/ports/http"

	// Utils
	"github.com/videolens/server/internal/utils/logger"
	"github.com/videolens/server/internal/utils/metrics"
	"github.com/videolens/server/internal/utils/middleware"
)

// App is the assembled service.
type App struct {
	Router  *gin.Engine
	Manager *checkout.Manager
	Sweeper *scheduler.SweepScheduler
	Logger  *zap.Logger
}

// ===== Infrastructure Providers =====

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideLogger,
	ProvideZapLogger,
	ProvideMetrics,
	ProvideDatabase,
	ProvideRedisClient,
	ProvideHTTPClient,
	ProvideTokenValidator,
	cache.NewRateLimiter,
	wire.Bind(new(middleware.TokenValidator), new(*auth.Validator)),
	wire.Bind(new(middleware.Limiter), new(*cache.RateLimiter)),
)

// ProvideLogger creates the HTTP request logger.
func ProvideLogger(cfg *config.Config) *logger.Logger {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// ProvideZapLogger creates the zap logger used by domains and adapters.
func ProvideZapLogger(cfg *config.Config) *zap.Logger {
	return logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// ProvideMetrics registers the service metrics with the default registry.
func ProvideMetrics(cfg *config.Config) *metrics.Metrics {
	return metrics.New(cfg.Metrics.Namespace)
}

// ProvideDatabase opens the database and closes it on cleanup.
func ProvideDatabase(cfg *config.Config, zapLog *zap.Logger) (*gorm.DB, func(), error) {
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := persistence.CloseDatabase(db); err != nil {
			zapLog.Warn("failed to close database", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

// ProvideRedisClient connects to Redis and closes it on cleanup.
func ProvideRedisClient(cfg *config.Config, zapLog *zap.Logger) (goredis.UniversalClient, func(), error) {
	client, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			zapLog.Warn("failed to close redis", zap.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideHTTPClient creates the pooled outbound HTTP client.
func ProvideHTTPClient(cfg *config.Config, zapLog *zap.Logger) *http.Client {
	return httpclient.New(cfg.HTTPClient, zapLog)
}

// ProvideTokenValidator creates the access token validator.
func ProvideTokenValidator(cfg *config.Config) (*auth.Validator, error) {
	return auth.NewValidator(auth.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		Leeway: cfg.Auth.Leeway,
	})
}

// ===== Plan Providers =====

// PlanSet provides the catalog and the policies built on it.
var PlanSet = wire.NewSet(
	ProvideCatalog,
	plan.NewResolver,
	ProvideEvaluator,
)

// ProvideCatalog loads the configured catalog or the built-in one.
func ProvideCatalog(cfg *config.Config) (*plan.Catalog, error) {
	return config.LoadCatalog(cfg.Catalog)
}

// ProvideEvaluator creates the usage policy evaluator.
func ProvideEvaluator(cfg *config.Config, resolver *plan.Resolver) *usage.Evaluator {
	return usage.NewEvaluator(resolver, cfg.Triggers)
}

// ===== Billing Providers =====

// BillingSet provides the billing backend and its adapters.
var BillingSet = wire.NewSet(
	persistence.NewBillingRepository,
	wire.Bind(new(billing.Repository), new(*persistence.BillingRepository)),

	ProvideProfileCache,
	wire.Bind(new(billing.ProfileCache), new(*cache.ProfileCache)),

	ProvideStripeProvider,
	wire.Bind(new(billing.PaymentProvider), new(*payment.StripeProvider)),

	ProvideEventBus,
	wire.Bind(new(billing.Publisher), new(*events.Bus)),

	ProvideBillingDomain,
)

// ProvideProfileCache creates the Redis profile cache.
func ProvideProfileCache(cfg *config.Config, client goredis.UniversalClient, m *metrics.Metrics) *cache.ProfileCache {
	return cache.NewProfileCache(client, cfg.Cache.ProfileTTL, m)
}

// ProvideStripeProvider creates the Stripe checkout adapter.
func ProvideStripeProvider(cfg *config.Config, httpClient *http.Client, m *metrics.Metrics, zapLog *zap.Logger) *payment.StripeProvider {
	return payment.NewStripeProvider(payment.Config{
		SecretKey:         cfg.Stripe.SecretKey,
		WebhookSecret:     cfg.Stripe.WebhookSecret,
		SuccessURL:        cfg.Stripe.SuccessURL,
		CancelURL:         cfg.Stripe.CancelURL,
		MaxNetworkRetries: cfg.Stripe.MaxNetworkRetries,
	}, httpClient, m, zapLog)
}

// ProvideEventBus creates the event bus and subscribes the profile cache invalidator.
func ProvideEventBus(profiles *cache.ProfileCache, zapLog *zap.Logger) *events.Bus {
	bus := events.NewBus(zapLog)
	bus.Register(billing.NewCacheInvalidator(profiles, zapLog))
	return bus
}

// ProvideBillingDomain creates the billing backend.
func ProvideBillingDomain(
	cfg *config.Config,
	repo billing.Repository,
	profiles billing.ProfileCache,
	provider billing.PaymentProvider,
	publisher billing.Publisher,
	resolver *plan.Resolver,
	zapLog *zap.Logger,
) *billing.Domain {
	return billing.NewDomain(repo, profiles, provider, publisher, resolver,
		billing.Config{PriceIDs: cfg.Stripe.PriceIDs},
		zapLog.Named("billing"),
	)
}

// ===== Checkout Providers =====

// CheckoutSet provides the reconciliation manager and its sweeper.
var CheckoutSet = wire.NewSet(
	wire.Bind(new(checkout.Backend), new(*billing.Domain)),
	ProvideReconciliationManager,
	wire.Bind(new(scheduler.Sweeper), new(*checkout.Manager)),
	ProvideSweepScheduler,
)

// ProvideReconciliationManager creates the checkout reconciliation manager.
func ProvideReconciliationManager(
	cfg *config.Config,
	backend checkout.Backend,
	resolver *plan.Resolver,
	m *metrics.Metrics,
	zapLog *zap.Logger,
) *checkout.Manager {
	return checkout.NewManager(backend, resolver, cfg.Checkout.Reconciler(), m, zapLog.Named("checkout"))
}

// ProvideSweepScheduler schedules the sweep of abandoned reconciliations.
func ProvideSweepScheduler(cfg *config.Config, target scheduler.Sweeper, zapLog *zap.Logger) (*scheduler.SweepScheduler, error) {
	return scheduler.NewSweepScheduler(target, cfg.Checkout.SweepSchedule, cfg.Checkout.SessionTTL, zapLog.Named("sweeper"))
}

// ===== Entitlement Providers =====

// EntitlementSet provides the entitlement service.
var EntitlementSet = wire.NewSet(
	cache.NewUsageCounters,
	wire.Bind(new(entitlement.UsageSource), new(*cache.UsageCounters)),
	wire.Bind(new(entitlement.ProfileSource), new(*billing.Domain)),
	ProvideEntitlementDomain,
)

// ProvideEntitlementDomain creates the entitlement service.
func ProvideEntitlementDomain(
	profiles entitlement.ProfileSource,
	usageSource entitlement.UsageSource,
	resolver *plan.Resolver,
	evaluator *usage.Evaluator,
	m *metrics.Metrics,
	zapLog *zap.Logger,
) *entitlement.Domain {
	return entitlement.NewDomain(profiles, usageSource, resolver, evaluator, m, zapLog.Named("entitlement"))
}

// ===== HTTP Providers =====

// HTTPSet provides the handlers and the router.
var HTTPSet = wire.NewSet(
	portshttp.NewPlanHandler,
	portshttp.NewUsageHandler,
	portshttp.NewEntitlementHandler,
	wire.Bind(new(portshttp.EntitlementService), new(*entitlement.Domain)),
	portshttp.NewCheckoutHandler,
	wire.Bind(new(portshttp.CheckoutService), new(*billing.Domain)),
	wire.Bind(new(portshttp.Reconciliations), new(*checkout.Manager)),
	ProvideWebhookHandler,
	wire.Struct(new(portshttp.Handlers), "*"),
	ProvideRouter,
)

// ProvideWebhookHandler creates the webhook handler with metrics.
func ProvideWebhookHandler(domain *billing.Domain, m *metrics.Metrics) *portshttp.WebhookHandler {
	return portshttp.NewWebhookHandler(domain, m)
}

// ProvideRouter creates the Gin router with all middleware and routes.
func ProvideRouter(
	cfg *config.Config,
	handlers *portshttp.Handlers,
	log *logger.Logger,
	m *metrics.Metrics,
	validator middleware.TokenValidator,
	client goredis.UniversalClient,
	limiter middleware.Limiter,
) *gin.Engine {
	routerCfg := portshttp.RouterConfig{
		Debug:     cfg.Log.Level == "debug",
		Logger:    log,
		Metrics:   m,
		Validator: validator,
		CORS: middleware.CORSConfig{
			AllowOrigins:     cfg.CORS.AllowOrigins,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		},
	}
	if cfg.RateLimit.Enabled {
		routerCfg.Redis = client
		routerCfg.Idempotency = middleware.IdempotencyConfig{TTL: cfg.RateLimit.IdempotencyTTL}
		routerCfg.Limiter = limiter
		routerCfg.RateLimit = middleware.RateLimitConfig{
			Limit:  cfg.RateLimit.CheckoutLimit,
			Window: cfg.RateLimit.CheckoutWindow,
		}
	}
	return portshttp.NewRouter(handlers, routerCfg)
}

// AppSet provides every dependency of the service.
var AppSet = wire.NewSet(
	InfraSet,
	PlanSet,
	BillingSet,
	CheckoutSet,
	EntitlementSet,
	HTTPSet,
)
