package api

import (
	"net/http"

	"github.com/austrobank/interswitch/internal/api/handler"
	"github.com/austrobank/interswitch/internal/api/middleware"
	"github.com/austrobank/interswitch/internal/api/spec"
	"github.com/austrobank/interswitch/internal/auth"
	"github.com/austrobank/interswitch/internal/bin"
	"github.com/austrobank/interswitch/internal/directory"
	"github.com/austrobank/interswitch/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Router assembles the HTTP surface from the already-wired collaborators.
type Router struct {
	payments   *service.PaymentService
	admin      *directory.Admin
	dir        *directory.Directory
	bins       *bin.Router
	authorizer auth.Authorizer
	db         *pgxpool.Pool
	redis      redis.Cmdable
	logger     *zap.Logger
	publicRPS  int
	adminRPS   int
}

// NewRouter builds the router. db and redis may be nil for the memory
// deployment; they only gate the readiness probe.
func NewRouter(payments *service.PaymentService, admin *directory.Admin, dir *directory.Directory, bins *bin.Router, authorizer auth.Authorizer, db *pgxpool.Pool, rdb redis.Cmdable, logger *zap.Logger, publicRPS, adminRPS int) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		payments:   payments,
		admin:      admin,
		dir:        dir,
		bins:       bins,
		authorizer: authorizer,
		db:         db,
		redis:      rdb,
		logger:     logger,
		publicRPS:  publicRPS,
		adminRPS:   adminRPS,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))

	paymentHandler := handler.NewPaymentHandler(api.payments)
	authorizeHandler := handler.NewAuthorizeHandler(api.payments)
	directoryHandler := handler.NewDirectoryHandler(api.admin, api.dir, api.bins)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	// Transaction routes: no auth (terminals and partner switches are
	// network-trusted), IP rate limited.
	r.Group(func(r chi.Router) {
		if api.publicRPS > 0 {
			r.Use(middleware.PublicRateLimiter(api.publicRPS))
		}
		r.Post("/v1/payments", paymentHandler.ProcessPayment)
		r.Post("/v1/authorize", authorizeHandler.Authorize)
	})

	// Admin routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(api.authorizer))
		if api.adminRPS > 0 {
			r.Use(middleware.AdminRateLimiter(api.adminRPS))
		}
		r.Post("/v1/admin/banks", directoryHandler.RegisterBank)
		r.Get("/v1/admin/banks", directoryHandler.ListBanks)
		r.Patch("/v1/admin/banks/{code}/status", directoryHandler.SetBankStatus)
		r.Get("/v1/admin/bin-rules", directoryHandler.ListBinRules)
		r.Put("/v1/admin/bin-rules", directoryHandler.ReplaceBinRules)
	})

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})

	return r
}
