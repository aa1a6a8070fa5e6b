package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mindgrove-hq/mindgrove/pkg/airouting"
	"github.com/mindgrove-hq/mindgrove/pkg/audit"
	"github.com/mindgrove-hq/mindgrove/pkg/config"
	"github.com/mindgrove-hq/mindgrove/pkg/httputil"
	"github.com/mindgrove-hq/mindgrove/pkg/middleware"
	"github.com/mindgrove-hq/mindgrove/pkg/observability"
	"github.com/mindgrove-hq/mindgrove/pkg/sharing"
)

// Server assembles the HTTP surface: the sharing drawer API, the AI
// routing admin and resolution APIs, and the health/metrics side server.
type Server struct {
	router   *mux.Router
	logger   *observability.Logger
	metrics  *observability.Metrics
	registry *prometheus.Registry
	health   *observability.HealthChecker
}

// Deps carries everything the server needs. All fields are required
// except Invoker, which disables the model test endpoint when nil.
type Deps struct {
	Config          *config.Config
	Logger          *observability.Logger
	DB              *sql.DB
	Redis           *redis.Client
	SharingRegistry *sharing.Registry
	RoutingStore    *airouting.Store
	Resolver        *airouting.Resolver
	Invoker         airouting.TestInvoker
	AuditLogger     audit.Logger
}

// NewServer wires the full router.
func NewServer(deps Deps) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		logger:   deps.Logger,
		registry: prometheus.NewRegistry(),
		health:   observability.NewHealthChecker(deps.DB, deps.Redis),
	}
	if deps.Config.Observability.MetricsEnabled {
		s.metrics = observability.NewMetrics(s.registry)
	}
	s.setupRoutes(deps)
	return s
}

func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.RecoveryMiddleware)
	s.router.Use(httputil.MaxBytesMiddleware(1 << 20))
	s.router.Use(middleware.Subject)
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}
	s.router.Use(s.loggingMiddleware)

	// Sharing drawer: any authenticated subject; per-entity manage rights
	// are enforced by the adapters.
	shareRouter := s.router.PathPrefix("/api/v1").Subrouter()
	shareRouter.Use(middleware.RequireSubject)
	sharing.NewHandlers(deps.SharingRegistry, deps.AuditLogger).RegisterRoutes(shareRouter)

	routingHandlers := airouting.NewHandlers(deps.RoutingStore, deps.Resolver, deps.Invoker, deps.AuditLogger)

	// Resolution: internal, any authenticated subject.
	resolveRouter := s.router.PathPrefix("/api/v1").Subrouter()
	resolveRouter.Use(middleware.RequireSubject)
	routingHandlers.RegisterResolveRoutes(resolveRouter)

	// Routing config: admins only.
	adminRouter := s.router.PathPrefix("/api/v1/admin").Subrouter()
	adminRouter.Use(middleware.RequireAdmin)
	routingHandlers.RegisterAdminRoutes(adminRouter)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.WithFields(map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": httputil.RequestID(r.Context()),
		})
		logger = observability.UpdateLoggerWithTraceContext(r.Context(), logger)
		next.ServeHTTP(w, r.WithContext(observability.WithLogger(r.Context(), logger)))
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the main handler wrapped with tracing.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "mindgrove-api")
}

// HealthHandler returns the side server handler with liveness, readiness
// and metrics endpoints. Served on a separate port for probes.
func (s *Server) HealthHandler() http.Handler {
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, s.health)
	observability.RegisterMetricsEndpoint(healthMux, s.registry)
	return healthMux
}

// Check runs the dependency health checks directly.
func (s *Server) Check(ctx context.Context) observability.HealthStatus {
	return s.health.Check(ctx)
}
