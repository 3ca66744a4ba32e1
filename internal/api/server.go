package api

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"coffeeshop/internal/auth"
	"coffeeshop/internal/clock"
	"coffeeshop/internal/config"
	"coffeeshop/internal/logging"
	"coffeeshop/internal/metrics"
	"coffeeshop/internal/ratelimit"
	"coffeeshop/internal/storage"
)

const (
	groupPublic = "public"
	groupWrite  = "write"

	requestTimeout = 15 * time.Second
	pingTimeout    = 2 * time.Second
)

// PermissionChecker decides whether an Authorization header grants a permission.
type PermissionChecker interface {
	Check(ctx context.Context, header, permission string) (auth.Claims, error)
}

type Dependencies struct {
	Config  config.Config
	Store   storage.Store
	Gate    PermissionChecker
	Logger  *log.Logger
	Metrics *metrics.Counters
	Clock   clock.Clock
	Version string
}

type Server struct {
	cfg          config.Config
	store        storage.Store
	gate         PermissionChecker
	logger       *log.Logger
	metrics      *metrics.Counters
	version      string
	rateLimiters map[string]*ratelimit.Limiter
	ipHash       ipHasher
	Router       http.Handler
}

func NewServer(deps Dependencies) *Server {
	logSink := deps.Logger
	if logSink == nil {
		logSink = log.New(io.Discard, "", 0)
	}
	version := deps.Version
	if version == "" {
		version = "0.1"
	}
	counters := deps.Metrics
	if counters == nil {
		counters = metrics.NewCounters()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	rateLimiters := map[string]*ratelimit.Limiter{}
	if deps.Config.RateLimitPublic.Max > 0 {
		rateLimiters[groupPublic] = ratelimit.New(deps.Config.RateLimitPublic.Max, deps.Config.RateLimitPublic.Window, clk)
	}
	if deps.Config.RateLimitWrite.Max > 0 {
		rateLimiters[groupWrite] = ratelimit.New(deps.Config.RateLimitWrite.Max, deps.Config.RateLimitWrite.Window, clk)
	}

	server := &Server{
		cfg:          deps.Config,
		store:        deps.Store,
		gate:         deps.Gate,
		logger:       logSink,
		metrics:      counters,
		version:      version,
		rateLimiters: rateLimiters,
		ipHash:       newIPHasher(),
	}

	server.Router = server.routes()
	return server
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(s.safeLogger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/metricsz", s.handleMetricsz)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit(groupPublic))
		r.Get("/drinks", s.handleListDrinks)
		r.Get("/drinks-detail", s.requirePermission(auth.PermissionGetDrinksDetail, s.handleListDrinksDetail))
	})

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit(groupWrite))
		r.Post("/drinks", s.requirePermission(auth.PermissionPostDrinks, s.handleCreateDrink))
		r.Patch("/drinks/{id}", s.requirePermission(auth.PermissionPatchDrinks, s.handleUpdateDrink))
		r.Delete("/drinks/{id}", s.requirePermission(auth.PermissionDeleteDrinks, s.handleDeleteDrink))
	})

	return r
}

func (s *Server) safeLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		if route == "" {
			route = "unknown"
		}
		logging.Allowlist(s.logger, map[string]string{
			"event":       "request",
			"request_id":  middleware.GetReqID(r.Context()),
			"method":      r.Method,
			"route":       route,
			"status":      strconv.Itoa(ww.Status()),
			"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
			"ip_hash":     s.ipHash.hash(clientIP(r)),
		})
	})
}

func (s *Server) rateLimit(group string) func(http.Handler) http.Handler {
	limiter := s.rateLimiters[group]
	if limiter == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := group + ":" + clientIP(r)
			if ok, retry := limiter.Allow(key); !ok {
				s.metrics.IncRateLimited()
				seconds := int(retry.Round(time.Second) / time.Second)
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				writeError(w, http.StatusTooManyRequests, "rate limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "version": s.version})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	storageOK := s.store != nil && s.store.Ping(ctx) == nil
	status := http.StatusOK
	if !storageOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ok": storageOK, "storage_ok": storageOK})
}

func (s *Server) handleMetricsz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
