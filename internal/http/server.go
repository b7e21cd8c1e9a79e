package http

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"asrama/internal/backend"
	"asrama/internal/cache"
	applog "asrama/internal/log"
	"asrama/internal/middleware/ratelimit"
	"asrama/internal/middleware/security"
	"asrama/internal/middleware/trace"
	"asrama/internal/period"
	"asrama/internal/services"
	"asrama/internal/session"
	"asrama/internal/store"
	appweb "asrama/web"
)

const (
	cacheSweepInterval     = 10 * time.Minute
	rateLimitSweepInterval = 5 * time.Minute
	readyTimeout           = 5 * time.Second
)

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Backend     store.Backend
	Finance     *services.FinanceService
	Attendance  *services.AttendanceService
	Minutes     *services.MinutesService
	Dashboard   *services.DashboardService
	Sessions    *session.Manager
	SeriesCache *cache.LRUCache[period.Series]
	Logger      *applog.Logger

	RateLimitPerMinute int
	TrustedProxies     []string
	Location           *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server

	backend    store.Backend
	finance    *services.FinanceService
	attendance *services.AttendanceService
	minutes    *services.MinutesService
	dashboard  *services.DashboardService
	sessions   *session.Manager
	series     *cache.LRUCache[period.Series]

	templates *templates
	logger    *applog.Logger
	loc       *time.Location
	now       func() time.Time
	started   time.Time

	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter

	stopBackground context.CancelFunc
	background     sync.WaitGroup
	shutdownOnce   sync.Once
}

// NewServer wires routes, middleware and templates and starts the background
// sweepers. Shutdown stops them.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Backend == nil || deps.Sessions == nil {
		return nil, errors.New("backend and session manager are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	tmpl, err := loadTemplates(appweb.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	detector := security.NewDetector()
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	limits := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		limits.RequestsPerMinute = deps.RateLimitPerMinute
	}

	s := &Server{
		backend:    deps.Backend,
		finance:    deps.Finance,
		attendance: deps.Attendance,
		minutes:    deps.Minutes,
		dashboard:  deps.Dashboard,
		sessions:   deps.Sessions,
		series:     deps.SeriesCache,
		templates:  tmpl,
		logger:     logger,
		loc:        loc,
		now:        now,
		started:    now(),
		tracer:     trace.NewMiddleware(detector.ClientIP, logger),
		detector:   detector,
		limiter:    ratelimit.NewLimiter(limits),
	}

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		return nil, err
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	s.startBackground(ctx)
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static files: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		static.ServeHTTP(w, r)
	}))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /api/keuangan/series", s.handleSeries)
	mux.HandleFunc("GET /penghuni", s.handleResidents)
	mux.HandleFunc("GET /kegiatan", s.handleActivities)
	mux.HandleFunc("GET /kegiatan/{id}/absensi", s.handleAttendanceView)
	mux.HandleFunc("GET /kegiatan/{id}/notulen", s.handleMinutesView)

	mux.Handle("GET /login", security.NoStore(http.HandlerFunc(s.handleLoginPage)))
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	admin := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(session.RequireAdmin(h))
	}
	mux.Handle("GET /admin/penghuni", admin(s.handleAdminResidents))
	mux.Handle("POST /admin/penghuni", admin(s.handleCreateResident))
	mux.Handle("POST /admin/penghuni/{id}", admin(s.handleUpdateResident))
	mux.Handle("DELETE /admin/penghuni/{id}", admin(s.handleDeleteResident))

	mux.Handle("GET /admin/kegiatan", admin(s.handleAdminActivities))
	mux.Handle("POST /admin/kegiatan", admin(s.handleCreateActivity))
	mux.Handle("POST /admin/kegiatan/{id}", admin(s.handleUpdateActivity))
	mux.Handle("DELETE /admin/kegiatan/{id}", admin(s.handleDeleteActivity))
	mux.Handle("GET /admin/kegiatan/{id}/absensi", admin(s.handleRollCall))
	mux.Handle("POST /admin/kegiatan/{id}/absensi", admin(s.handleSaveRollCall))
	mux.Handle("POST /admin/kegiatan/{id}/notulen", admin(s.handleUploadMinutes))

	mux.Handle("GET /admin/keuangan", admin(s.handleAdminFinance))
	mux.Handle("POST /admin/keuangan", admin(s.handleCreateFinance))
	mux.Handle("POST /admin/keuangan/{id}", admin(s.handleUpdateFinance))
	mux.Handle("DELETE /admin/keuangan/{id}", admin(s.handleDeleteFinance))
	return nil
}

// middleware applies, outermost first: tracing, security headers, scanner
// detection, rate limiting of mutating requests and session loading.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.sessions.Middleware(h)
	h = s.limitMutations(h)
	h = s.detector.Middleware(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	return s.tracer.Middleware(h)
}

func (s *Server) limitMutations(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ClientIP)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

func (s *Server) startBackground(ctx context.Context) {
	janitor := cache.NewJanitor(s.logger)
	if s.series != nil {
		janitor.Register(s.series)
	}
	s.background.Add(2)
	go func() {
		defer s.background.Done()
		janitor.Run(ctx, cacheSweepInterval)
	}()
	go func() {
		defer s.background.Done()
		s.limiter.Run(ctx, rateLimitSweepInterval)
	}()
}

// Shutdown stops the background sweepers and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		err = s.Server.Shutdown(ctx)
		s.background.Wait()
	})
	return err
}

func (s *Server) readiness(ctx context.Context) error {
	p, ok := s.backend.(backend.Pinger)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	return p.Ping(ctx)
}
