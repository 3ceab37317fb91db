package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"BoostIQ/internal/model"

	"github.com/gin-gonic/gin"
)

const (
	ServiceVersion      = "3.0.0"
	DefaultTimeout      = 30 * time.Second
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
)

// Screener is the ranking service behind the HTTP API.
type Screener interface {
	ComputeCandidates(ctx context.Context, profile string) ([]model.Candidate, error)
	ComputeAlerts(ctx context.Context, profile string) ([]model.Candidate, error)
	AnalyzeOne(ctx context.Context, symbol, profile string) (model.Candidate, error)
	TopGainers(ctx context.Context) ([]model.Gainer, error)
	NewListings(ctx context.Context) ([]model.Listing, error)
	ListProfiles() []model.Profile
}

// Options configures the server.
type Options struct {
	Port           int
	RateLimit      int
	RateWindow     time.Duration
	HandlerTimeout time.Duration

	// Reported in responses when the request names no profile.
	DefaultProfile string
	AlertProfile   string
}

// Server serves the screener over HTTP using gin.
type Server struct {
	screener Screener
	opts     Options
	limiter  *FixedWindowLimiter
	engine   *gin.Engine
	srv      *http.Server
}

// NewServer builds the router. A RateLimit of 0 disables rate limiting.
func NewServer(screener Screener, opts Options) *Server {
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = DefaultTimeout
	}
	if opts.DefaultProfile == "" {
		opts.DefaultProfile = "explosion"
	}
	if opts.AlertProfile == "" {
		opts.AlertProfile = "pre-explosion"
	}
	s := &Server{screener: screener, opts: opts}
	if opts.RateLimit > 0 && opts.RateWindow > 0 {
		s.limiter = NewFixedWindowLimiter(opts.RateLimit, opts.RateWindow)
	}
	s.engine = s.setupRoutes()
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(accessLogMiddleware())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/", s.Banner)

	api := router.Group("/api")
	if s.limiter != nil {
		api.Use(rateLimitMiddleware(s.limiter))
	}
	api.GET("/health", s.HealthCheck)
	api.GET("/profiles", s.GetProfiles)
	api.GET("/explosion-candidates", s.GetCandidates)
	api.GET("/alerts", s.GetAlerts)
	api.GET("/analysis/:symbol", s.GetAnalysis)
	api.GET("/top-gainers", s.GetTopGainers)
	api.GET("/new-listings", s.GetNewListings)

	return router
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("[INFO] http server listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("[INFO] http server shutting down")
	return s.srv.Shutdown(ctx)
}
