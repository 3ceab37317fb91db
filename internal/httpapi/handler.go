package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"BoostIQ/internal/collector"
	"BoostIQ/internal/screener"

	"github.com/gin-gonic/gin"
)

// Banner handles GET /.
func (s *Server) Banner(c *gin.Context) {
	c.String(http.StatusOK, "BoostIQ API is running")
}

// HealthCheck handles GET /api/health.
func (s *Server) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   ServiceVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetProfiles handles GET /api/profiles.
func (s *Server) GetProfiles(c *gin.Context) {
	profiles := s.screener.ListProfiles()
	s.respond(c, "", len(profiles), profiles)
}

// GetCandidates handles GET /api/explosion-candidates.
func (s *Server) GetCandidates(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	profile := c.Query("profile")
	candidates, err := s.screener.ComputeCandidates(ctx, profile)
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.respond(c, profileOr(profile, s.opts.DefaultProfile), len(candidates), nonNil(candidates))
}

// GetAlerts handles GET /api/alerts.
func (s *Server) GetAlerts(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	profile := c.Query("profile")
	alerts, err := s.screener.ComputeAlerts(ctx, profile)
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.respond(c, profileOr(profile, s.opts.AlertProfile), len(alerts), nonNil(alerts))
}

// GetAnalysis handles GET /api/analysis/:symbol.
func (s *Server) GetAnalysis(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	candidate, err := s.screener.AnalyzeOne(ctx, c.Param("symbol"), c.Query("profile"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.respond(c, candidate.Score.Profile, 1, candidate)
}

// GetTopGainers handles GET /api/top-gainers.
func (s *Server) GetTopGainers(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	gainers, err := s.screener.TopGainers(ctx)
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.respond(c, "", len(gainers), nonNil(gainers))
}

// GetNewListings handles GET /api/new-listings.
func (s *Server) GetNewListings(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	listings, err := s.screener.NewListings(ctx)
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.respond(c, "", len(listings), nonNil(listings))
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.opts.HandlerTimeout)
}

func (s *Server) respond(c *gin.Context, profile string, count int, data interface{}) {
	body := gin.H{
		"success":   true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"count":     count,
		"data":      data,
	}
	if profile != "" {
		body["profile"] = profile
	}
	c.JSON(http.StatusOK, body)
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, screener.ErrUnknownProfile):
		return http.StatusBadRequest
	case errors.Is(err, screener.ErrInvalidSymbol):
		return http.StatusNotFound
	case errors.Is(err, collector.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(c *gin.Context, err error) {
	status := statusFor(err)
	requestID := c.GetString(RequestIDContextKey)
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s id=%s: %v", c.Request.Method, c.Request.URL.Path, requestID, err)
	} else {
		log.Printf("[WARN] %s %s id=%s: %v", c.Request.Method, c.Request.URL.Path, requestID, err)
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	c.JSON(status, gin.H{
		"success":    false,
		"error":      message,
		"request_id": requestID,
	})
}

func profileOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
