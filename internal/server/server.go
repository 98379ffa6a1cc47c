// Package server provides the HTTP API for insightd: the tool
// invocation surface, the cached analysis endpoints, and the persisted
// proposal store.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/axiombi/insightd/internal/analysis"
	"github.com/axiombi/insightd/internal/cache"
	"github.com/axiombi/insightd/internal/marketdata"
	"github.com/axiombi/insightd/internal/store"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Dependencies are the collaborators the server routes requests to.
// NATS and Proposals are optional; their endpoints degrade when absent.
type Dependencies struct {
	Market      *marketdata.Service
	Analyzer    *analysis.Analyzer
	Reports     *cache.Store[*analysis.AnalysisReport]
	Coordinator *cache.Coordinator[*analysis.AnalysisReport]
	Refresher   *Refresher
	Proposals   *store.FileStore
	NATS        *nats.Conn
}

// Server provides HTTP endpoints for insightd.
type Server struct {
	echo   *echo.Echo
	deps   Dependencies
	logger *zap.Logger
	config *Config
}

// NewServer creates a new HTTP server.
func NewServer(deps Dependencies, logger *zap.Logger, cfg *Config) (*Server, error) {
	if deps.Market == nil {
		return nil, fmt.Errorf("market data service is required")
	}
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if deps.Reports == nil || deps.Coordinator == nil {
		return nil, fmt.Errorf("report cache is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9180,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:   e,
		deps:   deps,
		logger: logger,
		config: cfg,
	}

	s.registerRoutes()

	return s, nil
}

// errorHandler renders every error as an {error: message} body so tool
// callers get a uniform shape for 400s and 500s.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "internal server error"
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		} else {
			logger.Error("unhandled request error", zap.Error(err))
		}

		if writeErr := c.JSON(code, ErrorResponse{Error: message}); writeErr != nil {
			logger.Error("failed to write error response", zap.Error(writeErr))
		}
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Tool surface
	s.echo.GET("/tools", s.handleListTools)
	s.echo.POST("/tools/analyze_scissors_gaps", s.handleScissorsGaps)
	s.echo.POST("/tools/analyze_problem_causes", s.handleProblemCauses)
	s.echo.POST("/tools/query_market_data", s.handleQueryMarketData)

	// Cached analysis
	s.echo.POST("/analysis/report", s.handleAnalysisReport)
	s.echo.POST("/analysis/refresh", s.handleAnalysisRefresh)

	// Persisted proposals
	if s.deps.Proposals != nil {
		s.echo.GET("/proposals", s.handleListProposals)
		s.echo.POST("/proposals", s.handleAddProposal)
		s.echo.DELETE("/proposals/:id", s.handleDeleteProposal)
		s.echo.GET("/indicator-sets", s.handleListIndicatorSets)
		s.echo.GET("/indicator-sets/:name", s.handleGetIndicatorSet)
		s.echo.PUT("/indicator-sets/:name", s.handlePutIndicatorSet)
	}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
