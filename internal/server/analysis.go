package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/axiombi/insightd/internal/analysis"
	"github.com/axiombi/insightd/internal/cache"
)

// AnalysisRequest identifies one analysis subject.
//
// Kind is "product", "province" or "indicator". Period is required for
// product and province subjects. GrowthRate only applies to indicator
// subjects: when set it overrides the indicator's stored rate, and it
// participates in the cache key so the growth plan and the no-growth
// plan cache independently.
type AnalysisRequest struct {
	Kind       string  `json:"kind"`
	ID         string  `json:"id"`
	Period     string  `json:"period,omitempty"`
	GrowthRate float64 `json:"growth_rate,omitempty"`
	Force      bool    `json:"force,omitempty"`
}

// AnalysisResponse wraps a report with its cache identity.
type AnalysisResponse struct {
	Key    string                   `json:"key"`
	Cached bool                     `json:"cached"`
	Report *analysis.AnalysisReport `json:"report"`
}

// RefreshResponse is the response body for POST /analysis/refresh.
type RefreshResponse struct {
	Key          string `json:"key"`
	RefreshCount uint64 `json:"refresh_count"`
}

// subjectKey derives the cache key and kind for a request.
func subjectKey(req AnalysisRequest) (cache.Kind, string, error) {
	if req.ID == "" {
		return "", "", fmt.Errorf("id field is required")
	}

	switch req.Kind {
	case string(cache.KindProduct), string(cache.KindProvince):
		if req.Period == "" {
			return "", "", fmt.Errorf("period field is required for %s subjects", req.Kind)
		}
		kind := cache.Kind(req.Kind)
		return kind, cache.DeriveKey(kind, req.ID, req.Period), nil

	case string(cache.KindIndicator):
		return cache.KindIndicator, cache.DeriveKey(cache.KindIndicator, req.ID, growthDiscriminator(req.GrowthRate)), nil

	default:
		return "", "", fmt.Errorf("unknown kind: %q", req.Kind)
	}
}

// growthDiscriminator maps a growth rate to its cache-key token. Zero
// is the no-growth plan, a distinct identity from any explicit rate.
func growthDiscriminator(rate float64) string {
	if rate <= 0 {
		return "no-growth"
	}
	return "growth-" + strconv.FormatFloat(rate, 'f', -1, 64)
}

// handleAnalysisReport serves an analysis report through the cache
// coordinator: a fresh cached report returns without recomputation,
// a missing or stale one is regenerated and written back.
func (s *Server) handleAnalysisReport(c echo.Context) error {
	var req AnalysisRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid analysis request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	kind, key, err := subjectKey(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	compute, err := s.computeFor(kind, req)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	if s.deps.Refresher != nil {
		s.deps.Refresher.Track(key, compute)
	}

	cached := false
	if _, ok := s.deps.Reports.Get(key); ok && !req.Force && !s.deps.Reports.IsStale(key) {
		cached = true
	}

	var report *analysis.AnalysisReport
	if req.Force {
		report, err = s.deps.Coordinator.ForceRefresh(c.Request().Context(), key, compute)
	} else {
		report, err = s.deps.Coordinator.Fetch(c.Request().Context(), key, false, compute)
	}
	if err != nil {
		return fmt.Errorf("analysis failed for %s: %w", key, err)
	}

	return c.JSON(http.StatusOK, AnalysisResponse{
		Key:    key,
		Cached: cached,
		Report: report,
	})
}

// computeFor builds the compute collaborator for one subject, resolving
// the record up front so a bad id fails before anything is cached.
func (s *Server) computeFor(kind cache.Kind, req AnalysisRequest) (cache.ComputeFunc[*analysis.AnalysisReport], error) {
	switch kind {
	case cache.KindProduct:
		rec, ok := s.deps.Market.Product(req.ID, req.Period)
		if !ok {
			return nil, fmt.Errorf("no product %q in period %q", req.ID, req.Period)
		}
		return func(ctx context.Context) (*analysis.AnalysisReport, error) {
			return s.deps.Analyzer.AnalyzeProduct(ctx, rec)
		}, nil

	case cache.KindProvince:
		rec, ok := s.deps.Market.Province(req.ID, req.Period)
		if !ok {
			return nil, fmt.Errorf("no province %q in period %q", req.ID, req.Period)
		}
		return func(ctx context.Context) (*analysis.AnalysisReport, error) {
			return s.deps.Analyzer.AnalyzeProvince(ctx, rec)
		}, nil

	case cache.KindIndicator:
		ind, ok := s.deps.Market.Indicator(req.ID)
		if !ok {
			return nil, fmt.Errorf("no indicator %q", req.ID)
		}
		// The request chooses the plan: an explicit rate or the
		// no-growth plan. The stored rate is only a default for
		// dataset queries, not for this analysis.
		ind.GrowthRate = req.GrowthRate
		return func(ctx context.Context) (*analysis.AnalysisReport, error) {
			return s.deps.Analyzer.AnalyzeIndicator(ctx, ind)
		}, nil

	default:
		return nil, fmt.Errorf("unknown kind: %q", kind)
	}
}

// handleAnalysisRefresh marks a subject's report stale without
// recomputing it, waking every subscriber so mounted views refresh
// themselves. When NATS is connected the invalidation is also
// broadcast so other processes mark the same key stale.
func (s *Server) handleAnalysisRefresh(c echo.Context) error {
	var req AnalysisRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid refresh request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	kind, key, err := subjectKey(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s.deps.Reports.MarkStale(key)

	if s.deps.NATS != nil {
		inv := cache.Invalidation{ID: req.ID}
		switch kind {
		case cache.KindProduct, cache.KindProvince:
			inv.Discriminators = []string{req.Period}
		case cache.KindIndicator:
			inv.Discriminators = []string{growthDiscriminator(req.GrowthRate)}
		}
		if err := cache.PublishInvalidation(s.deps.NATS, kind, inv); err != nil {
			s.logger.Warn("failed to broadcast invalidation",
				zap.String("key", key),
				zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, RefreshResponse{
		Key:          key,
		RefreshCount: s.deps.Reports.RefreshCount(),
	})
}
