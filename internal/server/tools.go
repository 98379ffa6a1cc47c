package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/axiombi/insightd/internal/analysis"
	"github.com/axiombi/insightd/internal/marketdata"
)

// ToolDescriptor describes one tool in the GET /tools manifest.
type ToolDescriptor struct {
	Name        string `json:"name"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// ToolManifest is the response body for GET /tools.
type ToolManifest struct {
	Tools []ToolDescriptor `json:"tools"`
}

var toolManifest = ToolManifest{
	Tools: []ToolDescriptor{
		{
			Name:        "analyze_scissors_gaps",
			Method:      http.MethodPost,
			Path:        "/tools/analyze_scissors_gaps",
			Description: "Detect scissors gaps: paired trend series whose spread widens over time (e.g. sales growth falling behind market growth).",
		},
		{
			Name:        "analyze_problem_causes",
			Method:      http.MethodPost,
			Path:        "/tools/analyze_problem_causes",
			Description: "Detect anomalies in product/province performance records and infer candidate root causes with a risk assessment.",
		},
		{
			Name:        "query_market_data",
			Method:      http.MethodPost,
			Path:        "/tools/query_market_data",
			Description: "Query the product, province, or indicator datasets with optional id and period filters.",
		},
	},
}

// handleListTools returns the static tool manifest.
func (s *Server) handleListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, toolManifest)
}

// ScissorsGapsRequest is the request body for
// POST /tools/analyze_scissors_gaps.
type ScissorsGapsRequest struct {
	Series      []analysis.TrendSeries `json:"series"`
	MinWidening float64                `json:"min_widening,omitempty"`
}

// ScissorsGapsResponse is the corresponding response body.
type ScissorsGapsResponse struct {
	Gaps []analysis.GapAnalysis `json:"gaps"`
}

// handleScissorsGaps runs gap detection over the supplied trend series.
func (s *Server) handleScissorsGaps(c echo.Context) error {
	var req ScissorsGapsRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid scissors gaps request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Series) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "series field is required")
	}

	gaps := analysis.DetectScissorsGaps(req.Series, req.MinWidening)
	if gaps == nil {
		gaps = []analysis.GapAnalysis{}
	}

	s.logger.Debug("analyzed scissors gaps",
		zap.Int("series", len(req.Series)),
		zap.Int("gaps", len(gaps)),
	)

	return c.JSON(http.StatusOK, ScissorsGapsResponse{Gaps: gaps})
}

// ProblemCausesRequest is the request body for
// POST /tools/analyze_problem_causes. At least one record slice must
// be non-empty.
type ProblemCausesRequest struct {
	Products  []analysis.ProductPerformance  `json:"products,omitempty"`
	Provinces []analysis.ProvincePerformance `json:"provinces,omitempty"`
}

// ProblemCausesResponse is the corresponding response body.
type ProblemCausesResponse struct {
	Anomalies []analysis.Anomaly      `json:"anomalies"`
	Causes    []analysis.CauseFinding `json:"causes"`
	Risk      analysis.RiskAssessment `json:"risk"`
}

// handleProblemCauses detects anomalies across the supplied records
// and infers candidate causes.
func (s *Server) handleProblemCauses(c echo.Context) error {
	var req ProblemCausesRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid problem causes request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Products) == 0 && len(req.Provinces) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one of products or provinces is required")
	}

	th := analysis.DefaultThresholds()
	anomalies := []analysis.Anomaly{}
	for _, rec := range req.Products {
		anomalies = append(anomalies, analysis.DetectProductAnomalies(rec, th)...)
	}
	for _, rec := range req.Provinces {
		anomalies = append(anomalies, analysis.DetectProvinceAnomalies(rec, th)...)
	}

	causes := analysis.InferCauses(anomalies)
	if causes == nil {
		causes = []analysis.CauseFinding{}
	}

	return c.JSON(http.StatusOK, ProblemCausesResponse{
		Anomalies: anomalies,
		Causes:    causes,
		Risk:      analysis.ScoreRisk(anomalies, nil),
	})
}

// handleQueryMarketData serves filtered rows from the mock datasets.
func (s *Server) handleQueryMarketData(c echo.Context) error {
	var q marketdata.Query
	if err := c.Bind(&q); err != nil {
		s.logger.Warn("invalid market data query", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if q.Dimension == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "dimension field is required")
	}

	result, err := s.deps.Market.Query(q)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
