// Package stdio implements the MCP stdio transport for insightd.
//
// Tool calls arriving over stdin/stdout are delegated to the HTTP
// daemon, so the chat assistant and the dashboard share one analysis
// cache:
//
//	assistant → stdio (this server) → HTTP client → insightd daemon
package stdio

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/axiombi/insightd/internal/analysis"
	"github.com/axiombi/insightd/internal/marketdata"
	"github.com/axiombi/insightd/internal/server"
)

// Server implements MCP stdio transport with HTTP delegation to the
// insightd daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	client    *DaemonClient
	version   string
}

// NewServer creates a new stdio MCP server delegating to the daemon
// at daemonURL (e.g. "http://localhost:9180").
func NewServer(daemonURL, version string) (*Server, error) {
	if daemonURL == "" {
		return nil, fmt.Errorf("daemonURL cannot be empty")
	}

	mcpServer := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "insightd",
		Version: version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		client:    NewDaemonClient(daemonURL),
		version:   version,
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server using stdio transport. Blocks until the
// context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	if err := s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// registerTools registers all MCP tools with the server. Each tool
// delegates to the corresponding HTTP endpoint on the daemon.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "analyze_scissors_gaps",
		Description: "Detect scissors gaps: paired trend series whose spread widens over time, such as sales growth falling behind market growth.",
	}, s.handleScissorsGaps)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "analyze_problem_causes",
		Description: "Detect anomalies in product or province performance records and infer candidate root causes with a risk assessment.",
	}, s.handleProblemCauses)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "query_market_data",
		Description: "Query the product, province, or indicator datasets with optional id and period filters.",
	}, s.handleQueryMarketData)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_analysis_report",
		Description: "Get the AI analysis report for a product, province, or indicator. Served from cache when a fresh report exists.",
	}, s.handleAnalysisReport)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "refresh_analysis",
		Description: "Mark a subject's analysis stale so every open view recomputes it. Use when the user asks to refresh an analysis.",
	}, s.handleRefreshAnalysis)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "status",
		Description: "Get insightd daemon health.",
	}, s.handleStatus)
}

// ScissorsGapsParams defines parameters for the analyze_scissors_gaps
// tool.
type ScissorsGapsParams struct {
	Series      []analysis.TrendSeries `json:"series" jsonschema:"Paired trend series to inspect"`
	MinWidening float64                `json:"min_widening,omitempty" jsonschema:"Minimum spread widening in percentage points (default 5)"`
}

// ProblemCausesParams defines parameters for the
// analyze_problem_causes tool.
type ProblemCausesParams struct {
	Products  []analysis.ProductPerformance  `json:"products,omitempty" jsonschema:"Product performance records"`
	Provinces []analysis.ProvincePerformance `json:"provinces,omitempty" jsonschema:"Province performance records"`
}

// QueryMarketDataParams defines parameters for the query_market_data
// tool.
type QueryMarketDataParams struct {
	Dimension string   `json:"dimension" jsonschema:"One of product, province, indicator"`
	IDs       []string `json:"ids,omitempty" jsonschema:"Optional id filter"`
	Periods   []string `json:"periods,omitempty" jsonschema:"Optional period filter, e.g. 2024-Q1"`
}

// AnalysisParams identifies one analysis subject for
// get_analysis_report and refresh_analysis.
type AnalysisParams struct {
	Kind       string  `json:"kind" jsonschema:"One of product, province, indicator"`
	ID         string  `json:"id" jsonschema:"Subject id, e.g. P001 or ind007"`
	Period     string  `json:"period,omitempty" jsonschema:"Period for product/province subjects, e.g. 2024-Q1"`
	GrowthRate float64 `json:"growth_rate,omitempty" jsonschema:"Growth rate for indicator subjects; omit for the no-growth plan"`
	Force      bool    `json:"force,omitempty" jsonschema:"Force recomputation even when a fresh report is cached"`
}

// StatusParams defines parameters for the status tool.
type StatusParams struct{}

func (s *Server) handleScissorsGaps(ctx context.Context, req *mcpsdk.CallToolRequest, params *ScissorsGapsParams) (*mcpsdk.CallToolResult, any, error) {
	request := server.ScissorsGapsRequest{
		Series:      params.Series,
		MinWidening: params.MinWidening,
	}

	var response server.ScissorsGapsResponse
	if err := s.client.Post(ctx, "/tools/analyze_scissors_gaps", request, &response); err != nil {
		return nil, nil, fmt.Errorf("scissors gap analysis failed: %w", err)
	}

	var b strings.Builder
	if len(response.Gaps) == 0 {
		b.WriteString("No scissors gaps detected.")
	} else {
		fmt.Fprintf(&b, "Found %d scissors gap(s):\n", len(response.Gaps))
		for i, g := range response.Gaps {
			fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, g.Severity, g.Summary)
		}
	}

	return textResult(b.String()), response, nil
}

func (s *Server) handleProblemCauses(ctx context.Context, req *mcpsdk.CallToolRequest, params *ProblemCausesParams) (*mcpsdk.CallToolResult, any, error) {
	request := server.ProblemCausesRequest{
		Products:  params.Products,
		Provinces: params.Provinces,
	}

	var response server.ProblemCausesResponse
	if err := s.client.Post(ctx, "/tools/analyze_problem_causes", request, &response); err != nil {
		return nil, nil, fmt.Errorf("cause analysis failed: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d anomaly(ies), %s risk (score %.0f).\n", len(response.Anomalies), response.Risk.Level, response.Risk.Score)
	for i, cause := range response.Causes {
		fmt.Fprintf(&b, "%d. %s (confidence %.2f)\n", i+1, cause.Description, cause.Confidence)
	}

	return textResult(b.String()), response, nil
}

func (s *Server) handleQueryMarketData(ctx context.Context, req *mcpsdk.CallToolRequest, params *QueryMarketDataParams) (*mcpsdk.CallToolResult, any, error) {
	request := marketdata.Query{
		Dimension: params.Dimension,
		IDs:       params.IDs,
		Periods:   params.Periods,
	}

	var response marketdata.Result
	if err := s.client.Post(ctx, "/tools/query_market_data", request, &response); err != nil {
		return nil, nil, fmt.Errorf("market data query failed: %w", err)
	}

	rows := len(response.Products) + len(response.Provinces) + len(response.Indicators)
	return textResult(fmt.Sprintf("Matched %d %s row(s).", rows, params.Dimension)), response, nil
}

func (s *Server) handleAnalysisReport(ctx context.Context, req *mcpsdk.CallToolRequest, params *AnalysisParams) (*mcpsdk.CallToolResult, any, error) {
	request := server.AnalysisRequest{
		Kind:       params.Kind,
		ID:         params.ID,
		Period:     params.Period,
		GrowthRate: params.GrowthRate,
		Force:      params.Force,
	}

	var response server.AnalysisResponse
	if err := s.client.Post(ctx, "/analysis/report", request, &response); err != nil {
		return nil, nil, fmt.Errorf("analysis failed: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s", response.Report.Subject, response.Report.Summary)
	if response.Cached {
		b.WriteString("\n\n(served from cache)")
	}
	if response.Report.Degraded {
		b.WriteString("\n\n(heuristic summary; completion service unavailable)")
	}

	return textResult(b.String()), response, nil
}

func (s *Server) handleRefreshAnalysis(ctx context.Context, req *mcpsdk.CallToolRequest, params *AnalysisParams) (*mcpsdk.CallToolResult, any, error) {
	request := server.AnalysisRequest{
		Kind:       params.Kind,
		ID:         params.ID,
		Period:     params.Period,
		GrowthRate: params.GrowthRate,
	}

	var response server.RefreshResponse
	if err := s.client.Post(ctx, "/analysis/refresh", request, &response); err != nil {
		return nil, nil, fmt.Errorf("refresh failed: %w", err)
	}

	return textResult(fmt.Sprintf("Marked %s stale; open views will refresh themselves.", response.Key)), response, nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcpsdk.CallToolRequest, params *StatusParams) (*mcpsdk.CallToolResult, any, error) {
	var response server.HealthResponse
	if err := s.client.Get(ctx, "/health", &response); err != nil {
		return nil, nil, fmt.Errorf("status check failed: %w", err)
	}

	return textResult(fmt.Sprintf("insightd daemon is %s (stdio bridge %s)", response.Status, s.version)), response, nil
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: text},
		},
	}
}
