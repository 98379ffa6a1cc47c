package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/axiombi/insightd/internal/analysis"
	"github.com/axiombi/insightd/internal/cache"
	"github.com/axiombi/insightd/internal/llm"
	"github.com/axiombi/insightd/internal/marketdata"
	"github.com/axiombi/insightd/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	completer, err := llm.NewCompleter(llm.Config{Provider: "disabled"})
	require.NoError(t, err)

	fileStore, err := store.Open(filepath.Join(t.TempDir(), "proposals.json"), zap.NewNop())
	require.NoError(t, err)

	reports := cache.NewStore[*analysis.AnalysisReport]()
	deps := Dependencies{
		Market:      marketdata.NewService(),
		Analyzer:    analysis.NewAnalyzer(completer, zap.NewNop()),
		Reports:     reports,
		Coordinator: cache.NewCoordinator(reports, zap.NewNop()),
		Proposals:   fileStore,
	}

	srv, err := NewServer(deps, zap.NewNop(), nil)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestNewServer_ValidatesDependencies(t *testing.T) {
	_, err := NewServer(Dependencies{}, zap.NewNop(), nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListTools(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var manifest ToolManifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &manifest))
	require.Len(t, manifest.Tools, 3)
	assert.Equal(t, "analyze_scissors_gaps", manifest.Tools[0].Name)
	assert.Equal(t, "/tools/query_market_data", manifest.Tools[2].Path)
}

func TestScissorsGaps(t *testing.T) {
	srv := newTestServer(t)

	body := `{"series":[{"subject_id":"P002","subject_name":"Neurolin","metric":"sales_growth_vs_market",
		"points":[
			{"period":"2024-Q1","primary":8,"reference":10},
			{"period":"2024-Q4","primary":-2,"reference":11}
		]}]}`

	rec := doJSON(t, srv, http.MethodPost, "/tools/analyze_scissors_gaps", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScissorsGapsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Gaps, 1)
	assert.Equal(t, "P002", resp.Gaps[0].SubjectID)
	assert.InDelta(t, 11.0, resp.Gaps[0].WidenedBy, 0.001)
}

func TestScissorsGaps_RequiresSeries(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/tools/analyze_scissors_gaps", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "series field is required")
}

func TestScissorsGaps_InvalidBody(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/tools/analyze_scissors_gaps", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProblemCauses(t *testing.T) {
	srv := newTestServer(t)

	body := `{"products":[{"product_id":"P003","product_name":"Gastrovex","period":"2024-Q4",
		"sales":600,"target":1000,"sales_growth":-25,"market_growth":3,"terminal_coverage":45}]}`

	rec := doJSON(t, srv, http.MethodPost, "/tools/analyze_problem_causes", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProblemCausesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Anomalies)
	assert.NotEmpty(t, resp.Causes)
	assert.Equal(t, analysis.RiskHigh, resp.Risk.Level)
}

func TestProblemCauses_RequiresRecords(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/tools/analyze_problem_causes", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "products or provinces")
}

func TestQueryMarketData(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/tools/query_market_data",
		`{"dimension":"product","ids":["P001"],"periods":["2024-Q1"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result marketdata.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Products, 1)
	assert.Equal(t, "P001", result.Products[0].ProductID)
}

func TestQueryMarketData_RequiresDimension(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/tools/query_market_data", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryMarketData_UnknownDimension(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/tools/query_market_data", `{"dimension":"galaxy"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "unknown dimension")
}

func TestAnalysisReport_CachesSecondRead(t *testing.T) {
	srv := newTestServer(t)

	body := `{"kind":"product","id":"P001","period":"2024-Q1"}`

	rec := doJSON(t, srv, http.MethodPost, "/analysis/report", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var first AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, "product-P001-2024-Q1", first.Key)
	assert.False(t, first.Cached)
	require.NotNil(t, first.Report)
	assert.True(t, first.Report.Degraded) // no LLM configured

	rec = doJSON(t, srv, http.MethodPost, "/analysis/report", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var second AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.True(t, second.Cached)
	assert.Equal(t, first.Report.GeneratedAt, second.Report.GeneratedAt)
}

func TestAnalysisReport_ForceRecomputes(t *testing.T) {
	srv := newTestServer(t)

	body := `{"kind":"province","id":"jiangsu","period":"2024-Q2"}`
	rec := doJSON(t, srv, http.MethodPost, "/analysis/report", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/analysis/report",
		`{"kind":"province","id":"jiangsu","period":"2024-Q2","force":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Cached)
}

func TestAnalysisReport_IndicatorGrowthPlansCacheSeparately(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/analysis/report",
		`{"kind":"indicator","id":"ind007","growth_rate":15}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var withGrowth AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &withGrowth))
	assert.Equal(t, "indicator-ind007-growth-15", withGrowth.Key)

	rec = doJSON(t, srv, http.MethodPost, "/analysis/report",
		`{"kind":"indicator","id":"ind007"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var noGrowth AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &noGrowth))
	assert.Equal(t, "indicator-ind007-no-growth", noGrowth.Key)
	assert.False(t, noGrowth.Cached)
}

func TestAnalysisReport_ValidatesRequest(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing id", `{"kind":"product","period":"2024-Q1"}`, http.StatusBadRequest},
		{"missing period", `{"kind":"product","id":"P001"}`, http.StatusBadRequest},
		{"unknown kind", `{"kind":"region","id":"x"}`, http.StatusBadRequest},
		{"unknown product", `{"kind":"product","id":"P999","period":"2024-Q1"}`, http.StatusNotFound},
		{"unknown indicator", `{"kind":"indicator","id":"ind999"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/analysis/report", tt.body)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestAnalysisRefresh_MarksStale(t *testing.T) {
	srv := newTestServer(t)

	body := `{"kind":"product","id":"P001","period":"2024-Q1"}`
	rec := doJSON(t, srv, http.MethodPost, "/analysis/report", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/analysis/refresh", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RefreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "product-P001-2024-Q1", resp.Key)
	assert.Equal(t, uint64(1), resp.RefreshCount)
	assert.True(t, srv.deps.Reports.IsStale(resp.Key))

	// The entry is still served stale-but-displayable; the next report
	// read recomputes.
	_, ok := srv.deps.Reports.Get(resp.Key)
	assert.True(t, ok)
}

func TestProposalsLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/proposals",
		`{"title":"Q3 coverage push","description":"expand tier-2 hospitals"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created store.StrategyProposal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	rec = doJSON(t, srv, http.MethodGet, "/proposals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list ProposalsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Proposals, 1)

	rec = doJSON(t, srv, http.MethodDelete, "/proposals/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/proposals/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProposals_RequiresTitle(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/proposals", `{"description":"untitled"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIndicatorSets(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/indicator-sets/growth-plan",
		`[{"indicator_id":"ind007","strategy_id":"s2","name":"new accounts","baseline":100,"target":130,"growth_rate":15}]`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/indicator-sets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var names IndicatorSetsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Equal(t, []string{"growth-plan"}, names.Names)

	rec = doJSON(t, srv, http.MethodGet, "/indicator-sets/growth-plan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var set IndicatorSetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.Len(t, set.Indicators, 1)
	assert.Equal(t, "ind007", set.Indicators[0].IndicatorID)

	rec = doJSON(t, srv, http.MethodGet, "/indicator-sets/absent", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodPut, "/indicator-sets/empty", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorBodiesAreUniform(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/tools/analyze_scissors_gaps", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, hasError := resp["error"]
	assert.True(t, hasError)
	assert.Len(t, resp, 1)
}
