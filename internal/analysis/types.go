// Package analysis implements the pharma sales analysis pipeline:
// anomaly detection, scissors-gap detection, root-cause heuristics and
// risk scoring over performance records, plus the LLM-backed analyzer
// that narrates them.
//
// The transforms are pure; the Analyzer is the only component that
// performs I/O, and it degrades to the deterministic heuristics when
// the completion service is unreachable.
package analysis

import "time"

// Severity classifies findings.
type Severity string

// Severity levels.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// RiskLevel buckets an overall risk score.
type RiskLevel string

// Risk levels.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ProductPerformance is one product's results for one period.
type ProductPerformance struct {
	ProductID        string  `json:"product_id"`
	ProductName      string  `json:"product_name"`
	Period           string  `json:"period"` // e.g. "2024-Q1"
	Sales            float64 `json:"sales"`
	Target           float64 `json:"target"`
	SalesGrowth      float64 `json:"sales_growth"`      // percent, year over year
	MarketGrowth     float64 `json:"market_growth"`     // percent, reference market
	TerminalCoverage float64 `json:"terminal_coverage"` // percent of target hospitals reached
}

// ProvincePerformance is one province's results for one period.
type ProvincePerformance struct {
	ProvinceID   string  `json:"province_id"`
	ProvinceName string  `json:"province_name"`
	Period       string  `json:"period"`
	Sales        float64 `json:"sales"`
	Target       float64 `json:"target"`
	SalesGrowth  float64 `json:"sales_growth"`
	MarketGrowth float64 `json:"market_growth"`
	CoverageRate float64 `json:"coverage_rate"` // percent of hospitals covered
	RepHeadcount int     `json:"rep_headcount"`
}

// IndicatorTarget is a strategy indicator with its planning inputs.
// GrowthRate zero means the plan carries no growth assumption, which
// is a distinct plan from any explicit rate.
type IndicatorTarget struct {
	IndicatorID string  `json:"indicator_id"`
	StrategyID  string  `json:"strategy_id"`
	Name        string  `json:"name"`
	Baseline    float64 `json:"baseline"`
	Target      float64 `json:"target"`
	GrowthRate  float64 `json:"growth_rate,omitempty"` // percent
	Unit        string  `json:"unit,omitempty"`
}

// Anomaly is a single detected deviation in a performance record.
type Anomaly struct {
	SubjectID   string   `json:"subject_id"`
	SubjectName string   `json:"subject_name"`
	Metric      string   `json:"metric"`
	Period      string   `json:"period"`
	Observed    float64  `json:"observed"`
	Expected    float64  `json:"expected"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// CauseFinding is a candidate root cause inferred from anomalies.
type CauseFinding struct {
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
	Evidence    []string `json:"evidence,omitempty"`
}

// RiskAssessment is the weighted risk summary over all findings.
type RiskAssessment struct {
	Score   float64   `json:"score"` // 0-100
	Level   RiskLevel `json:"level"`
	Drivers []string  `json:"drivers,omitempty"`
}

// AnalysisReport is the computed analysis payload stored in the cache.
// The cache never inspects it; consumers must not mutate a returned
// report in place.
type AnalysisReport struct {
	Subject     string         `json:"subject"`
	Summary     string         `json:"summary"`
	Reasons     []string       `json:"reasons,omitempty"`
	Anomalies   []Anomaly      `json:"anomalies,omitempty"`
	Gaps        []GapAnalysis  `json:"gaps,omitempty"`
	Causes      []CauseFinding `json:"causes,omitempty"`
	Risk        RiskAssessment `json:"risk"`
	Degraded    bool           `json:"degraded"` // true when the heuristic fallback produced the summary
	GeneratedAt time.Time      `json:"generated_at"`
}
