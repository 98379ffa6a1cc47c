package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/axiombi/insightd/internal/llm"
)

// Analyzer is the expensive compute collaborator behind the analysis
// cache: it generates an AnalysisReport for one subject.
//
// The deterministic transforms always run; the LLM only narrates
// their output. When the completion service fails or is not
// configured, the analyzer falls back to a locally templated summary
// and flags the report as degraded, so the caller sees a usable
// report rather than a hard failure for a missing API credential.
type Analyzer struct {
	completer  llm.Completer
	thresholds Thresholds
	logger     *zap.Logger
}

// NewAnalyzer creates an analyzer using the given completion client.
func NewAnalyzer(completer llm.Completer, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		completer:  completer,
		thresholds: DefaultThresholds(),
		logger:     logger,
	}
}

// AnalyzeProduct generates a report for one product-period record.
func (a *Analyzer) AnalyzeProduct(ctx context.Context, rec ProductPerformance) (*AnalysisReport, error) {
	if rec.ProductID == "" {
		return nil, fmt.Errorf("product id is required")
	}

	anomalies := DetectProductAnomalies(rec, a.thresholds)
	gaps := DetectScissorsGaps([]TrendSeries{productTrend(rec)}, 0)
	causes := InferCauses(anomalies)
	risk := ScoreRisk(anomalies, gaps)

	subject := fmt.Sprintf("%s (%s)", rec.ProductName, rec.Period)
	return a.narrate(ctx, "product", subject, rec, anomalies, gaps, causes, risk)
}

// AnalyzeProvince generates a report for one province-period record.
func (a *Analyzer) AnalyzeProvince(ctx context.Context, rec ProvincePerformance) (*AnalysisReport, error) {
	if rec.ProvinceID == "" {
		return nil, fmt.Errorf("province id is required")
	}

	anomalies := DetectProvinceAnomalies(rec, a.thresholds)
	causes := InferCauses(anomalies)
	risk := ScoreRisk(anomalies, nil)

	subject := fmt.Sprintf("%s (%s)", rec.ProvinceName, rec.Period)
	return a.narrate(ctx, "province", subject, rec, anomalies, nil, causes, risk)
}

// AnalyzeIndicator generates a target-plan report for one strategy
// indicator. A zero growth rate is the no-growth plan, a distinct
// analysis from any explicit rate.
func (a *Analyzer) AnalyzeIndicator(ctx context.Context, ind IndicatorTarget) (*AnalysisReport, error) {
	if ind.IndicatorID == "" {
		return nil, fmt.Errorf("indicator id is required")
	}

	// Planned target: explicit growth compounds the baseline, the
	// no-growth plan keeps whatever target came with the indicator.
	planned := ind.Target
	if ind.GrowthRate > 0 {
		planned = ind.Baseline * (1 + ind.GrowthRate/100)
	}

	var anomalies []Anomaly
	if ind.Baseline > 0 && planned > ind.Baseline*1.5 {
		anomalies = append(anomalies, Anomaly{
			SubjectID:   ind.IndicatorID,
			SubjectName: ind.Name,
			Metric:      MetricAchievement,
			Observed:    planned / ind.Baseline * 100,
			Expected:    150,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("%s plan asks for %.0f%% of baseline, beyond the 150%% stretch ceiling", ind.Name, planned/ind.Baseline*100),
		})
	}
	causes := InferCauses(anomalies)
	risk := ScoreRisk(anomalies, nil)

	subject := fmt.Sprintf("%s / %s", ind.StrategyID, ind.Name)
	return a.narrate(ctx, "indicator", subject, ind, anomalies, nil, causes, risk)
}

// narrate assembles the report, asking the LLM for the summary and
// falling back to the heuristic template on any failure.
func (a *Analyzer) narrate(ctx context.Context, kind, subject string, rec any, anomalies []Anomaly, gaps []GapAnalysis, causes []CauseFinding, risk RiskAssessment) (*AnalysisReport, error) {
	report := &AnalysisReport{
		Subject:     subject,
		Anomalies:   anomalies,
		Gaps:        gaps,
		Causes:      causes,
		Risk:        risk,
		GeneratedAt: time.Now().UTC(),
	}

	if a.completer.Available() {
		prompt, err := buildPrompt(kind, rec, anomalies, gaps, causes)
		if err != nil {
			return nil, err
		}

		text, err := a.completer.Complete(ctx, systemPrompt, prompt)
		if err == nil {
			report.Summary = strings.TrimSpace(text)
			report.Reasons = extractReasons(text)
			return report, nil
		}

		a.logger.Warn("completion failed, using heuristic summary",
			zap.String("subject", subject),
			zap.Error(err))
	}

	report.Summary = heuristicSummary(subject, anomalies, causes, risk)
	report.Degraded = true
	return report, nil
}

// heuristicSummary is the canned fallback narration.
func heuristicSummary(subject string, anomalies []Anomaly, causes []CauseFinding, risk RiskAssessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s risk (score %.0f).", subject, risk.Level, risk.Score)

	if len(anomalies) == 0 {
		b.WriteString(" No anomalies detected against current thresholds.")
		return b.String()
	}

	fmt.Fprintf(&b, " %d finding(s):", len(anomalies))
	for _, an := range anomalies {
		fmt.Fprintf(&b, " %s.", an.Description)
	}
	if len(causes) > 0 {
		fmt.Fprintf(&b, " Most likely cause: %s.", causes[0].Description)
	}
	return b.String()
}

// productTrend builds the growth-vs-market trend pair for one record.
// With a single period the series carries no trend; it still feeds the
// gap detector so multi-period callers can extend it.
func productTrend(rec ProductPerformance) TrendSeries {
	return TrendSeries{
		SubjectID:   rec.ProductID,
		SubjectName: rec.ProductName,
		Metric:      "sales_growth_vs_market",
		Points: []TrendPoint{
			{Period: rec.Period, Primary: rec.SalesGrowth, Reference: rec.MarketGrowth},
		},
	}
}
