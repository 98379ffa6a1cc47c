package analysis

import "sort"

// Cause codes produced by the rule table.
const (
	CauseMarketShareLoss   = "market_share_loss"
	CauseDemandContraction = "demand_contraction"
	CauseCoverageShortfall = "coverage_shortfall"
	CauseTargetOverreach   = "target_overreach"
	CauseExecutionGap      = "execution_gap"
)

// causeRule maps an anomaly signature to a candidate cause.
type causeRule struct {
	metric      string
	minSeverity Severity
	code        string
	description string
	confidence  float64
}

// The rule table is ordered: earlier rules are more specific and their
// confidence wins on duplicate codes.
var causeRules = []causeRule{
	{MetricBelowMarket, SeverityLow, CauseMarketShareLoss,
		"sales growth trails the market, pointing to competitive share loss", 0.8},
	{MetricSalesDecline, SeverityHigh, CauseDemandContraction,
		"steep sales decline suggests demand contraction or channel destocking", 0.7},
	{MetricCoverage, SeverityLow, CauseCoverageShortfall,
		"terminal coverage is below floor, limiting reachable demand", 0.75},
	{MetricAchievement, SeverityHigh, CauseTargetOverreach,
		"achievement far below floor with no matching market signal suggests the target was set too aggressively", 0.5},
	{MetricAchievement, SeverityLow, CauseExecutionGap,
		"achievement below floor indicates an execution gap against plan", 0.6},
}

var severityRank = map[Severity]int{
	SeverityLow:    0,
	SeverityMedium: 1,
	SeverityHigh:   2,
}

// InferCauses runs the rule table over detected anomalies and returns
// deduplicated candidate causes, highest confidence first.
//
// The heuristics are deliberately simple threshold rules; they exist
// so the dashboard still shows something defensible when the LLM
// narration is unavailable.
func InferCauses(anomalies []Anomaly) []CauseFinding {
	byCode := make(map[string]*CauseFinding)

	for _, a := range anomalies {
		for _, r := range causeRules {
			if r.metric != a.Metric {
				continue
			}
			if severityRank[a.Severity] < severityRank[r.minSeverity] {
				continue
			}

			if existing, ok := byCode[r.code]; ok {
				if r.confidence > existing.Confidence {
					existing.Confidence = r.confidence
				}
				existing.Evidence = append(existing.Evidence, a.Description)
			} else {
				byCode[r.code] = &CauseFinding{
					Code:        r.code,
					Description: r.description,
					Confidence:  r.confidence,
					Evidence:    []string{a.Description},
				}
			}
			break // first matching rule per anomaly
		}
	}

	findings := make([]CauseFinding, 0, len(byCode))
	for _, f := range byCode {
		findings = append(findings, *f)
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Confidence != findings[j].Confidence {
			return findings[i].Confidence > findings[j].Confidence
		}
		return findings[i].Code < findings[j].Code
	})
	return findings
}
