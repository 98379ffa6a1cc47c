package analysis

// Severity weights for risk scoring. Anomalies and gaps contribute to
// a 0-100 score; the cap keeps one noisy subject from saturating the
// dashboard.
var (
	anomalyWeights = map[Severity]float64{
		SeverityLow:    5,
		SeverityMedium: 15,
		SeverityHigh:   30,
	}
	gapWeights = map[Severity]float64{
		SeverityLow:    4,
		SeverityMedium: 12,
		SeverityHigh:   25,
	}
)

// Risk level boundaries on the 0-100 score.
const (
	riskMediumFloor = 30
	riskHighFloor   = 60
)

// ScoreRisk aggregates anomalies and scissors gaps into a single
// weighted risk assessment. Pure and deterministic.
func ScoreRisk(anomalies []Anomaly, gaps []GapAnalysis) RiskAssessment {
	var score float64
	var drivers []string

	for _, a := range anomalies {
		score += anomalyWeights[a.Severity]
		if a.Severity != SeverityLow {
			drivers = append(drivers, a.Description)
		}
	}
	for _, g := range gaps {
		score += gapWeights[g.Severity]
		if g.Severity != SeverityLow {
			drivers = append(drivers, g.Summary)
		}
	}

	if score > 100 {
		score = 100
	}

	level := RiskLow
	switch {
	case score >= riskHighFloor:
		level = RiskHigh
	case score >= riskMediumFloor:
		level = RiskMedium
	}

	return RiskAssessment{
		Score:   score,
		Level:   level,
		Drivers: drivers,
	}
}
