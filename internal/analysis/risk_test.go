package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreRisk_NoFindings(t *testing.T) {
	risk := ScoreRisk(nil, nil)
	assert.Equal(t, float64(0), risk.Score)
	assert.Equal(t, RiskLow, risk.Level)
	assert.Empty(t, risk.Drivers)
}

func TestScoreRisk_Levels(t *testing.T) {
	tests := []struct {
		name      string
		anomalies []Anomaly
		gaps      []GapAnalysis
		score     float64
		level     RiskLevel
	}{
		{
			name:      "single low anomaly",
			anomalies: []Anomaly{{Severity: SeverityLow}},
			score:     5,
			level:     RiskLow,
		},
		{
			name:      "two medium anomalies cross the medium floor",
			anomalies: []Anomaly{{Severity: SeverityMedium}, {Severity: SeverityMedium}},
			score:     30,
			level:     RiskMedium,
		},
		{
			name:      "high anomaly plus high gap crosses the high floor",
			anomalies: []Anomaly{{Severity: SeverityHigh}, {Severity: SeverityMedium}},
			gaps:      []GapAnalysis{{Severity: SeverityHigh}},
			score:     70,
			level:     RiskHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risk := ScoreRisk(tt.anomalies, tt.gaps)
			assert.Equal(t, tt.score, risk.Score)
			assert.Equal(t, tt.level, risk.Level)
		})
	}
}

func TestScoreRisk_CappedAt100(t *testing.T) {
	var anomalies []Anomaly
	for i := 0; i < 10; i++ {
		anomalies = append(anomalies, Anomaly{Severity: SeverityHigh})
	}

	risk := ScoreRisk(anomalies, nil)
	assert.Equal(t, float64(100), risk.Score)
	assert.Equal(t, RiskHigh, risk.Level)
}

func TestScoreRisk_DriversSkipLowSeverity(t *testing.T) {
	risk := ScoreRisk(
		[]Anomaly{
			{Severity: SeverityLow, Description: "minor"},
			{Severity: SeverityHigh, Description: "steep decline"},
		},
		[]GapAnalysis{{Severity: SeverityMedium, Summary: "gap widening"}},
	)

	assert.Equal(t, []string{"steep decline", "gap widening"}, risk.Drivers)
}
