package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func divergingSeries() TrendSeries {
	return TrendSeries{
		SubjectID:   "P001",
		SubjectName: "Cardiozem",
		Metric:      "sales_growth_vs_market",
		Points: []TrendPoint{
			{Period: "2024-Q1", Primary: 10, Reference: 11},
			{Period: "2024-Q2", Primary: 6, Reference: 12},
			{Period: "2024-Q3", Primary: 2, Reference: 13},
		},
	}
}

func TestDetectScissorsGaps_Diverging(t *testing.T) {
	gaps := DetectScissorsGaps([]TrendSeries{divergingSeries()}, 0)
	require.Len(t, gaps, 1)

	g := gaps[0]
	assert.Equal(t, "P001", g.SubjectID)
	assert.InDelta(t, 1, g.OpeningSpread, 0.01)
	assert.InDelta(t, 11, g.ClosingSpread, 0.01)
	assert.InDelta(t, 10, g.WidenedBy, 0.01)
	assert.Equal(t, 3, g.Periods)
	assert.Equal(t, SeverityMedium, g.Severity, "10-point widening is twice the default floor")
	assert.Contains(t, g.Summary, "2024-Q1")
	assert.Contains(t, g.Summary, "2024-Q3")
}

func TestDetectScissorsGaps_ParallelTrendsIgnored(t *testing.T) {
	s := TrendSeries{
		SubjectID: "P002",
		Metric:    "sales_growth_vs_market",
		Points: []TrendPoint{
			{Period: "2024-Q1", Primary: 8, Reference: 10},
			{Period: "2024-Q2", Primary: 9, Reference: 11},
		},
	}
	assert.Empty(t, DetectScissorsGaps([]TrendSeries{s}, 0))
}

func TestDetectScissorsGaps_ConvergingTrendsIgnored(t *testing.T) {
	s := divergingSeries()
	// Reverse the divergence.
	s.Points[0], s.Points[2] = s.Points[2], s.Points[0]
	assert.Empty(t, DetectScissorsGaps([]TrendSeries{s}, 0))
}

func TestDetectScissorsGaps_SinglePointSkipped(t *testing.T) {
	s := TrendSeries{
		SubjectID: "P003",
		Points:    []TrendPoint{{Period: "2024-Q1", Primary: 1, Reference: 20}},
	}
	assert.Empty(t, DetectScissorsGaps([]TrendSeries{s}, 0))
}

func TestDetectScissorsGaps_HighSeverity(t *testing.T) {
	s := divergingSeries()
	s.Points[2].Primary = -5 // closing spread 18, widened by 17

	gaps := DetectScissorsGaps([]TrendSeries{s}, 0)
	require.Len(t, gaps, 1)
	assert.Equal(t, SeverityHigh, gaps[0].Severity)
}

func TestDetectScissorsGaps_CustomThreshold(t *testing.T) {
	gaps := DetectScissorsGaps([]TrendSeries{divergingSeries()}, 15)
	assert.Empty(t, gaps, "10-point widening is below a 15-point floor")
}
