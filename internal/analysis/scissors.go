package analysis

import "fmt"

// DefaultMinWidening is the minimum spread widening, in percentage
// points, for a pair of trends to count as a scissors gap.
const DefaultMinWidening = 5.0

// TrendPoint is one period of a paired trend: a primary series (e.g.
// sales growth) against a reference series (e.g. market growth).
type TrendPoint struct {
	Period    string  `json:"period"`
	Primary   float64 `json:"primary"`
	Reference float64 `json:"reference"`
}

// TrendSeries is a named pair of trends for one subject.
type TrendSeries struct {
	SubjectID   string       `json:"subject_id"`
	SubjectName string       `json:"subject_name"`
	Metric      string       `json:"metric"`
	Points      []TrendPoint `json:"points"`
}

// GapAnalysis describes a detected scissors gap: the primary and
// reference series diverging over time like opening scissor blades.
type GapAnalysis struct {
	SubjectID     string   `json:"subject_id"`
	SubjectName   string   `json:"subject_name"`
	Metric        string   `json:"metric"`
	OpeningSpread float64  `json:"opening_spread"`
	ClosingSpread float64  `json:"closing_spread"`
	WidenedBy     float64  `json:"widened_by"`
	Periods       int      `json:"periods"`
	Severity      Severity `json:"severity"`
	Summary       string   `json:"summary"`
}

// DetectScissorsGaps finds series whose reference-minus-primary spread
// widened by at least minWidening percentage points between the first
// and last period. Pass minWidening <= 0 to use DefaultMinWidening.
//
// Series with fewer than two points carry no trend and are skipped.
func DetectScissorsGaps(series []TrendSeries, minWidening float64) []GapAnalysis {
	if minWidening <= 0 {
		minWidening = DefaultMinWidening
	}

	var gaps []GapAnalysis
	for _, s := range series {
		if len(s.Points) < 2 {
			continue
		}

		opening := spread(s.Points[0])
		closing := spread(s.Points[len(s.Points)-1])
		widened := closing - opening
		if widened < minWidening {
			continue
		}

		severity := SeverityLow
		switch {
		case widened >= minWidening*3:
			severity = SeverityHigh
		case widened >= minWidening*2:
			severity = SeverityMedium
		}

		gaps = append(gaps, GapAnalysis{
			SubjectID:     s.SubjectID,
			SubjectName:   s.SubjectName,
			Metric:        s.Metric,
			OpeningSpread: opening,
			ClosingSpread: closing,
			WidenedBy:     widened,
			Periods:       len(s.Points),
			Severity:      severity,
			Summary: fmt.Sprintf("%s %s gap widened from %.1f to %.1f points over %d periods (%s to %s)",
				s.SubjectName, s.Metric, opening, closing, len(s.Points),
				s.Points[0].Period, s.Points[len(s.Points)-1].Period),
		})
	}
	return gaps
}

func spread(p TrendPoint) float64 {
	return p.Reference - p.Primary
}
