package analysis

import "fmt"

// Metric names used by the anomaly detector and the cause rules.
const (
	MetricAchievement  = "target_achievement"
	MetricSalesDecline = "sales_decline"
	MetricBelowMarket  = "below_market_growth"
	MetricCoverage     = "terminal_coverage"
)

// Thresholds configures anomaly detection.
type Thresholds struct {
	// MinAchievement is the target achievement percentage below which
	// a record is anomalous.
	MinAchievement float64

	// GrowthLagPoints is how many percentage points sales growth may
	// trail market growth before it counts as share loss.
	GrowthLagPoints float64

	// DeclineThreshold is the (negative) sales growth percentage at
	// which a decline is flagged.
	DeclineThreshold float64

	// MinCoverage is the minimum acceptable coverage percentage.
	MinCoverage float64
}

// DefaultThresholds returns the thresholds used by the dashboard.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAchievement:   80,
		GrowthLagPoints:  5,
		DeclineThreshold: -10,
		MinCoverage:      50,
	}
}

// DetectProductAnomalies applies the threshold rules to one product
// record. Pure: same record and thresholds always yield the same
// anomalies, in rule order.
func DetectProductAnomalies(rec ProductPerformance, th Thresholds) []Anomaly {
	return detectAnomalies(subjectFields{
		id:       rec.ProductID,
		name:     rec.ProductName,
		period:   rec.Period,
		sales:    rec.Sales,
		target:   rec.Target,
		growth:   rec.SalesGrowth,
		market:   rec.MarketGrowth,
		coverage: rec.TerminalCoverage,
	}, th)
}

// DetectProvinceAnomalies applies the threshold rules to one province
// record.
func DetectProvinceAnomalies(rec ProvincePerformance, th Thresholds) []Anomaly {
	return detectAnomalies(subjectFields{
		id:       rec.ProvinceID,
		name:     rec.ProvinceName,
		period:   rec.Period,
		sales:    rec.Sales,
		target:   rec.Target,
		growth:   rec.SalesGrowth,
		market:   rec.MarketGrowth,
		coverage: rec.CoverageRate,
	}, th)
}

// subjectFields is the common shape product and province records share
// for anomaly purposes.
type subjectFields struct {
	id, name, period string
	sales, target    float64
	growth, market   float64
	coverage         float64
}

func detectAnomalies(s subjectFields, th Thresholds) []Anomaly {
	var anomalies []Anomaly

	if s.target > 0 {
		achievement := s.sales / s.target * 100
		if achievement < th.MinAchievement {
			severity := SeverityMedium
			if achievement < th.MinAchievement*0.75 {
				severity = SeverityHigh
			}
			anomalies = append(anomalies, Anomaly{
				SubjectID:   s.id,
				SubjectName: s.name,
				Metric:      MetricAchievement,
				Period:      s.period,
				Observed:    achievement,
				Expected:    th.MinAchievement,
				Severity:    severity,
				Description: fmt.Sprintf("%s reached %.1f%% of target in %s (floor %.0f%%)", s.name, achievement, s.period, th.MinAchievement),
			})
		}
	}

	if s.growth < th.DeclineThreshold {
		severity := SeverityMedium
		if s.growth < th.DeclineThreshold*2 {
			severity = SeverityHigh
		}
		anomalies = append(anomalies, Anomaly{
			SubjectID:   s.id,
			SubjectName: s.name,
			Metric:      MetricSalesDecline,
			Period:      s.period,
			Observed:    s.growth,
			Expected:    th.DeclineThreshold,
			Severity:    severity,
			Description: fmt.Sprintf("%s sales declined %.1f%% year over year in %s", s.name, -s.growth, s.period),
		})
	}

	if lag := s.market - s.growth; lag > th.GrowthLagPoints && s.growth >= th.DeclineThreshold {
		severity := SeverityLow
		if lag > th.GrowthLagPoints*2 {
			severity = SeverityMedium
		}
		anomalies = append(anomalies, Anomaly{
			SubjectID:   s.id,
			SubjectName: s.name,
			Metric:      MetricBelowMarket,
			Period:      s.period,
			Observed:    s.growth,
			Expected:    s.market,
			Severity:    severity,
			Description: fmt.Sprintf("%s grew %.1f%% while the market grew %.1f%% in %s", s.name, s.growth, s.market, s.period),
		})
	}

	if s.coverage > 0 && s.coverage < th.MinCoverage {
		anomalies = append(anomalies, Anomaly{
			SubjectID:   s.id,
			SubjectName: s.name,
			Metric:      MetricCoverage,
			Period:      s.period,
			Observed:    s.coverage,
			Expected:    th.MinCoverage,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("%s terminal coverage is %.1f%% (floor %.0f%%)", s.name, s.coverage, th.MinCoverage),
		})
	}

	return anomalies
}
