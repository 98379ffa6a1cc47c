// Package marketdata holds the in-memory mock datasets that back the
// dashboard and the market-data query tool. The data is seeded once at
// startup and read-only afterwards; nothing here persists.
package marketdata

import (
	"fmt"
	"sort"

	"github.com/axiombi/insightd/internal/analysis"
)

// Dimensions accepted by Query.
const (
	DimensionProduct   = "product"
	DimensionProvince  = "province"
	DimensionIndicator = "indicator"
)

// Query filters one dimension of the dataset. Empty ID and period
// filters match everything.
type Query struct {
	Dimension string   `json:"dimension"`
	IDs       []string `json:"ids,omitempty"`
	Periods   []string `json:"periods,omitempty"`
}

// Result carries the rows for the queried dimension; the other slices
// stay nil.
type Result struct {
	Products   []analysis.ProductPerformance  `json:"products,omitempty"`
	Provinces  []analysis.ProvincePerformance `json:"provinces,omitempty"`
	Indicators []analysis.IndicatorTarget     `json:"indicators,omitempty"`
}

// Service serves the seeded datasets.
type Service struct {
	products   []analysis.ProductPerformance
	provinces  []analysis.ProvincePerformance
	indicators []analysis.IndicatorTarget
}

// NewService creates a service over the built-in mock datasets.
func NewService() *Service {
	return &Service{
		products:   seedProducts(),
		provinces:  seedProvinces(),
		indicators: seedIndicators(),
	}
}

// Query returns the rows matching q.
func (s *Service) Query(q Query) (Result, error) {
	switch q.Dimension {
	case DimensionProduct:
		var rows []analysis.ProductPerformance
		for _, p := range s.products {
			if matches(q.IDs, p.ProductID) && matches(q.Periods, p.Period) {
				rows = append(rows, p)
			}
		}
		return Result{Products: rows}, nil

	case DimensionProvince:
		var rows []analysis.ProvincePerformance
		for _, p := range s.provinces {
			if matches(q.IDs, p.ProvinceID) && matches(q.Periods, p.Period) {
				rows = append(rows, p)
			}
		}
		return Result{Provinces: rows}, nil

	case DimensionIndicator:
		var rows []analysis.IndicatorTarget
		for _, ind := range s.indicators {
			if matches(q.IDs, ind.IndicatorID) {
				rows = append(rows, ind)
			}
		}
		return Result{Indicators: rows}, nil

	default:
		return Result{}, fmt.Errorf("unknown dimension: %q", q.Dimension)
	}
}

// Product returns one product-period record.
func (s *Service) Product(id, period string) (analysis.ProductPerformance, bool) {
	for _, p := range s.products {
		if p.ProductID == id && p.Period == period {
			return p, true
		}
	}
	return analysis.ProductPerformance{}, false
}

// Province returns one province-period record.
func (s *Service) Province(id, period string) (analysis.ProvincePerformance, bool) {
	for _, p := range s.provinces {
		if p.ProvinceID == id && p.Period == period {
			return p, true
		}
	}
	return analysis.ProvincePerformance{}, false
}

// Indicator returns one indicator record.
func (s *Service) Indicator(id string) (analysis.IndicatorTarget, bool) {
	for _, ind := range s.indicators {
		if ind.IndicatorID == id {
			return ind, true
		}
	}
	return analysis.IndicatorTarget{}, false
}

// Periods returns the distinct periods present in the product dataset,
// sorted ascending.
func (s *Service) Periods() []string {
	seen := make(map[string]struct{})
	for _, p := range s.products {
		seen[p.Period] = struct{}{}
	}
	periods := make([]string, 0, len(seen))
	for period := range seen {
		periods = append(periods, period)
	}
	sort.Strings(periods)
	return periods
}

func matches(filter []string, value string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == value {
			return true
		}
	}
	return false
}
