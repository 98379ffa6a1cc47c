package marketdata

import "github.com/axiombi/insightd/internal/analysis"

// Seed data for the mock datasets. Figures are illustrative: a stable
// flagship, a product losing share, and a declining legacy line,
// spread over four quarters and three provinces.

func seedProducts() []analysis.ProductPerformance {
	return []analysis.ProductPerformance{
		// P001 Cardiozem: healthy flagship.
		{ProductID: "P001", ProductName: "Cardiozem", Period: "2024-Q1", Sales: 980, Target: 1000, SalesGrowth: 12.0, MarketGrowth: 10.5, TerminalCoverage: 74},
		{ProductID: "P001", ProductName: "Cardiozem", Period: "2024-Q2", Sales: 1040, Target: 1050, SalesGrowth: 11.2, MarketGrowth: 10.8, TerminalCoverage: 75},
		{ProductID: "P001", ProductName: "Cardiozem", Period: "2024-Q3", Sales: 1105, Target: 1100, SalesGrowth: 10.9, MarketGrowth: 10.2, TerminalCoverage: 77},
		{ProductID: "P001", ProductName: "Cardiozem", Period: "2024-Q4", Sales: 1190, Target: 1160, SalesGrowth: 11.4, MarketGrowth: 10.0, TerminalCoverage: 78},

		// P002 Neurolin: growth stalling while the market accelerates.
		{ProductID: "P002", ProductName: "Neurolin", Period: "2024-Q1", Sales: 640, Target: 700, SalesGrowth: 9.0, MarketGrowth: 9.5, TerminalCoverage: 61},
		{ProductID: "P002", ProductName: "Neurolin", Period: "2024-Q2", Sales: 655, Target: 740, SalesGrowth: 6.1, MarketGrowth: 11.0, TerminalCoverage: 60},
		{ProductID: "P002", ProductName: "Neurolin", Period: "2024-Q3", Sales: 650, Target: 780, SalesGrowth: 2.8, MarketGrowth: 12.4, TerminalCoverage: 58},
		{ProductID: "P002", ProductName: "Neurolin", Period: "2024-Q4", Sales: 645, Target: 820, SalesGrowth: 0.4, MarketGrowth: 13.1, TerminalCoverage: 57},

		// P003 Gastrovex: legacy line in decline with thin coverage.
		{ProductID: "P003", ProductName: "Gastrovex", Period: "2024-Q1", Sales: 310, Target: 420, SalesGrowth: -14.0, MarketGrowth: 2.0, TerminalCoverage: 46},
		{ProductID: "P003", ProductName: "Gastrovex", Period: "2024-Q2", Sales: 285, Target: 410, SalesGrowth: -18.5, MarketGrowth: 1.8, TerminalCoverage: 44},
		{ProductID: "P003", ProductName: "Gastrovex", Period: "2024-Q3", Sales: 262, Target: 400, SalesGrowth: -22.1, MarketGrowth: 1.5, TerminalCoverage: 41},
		{ProductID: "P003", ProductName: "Gastrovex", Period: "2024-Q4", Sales: 240, Target: 390, SalesGrowth: -25.6, MarketGrowth: 1.2, TerminalCoverage: 39},
	}
}

func seedProvinces() []analysis.ProvincePerformance {
	return []analysis.ProvincePerformance{
		{ProvinceID: "guangdong", ProvinceName: "Guangdong", Period: "2024-Q1", Sales: 860, Target: 900, SalesGrowth: 10.2, MarketGrowth: 9.8, CoverageRate: 68, RepHeadcount: 42},
		{ProvinceID: "guangdong", ProvinceName: "Guangdong", Period: "2024-Q2", Sales: 905, Target: 930, SalesGrowth: 9.7, MarketGrowth: 9.9, CoverageRate: 69, RepHeadcount: 43},
		{ProvinceID: "jiangsu", ProvinceName: "Jiangsu", Period: "2024-Q1", Sales: 590, Target: 700, SalesGrowth: 3.1, MarketGrowth: 10.4, CoverageRate: 52, RepHeadcount: 28},
		{ProvinceID: "jiangsu", ProvinceName: "Jiangsu", Period: "2024-Q2", Sales: 575, Target: 720, SalesGrowth: 0.6, MarketGrowth: 11.2, CoverageRate: 50, RepHeadcount: 26},
		{ProvinceID: "sichuan", ProvinceName: "Sichuan", Period: "2024-Q1", Sales: 320, Target: 480, SalesGrowth: -12.4, MarketGrowth: 6.1, CoverageRate: 38, RepHeadcount: 17},
		{ProvinceID: "sichuan", ProvinceName: "Sichuan", Period: "2024-Q2", Sales: 301, Target: 470, SalesGrowth: -15.8, MarketGrowth: 6.4, CoverageRate: 36, RepHeadcount: 15},
	}
}

func seedIndicators() []analysis.IndicatorTarget {
	return []analysis.IndicatorTarget{
		{IndicatorID: "ind001", StrategyID: "strat-2025", Name: "hospital listings", Baseline: 1200, Target: 1380, GrowthRate: 15, Unit: "hospitals"},
		{IndicatorID: "ind002", StrategyID: "strat-2025", Name: "rep productivity", Baseline: 86, Target: 95, GrowthRate: 10, Unit: "calls/month"},
		{IndicatorID: "ind003", StrategyID: "strat-2025", Name: "tier-2 city coverage", Baseline: 54, Target: 54, Unit: "percent"},
		{IndicatorID: "ind007", StrategyID: "strat-2025", Name: "pharmacy chain penetration", Baseline: 31, Target: 40, GrowthRate: 29, Unit: "percent"},
	}
}
