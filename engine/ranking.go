package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RANKING - Period leaderboard with period-over-period comparison
// =============================================================================

// TieBreak decides the order of employees with equal net sales.
type TieBreak string

const (
	// TieBreakInputOrder keeps the incoming order (stable sort only).
	TieBreakInputOrder TieBreak = "input_order"
	// TieBreakEmployeeID orders ties by employee ID ascending.
	TieBreakEmployeeID TieBreak = "employee_id"
)

type RankOptions struct {
	TieBreak TieBreak
}

// RankingEntry is one employee's persisted rank for one period.
// Stored with upsert semantics keyed by (EmployeeID, Period).
type RankingEntry struct {
	EmployeeID   EmployeeID
	Period       Period
	Rank         int
	NetSales     decimal.Decimal
	GrossSales   decimal.Decimal
	Returns      decimal.Decimal
	SalesCount   int
	ReturnsCount int
	AvgCheck     decimal.Decimal
	BestDaySales decimal.Decimal

	// Comparison with the stored previous-period rank. Not persisted.
	PreviousRank   *int
	PositionChange int  // previous - current; positive is an improvement
	IsNew          bool // no comparable previous rank
}

// RankPeriod sorts stats by net sales descending and assigns rank = index+1.
// The input slice is not modified.
func RankPeriod(stats []EmployeePeriodStats, previousRanks map[EmployeeID]int, opts RankOptions) []RankingEntry {
	sorted := make([]EmployeePeriodStats, len(stats))
	copy(sorted, stats)

	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].NetSales.Cmp(sorted[j].NetSales); c != 0 {
			return c > 0
		}
		if opts.TieBreak == TieBreakEmployeeID {
			return sorted[i].EmployeeID < sorted[j].EmployeeID
		}
		return false
	})

	entries := make([]RankingEntry, len(sorted))
	for i, s := range sorted {
		e := RankingEntry{
			EmployeeID:   s.EmployeeID,
			Period:       s.Period,
			Rank:         i + 1,
			NetSales:     s.NetSales,
			GrossSales:   s.GrossSales,
			Returns:      s.Returns,
			SalesCount:   s.SalesCount,
			ReturnsCount: s.ReturnsCount,
			AvgCheck:     s.AvgCheck,
			BestDaySales: s.BestDaySales,
		}
		if prev, ok := previousRanks[s.EmployeeID]; ok && prev > 0 {
			p := prev
			e.PreviousRank = &p
			e.PositionChange = prev - e.Rank
		} else {
			e.IsNew = true
		}
		entries[i] = e
	}
	return entries
}

// RanksByEmployee indexes entries by employee.
func RanksByEmployee(entries []RankingEntry) map[EmployeeID]int {
	out := make(map[EmployeeID]int, len(entries))
	for _, e := range entries {
		out[e.EmployeeID] = e.Rank
	}
	return out
}
