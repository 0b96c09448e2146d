/*
Package engine provides the performance compensation and scoring engine.

PURPOSE:
  This package contains the pure, deterministic calculations behind the
  staff dashboard: progressive commission, activity streaks, achievements,
  the gamified power rating, and the period leaderboard. Everything here
  works on in-memory inputs; fetching sales and persisting rankings is the
  job of the stores and the dashboard service.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal.Decimal, never float64
  - SaleRecord / ReturnRecord: raw records fed in by the sync layer
  - EmployeePeriodStats: per-employee aggregate for one period
  - EarnedAchievement: append-only fact record

DESIGN PRINCIPLES:
  1. Purity: no clock reads, no I/O; "today" is always passed in
  2. Precision: decimal.Decimal for every currency amount
  3. Derived summaries: totals are folded from breakdowns, never kept twice
  4. Idempotence: re-running a period evaluation yields the same output

SEE ALSO:
  - commission.go: Tiered progressive commission
  - streak.go: Consecutive-day activity
  - achievement.go: Achievement criteria and evaluator
  - power.go: Power rating and level ladder
  - ranking.go: Period leaderboard
  - evaluate.go: Ties the components together for one period
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

// Employee is a member of the sales staff.
type Employee struct {
	ID       EmployeeID
	Name     string
	Role     string // selects the tier schedule
	PhotoURL string
	Active   bool
}

// =============================================================================
// RAW RECORDS - As pulled from the retail-management system
// =============================================================================

type SaleRecord struct {
	ID         string
	EmployeeID EmployeeID
	Amount     decimal.Decimal
	At         time.Time
}

type ReturnRecord struct {
	ID         string
	EmployeeID EmployeeID
	Amount     decimal.Decimal
	At         time.Time
}

// =============================================================================
// EMPLOYEE PERIOD STATS - Ephemeral aggregate, rebuilt per evaluation
// =============================================================================

// EmployeePeriodStats is one employee's aggregate for one period. It is
// never persisted as-is; its summary (RankingEntry) is.
type EmployeePeriodStats struct {
	EmployeeID EmployeeID
	Role       string
	Period     Period

	GrossSales   decimal.Decimal
	Returns      decimal.Decimal
	NetSales     decimal.Decimal // GrossSales - Returns
	SalesCount   int
	ReturnsCount int
	AvgCheck     decimal.Decimal // GrossSales / SalesCount, zero when no sales
	BestDaySales decimal.Decimal // highest single-day gross in the period

	// ActivityDates are the distinct days with at least one sale, ascending.
	ActivityDates []Date

	// Filled in during period evaluation.
	Rank   int // 0 = unranked
	Streak StreakResult

	// Previous holds the immediately preceding period, nil when the
	// employee had no activity or ranking there.
	Previous *PriorPeriodStats

	// PersonalBestDay is the best single-day total before this period,
	// nil when the employee has no earlier sales.
	PersonalBestDay *decimal.Decimal
}

// PriorPeriodStats are the comparison figures from the preceding period.
type PriorPeriodStats struct {
	Rank       int // 0 = not ranked
	NetSales   decimal.Decimal
	SalesCount int
	AvgCheck   *decimal.Decimal // nil when there were no sales
}

// =============================================================================
// EARNED ACHIEVEMENT - Append-only fact
// =============================================================================

// EarnedAchievement records that an employee earned a code in a period.
// Created once per (employee, code, period); never mutated or deleted.
type EarnedAchievement struct {
	ID         string
	EmployeeID EmployeeID
	Code       string
	Period     Period
	EarnedAt   time.Time
	Metadata   map[string]string
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

var hundred = decimal.NewFromInt(100)

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// percentChange returns (cur - prev) / prev * 100. Callers must ensure prev != 0.
func percentChange(cur, prev decimal.Decimal) decimal.Decimal {
	return cur.Sub(prev).Div(prev).Mul(hundred)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
