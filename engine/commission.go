package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIER SCHEDULE - Static compensation configuration, one per role
// =============================================================================

// Tier is a contiguous sales band [MinSales, MaxSales) paid at Percentage.
type Tier struct {
	MinSales   decimal.Decimal
	MaxSales   decimal.Decimal
	Percentage decimal.Decimal // 5 means 5%
	Label      string
}

// Width returns MaxSales - MinSales.
func (t Tier) Width() decimal.Decimal { return t.MaxSales.Sub(t.MinSales) }

// fullBonus is the bonus paid for a completely filled band.
func (t Tier) fullBonus() decimal.Decimal {
	return t.Width().Mul(t.Percentage).Div(hundred)
}

// TierSchedule is the ordered band list for a compensation role.
//
// INVARIANTS (checked by Validate):
//   - at least one tier
//   - Tiers[0].MinSales == 0
//   - MaxSales > MinSales for every tier
//   - Tiers[i].MaxSales == Tiers[i+1].MinSales
//   - Percentage >= 0, BaseSalary >= 0
type TierSchedule struct {
	Role       string
	BaseSalary decimal.Decimal
	Tiers      []Tier
}

// Validate reports the first configuration defect. Call it at startup.
func (s TierSchedule) Validate() error {
	if len(s.Tiers) == 0 {
		return &ScheduleError{Role: s.Role, TierIndex: -1, Reason: "no tiers"}
	}
	if s.BaseSalary.IsNegative() {
		return &ScheduleError{Role: s.Role, TierIndex: -1, Reason: "negative base salary"}
	}
	if !s.Tiers[0].MinSales.IsZero() {
		return &ScheduleError{Role: s.Role, TierIndex: 0, Reason: "first tier must start at 0"}
	}
	for i, t := range s.Tiers {
		if !t.MaxSales.GreaterThan(t.MinSales) {
			return &ScheduleError{Role: s.Role, TierIndex: i, Reason: "max_sales must exceed min_sales"}
		}
		if t.Percentage.IsNegative() {
			return &ScheduleError{Role: s.Role, TierIndex: i, Reason: "negative percentage"}
		}
		if i > 0 && !s.Tiers[i-1].MaxSales.Equal(t.MinSales) {
			return &ScheduleError{Role: s.Role, TierIndex: i,
				Reason: fmt.Sprintf("min_sales %s does not continue previous max_sales %s", t.MinSales, s.Tiers[i-1].MaxSales)}
		}
	}
	return nil
}

// TopSales returns the upper bound of the highest band.
func (s TierSchedule) TopSales() decimal.Decimal {
	if len(s.Tiers) == 0 {
		return decimal.Zero
	}
	return s.Tiers[len(s.Tiers)-1].MaxSales
}

// =============================================================================
// COMMISSION RESULT
// =============================================================================

// TierBreakdown is one band's share of the commission.
type TierBreakdown struct {
	Index         int
	Tier          Tier
	SalesInTier   decimal.Decimal
	BonusAmount   decimal.Decimal
	IsCurrentTier bool
	IsCompleted   bool
}

// NextTierProjection describes what reaching the next band's floor would pay.
type NextTierProjection struct {
	Index           int
	Tier            Tier
	SalesUntil      decimal.Decimal
	ProjectedBonus  decimal.Decimal
	ProjectedSalary decimal.Decimal
}

// CommissionResult is derived on every call and never persisted.
//
// INVARIANTS:
//   - sum(Breakdown[i].BonusAmount) == TotalBonus
//   - TotalSalary == BaseSalary + TotalBonus
//   - exactly one breakdown entry has IsCurrentTier
type CommissionResult struct {
	Role               string
	NetSales           decimal.Decimal
	BaseSalary         decimal.Decimal
	TotalBonus         decimal.Decimal
	TotalSalary        decimal.Decimal
	EffectiveRate      decimal.Decimal // TotalBonus / NetSales * 100
	Breakdown          []TierBreakdown
	CurrentTierIndex   int
	NextTier           *NextTierProjection // nil at the top band
	SalesUntilNextTier decimal.Decimal
	UnpaidSales        decimal.Decimal // net sales above the top band, earning nothing
}

// CurrentTier returns the breakdown entry of the current band.
func (r CommissionResult) CurrentTier() TierBreakdown {
	return r.Breakdown[r.CurrentTierIndex]
}

// =============================================================================
// CALCULATOR
// =============================================================================

// CalculateCommission computes progressive commission for netSales.
//
// The schedule must have passed Validate. Negative net sales (returns larger
// than sales) are paid as zero.
//
// Example with bands [0,1M)@5%, [1M,2M)@6%, [2M,2.5M)@7% and 2.5M net:
//
//	bonus = 1M*5% + 1M*6% + 0.5M*7% = 50k + 60k + 35k = 145k
func CalculateCommission(netSales decimal.Decimal, schedule TierSchedule) CommissionResult {
	sales := nonNegative(netSales)
	breakdown := make([]TierBreakdown, len(schedule.Tiers))

	// Current band: first band the sales have not filled; the top band when
	// sales are at or beyond its ceiling.
	current := len(schedule.Tiers) - 1
	for i, t := range schedule.Tiers {
		if sales.LessThan(t.MaxSales) {
			current = i
			break
		}
	}

	for i, t := range schedule.Tiers {
		inTier := decimal.Min(decimal.Max(sales, t.MinSales), t.MaxSales).Sub(t.MinSales)
		breakdown[i] = TierBreakdown{
			Index:         i,
			Tier:          t,
			SalesInTier:   inTier,
			BonusAmount:   inTier.Mul(t.Percentage).Div(hundred),
			IsCurrentTier: i == current,
			IsCompleted:   sales.GreaterThanOrEqual(t.MaxSales),
		}
	}

	return summarize(sales, schedule, breakdown, current)
}

// summarize folds every summary field out of the breakdown.
func summarize(sales decimal.Decimal, schedule TierSchedule, breakdown []TierBreakdown, current int) CommissionResult {
	totalBonus := decimal.Zero
	for _, b := range breakdown {
		totalBonus = totalBonus.Add(b.BonusAmount)
	}

	result := CommissionResult{
		Role:               schedule.Role,
		NetSales:           sales,
		BaseSalary:         schedule.BaseSalary,
		TotalBonus:         totalBonus,
		TotalSalary:        schedule.BaseSalary.Add(totalBonus),
		EffectiveRate:      decimal.Zero,
		Breakdown:          breakdown,
		CurrentTierIndex:   current,
		SalesUntilNextTier: decimal.Zero,
		UnpaidSales:        decimal.Max(sales.Sub(schedule.TopSales()), decimal.Zero),
	}
	if sales.IsPositive() {
		result.EffectiveRate = totalBonus.Div(sales).Mul(hundred)
	}

	if current+1 < len(schedule.Tiers) {
		next := schedule.Tiers[current+1]
		projected := decimal.Zero
		for i := 0; i <= current; i++ {
			projected = projected.Add(breakdown[i].Tier.fullBonus())
		}
		until := next.MinSales.Sub(sales)
		result.NextTier = &NextTierProjection{
			Index:           current + 1,
			Tier:            next,
			SalesUntil:      until,
			ProjectedBonus:  projected,
			ProjectedSalary: schedule.BaseSalary.Add(projected),
		}
		result.SalesUntilNextTier = until
	}
	return result
}
