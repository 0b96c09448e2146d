package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POWER RATING - Unitless gamification score, shown instead of currency
// =============================================================================

// PowerConfig holds the scoring constants.
type PowerConfig struct {
	// BaseDivisor converts net sales into base power: floor(net / divisor).
	BaseDivisor decimal.Decimal

	// ZeroReturnsBonus is paid when there are no returns and at least
	// ZeroReturnsMinSales transactions.
	ZeroReturnsBonus    int64
	ZeroReturnsMinSales int

	// BonusPerTenPercent is paid per whole 10% the average check is above
	// the department average.
	BonusPerTenPercent int64
}

func (c PowerConfig) Validate() error {
	if !c.BaseDivisor.IsPositive() {
		return fmt.Errorf("%w: base_divisor must be positive", ErrInvalidPowerConfig)
	}
	if c.ZeroReturnsBonus < 0 || c.BonusPerTenPercent < 0 || c.ZeroReturnsMinSales < 0 {
		return fmt.Errorf("%w: bonuses must not be negative", ErrInvalidPowerConfig)
	}
	return nil
}

// PowerInput is what the calculator reads from a stats snapshot.
type PowerInput struct {
	NetSales           decimal.Decimal
	SalesCount         int
	ReturnsCount       int
	AvgCheck           decimal.Decimal
	DepartmentAvgCheck decimal.Decimal
	CurrentStreak      int
}

// PowerInputFrom extracts the calculator inputs from stats.
func PowerInputFrom(s EmployeePeriodStats, departmentAvgCheck decimal.Decimal) PowerInput {
	return PowerInput{
		NetSales:           s.NetSales,
		SalesCount:         s.SalesCount,
		ReturnsCount:       s.ReturnsCount,
		AvgCheck:           s.AvgCheck,
		DepartmentAvgCheck: departmentAvgCheck,
		CurrentStreak:      s.Streak.CurrentStreak,
	}
}

// PowerRating is recomputed per request and never persisted.
type PowerRating struct {
	BasePower      int64
	QualityBonus   int64
	StreakBonus    int64 // reserved, always 0
	ChallengeBonus int64 // reserved, always 0
	TotalPower     int64
	Level          LevelStatus
}

var ten = decimal.NewFromInt(10)

// CalculatePower scores one employee and resolves their level.
func CalculatePower(in PowerInput, cfg PowerConfig, ladder LevelLadder) PowerRating {
	var rating PowerRating

	if in.NetSales.IsPositive() && cfg.BaseDivisor.IsPositive() {
		rating.BasePower = in.NetSales.Div(cfg.BaseDivisor).Floor().IntPart()
	}

	if in.ReturnsCount == 0 && in.SalesCount > 0 && in.SalesCount >= cfg.ZeroReturnsMinSales {
		rating.QualityBonus += cfg.ZeroReturnsBonus
	}

	if in.DepartmentAvgCheck.IsPositive() {
		above := percentChange(in.AvgCheck, in.DepartmentAvgCheck)
		if above.IsPositive() {
			steps := above.Div(ten).Floor().IntPart()
			rating.QualityBonus += steps * cfg.BonusPerTenPercent
		}
	}

	rating.TotalPower = rating.BasePower + rating.QualityBonus + rating.StreakBonus + rating.ChallengeBonus
	rating.Level = ladder.Resolve(rating.TotalPower)
	return rating
}

// =============================================================================
// LEVEL LADDER - Public levels, separate from pay tiers
// =============================================================================

type Level struct {
	Level    int
	Name     string
	Icon     string
	MinPower int64
}

// LevelLadder is ordered by MinPower ascending; the first threshold is 0.
type LevelLadder []Level

func (l LevelLadder) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("%w: no levels", ErrInvalidLadder)
	}
	if l[0].MinPower != 0 {
		return fmt.Errorf("%w: first level must start at 0", ErrInvalidLadder)
	}
	for i := 1; i < len(l); i++ {
		if l[i].MinPower <= l[i-1].MinPower {
			return fmt.Errorf("%w: level %d threshold %d not above %d",
				ErrInvalidLadder, l[i].Level, l[i].MinPower, l[i-1].MinPower)
		}
	}
	return nil
}

// LevelStatus is the resolved level plus progress toward the next one.
type LevelStatus struct {
	Level              int
	LevelName          string
	LevelIcon          string
	ProgressPercent    float64
	NextLevelThreshold *int64 // nil at the top level
}

// Resolve finds the highest level whose threshold is <= power.
func (l LevelLadder) Resolve(power int64) LevelStatus {
	if len(l) == 0 {
		return LevelStatus{}
	}
	idx := 0
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].MinPower <= power {
			idx = i
			break
		}
	}

	cur := l[idx]
	status := LevelStatus{
		Level:           cur.Level,
		LevelName:       cur.Name,
		LevelIcon:       cur.Icon,
		ProgressPercent: 100,
	}
	if idx+1 < len(l) {
		next := l[idx+1].MinPower
		status.NextLevelThreshold = &next
		span := next - cur.MinPower
		gained := power - cur.MinPower
		if gained < 0 {
			gained = 0
		}
		pct, _ := decimal.NewFromInt(gained).Mul(hundred).Div(decimal.NewFromInt(span)).Round(1).Float64()
		status.ProgressPercent = pct
	}
	return status
}
