package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CRITERIA - Closed set of achievement rules
// =============================================================================

// CriteriaType is the stored tag of a criterion.
type CriteriaType string

const (
	CriteriaSalesCount     CriteriaType = "sales_count"
	CriteriaNetSales       CriteriaType = "net_sales"
	CriteriaStreak         CriteriaType = "streak"
	CriteriaRank           CriteriaType = "rank"
	CriteriaZeroReturns    CriteriaType = "zero_returns"
	CriteriaAvgCheckGrowth CriteriaType = "avg_check_growth"
	CriteriaPersonalBest   CriteriaType = "personal_best"
	CriteriaComeback       CriteriaType = "comeback"
)

// Criterion is one achievement rule. Each variant below is a pure predicate
// over a stats snapshot; metadata explains why it fired.
type Criterion interface {
	Kind() CriteriaType
	Evaluate(stats EmployeePeriodStats) (bool, map[string]string)
}

// ParseCriterion builds the variant for a stored (type, value) pair.
// Count-like thresholds must be whole numbers; amounts must not be negative.
func ParseCriterion(kind CriteriaType, value decimal.Decimal) (Criterion, error) {
	switch kind {
	case CriteriaSalesCount:
		n, err := wholeThreshold(kind, value, 1)
		if err != nil {
			return nil, err
		}
		return MinSalesCount{Count: n}, nil
	case CriteriaNetSales:
		if value.IsNegative() {
			return nil, fmt.Errorf("%w: %s must not be negative, got %s", ErrInvalidCriteria, kind, value)
		}
		return MinNetSales{Amount: value}, nil
	case CriteriaStreak:
		n, err := wholeThreshold(kind, value, 1)
		if err != nil {
			return nil, err
		}
		return MinStreak{Days: n}, nil
	case CriteriaRank:
		n, err := wholeThreshold(kind, value, 1)
		if err != nil {
			return nil, err
		}
		return RankAtOrAbove{Rank: n}, nil
	case CriteriaZeroReturns:
		n, err := wholeThreshold(kind, value, 0)
		if err != nil {
			return nil, err
		}
		return ZeroReturns{MinSalesCount: n}, nil
	case CriteriaAvgCheckGrowth:
		if value.IsNegative() {
			return nil, fmt.Errorf("%w: %s must not be negative, got %s", ErrInvalidCriteria, kind, value)
		}
		return AvgCheckGrowth{Percent: value}, nil
	case CriteriaPersonalBest:
		return PersonalBestDay{}, nil
	case CriteriaComeback:
		n, err := wholeThreshold(kind, value, 1)
		if err != nil {
			return nil, err
		}
		return Comeback{TopN: n}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCriteria, kind)
	}
}

func wholeThreshold(kind CriteriaType, value decimal.Decimal, floor int64) (int, error) {
	if !value.Equal(value.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s must be a whole number, got %s", ErrInvalidCriteria, kind, value)
	}
	if value.IntPart() < floor {
		return 0, fmt.Errorf("%w: %s must be at least %d, got %s", ErrInvalidCriteria, kind, floor, value)
	}
	return int(value.IntPart()), nil
}

// MinSalesCount: at least Count transactions in the period.
type MinSalesCount struct{ Count int }

func (c MinSalesCount) Kind() CriteriaType { return CriteriaSalesCount }

func (c MinSalesCount) Evaluate(s EmployeePeriodStats) (bool, map[string]string) {
	if s.SalesCount < c.Count {
		return false, nil
	}
	return true, map[string]string{
		"sales_count": fmt.Sprint(s.SalesCount),
		"required":    fmt.Sprint(c.Count),
	}
}

// MinNetSales: cumulative net sales of at least Amount.
type MinNetSales struct{ Amount decimal.Decimal }

func (c MinNetSales) Kind() CriteriaType { return CriteriaNetSales }

func (c MinNetSales) Evaluate(s EmployeePeriodStats) (bool, map[string]string) {
	if s.NetSales.LessThan(c.Amount) {
		return false, nil
	}
	return true, map[string]string{
		"net_sales": s.NetSales.StringFixed(2),
		"required":  c.Amount.StringFixed(2),
	}
}

// MinStreak: current or best streak of at least Days.
type MinStreak struct{ Days int }

func (c MinStreak) Kind() CriteriaType { return CriteriaStreak }

func (c MinStreak) Evaluate(s EmployeePeriodStats) (bool, map[string]string) {
	if s.Streak.CurrentStreak < c.Days && s.Streak.MaxStreak < c.Days {
		return false, nil
	}
	return true, map[string]string{
		"current_streak": fmt.Sprint(s.Streak.CurrentStreak),
		"max_streak":     fmt.Sprint(s.Streak.MaxStreak),
		"required":       fmt.Sprint(c.Days),
	}
}

// RankAtOrAbove: ranked Rank or better (1 is best).
type RankAtOrAbove struct{ Rank int }

func (c RankAtOrAbove) Kind() CriteriaType { return CriteriaRank }

func (c RankAtOrAbove) Evaluate(s EmployeePeriodStats) (bool, map[string]string) {
	if s.Rank <= 0 || s.Rank > c.Rank {
		return false, nil
	}
	return true, map[string]string{"rank": fmt.Sprint(s.Rank)}
}

// ZeroReturns: no returns with at least MinSalesCount sales.
type ZeroReturns struct{ MinSalesCount int }

func (c ZeroReturns) Kind() CriteriaType { return CriteriaZeroReturns }

func (c ZeroReturns) Evaluate(s EmployeePeriodStats) (bool, map[string]string) {
	if s.ReturnsCount != 0 || s.SalesCount < c.MinSalesCount {
		return false, nil
	}
	return true, map[string]string{"sales_count": fmt.Sprint(s.SalesCount)}
}

// AvgCheckGrowth: average check grew by at least Percent over the prior
// period. Never satisfied without a non-zero prior average.
type AvgCheckGrowth struct{ Percent decimal.Decimal }

func (c AvgCheckGrowth) Kind() CriteriaType { return CriteriaAvgCheckGrowth }

func (c AvgCheckGrowth) Evaluate(s EmployeePeriodStats) (bool, map[string]string) {
	if s.Previous == nil || s.Previous.AvgCheck == nil || s.Previous.AvgCheck.IsZero() {
		return false, nil
	}
	prev := *s.Previous.AvgCheck
	growth := percentChange(s.AvgCheck, prev)
	if growth.LessThan(c.Percent) {
		return false, nil
	}
	return true, map[string]string{
		"growth_percent":     growth.StringFixed(1),
		"avg_check":          s.AvgCheck.StringFixed(2),
		"previous_avg_check": prev.StringFixed(2),
	}
}

// PersonalBestDay: this period's best day strictly beats every earlier day.
// A first-ever selling day counts as a record.
type PersonalBestDay struct{}

func (c PersonalBestDay) Kind() CriteriaType { return CriteriaPersonalBest }

func (c PersonalBestDay) Evaluate(s EmployeePeriodStats) (bool, map[string]string) {
	if !s.BestDaySales.IsPositive() {
		return false, nil
	}
	if s.PersonalBestDay == nil {
		return true, map[string]string{
			"new_best":      s.BestDaySales.StringFixed(2),
			"previous_best": "none",
		}
	}
	if !s.BestDaySales.GreaterThan(*s.PersonalBestDay) {
		return false, nil
	}
	return true, map[string]string{
		"new_best":      s.BestDaySales.StringFixed(2),
		"previous_best": s.PersonalBestDay.StringFixed(2),
	}
}

// Comeback: outside the top N (or unranked) last period, inside it now.
type Comeback struct{ TopN int }

func (c Comeback) Kind() CriteriaType { return CriteriaComeback }

func (c Comeback) Evaluate(s EmployeePeriodStats) (bool, map[string]string) {
	if s.Rank <= 0 || s.Rank > c.TopN {
		return false, nil
	}
	prevRank := 0
	if s.Previous != nil {
		prevRank = s.Previous.Rank
	}
	if prevRank > 0 && prevRank <= c.TopN {
		return false, nil
	}
	previous := "unranked"
	if prevRank > 0 {
		previous = fmt.Sprint(prevRank)
	}
	return true, map[string]string{
		"rank":          fmt.Sprint(s.Rank),
		"previous_rank": previous,
	}
}

// =============================================================================
// CATALOG
// =============================================================================

// AchievementDefinition is a catalog entry. Reference data.
type AchievementDefinition struct {
	Code          string
	Name          string
	Description   string
	Icon          string
	CriteriaType  CriteriaType
	CriteriaValue decimal.Decimal
	IsActive      bool

	criterion Criterion
}

// NewAchievementDefinition validates the criteria and binds its variant.
func NewAchievementDefinition(code, name string, kind CriteriaType, value decimal.Decimal, active bool) (AchievementDefinition, error) {
	c, err := ParseCriterion(kind, value)
	if err != nil {
		return AchievementDefinition{}, fmt.Errorf("achievement %q: %w", code, err)
	}
	return AchievementDefinition{
		Code:          code,
		Name:          name,
		CriteriaType:  kind,
		CriteriaValue: value,
		IsActive:      active,
		criterion:     c,
	}, nil
}

// Criterion returns the bound rule, parsing it lazily for literals built
// without NewAchievementDefinition.
func (d AchievementDefinition) Criterion() (Criterion, error) {
	if d.criterion != nil {
		return d.criterion, nil
	}
	c, err := ParseCriterion(d.CriteriaType, d.CriteriaValue)
	if err != nil {
		return nil, fmt.Errorf("achievement %q: %w", d.Code, err)
	}
	return c, nil
}

// ValidateCatalog checks every definition and rejects duplicate codes.
func ValidateCatalog(catalog []AchievementDefinition) error {
	seen := make(map[string]bool, len(catalog))
	for _, d := range catalog {
		if d.Code == "" {
			return fmt.Errorf("%w: empty achievement code", ErrUnknownCriteria)
		}
		if seen[d.Code] {
			return fmt.Errorf("%w: duplicate achievement code %q", ErrUnknownCriteria, d.Code)
		}
		seen[d.Code] = true
		if _, err := d.Criterion(); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// EVALUATOR
// =============================================================================

// NewAchievement is an achievement satisfied in this evaluation pass.
type NewAchievement struct {
	Code     string
	EarnedAt time.Time
	Metadata map[string]string
}

// EvaluateAchievements returns active, not-yet-earned definitions whose
// criterion holds for stats, in catalog order.
//
// Pure: earnedAt is supplied by the caller. A code present in alreadyEarned
// is never returned, so feeding the output back in yields nothing on re-run.
// Definitions whose criteria cannot be parsed are skipped; ValidateCatalog
// rejects them at startup.
func EvaluateAchievements(stats EmployeePeriodStats, catalog []AchievementDefinition, alreadyEarned map[string]bool, earnedAt time.Time) []NewAchievement {
	var earned []NewAchievement
	emitted := make(map[string]bool)

	for _, def := range catalog {
		if !def.IsActive || alreadyEarned[def.Code] || emitted[def.Code] {
			continue
		}
		criterion, err := def.Criterion()
		if err != nil {
			continue
		}
		ok, metadata := criterion.Evaluate(stats)
		if !ok {
			continue
		}
		emitted[def.Code] = true
		earned = append(earned, NewAchievement{
			Code:     def.Code,
			EarnedAt: earnedAt,
			Metadata: metadata,
		})
	}
	return earned
}
