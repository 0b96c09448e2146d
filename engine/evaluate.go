package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE - One period evaluation across all employees
// =============================================================================

// Config is the static configuration loaded once at process start.
type Config struct {
	Schedules   map[string]TierSchedule // keyed by role
	DefaultRole string                  // used when an employee's role has no schedule
	Ladder      LevelLadder
	Power       PowerConfig
	Catalog     []AchievementDefinition
	Rank        RankOptions
}

// Engine evaluates periods against a validated Config. Safe for concurrent
// use: it holds no mutable state.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and fails fast on any configuration defect.
func NewEngine(cfg Config) (*Engine, error) {
	if len(cfg.Schedules) == 0 {
		return nil, fmt.Errorf("%w: no schedules configured", ErrInvalidSchedule)
	}
	schedules := make(map[string]TierSchedule, len(cfg.Schedules))
	for role, s := range cfg.Schedules {
		if s.Role == "" {
			s.Role = role
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		schedules[role] = s
	}
	cfg.Schedules = schedules
	if cfg.DefaultRole != "" {
		if _, ok := cfg.Schedules[cfg.DefaultRole]; !ok {
			return nil, fmt.Errorf("%w: default role %q", ErrScheduleNotFound, cfg.DefaultRole)
		}
	}
	if err := cfg.Ladder.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Power.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateCatalog(cfg.Catalog); err != nil {
		return nil, err
	}
	if cfg.Rank.TieBreak == "" {
		cfg.Rank.TieBreak = TieBreakEmployeeID
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Schedule returns the tier schedule for role, falling back to DefaultRole.
func (e *Engine) Schedule(role string) (TierSchedule, error) {
	if s, ok := e.cfg.Schedules[role]; ok {
		return s, nil
	}
	if s, ok := e.cfg.Schedules[e.cfg.DefaultRole]; ok {
		return s, nil
	}
	return TierSchedule{}, fmt.Errorf("%w: role %q", ErrScheduleNotFound, role)
}

// Commission computes the commission for netSales under role's schedule.
func (e *Engine) Commission(role string, netSales decimal.Decimal) (CommissionResult, error) {
	s, err := e.Schedule(role)
	if err != nil {
		return CommissionResult{}, err
	}
	return CalculateCommission(netSales, s), nil
}

// Power scores one stats snapshot against the department average.
func (e *Engine) Power(stats EmployeePeriodStats, departmentAvgCheck decimal.Decimal) PowerRating {
	return CalculatePower(PowerInputFrom(stats, departmentAvgCheck), e.cfg.Power, e.cfg.Ladder)
}

// PeriodInput is everything one evaluation needs, already fetched.
type PeriodInput struct {
	Period Period

	// Today is the reference date for streaks. Required.
	Today Date

	// EvaluatedAt stamps newly earned achievements.
	EvaluatedAt time.Time

	Stats         []EmployeePeriodStats
	PreviousRanks map[EmployeeID]int
	AlreadyEarned map[EmployeeID]map[string]bool
}

// LeaderboardRow is one employee's full evaluation.
type LeaderboardRow struct {
	Entry        RankingEntry
	Stats        EmployeePeriodStats
	Commission   CommissionResult
	Power        PowerRating
	Achievements []NewAchievement
}

// PeriodEvaluation is the result of EvaluatePeriod.
type PeriodEvaluation struct {
	Period             Period
	DepartmentAvgCheck decimal.Decimal
	Rows               []LeaderboardRow // in rank order
}

// Entries returns the ranking entries in rank order.
func (pe PeriodEvaluation) Entries() []RankingEntry {
	out := make([]RankingEntry, len(pe.Rows))
	for i, r := range pe.Rows {
		out[i] = r.Entry
	}
	return out
}

// Earned returns every newly earned achievement as ledger records (IDs unset).
func (pe PeriodEvaluation) Earned() []EarnedAchievement {
	var out []EarnedAchievement
	for _, r := range pe.Rows {
		for _, a := range r.Achievements {
			out = append(out, EarnedAchievement{
				EmployeeID: r.Entry.EmployeeID,
				Code:       a.Code,
				Period:     pe.Period,
				EarnedAt:   a.EarnedAt,
				Metadata:   a.Metadata,
			})
		}
	}
	return out
}

// EvaluatePeriod runs streaks, ranking, power, commission and achievements
// for every employee in the input. The input is not modified.
func (e *Engine) EvaluatePeriod(in PeriodInput) (PeriodEvaluation, error) {
	stats := make([]EmployeePeriodStats, len(in.Stats))
	copy(stats, in.Stats)

	for i := range stats {
		stats[i].Period = in.Period
		stats[i].Streak = DetectStreak(stats[i].ActivityDates, in.Today)
	}

	entries := RankPeriod(stats, in.PreviousRanks, e.cfg.Rank)
	byID := make(map[EmployeeID]EmployeePeriodStats, len(stats))
	for _, s := range stats {
		byID[s.EmployeeID] = s
	}

	deptAvg := DepartmentAvgCheck(stats)
	result := PeriodEvaluation{
		Period:             in.Period,
		DepartmentAvgCheck: deptAvg,
		Rows:               make([]LeaderboardRow, 0, len(entries)),
	}

	for _, entry := range entries {
		s := byID[entry.EmployeeID]
		s.Rank = entry.Rank

		commission, err := e.Commission(s.Role, s.NetSales)
		if err != nil {
			return PeriodEvaluation{}, fmt.Errorf("employee %s: %w", s.EmployeeID, err)
		}

		result.Rows = append(result.Rows, LeaderboardRow{
			Entry:        entry,
			Stats:        s,
			Commission:   commission,
			Power:        e.Power(s, deptAvg),
			Achievements: EvaluateAchievements(s, e.cfg.Catalog, in.AlreadyEarned[s.EmployeeID], in.EvaluatedAt),
		})
	}
	return result, nil
}
