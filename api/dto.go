/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  All amounts are decimal strings ("2500000", "145000.50"). Requests accept
  strings or JSON numbers.

TYPES:
  Employee:     EmployeeDTO, CreateEmployeeRequest
  Records:      SaleRequest, ReturnRequest, IngestResponse
  Commission:   CommissionDTO, TierBreakdownDTO, NextTierDTO, CommissionRequest
  Power:        PowerDTO, LevelDTO
  Leaderboard:  LeaderboardDTO, LeaderboardRowDTO, RecalculateResponse
  Dashboard:    DashboardDTO, StreakDTO, AchievementDTO
  Scenarios:    ScenarioDTO

VALIDATION:
  Validation is done in handlers and the dashboard service, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: ConfigJSON (served by GET /api/config)
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/sales-engine/dashboard"
	"github.com/warp/sales-engine/engine"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	PhotoURL string `json:"photo_url,omitempty"`
	Active   bool   `json:"active"`
}

// CreateEmployeeRequest is the request to create or update an employee.
type CreateEmployeeRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	PhotoURL string `json:"photo_url"`
	Active   *bool  `json:"active"` // default true
}

// =============================================================================
// RECORDS
// =============================================================================

// SaleRequest is one sale pushed by the sync layer.
type SaleRequest struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	At         time.Time       `json:"at"`
}

// ReturnRequest is one return pushed by the sync layer.
type ReturnRequest struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	At         time.Time       `json:"at"`
}

// IngestResponse reports received and newly stored records and the months
// they touched.
type IngestResponse struct {
	Received int      `json:"received"`
	Accepted int      `json:"accepted"`
	Periods  []string `json:"periods"`
}

// =============================================================================
// COMMISSION
// =============================================================================

// CommissionRequest asks for a what-if calculation.
type CommissionRequest struct {
	Role     string          `json:"role"`
	NetSales decimal.Decimal `json:"net_sales"`
}

// TierDTO is one sales band.
type TierDTO struct {
	MinSales   string `json:"min_sales"`
	MaxSales   string `json:"max_sales"`
	Percentage string `json:"percentage"`
	Label      string `json:"label,omitempty"`
}

// TierBreakdownDTO is one band's share of the commission.
type TierBreakdownDTO struct {
	Index         int     `json:"index"`
	Tier          TierDTO `json:"tier"`
	SalesInTier   string  `json:"sales_in_tier"`
	BonusAmount   string  `json:"bonus_amount"`
	IsCurrentTier bool    `json:"is_current_tier"`
	IsCompleted   bool    `json:"is_completed"`
}

// NextTierDTO projects reaching the next band.
type NextTierDTO struct {
	Index           int     `json:"index"`
	Tier            TierDTO `json:"tier"`
	SalesUntil      string  `json:"sales_until"`
	ProjectedBonus  string  `json:"projected_bonus"`
	ProjectedSalary string  `json:"projected_salary"`
}

// CommissionDTO is a full commission result.
type CommissionDTO struct {
	Role               string             `json:"role"`
	NetSales           string             `json:"net_sales"`
	BaseSalary         string             `json:"base_salary"`
	TotalBonus         string             `json:"total_bonus"`
	TotalSalary        string             `json:"total_salary"`
	EffectiveRate      string             `json:"effective_rate"`
	CurrentTierIndex   int                `json:"current_tier_index"`
	Breakdown          []TierBreakdownDTO `json:"breakdown"`
	NextTier           *NextTierDTO       `json:"next_tier,omitempty"`
	SalesUntilNextTier string             `json:"sales_until_next_tier"`
	UnpaidSales        string             `json:"unpaid_sales"`
}

// =============================================================================
// POWER
// =============================================================================

// LevelDTO is the resolved public level.
type LevelDTO struct {
	Level              int     `json:"level"`
	Name               string  `json:"name"`
	Icon               string  `json:"icon,omitempty"`
	ProgressPercent    float64 `json:"progress_percent"`
	NextLevelThreshold *int64  `json:"next_level_threshold"`
}

// PowerDTO is the gamified score.
type PowerDTO struct {
	BasePower      int64    `json:"base_power"`
	QualityBonus   int64    `json:"quality_bonus"`
	StreakBonus    int64    `json:"streak_bonus"`
	ChallengeBonus int64    `json:"challenge_bonus"`
	TotalPower     int64    `json:"total_power"`
	Level          LevelDTO `json:"level"`
}

// =============================================================================
// LEADERBOARD
// =============================================================================

// LeaderboardRowDTO is one employee's line. Salary figures are omitted;
// the leaderboard is visible to all staff.
type LeaderboardRowDTO struct {
	Rank           int         `json:"rank"`
	PreviousRank   *int        `json:"previous_rank"`
	PositionChange int         `json:"position_change"`
	IsNew          bool        `json:"is_new"`
	Employee       EmployeeDTO `json:"employee"`
	NetSales       string      `json:"net_sales"`
	SalesCount     int         `json:"sales_count"`
	ReturnsCount   int         `json:"returns_count"`
	AvgCheck       string      `json:"avg_check"`
	CurrentStreak  int         `json:"current_streak"`
	Power          PowerDTO    `json:"power"`
	CurrentTier    string      `json:"current_tier"`
}

// LeaderboardDTO is a period leaderboard.
type LeaderboardDTO struct {
	Period             string              `json:"period"`
	Reference          string              `json:"reference_date"`
	CalculatedAt       string              `json:"calculated_at"`
	DepartmentAvgCheck string              `json:"department_avg_check"`
	Rows               []LeaderboardRowDTO `json:"rows"`
}

// RecalculateResponse reports a persisted recalculation.
type RecalculateResponse struct {
	Period          string           `json:"period"`
	RankedEmployees int              `json:"ranked_employees"`
	NewAchievements []AchievementDTO `json:"new_achievements"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

// StreakDTO is the activity streak.
type StreakDTO struct {
	Current          int     `json:"current"`
	Max              int     `json:"max"`
	LastActivityDate *string `json:"last_activity_date"`
}

// AchievementDTO is an earned or pending achievement.
type AchievementDTO struct {
	ID         string            `json:"id,omitempty"`
	EmployeeID string            `json:"employee_id,omitempty"`
	Code       string            `json:"code"`
	Name       string            `json:"name,omitempty"`
	Icon       string            `json:"icon,omitempty"`
	Period     string            `json:"period,omitempty"`
	EarnedAt   string            `json:"earned_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// AchievementStatusDTO is a catalog entry with the employee's progress.
type AchievementStatusDTO struct {
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Icon          string           `json:"icon,omitempty"`
	CriteriaType  string           `json:"criteria_type"`
	CriteriaValue string           `json:"criteria_value"`
	IsActive      bool             `json:"is_active"`
	Earned        bool             `json:"earned"`
	History       []AchievementDTO `json:"history"`
}

// DashboardDTO is the personal dashboard.
type DashboardDTO struct {
	Employee           EmployeeDTO      `json:"employee"`
	Period             string           `json:"period"`
	Reference          string           `json:"reference_date"`
	Rank               int              `json:"rank"`
	PreviousRank       *int             `json:"previous_rank"`
	PositionChange     int              `json:"position_change"`
	TotalEmployees     int              `json:"total_employees"`
	GrossSales         string           `json:"gross_sales"`
	Returns            string           `json:"returns"`
	NetSales           string           `json:"net_sales"`
	SalesCount         int              `json:"sales_count"`
	ReturnsCount       int              `json:"returns_count"`
	AvgCheck           string           `json:"avg_check"`
	BestDaySales       string           `json:"best_day_sales"`
	DepartmentAvgCheck string           `json:"department_avg_check"`
	Commission         CommissionDTO    `json:"commission"`
	Power              PowerDTO         `json:"power"`
	Streak             StreakDTO        `json:"streak"`
	Earned             []AchievementDTO `json:"earned"`
	Pending            []AchievementDTO `json:"pending"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toEmployeeDTO(e engine.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:       string(e.ID),
		Name:     e.Name,
		Role:     e.Role,
		PhotoURL: e.PhotoURL,
		Active:   e.Active,
	}
}

func toTierDTO(t engine.Tier) TierDTO {
	return TierDTO{
		MinSales:   t.MinSales.String(),
		MaxSales:   t.MaxSales.String(),
		Percentage: t.Percentage.String(),
		Label:      t.Label,
	}
}

func toCommissionDTO(c engine.CommissionResult) CommissionDTO {
	dto := CommissionDTO{
		Role:               c.Role,
		NetSales:           c.NetSales.String(),
		BaseSalary:         c.BaseSalary.String(),
		TotalBonus:         c.TotalBonus.String(),
		TotalSalary:        c.TotalSalary.String(),
		EffectiveRate:      c.EffectiveRate.StringFixed(2),
		CurrentTierIndex:   c.CurrentTierIndex,
		Breakdown:          make([]TierBreakdownDTO, len(c.Breakdown)),
		SalesUntilNextTier: c.SalesUntilNextTier.String(),
		UnpaidSales:        c.UnpaidSales.String(),
	}
	for i, b := range c.Breakdown {
		dto.Breakdown[i] = TierBreakdownDTO{
			Index:         b.Index,
			Tier:          toTierDTO(b.Tier),
			SalesInTier:   b.SalesInTier.String(),
			BonusAmount:   b.BonusAmount.String(),
			IsCurrentTier: b.IsCurrentTier,
			IsCompleted:   b.IsCompleted,
		}
	}
	if c.NextTier != nil {
		dto.NextTier = &NextTierDTO{
			Index:           c.NextTier.Index,
			Tier:            toTierDTO(c.NextTier.Tier),
			SalesUntil:      c.NextTier.SalesUntil.String(),
			ProjectedBonus:  c.NextTier.ProjectedBonus.String(),
			ProjectedSalary: c.NextTier.ProjectedSalary.String(),
		}
	}
	return dto
}

func toPowerDTO(p engine.PowerRating) PowerDTO {
	return PowerDTO{
		BasePower:      p.BasePower,
		QualityBonus:   p.QualityBonus,
		StreakBonus:    p.StreakBonus,
		ChallengeBonus: p.ChallengeBonus,
		TotalPower:     p.TotalPower,
		Level: LevelDTO{
			Level:              p.Level.Level,
			Name:               p.Level.LevelName,
			Icon:               p.Level.LevelIcon,
			ProgressPercent:    p.Level.ProgressPercent,
			NextLevelThreshold: p.Level.NextLevelThreshold,
		},
	}
}

func toStreakDTO(s engine.StreakResult) StreakDTO {
	dto := StreakDTO{Current: s.CurrentStreak, Max: s.MaxStreak}
	if s.LastActivityDate != nil {
		d := s.LastActivityDate.String()
		dto.LastActivityDate = &d
	}
	return dto
}

func toEarnedDTO(e engine.EarnedAchievement) AchievementDTO {
	return AchievementDTO{
		ID:         e.ID,
		EmployeeID: string(e.EmployeeID),
		Code:       e.Code,
		Period:     e.Period.String(),
		EarnedAt:   e.EarnedAt.UTC().Format(time.RFC3339),
		Metadata:   e.Metadata,
	}
}

func toLeaderboardDTO(lb *dashboard.Leaderboard) LeaderboardDTO {
	dto := LeaderboardDTO{
		Period:             lb.Period.String(),
		Reference:          lb.Reference.String(),
		CalculatedAt:       lb.CalculatedAt.UTC().Format(time.RFC3339),
		DepartmentAvgCheck: lb.DepartmentAvgCheck.StringFixed(2),
		Rows:               make([]LeaderboardRowDTO, len(lb.Rows)),
	}
	for i, r := range lb.Rows {
		dto.Rows[i] = LeaderboardRowDTO{
			Rank:           r.Entry.Rank,
			PreviousRank:   r.Entry.PreviousRank,
			PositionChange: r.Entry.PositionChange,
			IsNew:          r.Entry.IsNew,
			Employee:       toEmployeeDTO(r.Employee),
			NetSales:       r.Entry.NetSales.String(),
			SalesCount:     r.Entry.SalesCount,
			ReturnsCount:   r.Entry.ReturnsCount,
			AvgCheck:       r.Entry.AvgCheck.StringFixed(2),
			CurrentStreak:  r.Stats.Streak.CurrentStreak,
			Power:          toPowerDTO(r.Power),
			CurrentTier:    r.Commission.CurrentTier().Tier.Label,
		}
	}
	return dto
}

func toDashboardDTO(d *dashboard.EmployeeDashboard, catalog map[string]engine.AchievementDefinition) DashboardDTO {
	dto := DashboardDTO{
		Employee:           toEmployeeDTO(d.Employee),
		Period:             d.Period.String(),
		Reference:          d.Reference.String(),
		Rank:               d.Entry.Rank,
		PreviousRank:       d.Entry.PreviousRank,
		PositionChange:     d.Entry.PositionChange,
		TotalEmployees:     d.TotalEmployees,
		GrossSales:         d.Stats.GrossSales.String(),
		Returns:            d.Stats.Returns.String(),
		NetSales:           d.Stats.NetSales.String(),
		SalesCount:         d.Stats.SalesCount,
		ReturnsCount:       d.Stats.ReturnsCount,
		AvgCheck:           d.Stats.AvgCheck.StringFixed(2),
		BestDaySales:       d.Stats.BestDaySales.String(),
		DepartmentAvgCheck: d.DepartmentAvgCheck.StringFixed(2),
		Commission:         toCommissionDTO(d.Commission),
		Power:              toPowerDTO(d.Power),
		Streak:             toStreakDTO(d.Streak),
		Earned:             make([]AchievementDTO, 0, len(d.Earned)),
		Pending:            make([]AchievementDTO, 0, len(d.Pending)),
	}
	for _, e := range d.Earned {
		a := toEarnedDTO(e)
		a.Name, a.Icon = catalog[e.Code].Name, catalog[e.Code].Icon
		dto.Earned = append(dto.Earned, a)
	}
	for _, p := range d.Pending {
		dto.Pending = append(dto.Pending, AchievementDTO{
			Code:     p.Code,
			Name:     catalog[p.Code].Name,
			Icon:     catalog[p.Code].Icon,
			Period:   d.Period.String(),
			Metadata: p.Metadata,
		})
	}
	return dto
}
