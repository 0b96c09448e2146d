/*
Package factory provides JSON to Go engine configuration conversion.

PURPOSE:
  Converts a JSON compensation document into a validated engine.Config.
  Tier schedules, the level ladder, power constants and the achievement
  catalog change more often than code; management edits the document and
  the server picks it up on restart.

JSON SCHEMA:
  {
    "default_role": "seller",
    "tie_break": "employee_id",
    "schedules": [
      {
        "role": "seller",
        "base_salary": "50000",
        "tiers": [
          {"min_sales": 0, "max_sales": 100000, "percentage": 5, "label": "Start"},
          {"min_sales": 100000, "max_sales": 200000, "percentage": 6}
        ]
      }
    ],
    "levels": [
      {"level": 1, "name": "Rookie", "icon": "🌱", "min_power": 0}
    ],
    "power": {
      "base_divisor": 1000,
      "zero_returns_bonus": 20,
      "zero_returns_min_sales": 5,
      "bonus_per_ten_percent": 10
    },
    "achievements": [
      {"code": "first_sale", "name": "First Sale", "criteria_type": "sales_count", "criteria_value": 1}
    ]
  }

  Amounts are accepted as JSON strings or numbers; strings keep full
  decimal precision.

VALIDATION:
  ParseConfig builds the config and then runs engine.NewEngine's checks, so
  a document that parses is one the engine accepts. Errors are wrapped with
  the offending section.

USAGE:
  cfg, err := factory.LoadConfigFile("./compensation.json")
  if err != nil {
      log.Fatal(err)
  }
  eng, err := engine.NewEngine(cfg)

SEE ALSO:
  - dashboard/presets.go: The built-in default document
  - engine/evaluate.go: Config type definition
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/sales-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the JSON representation of an engine configuration.
type ConfigJSON struct {
	DefaultRole  string            `json:"default_role,omitempty"`
	TieBreak     string            `json:"tie_break,omitempty"` // employee_id, input_order
	Schedules    []ScheduleJSON    `json:"schedules"`
	Levels       []LevelJSON       `json:"levels"`
	Power        PowerJSON         `json:"power"`
	Achievements []AchievementJSON `json:"achievements"`
}

// ScheduleJSON represents one role's tier schedule.
type ScheduleJSON struct {
	Role       string          `json:"role"`
	BaseSalary decimal.Decimal `json:"base_salary"`
	Tiers      []TierJSON      `json:"tiers"`
}

// TierJSON represents one sales band.
type TierJSON struct {
	MinSales   decimal.Decimal `json:"min_sales"`
	MaxSales   decimal.Decimal `json:"max_sales"`
	Percentage decimal.Decimal `json:"percentage"` // 5 means 5%
	Label      string          `json:"label,omitempty"`
}

// LevelJSON represents one rung of the public level ladder.
type LevelJSON struct {
	Level    int    `json:"level"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	MinPower int64  `json:"min_power"`
}

// PowerJSON represents the power rating constants.
type PowerJSON struct {
	BaseDivisor         decimal.Decimal `json:"base_divisor"`
	ZeroReturnsBonus    int64           `json:"zero_returns_bonus"`
	ZeroReturnsMinSales int             `json:"zero_returns_min_sales"`
	BonusPerTenPercent  int64           `json:"bonus_per_ten_percent"`
}

// AchievementJSON represents one catalog entry.
type AchievementJSON struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Icon          string          `json:"icon,omitempty"`
	CriteriaType  string          `json:"criteria_type"`
	CriteriaValue decimal.Decimal `json:"criteria_value"`
	IsActive      *bool           `json:"is_active,omitempty"` // default true
}

// =============================================================================
// PARSING
// =============================================================================

// ParseConfig parses a JSON document into a validated engine.Config.
func ParseConfig(data []byte) (engine.Config, error) {
	var cj ConfigJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return engine.Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return FromJSON(cj)
}

// LoadConfigFile reads and parses a config document from disk.
func LoadConfigFile(path string) (engine.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return engine.Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// FromJSON converts ConfigJSON to engine.Config and validates it.
func FromJSON(cj ConfigJSON) (engine.Config, error) {
	cfg := engine.Config{
		DefaultRole: cj.DefaultRole,
		Schedules:   make(map[string]engine.TierSchedule, len(cj.Schedules)),
		Power: engine.PowerConfig{
			BaseDivisor:         cj.Power.BaseDivisor,
			ZeroReturnsBonus:    cj.Power.ZeroReturnsBonus,
			ZeroReturnsMinSales: cj.Power.ZeroReturnsMinSales,
			BonusPerTenPercent:  cj.Power.BonusPerTenPercent,
		},
	}

	tieBreak, err := parseTieBreak(cj.TieBreak)
	if err != nil {
		return engine.Config{}, err
	}
	cfg.Rank = engine.RankOptions{TieBreak: tieBreak}

	for i, sj := range cj.Schedules {
		if sj.Role == "" {
			return engine.Config{}, fmt.Errorf("schedules[%d]: %w", i,
				&engine.ScheduleError{TierIndex: -1, Reason: "role is required"})
		}
		if _, dup := cfg.Schedules[sj.Role]; dup {
			return engine.Config{}, fmt.Errorf("schedules[%d]: %w", i,
				&engine.ScheduleError{Role: sj.Role, TierIndex: -1, Reason: "duplicate role"})
		}
		cfg.Schedules[sj.Role] = parseSchedule(sj)
	}

	for _, lj := range cj.Levels {
		cfg.Ladder = append(cfg.Ladder, engine.Level{
			Level:    lj.Level,
			Name:     lj.Name,
			Icon:     lj.Icon,
			MinPower: lj.MinPower,
		})
	}

	for i, aj := range cj.Achievements {
		def, err := parseAchievement(aj)
		if err != nil {
			return engine.Config{}, fmt.Errorf("achievements[%d]: %w", i, err)
		}
		cfg.Catalog = append(cfg.Catalog, def)
	}

	// Same checks the engine runs at startup
	if _, err := engine.NewEngine(cfg); err != nil {
		return engine.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ToJSON converts an engine.Config back to its JSON representation.
// Schedules are emitted in role order.
func ToJSON(cfg engine.Config) ConfigJSON {
	cj := ConfigJSON{
		DefaultRole: cfg.DefaultRole,
		TieBreak:    string(cfg.Rank.TieBreak),
		Power: PowerJSON{
			BaseDivisor:         cfg.Power.BaseDivisor,
			ZeroReturnsBonus:    cfg.Power.ZeroReturnsBonus,
			ZeroReturnsMinSales: cfg.Power.ZeroReturnsMinSales,
			BonusPerTenPercent:  cfg.Power.BonusPerTenPercent,
		},
	}

	for _, role := range sortedRoles(cfg.Schedules) {
		s := cfg.Schedules[role]
		sj := ScheduleJSON{Role: role, BaseSalary: s.BaseSalary}
		for _, t := range s.Tiers {
			sj.Tiers = append(sj.Tiers, TierJSON{
				MinSales:   t.MinSales,
				MaxSales:   t.MaxSales,
				Percentage: t.Percentage,
				Label:      t.Label,
			})
		}
		cj.Schedules = append(cj.Schedules, sj)
	}

	for _, l := range cfg.Ladder {
		cj.Levels = append(cj.Levels, LevelJSON{Level: l.Level, Name: l.Name, Icon: l.Icon, MinPower: l.MinPower})
	}

	for _, d := range cfg.Catalog {
		active := d.IsActive
		cj.Achievements = append(cj.Achievements, AchievementJSON{
			Code:          d.Code,
			Name:          d.Name,
			Description:   d.Description,
			Icon:          d.Icon,
			CriteriaType:  string(d.CriteriaType),
			CriteriaValue: d.CriteriaValue,
			IsActive:      &active,
		})
	}
	return cj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseSchedule(sj ScheduleJSON) engine.TierSchedule {
	s := engine.TierSchedule{Role: sj.Role, BaseSalary: sj.BaseSalary}
	for _, tj := range sj.Tiers {
		s.Tiers = append(s.Tiers, engine.Tier{
			MinSales:   tj.MinSales,
			MaxSales:   tj.MaxSales,
			Percentage: tj.Percentage,
			Label:      tj.Label,
		})
	}
	return s
}

func parseAchievement(aj AchievementJSON) (engine.AchievementDefinition, error) {
	active := true
	if aj.IsActive != nil {
		active = *aj.IsActive
	}
	def, err := engine.NewAchievementDefinition(aj.Code, aj.Name, engine.CriteriaType(aj.CriteriaType), aj.CriteriaValue, active)
	if err != nil {
		return engine.AchievementDefinition{}, err
	}
	def.Description = aj.Description
	def.Icon = aj.Icon
	return def, nil
}

func parseTieBreak(s string) (engine.TieBreak, error) {
	switch s {
	case "", string(engine.TieBreakEmployeeID):
		return engine.TieBreakEmployeeID, nil
	case string(engine.TieBreakInputOrder):
		return engine.TieBreakInputOrder, nil
	default:
		return "", fmt.Errorf("%w: unknown tie_break %q", engine.ErrInvalidSchedule, s)
	}
}

func sortedRoles(schedules map[string]engine.TierSchedule) []string {
	roles := make([]string, 0, len(schedules))
	for role := range schedules {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}
