/*
presets.go - Built-in compensation configuration

PURPOSE:
  The configuration the server runs with when no CONFIG_PATH is given, and
  the one the demo scenarios and tests are written against.

CONTENTS:
  seller:         base 50,000; 5% / 6% / 7% bands up to 2,500,000
  senior_seller:  base 70,000; 6% / 7% / 8% bands up to 3,000,000
  Levels:         six public levels, 500 power apart
  Power:          1 point per 1,000 net; +50 for a clean month of 10+ sales;
                  +25 per whole 10% above the department average check
  Achievements:   volume, streak, rank, quality and comeback badges

EXAMPLE:
  cfg, err := dashboard.DefaultConfig()
  eng, err := engine.NewEngine(cfg)

  // Seller at 2,500,000 net: 50,000 + 60,000 + 35,000 = 145,000 bonus,
  // 195,000 total salary.

SEE ALSO:
  - factory/config.go: JSON schema
*/
package dashboard

import (
	"github.com/warp/sales-engine/engine"
	"github.com/warp/sales-engine/factory"
)

// DefaultConfigJSON is the built-in configuration document.
const DefaultConfigJSON = `{
  "default_role": "seller",
  "tie_break": "employee_id",
  "schedules": [
    {
      "role": "seller",
      "base_salary": "50000",
      "tiers": [
        {"min_sales": "0", "max_sales": "1000000", "percentage": "5", "label": "Bronze"},
        {"min_sales": "1000000", "max_sales": "2000000", "percentage": "6", "label": "Silver"},
        {"min_sales": "2000000", "max_sales": "2500000", "percentage": "7", "label": "Gold"}
      ]
    },
    {
      "role": "senior_seller",
      "base_salary": "70000",
      "tiers": [
        {"min_sales": "0", "max_sales": "1000000", "percentage": "6", "label": "Bronze"},
        {"min_sales": "1000000", "max_sales": "2000000", "percentage": "7", "label": "Silver"},
        {"min_sales": "2000000", "max_sales": "3000000", "percentage": "8", "label": "Gold"}
      ]
    }
  ],
  "levels": [
    {"level": 1, "name": "Rookie", "icon": "🌱", "min_power": 0},
    {"level": 2, "name": "Seller", "icon": "🛍️", "min_power": 500},
    {"level": 3, "name": "Pro", "icon": "⭐", "min_power": 1000},
    {"level": 4, "name": "Expert", "icon": "🔥", "min_power": 1500},
    {"level": 5, "name": "Master", "icon": "💎", "min_power": 2000},
    {"level": 6, "name": "Legend", "icon": "👑", "min_power": 2500}
  ],
  "power": {
    "base_divisor": "1000",
    "zero_returns_bonus": 50,
    "zero_returns_min_sales": 10,
    "bonus_per_ten_percent": 25
  },
  "achievements": [
    {"code": "first_sale", "name": "First Sale", "description": "Close your first sale of the month", "icon": "🎯", "criteria_type": "sales_count", "criteria_value": 1},
    {"code": "sales_50", "name": "Half Century", "description": "50 sales in one month", "icon": "🏏", "criteria_type": "sales_count", "criteria_value": 50},
    {"code": "net_1m", "name": "Millionaire", "description": "1,000,000 net sales in one month", "icon": "💰", "criteria_type": "net_sales", "criteria_value": "1000000"},
    {"code": "streak_5", "name": "On Fire", "description": "Sell on 5 consecutive days", "icon": "🔥", "criteria_type": "streak", "criteria_value": 5},
    {"code": "streak_10", "name": "Unstoppable", "description": "Sell on 10 consecutive days", "icon": "⚡", "criteria_type": "streak", "criteria_value": 10},
    {"code": "top_1", "name": "Champion", "description": "Finish first on the leaderboard", "icon": "🏆", "criteria_type": "rank", "criteria_value": 1},
    {"code": "top_3", "name": "Podium", "description": "Finish in the top 3", "icon": "🥉", "criteria_type": "rank", "criteria_value": 3},
    {"code": "clean_sheet", "name": "Clean Sheet", "description": "No returns with at least 20 sales", "icon": "🧼", "criteria_type": "zero_returns", "criteria_value": 20},
    {"code": "avg_check_up_10", "name": "Upseller", "description": "Average check up 10% on last month", "icon": "📈", "criteria_type": "avg_check_growth", "criteria_value": 10},
    {"code": "personal_best", "name": "Personal Best", "description": "Beat your best single day", "icon": "🚀", "criteria_type": "personal_best", "criteria_value": 0},
    {"code": "comeback_3", "name": "Comeback", "description": "Climb into the top 3 from outside it", "icon": "🦅", "criteria_type": "comeback", "criteria_value": 3}
  ]
}`

// DefaultConfig parses DefaultConfigJSON.
func DefaultConfig() (engine.Config, error) {
	return factory.ParseConfig([]byte(DefaultConfigJSON))
}

// MustDefaultEngine builds an engine from the built-in configuration.
// Panics on error; for tests and demos.
func MustDefaultEngine() *engine.Engine {
	cfg, err := DefaultConfig()
	if err != nil {
		panic(err)
	}
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return eng
}
