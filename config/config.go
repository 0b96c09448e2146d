// Package config loads process settings from the environment and an
// optional .env file. Command-line flags in cmd/ override these values.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve in minimal containers

	"github.com/joho/godotenv"
)

type Config struct {
	Port       int
	DBPath     string
	ConfigPath string // compensation JSON; empty means built-in presets
	Timezone   string

	Redis     RedisConfig
	RateLimit string // ulule/limiter format, e.g. "100-M"; empty disables

	RecalcInterval time.Duration // 0 disables the background recalculation
}

type RedisConfig struct {
	Addr     string // empty disables the shared cache
	Password string
	DB       int
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[Config] no .env file found, using environment variables")
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		log.Printf("[Config] invalid PORT, using 8080: %v", err)
		port = 8080
	}
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	rateLimit := getEnv("RATE_LIMIT", "600-M")
	if rateLimit == "off" {
		rateLimit = ""
	}

	interval, err := time.ParseDuration(getEnv("RECALC_INTERVAL", "0s"))
	if err != nil {
		log.Printf("[Config] invalid RECALC_INTERVAL, disabling: %v", err)
		interval = 0
	}

	return Config{
		Port:       port,
		DBPath:     getEnv("DB_PATH", "./data/sales.db"),
		ConfigPath: getEnv("CONFIG_PATH", ""),
		Timezone:   getEnv("TIMEZONE", "UTC"),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		RateLimit:      rateLimit,
		RecalcInterval: interval,
	}
}

// Location resolves Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("[Config] unknown TIMEZONE %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
