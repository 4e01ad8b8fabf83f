package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config covers process level configuration read from environment
// variables. A .env file in the working directory is honored when
// present.
type Config struct {
	PortalBaseURL string

	// Watcher mode.
	TelegramToken string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Fallback credentials for non-interactive runs; the interactive
	// mode prompts and offers to save them instead.
	PortalUsername string
	PortalPassword string

	// Timezone applied process-wide; the portal reports naive local
	// times. Empty keeps the system default.
	Timezone string

	// HorizonDays is how far ahead bookings are fetched when checking
	// a tool's availability.
	HorizonDays int
}

// Load reads configuration from the environment.
func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		PortalBaseURL:  os.Getenv("NANOFAB_BASE_URL"),
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        envInt("REDIS_DB", 0),
		PortalUsername: os.Getenv("NANOFAB_USERNAME"),
		PortalPassword: os.Getenv("NANOFAB_PASSWORD"),
		Timezone:       os.Getenv("NANOFAB_TZ"),
		HorizonDays:    envInt("NANOFAB_HORIZON_DAYS", 14),
	}
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
