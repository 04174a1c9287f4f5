package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration of the chatgraph binaries.
type Config struct {
	DatabaseDSN      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	SnapshotInterval time.Duration
	SnapshotDir      string
	LimitsFile       string
	LocalesDir       string
	Language         string
}

// Load reads the .env file named by CHATGRAPH_ENV_FILE (default ".env") and
// then the environment. Variables already set in the environment win over the file.
func Load() *Config {
	envFile := getEnv("CHATGRAPH_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("INFO: no env file loaded from %s: %v", envFile, err)
	}

	return &Config{
		DatabaseDSN:      getEnv("DATABASE_DSN", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          parseInt(getEnv("REDIS_DB", "0"), 0),
		SnapshotInterval: parseDuration(getEnv("SNAPSHOT_INTERVAL", "5m"), 5*time.Minute),
		SnapshotDir:      getEnv("SNAPSHOT_DIR", "./data/snapshots"),
		LimitsFile:       getEnv("LIMITS_FILE", ""),
		LocalesDir:       getEnv("LOCALES_DIR", "internal/localization/locales"),
		Language:         getEnv("CHATGRAPH_LANG", "en"),
	}
}

// Limits returns the limits file content, or the defaults when no file is configured.
func (c *Config) Limits() (Limits, error) {
	if c.LimitsFile == "" {
		return DefaultLimits(), nil
	}
	return LoadLimits(c.LimitsFile)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func parseInt(s string, fallback int) int {
	val, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return val
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
