package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Business calendar. Clock values are offsets from local midnight.
	BusinessOpen        time.Duration
	BusinessClose       time.Duration
	SlotInterval        time.Duration
	DefaultDuration     time.Duration
	WorkingDays         []time.Weekday
	MaxSelectionRetries int
	MaxListedSlots      int
	CancelLookahead     time.Duration

	// Appointment store
	StoreBackend string
	DatabaseURL  string
	StoreTimeout time.Duration

	// Session snapshots and transcripts
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration

	// Async turn ingestion
	UseMemoryQueue      bool
	TurnQueueURL        string
	WorkerCount         int
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// HTTP surface
	AdminJWTSecret string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BusinessOpen:        getEnvAsClock("BUSINESS_OPEN", 9*time.Hour),
		BusinessClose:       getEnvAsClock("BUSINESS_CLOSE", 17*time.Hour),
		SlotInterval:        getEnvAsDuration("SLOT_INTERVAL", 30*time.Minute),
		DefaultDuration:     getEnvAsDuration("DEFAULT_DURATION", time.Hour),
		WorkingDays:         getEnvAsWeekdays("WORKING_DAYS", defaultWorkingDays()),
		MaxSelectionRetries: getEnvAsInt("MAX_SELECTION_RETRIES", 3),
		MaxListedSlots:      getEnvAsInt("MAX_LISTED_SLOTS", 10),
		CancelLookahead:     getEnvAsDuration("CANCEL_LOOKAHEAD", 30*24*time.Hour),

		StoreBackend: strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", "memory"))),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		StoreTimeout: getEnvAsDuration("STORE_TIMEOUT", 3*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		UseMemoryQueue:      getEnvAsBool("USE_MEMORY_QUEUE", false),
		TurnQueueURL:        getEnv("TURN_QUEUE_URL", ""),
		WorkerCount:         getEnvAsInt("WORKER_COUNT", 4),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

func defaultWorkingDays() []time.Weekday {
	return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsClock parses an "HH:MM" wall-clock value into an offset from midnight.
func getEnvAsClock(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}
	t, err := time.Parse("15:04", valueStr)
	if err != nil {
		return defaultValue
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// getEnvAsWeekdays parses a comma-separated list such as "mon,tue,wed".
// Unknown entries are skipped; an empty result falls back to the default.
func getEnvAsWeekdays(key string, defaultValue []time.Weekday) []time.Weekday {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	seen := make(map[time.Weekday]bool)
	var days []time.Weekday
	for _, part := range strings.Split(valueStr, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if len(part) < 3 {
			continue
		}
		day, ok := weekdayNames[part[:3]]
		if !ok || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	if len(days) == 0 {
		return defaultValue
	}
	return days
}
