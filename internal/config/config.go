package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	TelegramToken string

	DBUser  string
	DBPass  string
	DBHost  string
	DBPort  string
	DBName  string
	SSLMode string

	RedisHost string
	RedisPort string

	NatsHost string
	NatsPort string

	MineAmount    decimal.Decimal
	CooldownHours int
	ReferralBonus decimal.Decimal
	AdminIDs      []string

	LeaderboardSize int
	LeaderboardTTL  time.Duration

	ApiEnabled string
	ApiPort    string
}

// New loads and validates configuration from environment variables.
// Everything is read once at startup and injected; nothing reads the
// environment after this point. The HTTP ops API is optional: if
// CHILL_API_ENABLED != "true", ApiAddr() returns an error and the server
// simply won't start.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:   os.Getenv("CHILL_TELEGRAM_TOKEN"),
		DBUser:          os.Getenv("CHILL_POSTGRES_USER"),
		DBPass:          os.Getenv("CHILL_POSTGRES_PASSWORD"),
		DBHost:          os.Getenv("CHILL_POSTGRES_HOST"),
		DBPort:          os.Getenv("CHILL_POSTGRES_PORT"),
		DBName:          os.Getenv("CHILL_POSTGRES_DB"),
		SSLMode:         os.Getenv("CHILL_POSTGRES_SSLMODE"),
		RedisHost:       os.Getenv("CHILL_REDIS_HOST"),
		RedisPort:       os.Getenv("CHILL_REDIS_PORT"),
		NatsHost:        os.Getenv("CHILL_NATS_HOST"),
		NatsPort:        os.Getenv("CHILL_NATS_PORT"),
		CooldownHours:   getEnvInt("CHILL_MINE_COOLDOWN_HOURS", 24),
		AdminIDs:        splitCSV(os.Getenv("CHILL_ADMIN_IDS")),
		LeaderboardSize: getEnvInt("CHILL_LEADERBOARD_SIZE", 10),
		LeaderboardTTL:  time.Duration(getEnvInt("CHILL_LEADERBOARD_TTL_SECONDS", 30)) * time.Second,
		ApiEnabled:      os.Getenv("CHILL_API_ENABLED"),
		ApiPort:         os.Getenv("CHILL_API_PORT"),
	}

	var err error
	if cfg.MineAmount, err = getEnvDecimal("CHILL_MINE_AMOUNT", "1.0"); err != nil {
		return nil, err
	}
	if cfg.ReferralBonus, err = getEnvDecimal("CHILL_REFERRAL_BONUS", "0.5"); err != nil {
		return nil, err
	}

	// Required: telegram
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("missing required env: CHILL_TELEGRAM_TOKEN")
	}

	// Required: database
	if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" || cfg.SSLMode == "" {
		return nil, fmt.Errorf("missing required env for database: CHILL_POSTGRES_USER/HOST/DB/SSLMODE")
	}

	// Required: redis
	if cfg.RedisHost == "" || cfg.RedisPort == "" {
		return nil, fmt.Errorf("missing required env for redis: CHILL_REDIS_HOST/PORT")
	}

	// Required: nats
	if cfg.NatsHost == "" || cfg.NatsPort == "" {
		return nil, fmt.Errorf("missing required env for nats: CHILL_NATS_HOST/PORT")
	}

	if cfg.MineAmount.Sign() <= 0 {
		return nil, fmt.Errorf("CHILL_MINE_AMOUNT must be positive, got %s", cfg.MineAmount)
	}
	if cfg.ReferralBonus.Sign() < 0 {
		return nil, fmt.Errorf("CHILL_REFERRAL_BONUS must not be negative, got %s", cfg.ReferralBonus)
	}
	if cfg.CooldownHours <= 0 {
		return nil, fmt.Errorf("CHILL_MINE_COOLDOWN_HOURS must be positive, got %d", cfg.CooldownHours)
	}
	if cfg.LeaderboardSize <= 0 {
		return nil, fmt.Errorf("CHILL_LEADERBOARD_SIZE must be positive, got %d", cfg.LeaderboardSize)
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

// ApiAddr returns the HTTP listen address if the ops API is enabled.
// Returns an error if CHILL_API_ENABLED != "true" — callers should skip
// starting the HTTP server.
func (c *Config) ApiAddr() (string, error) {
	if c.ApiEnabled == "true" {
		if c.ApiPort == "" {
			return "", fmt.Errorf("CHILL_API_PORT is required when CHILL_API_ENABLED=true")
		}
		return ":" + c.ApiPort, nil
	}
	return "", fmt.Errorf("HTTP API is disabled (CHILL_API_ENABLED != true)")
}

// Cooldown is the minimum interval between successful mining claims.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownHours) * time.Hour
}

// AdminSet returns the admin allow-list as a lookup set.
func (c *Config) AdminSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.AdminIDs))
	for _, id := range c.AdminIDs {
		set[id] = struct{}{}
	}
	return set
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var intVal int
	if _, err := fmt.Sscanf(val, "%d", &intVal); err != nil {
		return defaultVal
	}
	return intVal
}

func getEnvDecimal(key, defaultVal string) (decimal.Decimal, error) {
	val := os.Getenv(key)
	if val == "" {
		val = defaultVal
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal in %s: %q", key, val)
	}
	return d, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
