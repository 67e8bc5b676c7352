package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	API       APIConfig       `yaml:"api"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig describes the remote ads API
type APIConfig struct {
	BaseURL           string            `yaml:"base_url"`
	APIKey            string            `yaml:"api_key"`
	Headers           map[string]string `yaml:"headers"`
	TimeoutSeconds    int               `yaml:"timeout_seconds"`
	MaxRetries        int               `yaml:"max_retries"`
	RetryDelaySeconds int               `yaml:"retry_delay_seconds"`
	BreakerThreshold  int               `yaml:"breaker_threshold"`
	BreakerResetSecs  int               `yaml:"breaker_reset_seconds"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         string   `yaml:"port"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// User is a login entry. Login is a convenience gate, not a security boundary.
type User struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

// AuthConfig contains login settings
type AuthConfig struct {
	Users          []User `yaml:"users"`
	CookieName     string `yaml:"cookie_name"`
	CookieMaxAge   int    `yaml:"cookie_max_age"`
	MaxAttempts    int    `yaml:"max_attempts"`
	LockoutSeconds int    `yaml:"lockout_seconds"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
}

// DatabaseConfig selects the optional listing cache
type DatabaseConfig struct {
	Type     string         `yaml:"type"` // none, mysql or postgres
	MySQL    ConnConfig     `yaml:"mysql"`
	Postgres ConnConfig     `yaml:"postgres"`
}

// ConnConfig contains database connection settings
type ConnConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
	Index   string `yaml:"index"`
}

// SchedulerConfig controls the periodic refresh of the listing store
type SchedulerConfig struct {
	RefreshEnabled  bool   `yaml:"refresh_enabled"`
	RefreshSchedule string `yaml:"refresh_schedule"` // "HH:MM" or a cron spec
}

// CleanupConfig controls pruning of the change and delete logs
type CleanupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	RetentionDays int    `yaml:"retention_days"`
	Schedule      string `yaml:"schedule"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	File        string `yaml:"file"`
	Pretty      bool   `yaml:"pretty"`
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			TimeoutSeconds:    30,
			MaxRetries:        3,
			RetryDelaySeconds: 1,
			BreakerThreshold:  5,
			BreakerResetSecs:  30,
		},
		Server: ServerConfig{
			Port:         "8084",
			AllowOrigins: []string{"http://localhost:5173"},
		},
		Auth: AuthConfig{
			CookieName:     "user",
			CookieMaxAge:   86400,
			MaxAttempts:    5,
			LockoutSeconds: 300,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			RequestsPerHour:   1800,
		},
		Database: DatabaseConfig{
			Type: "none",
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Index: "listings",
			},
		},
		Scheduler: SchedulerConfig{
			RefreshEnabled:  false,
			RefreshSchedule: "*/15 * * * *",
		},
		Cleanup: CleanupConfig{
			Enabled:       false,
			RetentionDays: 90,
			Schedule:      "03:00",
		},
		Logging: LoggingConfig{
			Level:       "info",
			LogRequests: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads .env files, the YAML file at path and the environment, in that
// order of increasing precedence, and validates the result.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// a missing .env is normal outside development
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() error {
	c.API.BaseURL = getEnv("HM_API_BASE_URL", getEnv("VITE_API_BASE_URL", c.API.BaseURL))
	c.API.APIKey = getEnv("HM_API_KEY", getEnv("VITE_API_KEY", c.API.APIKey))
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Logging.Level = getEnv("HM_LOG_LEVEL", c.Logging.Level)

	if raw := os.Getenv("HM_USERS"); raw != "" {
		users, err := ParseUsers(raw)
		if err != nil {
			return err
		}
		c.Auth.Users = users
	}
	if raw := os.Getenv("HM_ALLOW_ORIGINS"); raw != "" {
		c.Server.AllowOrigins = splitList(raw)
	}

	c.Database.Type = getEnv("DB_TYPE", c.Database.Type)
	conn := c.Database.Conn()
	if conn != nil {
		conn.Host = getEnv("DB_HOST", conn.Host)
		conn.User = getEnv("DB_USER", conn.User)
		conn.Password = getEnv("DB_PASSWORD", conn.Password)
		conn.Database = getEnv("DB_NAME", conn.Database)
		if raw := os.Getenv("DB_PORT"); raw != "" {
			port, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid DB_PORT %q: %w", raw, err)
			}
			conn.Port = port
		}
	}

	ms := &c.Search.Meilisearch
	ms.Host = getEnv("MEILISEARCH_HOST", ms.Host)
	ms.APIKey = getEnv("MEILISEARCH_KEY", ms.APIKey)
	if ms.Host != "" && os.Getenv("MEILISEARCH_HOST") != "" {
		ms.Enabled = true
	}
	return nil
}

// Conn returns the connection settings of the selected database, nil for none.
func (d *DatabaseConfig) Conn() *ConnConfig {
	switch d.Type {
	case "mysql":
		return &d.MySQL
	case "postgres":
		return &d.Postgres
	}
	return nil
}

// DefaultPort returns the usual port of the selected database.
func (d *DatabaseConfig) DefaultPort() int {
	if d.Type == "postgres" {
		return 5432
	}
	return 3306
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url (HM_API_BASE_URL) is required"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL))
	}
	if c.API.MaxRetries < 0 {
		errs = append(errs, errors.New("api.max_retries must not be negative"))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("rate_limit.requests_per_minute must be positive"))
	}
	switch c.Database.Type {
	case "", "none", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.type %q is not one of none, mysql, postgres", c.Database.Type))
	}
	if c.Scheduler.RefreshEnabled {
		if _, err := CronSpec(c.Scheduler.RefreshSchedule); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.refresh_schedule: %w", err))
		}
	}
	if c.Cleanup.Enabled {
		if c.Cleanup.RetentionDays <= 0 {
			errs = append(errs, errors.New("cleanup.retention_days must be positive"))
		}
		if _, err := CronSpec(c.Cleanup.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("cleanup.schedule: %w", err))
		}
	}
	for i, u := range c.Auth.Users {
		if u.Name == "" || u.Password == "" {
			errs = append(errs, fmt.Errorf("auth.users[%d] needs a name and a password", i))
		}
	}

	return errors.Join(errs...)
}

var dailyTime = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// CronSpec turns "HH:MM" into a daily cron spec and checks any other value
// as a standard five-field cron spec.
func CronSpec(schedule string) (string, error) {
	schedule = strings.TrimSpace(schedule)
	if m := dailyTime.FindStringSubmatch(schedule); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return "", fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return schedule, nil
}

// ParseUsers reads "name:password,name:password".
func ParseUsers(raw string) ([]User, error) {
	var users []User
	for _, entry := range splitList(raw) {
		name, password, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || password == "" {
			return nil, fmt.Errorf("invalid HM_USERS entry %q, want name:password", entry)
		}
		users = append(users, User{Name: name, Password: password})
	}
	return users, nil
}

// Timeout returns the request timeout as a duration
func (c *APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryDelay returns the base retry delay as a duration
func (c *APIConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

func (c *APIConfig) BreakerReset() time.Duration {
	return time.Duration(c.BreakerResetSecs) * time.Second
}

func (c *AuthConfig) Lockout() time.Duration {
	return time.Duration(c.LockoutSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
