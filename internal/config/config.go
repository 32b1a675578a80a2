package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Cron       CronConfig       `yaml:"cron"`
	Sending    SendingConfig    `yaml:"sending"`
	SES        SESConfig        `yaml:"ses"`
	LinkedIn   LinkedInConfig   `yaml:"linkedin"`
	Approval   ApprovalConfig   `yaml:"approval"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	LogLevel   string           `yaml:"log_level"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis settings for the send lease. Redis is
// optional; without it the lease falls back to Postgres advisory locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CronConfig holds the shared secret for cron-triggered endpoints
type CronConfig struct {
	Secret string `yaml:"secret"`
}

// SendingConfig holds the compliance window and cap defaults applied
// to campaigns that do not override them
type SendingConfig struct {
	WindowStartHour   int  `yaml:"window_start_hour"`
	WindowStartMinute int  `yaml:"window_start_minute"`
	WindowEndHour     int  `yaml:"window_end_hour"`
	WindowEndMinute   int  `yaml:"window_end_minute"`
	ExcludeWeekends   bool `yaml:"exclude_weekends"`
	UseUSHolidays     bool `yaml:"use_us_holidays"`
	DefaultDailyCap   int  `yaml:"default_daily_cap"`
}

// SESConfig holds AWS SES API credentials
type SESConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
}

// LinkedInConfig holds the LinkedIn automation provider settings
type LinkedInConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// ApprovalConfig holds review session settings. When BedrockModelID is
// set, suggested replies come from that model; otherwise a stock
// acknowledgement is drafted. DefaultAssignee is the reviewer new
// sessions are assigned to.
type ApprovalConfig struct {
	TTLHours        int    `yaml:"ttl_hours"`
	BedrockModelID  string `yaml:"bedrock_model_id"`
	DefaultAssignee string `yaml:"default_assignee"`
}

// DispatcherConfig holds send batch settings
type DispatcherConfig struct {
	BatchSize           int `yaml:"batch_size"`
	SendTimeoutSeconds  int `yaml:"send_timeout_seconds"`
	LeaseTTLSeconds     int `yaml:"lease_ttl_seconds"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Sending.WindowStartHour == 0 && cfg.Sending.WindowStartMinute == 0 {
		cfg.Sending.WindowStartHour = 8
	}
	if cfg.Sending.WindowEndHour == 0 && cfg.Sending.WindowEndMinute == 0 {
		cfg.Sending.WindowEndHour = 17
	}
	if cfg.Sending.DefaultDailyCap == 0 {
		cfg.Sending.DefaultDailyCap = 40
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.Approval.TTLHours == 0 {
		cfg.Approval.TTLHours = 24
	}
	if cfg.Dispatcher.BatchSize == 0 {
		cfg.Dispatcher.BatchSize = 50
	}
	if cfg.Dispatcher.SendTimeoutSeconds == 0 {
		cfg.Dispatcher.SendTimeoutSeconds = 30
	}
	if cfg.Dispatcher.LeaseTTLSeconds == 0 {
		cfg.Dispatcher.LeaseTTLSeconds = 300
	}
	if cfg.Dispatcher.PollIntervalSeconds == 0 {
		cfg.Dispatcher.PollIntervalSeconds = 60
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
}

// LoadFromEnv loads from YAML (when path is non-empty) then applies
// environment variable overrides. A .env file is honored if present.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg *Config
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load config %s: %w", path, err)
			}
		} else {
			cfg = loaded
		}
	}
	if cfg == nil {
		cfg = &Config{}
		applyDefaults(cfg)
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CRON_SECRET"); v != "" {
		cfg.Cron.Secret = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("LINKEDIN_BASE_URL"); v != "" {
		cfg.LinkedIn.BaseURL = v
	}
	if v := os.Getenv("LINKEDIN_API_KEY"); v != "" {
		cfg.LinkedIn.APIKey = v
	}
	if v := os.Getenv("BEDROCK_MODEL_ID"); v != "" {
		cfg.Approval.BedrockModelID = v
	}
	if v := os.Getenv("APPROVAL_DEFAULT_ASSIGNEE"); v != "" {
		cfg.Approval.DefaultAssignee = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

// Validate checks the settings a running service cannot do without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required (or set DATABASE_URL)")
	}
	if c.Cron.Secret == "" {
		return fmt.Errorf("cron.secret is required (or set CRON_SECRET)")
	}
	return nil
}
