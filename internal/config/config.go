package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Printer  PrinterConfig   `yaml:"printer"`
	Agent    AgentConfig     `yaml:"agent"`
	Admin    AdminConfig     `yaml:"admin"`
	Payment  PaymentConfig   `yaml:"payment"`
	Storage  StorageConfig   `yaml:"storage"`
	Queue    QueueConfig     `yaml:"queue"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
	Logging  LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type PrinterConfig struct {
	StalenessThreshold time.Duration `yaml:"staleness_threshold"`
	AvgJobTime         time.Duration `yaml:"avg_job_time"`
	// LeaseTimeout of 0 disables lease-expiry requeueing: a job leased by an
	// agent that never reports back stays in PRINTING.
	LeaseTimeout time.Duration `yaml:"lease_timeout"`
}

type AgentConfig struct {
	Token string `yaml:"token"`
}

type AdminConfig struct {
	// PasswordHash is a bcrypt hash of the admin password. Empty disables the
	// admin surface entirely.
	PasswordHash string `yaml:"password_hash"`
}

type PaymentConfig struct {
	BaseURL   string        `yaml:"base_url"`
	KeyID     string        `yaml:"key_id"`
	KeySecret string        `yaml:"key_secret"`
	Currency  string        `yaml:"currency"`
	Timeout   time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type QueueConfig struct {
	Retention time.Duration `yaml:"retention"`
}

type WebhookConfig struct {
	Name   string   `yaml:"name"`
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Printer: PrinterConfig{
			StalenessThreshold: 15 * time.Second,
			AvgJobTime:         15 * time.Second,
			LeaseTimeout:       0,
		},
		Payment: PaymentConfig{
			BaseURL:  "https://api.razorpay.com",
			Currency: "INR",
			Timeout:  10 * time.Second,
		},
		Storage: StorageConfig{
			Path: "./data/printgate.db",
		},
		Queue: QueueConfig{
			Retention: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PRINTGATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("PRINTGATE_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}

	if v := os.Getenv("PRINTGATE_AGENT_TOKEN"); v != "" {
		cfg.Agent.Token = v
	}

	if v := os.Getenv("PRINTGATE_ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Admin.PasswordHash = v
	}

	if v := os.Getenv("PRINTGATE_RAZORPAY_KEY_ID"); v != "" {
		cfg.Payment.KeyID = v
	}

	if v := os.Getenv("PRINTGATE_RAZORPAY_KEY_SECRET"); v != "" {
		cfg.Payment.KeySecret = v
	}

	if v := os.Getenv("PRINTGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Printer.StalenessThreshold <= 0 {
		return fmt.Errorf("printer staleness threshold must be positive")
	}

	if c.Printer.AvgJobTime <= 0 {
		return fmt.Errorf("printer average job time must be positive")
	}

	if c.Printer.LeaseTimeout < 0 {
		return fmt.Errorf("printer lease timeout must be non-negative")
	}

	if c.Agent.Token == "" {
		return fmt.Errorf("agent token is required")
	}

	if c.Payment.KeyID == "" || c.Payment.KeySecret == "" {
		return fmt.Errorf("payment key id and key secret are required")
	}

	if c.Payment.Currency == "" {
		return fmt.Errorf("payment currency is required")
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}

	if c.Queue.Retention <= 0 {
		return fmt.Errorf("queue retention must be positive")
	}

	for i, wh := range c.Webhooks {
		if wh.URL == "" {
			return fmt.Errorf("webhook %d: url is required", i)
		}
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}
