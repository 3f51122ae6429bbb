package db

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "config/config.yaml"

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	TLS  Certs  `yaml:"tls"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// A loan lasts between one day and one week. Config may narrow this range,
// never widen it.
const (
	LoanDaysFloor   = 1
	LoanDaysCeiling = 7
)

// BorrowConfig holds the lending rules. Zero values are replaced by defaults.
type BorrowConfig struct {
	MaxActiveBorrows   int           `yaml:"max_active_borrows"`
	MinDays            int           `yaml:"min_days"`
	MaxDays            int           `yaml:"max_days"`
	PageSizeLimit      int           `yaml:"page_size_limit"`
	AllocationAttempts int           `yaml:"allocation_attempts"`
	RetryBaseDelay     time.Duration `yaml:"retry_base_delay"`
}

type Config struct {
	Version string         `yaml:"version"`
	Mode    string         `yaml:"mode"`
	Server  ServerConfig   `yaml:"server"`
	DB      DatabaseConfig `yaml:"database"`
	Auth    AuthConfig     `yaml:"auth"`
	Borrow  BorrowConfig   `yaml:"borrow"`
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	b := &c.Borrow
	if b.MaxActiveBorrows <= 0 {
		b.MaxActiveBorrows = 5
	}
	if b.MinDays == 0 {
		b.MinDays = LoanDaysFloor
	}
	if b.MaxDays == 0 {
		b.MaxDays = LoanDaysCeiling
	}
	if b.PageSizeLimit <= 0 {
		b.PageSizeLimit = 10
	}
	if b.AllocationAttempts <= 0 {
		b.AllocationAttempts = 3
	}
	if b.RetryBaseDelay <= 0 {
		b.RetryBaseDelay = 10 * time.Millisecond
	}
}

func (c *Config) validate() error {
	if c.Mode != "dev" && c.Mode != "release" {
		return fmt.Errorf("invalid mode %q: want dev or release", c.Mode)
	}
	if c.Borrow.MinDays < LoanDaysFloor || c.Borrow.MaxDays > LoanDaysCeiling {
		return fmt.Errorf("borrow.min_days/max_days must stay within %d..%d days", LoanDaysFloor, LoanDaysCeiling)
	}
	if c.Borrow.MinDays > c.Borrow.MaxDays {
		return fmt.Errorf("borrow.min_days (%d) exceeds borrow.max_days (%d)", c.Borrow.MinDays, c.Borrow.MaxDays)
	}
	if c.Mode == "release" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in release mode")
	}
	return nil
}
