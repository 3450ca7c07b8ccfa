package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Backup    BackupConfig
	TimeTrust TimeTrustConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DatabaseConfig holds configuration for the local SQLite data file
type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

// DSN returns the SQLite connection string. The store is a single local
// file driven by one interactive session, so the pool is capped at one
// open connection by the database package. Foreign keys stay declarative:
// deleting an employee orphans historical attendance and salary rows
// instead of failing or cascading.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL",
		c.Path, c.BusyTimeout.Milliseconds())
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret       string        `mapstructure:"secret"`
	AccessExpiry time.Duration `mapstructure:"access_expiry"`
	Issuer       string        `mapstructure:"issuer"`
}

// BackupConfig holds snapshot backup configuration
type BackupConfig struct {
	Dir       string `mapstructure:"dir"`
	DailyAt   string `mapstructure:"daily_at"` // "HH:MM" wall-clock target
	AutoDaily bool   `mapstructure:"auto_daily"`
}

// TimeTrustConfig holds network time resolution configuration
type TimeTrustConfig struct {
	Servers []string      `mapstructure:"servers"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from environment and config files with
// development defaults applied.
func Load(serviceName string) (*Config, error) {
	return loadConfig(serviceName, true)
}

// LoadWithValidation loads configuration and validates it for the current
// environment. In production/staging this fails fast on missing secrets.
func LoadWithValidation(serviceName string) (*Config, error) {
	cfg, err := loadConfig(serviceName, true)
	if err != nil {
		return nil, err
	}

	if cfg.Server.Environment == EnvProduction || cfg.Server.Environment == EnvStaging {
		if cfg.JWT.Secret == "" || cfg.JWT.Secret == "dev-secret-change-in-production" {
			return nil, errors.New("PAYROLL_JWT_SECRET must be set to a secure value in " + cfg.Server.Environment)
		}
	}

	return cfg, nil
}

// loadConfig is the internal configuration loader
func loadConfig(serviceName string, applyDefaults bool) (*Config, error) {
	v := viper.New()

	if applyDefaults {
		setDefaults(v)
	}

	// Read from environment variables
	v.SetEnvPrefix("PAYROLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName(serviceName)
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/payroll")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.environment", EnvDevelopment)

	// Database defaults
	v.SetDefault("database.path", "salary_system.db")
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// JWT defaults
	v.SetDefault("jwt.secret", "dev-secret-change-in-production")
	v.SetDefault("jwt.access_expiry", 12*time.Hour)
	v.SetDefault("jwt.issuer", "payroll-backend")

	// Backup defaults
	v.SetDefault("backup.dir", "backups")
	v.SetDefault("backup.daily_at", "19:40")
	v.SetDefault("backup.auto_daily", true)

	// Time trust defaults
	v.SetDefault("timetrust.servers", []string{"pool.ntp.org", "time.nist.gov", "ntp.aliyun.com"})
	v.SetDefault("timetrust.timeout", 2*time.Second)
}
