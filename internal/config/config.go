package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig      `yaml:"server"`
	Store        StoreConfig       `yaml:"store"`
	Database     DatabaseConfig    `yaml:"database"`
	Redis        RedisConfig       `yaml:"redis"`
	AWS          AWSConfig         `yaml:"aws"`
	JWT          JWTConfig         `yaml:"jwt"`
	Log          LogConfig         `yaml:"log"`
	RateLimit    RateLimitConfig   `yaml:"rate_limit"`
	Account      AccountConfig     `yaml:"account"`
	Feed         FeedConfig        `yaml:"feed"`
	Affiliations map[string]string `yaml:"affiliations"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        int      `yaml:"port"`
	Host        string   `yaml:"host"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// StoreConfig selects the document store backend
type StoreConfig struct {
	Driver string `yaml:"driver"` // "postgres" or "memory"
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Migrate  bool   `yaml:"migrate"`
}

// RedisConfig holds the token revocation list connection
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region        string `yaml:"region"`
	S3Bucket      string `yaml:"s3_bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Endpoint      string `yaml:"endpoint"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// RateLimitConfig limits the unauthenticated auth endpoints
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

// AccountConfig controls account deletion
type AccountConfig struct {
	AtomicDelete bool `yaml:"atomic_delete"`
}

// FeedConfig controls cross-instance message fan-out
type FeedConfig struct {
	PGNotify bool `yaml:"pg_notify"`
}

// DefaultAffiliations maps registration codes to affiliation names.
var DefaultAffiliations = map[string]string{
	"OX1916":   "Theta Chi",
	"ZTA1949":  "Zeta Tau Alpha",
	"DG1949":   "Delta Gamma",
	"DDD1948":  "Delta Delta Delta",
	"KD1948":   "Kappa Delta",
	"AOII1948": "Alpha Omicron Pi",
	"ADPI1947": "Alpha Delta Pi",
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and fills in defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "postgres"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 30 * 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.RateLimit.PerMinute == 0 {
		c.RateLimit.PerMinute = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 5
	}
	if len(c.Affiliations) == 0 {
		c.Affiliations = make(map[string]string, len(DefaultAffiliations))
		for code, name := range DefaultAffiliations {
			c.Affiliations[code] = name
		}
	}
}

// Validate checks required settings
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Feed.PGNotify && c.Store.Driver != "postgres" {
		return fmt.Errorf("feed.pg_notify requires the postgres store driver")
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
