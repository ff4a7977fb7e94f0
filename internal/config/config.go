package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Document classes with their own upload limits
const (
	ClassProjectCompliance = "project_compliance"
	ClassNGOCompliance     = "ngo_compliance"
)

const mib = 1024 * 1024

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Mail       MailConfig       `mapstructure:"mail"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
}

type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"` // gin mode: debug, release, test
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Output string `mapstructure:"output"` // stdout or file
	File   string `mapstructure:"file"`
}

// UploadConfig holds one size limit per document class
type UploadConfig struct {
	ProjectComplianceMaxBytes int64    `mapstructure:"project_compliance_max_bytes"`
	NGOComplianceMaxBytes     int64    `mapstructure:"ngo_compliance_max_bytes"`
	AllowedMIMETypes          []string `mapstructure:"allowed_mime_types"`
}

type StorageConfig struct {
	Driver        string `mapstructure:"driver"` // s3 or local
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	LocalDir      string `mapstructure:"local_dir"`
	MaxAttempts   int    `mapstructure:"max_attempts"`
}

type MailConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sender  string `mapstructure:"sender"`
	Region  string `mapstructure:"region"`
}

type WorkerConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

type SchedulerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ComplianceSpec string `mapstructure:"compliance_spec"` // cron spec for the nightly sweep
}

type ComplianceConfig struct {
	ExpiryThresholdDays int `mapstructure:"expiry_threshold_days"`
}

// MaxBytes returns the upload limit for a document class
func (u UploadConfig) MaxBytes(class string) (int64, bool) {
	switch class {
	case ClassProjectCompliance:
		return u.ProjectComplianceMaxBytes, true
	case ClassNGOCompliance:
		return u.NGOComplianceMaxBytes, true
	default:
		return 0, false
	}
}

// GetDatabaseURL returns the database connection string
func (c DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// ExpiryThreshold returns the window in which a certificate counts as expiring soon
func (c ComplianceConfig) ExpiryThreshold() time.Duration {
	return time.Duration(c.ExpiryThresholdDays) * 24 * time.Hour
}

// Load reads configs/.env, an optional config.yaml and the environment, in that order of precedence
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	setDefaults(v)
	bindLegacyEnv(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "csrhub")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "24h")
	v.SetDefault("auth.refresh_token_ttl", "168h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/app.log")

	v.SetDefault("upload.project_compliance_max_bytes", 2*mib)
	v.SetDefault("upload.ngo_compliance_max_bytes", 5*mib)
	v.SetDefault("upload.allowed_mime_types", []string{
		"application/pdf", "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp",
	})

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "ap-south-1")
	v.SetDefault("storage.public_base_url", "http://localhost:8080/files")
	v.SetDefault("storage.local_dir", "uploads")
	v.SetDefault("storage.max_attempts", 3)

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.sender", "")
	v.SetDefault("mail.region", "ap-south-1")

	v.SetDefault("worker.pool_size", 16)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.compliance_spec", "0 30 2 * * *")

	v.SetDefault("compliance.expiry_threshold_days", 60)
}

// bindLegacyEnv keeps the flat variable names used by existing deployments working
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("server.mode", "SERVER_MODE", "GIN_MODE")
	_ = v.BindEnv("database.host", "DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.dbname", "DATABASE_DBNAME", "DB_NAME")
	_ = v.BindEnv("database.sslmode", "DATABASE_SSLMODE", "DB_SSLMODE")
	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET", "JWT_SECRET")
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		if c.Server.Mode == "release" {
			return errors.New("JWT_SECRET is required in release mode")
		}
		c.Auth.JWTSecret = "default_super_secret_key" // development fallback only
	}
	if c.Upload.ProjectComplianceMaxBytes <= 0 || c.Upload.NGOComplianceMaxBytes <= 0 {
		return errors.New("upload limits must be positive")
	}
	if len(c.Upload.AllowedMIMETypes) == 0 {
		return errors.New("upload.allowed_mime_types must not be empty")
	}
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.MaxAttempts < 1 {
		c.Storage.MaxAttempts = 1
	}
	if c.Mail.Enabled && c.Mail.Sender == "" {
		return errors.New("mail.sender is required when mail is enabled")
	}
	if c.Worker.PoolSize <= 0 {
		c.Worker.PoolSize = 16
	}
	if c.Compliance.ExpiryThresholdDays <= 0 {
		c.Compliance.ExpiryThresholdDays = 60
	}
	return nil
}
