package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	Attendance   AttendanceConfig   `yaml:"attendance"`
	Push         PushConfig         `yaml:"push"`
	Slack        SlackConfig        `yaml:"slack"`
	Email        EmailConfig        `yaml:"email"`
	Export       ExportConfig       `yaml:"export"`
	Notification NotificationConfig `yaml:"notification"`
	Jobs         JobsConfig         `yaml:"jobs"`
}

type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

type DatabaseConfig struct {
	// Dialect is one of mysql, postgres, sqlite.
	Dialect                string `yaml:"dialect"`
	DSN                    string `yaml:"dsn"`
	SSMParameter           string `yaml:"ssm_parameter"`
	MultiTenant            bool   `yaml:"multi_tenant"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

type AuthConfig struct {
	// JWTSecret is base64 encoded, like the tokens issued by the identity service.
	JWTSecret       string        `yaml:"jwt_secret"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

type AttendanceConfig struct {
	Timezone           string         `yaml:"timezone"`
	StandardDayMinutes int            `yaml:"standard_day_minutes"`
	Location           *time.Location `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

type SlackConfig struct {
	Token          string `yaml:"token"`
	InfoChannelID  string `yaml:"info_channel"`
	ErrorChannelID string `yaml:"error_channel"`
}

type EmailConfig struct {
	Enabled bool   `yaml:"enabled"`
	From    string `yaml:"from"`
}

type ExportConfig struct {
	S3Bucket string `yaml:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix"`
}

type NotificationConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type JobsConfig struct {
	Enabled             bool   `yaml:"enabled"`
	RecalculateSchedule string `yaml:"recalculate_schedule"`
}

// Load reads the configuration from path (optional) and applies environment overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Debug(".env file loaded")
	}

	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DB_DIALECT"); v != "" {
		cfg.Database.Dialect = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		cfg.Slack.Token = v
	}
	if v := os.Getenv("SLACK_INFO_CHANNEL"); v != "" {
		cfg.Slack.InfoChannelID = v
	}
	if v := os.Getenv("SLACK_ERROR_CHANNEL"); v != "" {
		cfg.Slack.ErrorChannelID = v
	}
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		cfg.Push.PublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		cfg.Push.PrivateKey = v
	}
	if v := os.Getenv("EXPORT_S3_BUCKET"); v != "" {
		cfg.Export.S3Bucket = v
	}
	if v, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		cfg.Server.Port = v
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 5
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 10
	}

	if cfg.Database.Dialect == "" {
		cfg.Database.Dialect = "mysql"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.ConnMaxLifetimeMinutes <= 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 5
	}

	if cfg.Auth.CacheTTLSeconds <= 0 {
		cfg.Auth.CacheTTLSeconds = 60
	}
	cfg.Auth.CacheTTL = time.Duration(cfg.Auth.CacheTTLSeconds) * time.Second

	if cfg.Attendance.Timezone == "" {
		cfg.Attendance.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Attendance.Timezone)
	if err != nil {
		return err
	}
	cfg.Attendance.Location = loc
	if cfg.Attendance.StandardDayMinutes <= 0 {
		cfg.Attendance.StandardDayMinutes = 480
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.Export.S3Prefix == "" {
		cfg.Export.S3Prefix = "exports/attendance"
	}

	if cfg.Notification.Workers <= 0 {
		slog.Info("notification.workers is not set or invalid; defaulting to 1")
		cfg.Notification.Workers = 1
	}
	if cfg.Notification.QueueSize <= 0 {
		cfg.Notification.QueueSize = 100
	}

	if cfg.Jobs.RecalculateSchedule == "" {
		cfg.Jobs.RecalculateSchedule = "15 0 * * *"
	}
	return nil
}
