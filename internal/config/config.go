package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// FallbackSessionSecret is used when SESSION_SECRET is unset. Deployments must override it.
const FallbackSessionSecret = "modpanel-insecure-session-secret"

type Config struct {
	DiscordToken string           `yaml:"discord_token"`
	LogLevel     string           `yaml:"log_level"`
	OAuth        OAuthConfig      `yaml:"oauth"`
	Web          WebConfig        `yaml:"web"`
	AutoDelete   AutoDeleteConfig `yaml:"auto_delete"`
}

type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
}

type WebConfig struct {
	Port               int    `yaml:"port"`
	SessionSecret      string `yaml:"session_secret"`
	SessionMaxAgeHours int    `yaml:"session_max_age_hours"`
}

type AutoDeleteConfig struct {
	DelayMilliseconds int `yaml:"delay_ms"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Web: WebConfig{
			Port:               3000,
			SessionSecret:      FallbackSessionSecret,
			SessionMaxAgeHours: 24,
		},
		AutoDelete: AutoDeleteConfig{DelayMilliseconds: 1000},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 3000
	}
	if cfg.Web.SessionMaxAgeHours <= 0 {
		cfg.Web.SessionMaxAgeHours = 24
	}
	if cfg.AutoDelete.DelayMilliseconds < 0 {
		cfg.AutoDelete.DelayMilliseconds = 0
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.OAuth.ClientID = envString("DISCORD_CLIENT_ID", cfg.OAuth.ClientID)
	cfg.OAuth.ClientSecret = envString("DISCORD_CLIENT_SECRET", cfg.OAuth.ClientSecret)
	cfg.OAuth.RedirectURI = envString("DISCORD_REDIRECT_URI", cfg.OAuth.RedirectURI)
	cfg.Web.Port = envInt("PORT", cfg.Web.Port)
	cfg.Web.SessionSecret = envString("SESSION_SECRET", cfg.Web.SessionSecret)
	cfg.Web.SessionMaxAgeHours = envInt("SESSION_MAX_AGE_HOURS", cfg.Web.SessionMaxAgeHours)
	cfg.AutoDelete.DelayMilliseconds = envInt("AUTO_DELETE_DELAY_MS", cfg.AutoDelete.DelayMilliseconds)
}

func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Web.Port)
}

func (c Config) SessionMaxAge() time.Duration {
	return time.Duration(c.Web.SessionMaxAgeHours) * time.Hour
}

func (c Config) DeleteDelay() time.Duration {
	return time.Duration(c.AutoDelete.DelayMilliseconds) * time.Millisecond
}

// UsesFallbackSecret reports whether sessions are signed with the built-in secret.
func (c Config) UsesFallbackSecret() bool {
	return c.Web.SessionSecret == "" || c.Web.SessionSecret == FallbackSessionSecret
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
