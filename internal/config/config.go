package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	OwnerNumber   string         `yaml:"owner_number"`
	BotName       string         `yaml:"bot_name"`
	DataDir       string         `yaml:"data_dir"`
	SessionDBPath string         `yaml:"session_db_path"`
	AuditDBPath   string         `yaml:"audit_db_path"`
	LogLevel      string         `yaml:"log_level"`
	DefaultPrefix string         `yaml:"default_prefix"`
	RetentionDays int            `yaml:"retention_days"`
	Health        HealthConfig   `yaml:"health"`
	Capture       CaptureConfig  `yaml:"capture"`
	Flood         FloodConfig    `yaml:"flood"`
	Chatbot       ChatbotConfig  `yaml:"chatbot"`
	Warnings      WarningsConfig `yaml:"warnings"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type CaptureConfig struct {
	MaxMessages int `yaml:"max_messages"`
}

type FloodConfig struct {
	Messages      int `yaml:"messages"`
	WindowSeconds int `yaml:"window_seconds"`
}

type ChatbotConfig struct {
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Retries        int    `yaml:"retries"`
}

type WarningsConfig struct {
	KickThreshold int `yaml:"kick_threshold"`
}

func DefaultConfig() Config {
	return Config{
		BotName:       "wasentry",
		DataDir:       "data",
		SessionDBPath: "data/session.db",
		AuditDBPath:   "data/audit.db",
		LogLevel:      "info",
		DefaultPrefix: ".",
		RetentionDays: 14,
		Health:        HealthConfig{Enabled: false, Addr: ":8080"},
		Capture:       CaptureConfig{MaxMessages: 2000},
		Flood:         FloodConfig{Messages: 8, WindowSeconds: 10},
		Chatbot:       ChatbotConfig{TimeoutSeconds: 30, Retries: 3},
		Warnings:      WarningsConfig{KickThreshold: 3},
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

	applyEnv(&cfg)
	if cfg.OwnerNumber == "" {
		return Config{}, errors.New("OWNER_NUMBER is required")
	}
	cfg.OwnerNumber = strings.TrimLeft(cfg.OwnerNumber, "+")

	if cfg.Warnings.KickThreshold <= 0 {
		cfg.Warnings.KickThreshold = 3
	}
	if cfg.Capture.MaxMessages <= 0 {
		cfg.Capture.MaxMessages = 2000
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.OwnerNumber = envString("OWNER_NUMBER", cfg.OwnerNumber)
	cfg.BotName = envString("BOT_NAME", cfg.BotName)
	cfg.DataDir = envString("DATA_DIR", cfg.DataDir)
	cfg.SessionDBPath = envString("SESSION_DB_PATH", cfg.SessionDBPath)
	cfg.AuditDBPath = envString("AUDIT_DB_PATH", cfg.AuditDBPath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultPrefix = envString("DEFAULT_PREFIX", cfg.DefaultPrefix)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Capture.MaxMessages = envInt("CAPTURE_MAX_MESSAGES", cfg.Capture.MaxMessages)
	cfg.Flood.Messages = envInt("FLOOD_MESSAGES", cfg.Flood.Messages)
	cfg.Flood.WindowSeconds = envInt("FLOOD_WINDOW_SECONDS", cfg.Flood.WindowSeconds)
	cfg.Chatbot.Endpoint = envString("CHATBOT_ENDPOINT", cfg.Chatbot.Endpoint)
	cfg.Chatbot.TimeoutSeconds = envInt("CHATBOT_TIMEOUT_SECONDS", cfg.Chatbot.TimeoutSeconds)
	cfg.Chatbot.Retries = envInt("CHATBOT_RETRIES", cfg.Chatbot.Retries)
	cfg.Warnings.KickThreshold = envInt("WARN_KICK_THRESHOLD", cfg.Warnings.KickThreshold)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

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

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
