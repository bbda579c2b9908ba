// Package config loads, defaults and validates the chatdesk configuration.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration wraps every loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config is the root configuration of the chatdesk server.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// HTTPConfig configures the local API server.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
	// Seed populates an empty database with the operator and demo bots.
	Seed bool `mapstructure:"seed"`
}

// SchedulerConfig holds per-task settings keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a scheduled task and sets its cron schedule.
type TaskConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Schedule   string `mapstructure:"schedule"     validate:"required_if=Enabled true"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// MonitorConfig configures the uptime probe.
type MonitorConfig struct {
	URL        string        `mapstructure:"url"         validate:"omitempty,http_url"`
	LogPath    string        `mapstructure:"log_path"`
	Timeout    time.Duration `mapstructure:"timeout"     validate:"gt=0"`
	MaxEntries int           `mapstructure:"max_entries" validate:"gt=0"`
	Window     time.Duration `mapstructure:"window"      validate:"gt=0"`
}

// NotifyConfig selects where bot-message notifications go.
type NotifyConfig struct {
	Log      bool           `mapstructure:"log"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig forwards notifications to a Telegram chat.
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"   validate:"required_if=Enabled true"`
	ChatID  int64  `mapstructure:"chat_id" validate:"required_if=Enabled true"`
}

// GeminiConfig enables automatic bot replies generated by Gemini.
type GeminiConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	APIKey            string        `mapstructure:"api_key"             validate:"required_if=Enabled true"`
	ModelName         string        `mapstructure:"model_name"          validate:"required_if=Enabled true"`
	Temperature       float32       `mapstructure:"temperature"         validate:"min=0,max=2"`
	SystemInstruction string        `mapstructure:"system_instruction"`
	HistoryLimit      int           `mapstructure:"history_limit"       validate:"min=1,max=100"`
	MaxContextTokens  int           `mapstructure:"max_context_tokens"  validate:"min=0"`
	MaxRetries        int           `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" validate:"min=0"`
	Timeout           time.Duration `mapstructure:"timeout"             validate:"gt=0"`
}
