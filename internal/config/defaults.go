package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Task names known to the scheduler.
const (
	TaskSQLMaintenance = "sql_maintenance"
	TaskUptimeMonitor  = "uptime_monitor"
)

const (
	DefaultHTTPAddr          = "127.0.0.1:38765"
	DefaultMonitorURL        = "https://nodeapi.yunser.com/"
	DefaultMonitorTimeout    = 10 * time.Second
	DefaultMonitorMaxEntries = 1000
	DefaultMonitorWindow     = 24 * time.Hour
	DefaultGeminiModel       = "gemini-2.0-flash"
)

// dataDir is ~/.chat-electron, shared with the desktop shell.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chat-electron"
	}
	return filepath.Join(home, ".chat-electron")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("http.allow_origins", []string{"*"})

	v.SetDefault("database.path", filepath.Join(dataDir(), "data.db"))
	v.SetDefault("database.seed", true)

	v.SetDefault("scheduler.tasks."+TaskSQLMaintenance+".enabled", true)
	v.SetDefault("scheduler.tasks."+TaskSQLMaintenance+".schedule", "0 4 * * *")
	v.SetDefault("scheduler.tasks."+TaskUptimeMonitor+".enabled", true)
	v.SetDefault("scheduler.tasks."+TaskUptimeMonitor+".schedule", "* * * * *")
	v.SetDefault("scheduler.tasks."+TaskUptimeMonitor+".run_on_start", true)

	v.SetDefault("monitor.url", DefaultMonitorURL)
	v.SetDefault("monitor.log_path", filepath.Join(dataDir(), "monitor", "status_log.json"))
	v.SetDefault("monitor.timeout", DefaultMonitorTimeout)
	v.SetDefault("monitor.max_entries", DefaultMonitorMaxEntries)
	v.SetDefault("monitor.window", DefaultMonitorWindow)

	v.SetDefault("notify.log", true)
	v.SetDefault("notify.telegram.enabled", false)

	v.SetDefault("gemini.enabled", false)
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", 1.0)
	v.SetDefault("gemini.history_limit", 20)
	v.SetDefault("gemini.max_context_tokens", 8000)
	v.SetDefault("gemini.max_retries", 2)
	v.SetDefault("gemini.retry_delay_seconds", 2)
	v.SetDefault("gemini.timeout", 60*time.Second)
}
