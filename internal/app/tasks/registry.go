package tasks

import (
	"context"

	"github.com/edgard/chatdesk/internal/config"
)

// ScheduledTaskFunc is the signature of every scheduled task.
// The context is cancelled when the scheduler shuts down.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks builds the task map. Keys match the names under scheduler.tasks in the config.
// Tasks whose dependency is missing are left out.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	if deps.Store != nil {
		tasks[config.TaskSQLMaintenance] = newSQLMaintenanceTask(deps)
	}
	if deps.Monitor != nil {
		tasks[config.TaskUptimeMonitor] = newUptimeMonitorTask(deps)
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
