package tasks

import (
	"context"

	"github.com/edgard/chatdesk/internal/monitor"
)

// newUptimeMonitorTask probes the monitored URL once per run. An unreachable site is
// a recorded outcome, not a task failure.
func newUptimeMonitorTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "uptime_monitor")

	return func(ctx context.Context) error {
		entry := deps.Monitor.Probe(ctx)
		if entry.Status != monitor.StatusSuccess {
			log.WarnContext(ctx, "Monitored site is down",
				"url", entry.URL, "status_code", entry.StatusCode, "error", entry.Error)
			return nil
		}
		log.DebugContext(ctx, "Monitored site is up", "url", entry.URL, "response_ms", entry.ResponseTime)
		return nil
	}
}
