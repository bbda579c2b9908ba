// Package tasks implements the scheduled background jobs of the chatdesk server.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/chatdesk/internal/config"
	"github.com/edgard/chatdesk/internal/database"
	"github.com/edgard/chatdesk/internal/monitor"
)

// Prober runs one uptime probe and records it.
type Prober interface {
	Probe(ctx context.Context) monitor.Entry
}

// TaskDeps contains the dependencies scheduled tasks may use.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   database.Store
	Monitor Prober
	Config  *config.Config
}
