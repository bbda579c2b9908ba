package tasks_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/edgard/chatdesk/internal/app/tasks"
	"github.com/edgard/chatdesk/internal/config"
	"github.com/edgard/chatdesk/internal/database"
	"github.com/edgard/chatdesk/internal/monitor"
)

type maintenanceStore struct {
	database.Store
	err   error
	calls int
}

func (s *maintenanceStore) RunSQLMaintenance(context.Context) error {
	s.calls++
	return s.err
}

type fakeProber struct {
	entry monitor.Entry
	calls int
}

func (p *fakeProber) Probe(context.Context) monitor.Entry {
	p.calls++
	return p.entry
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		deps tasks.TaskDeps
		want []string
	}{
		{
			name: "all deps",
			deps: tasks.TaskDeps{Logger: discard(), Store: &maintenanceStore{}, Monitor: &fakeProber{}},
			want: []string{config.TaskSQLMaintenance, config.TaskUptimeMonitor},
		},
		{
			name: "no monitor",
			deps: tasks.TaskDeps{Logger: discard(), Store: &maintenanceStore{}},
			want: []string{config.TaskSQLMaintenance},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tasks.RegisterAllTasks(tt.deps)
			if len(got) != len(tt.want) {
				t.Fatalf("RegisterAllTasks() registered %d tasks, want %d", len(got), len(tt.want))
			}
			for _, name := range tt.want {
				if got[name] == nil {
					t.Errorf("task %q not registered", name)
				}
			}
		})
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	store := &maintenanceStore{}
	task := tasks.RegisterAllTasks(tasks.TaskDeps{Logger: discard(), Store: store})[config.TaskSQLMaintenance]
	if err := task(context.Background()); err != nil {
		t.Fatalf("task() error = %v", err)
	}

	store.err = errors.New("database is locked")
	if err := task(context.Background()); !errors.Is(err, store.err) {
		t.Errorf("task() error = %v, want wrapped %v", err, store.err)
	}
	if store.calls != 2 {
		t.Errorf("RunSQLMaintenance calls = %d, want 2", store.calls)
	}
}

func TestUptimeMonitorTask(t *testing.T) {
	t.Parallel()

	for _, status := range []string{monitor.StatusSuccess, monitor.StatusError} {
		t.Run(status, func(t *testing.T) {
			t.Parallel()
			prober := &fakeProber{entry: monitor.Entry{Status: status, URL: "https://example.com"}}
			task := tasks.RegisterAllTasks(tasks.TaskDeps{Logger: discard(), Monitor: prober})[config.TaskUptimeMonitor]
			if err := task(context.Background()); err != nil {
				t.Errorf("task() error = %v, want nil", err)
			}
			if prober.calls != 1 {
				t.Errorf("Probe calls = %d, want 1", prober.calls)
			}
		})
	}
}
