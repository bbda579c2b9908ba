package monitor_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edgard/chatdesk/internal/monitor"
)

func newLog(t *testing.T, max int) *monitor.FileLog {
	t.Helper()
	return monitor.NewFileLog(filepath.Join(t.TempDir(), "monitor", "status_log.json"), max)
}

func TestProbeRecordsOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		wantStatus string
	}{
		{"ok", http.StatusOK, monitor.StatusSuccess},
		{"no content", http.StatusNoContent, monitor.StatusSuccess},
		{"not found", http.StatusNotFound, monitor.StatusError},
		{"server error", http.StatusInternalServerError, monitor.StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			log := newLog(t, 10)
			m := monitor.New(monitor.Options{URL: srv.URL, Timeout: time.Second}, log, nil)
			got := m.Probe(context.Background())

			if got.Status != tt.wantStatus || got.StatusCode != tt.status || got.Error != "" || got.URL != srv.URL {
				t.Errorf("Probe() = %+v", got)
			}
			stored, err := log.Read()
			if err != nil || len(stored) != 1 {
				t.Fatalf("Read() = %v, %v", stored, err)
			}
		})
	}
}

func TestProbeUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := monitor.New(monitor.Options{URL: url, Timeout: time.Second}, newLog(t, 10), nil)
	got := m.Probe(context.Background())
	if got.Status != monitor.StatusError || got.StatusCode != 0 || got.Error == "" {
		t.Errorf("Probe() = %+v", got)
	}
}

func TestProbeTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	m := monitor.New(monitor.Options{URL: srv.URL, Timeout: 50 * time.Millisecond}, newLog(t, 10), nil)
	got := m.Probe(context.Background())
	if got.Status != monitor.StatusError || got.Error == "" {
		t.Errorf("Probe() = %+v, want timeout error", got)
	}
}

func TestFileLogCap(t *testing.T) {
	t.Parallel()
	log := newLog(t, 3)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		if err := log.Append(monitor.Entry{Timestamp: base.Add(time.Duration(i) * time.Minute), ResponseTime: int64(i)}); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	entries, err := log.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 || entries[0].ResponseTime != 2 || entries[2].ResponseTime != 4 {
		t.Fatalf("entries = %+v, want the newest three", entries)
	}
}

func TestFileLogRecoversFromCorruptFile(t *testing.T) {
	t.Parallel()
	log := newLog(t, 10)

	if err := os.MkdirAll(filepath.Dir(log.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(log.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := log.Read(); err == nil {
		t.Fatal("Read() of corrupt file error = nil")
	}

	_ = log.Append(monitor.Entry{Status: monitor.StatusSuccess})
	entries, err := log.Read()
	if err != nil || len(entries) != 1 {
		t.Fatalf("after append: %v, %v", entries, err)
	}
}

func TestLogsAndStatsWindow(t *testing.T) {
	t.Parallel()
	log := newLog(t, 100)
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)

	entries := []monitor.Entry{
		{Timestamp: now.Add(-25 * time.Hour), Status: monitor.StatusError, ResponseTime: 9000},
		{Timestamp: now.Add(-2 * time.Hour), Status: monitor.StatusSuccess, ResponseTime: 100},
		{Timestamp: now.Add(-time.Hour), Status: monitor.StatusSuccess, ResponseTime: 201},
		{Timestamp: now.Add(-time.Minute), Status: monitor.StatusError, ResponseTime: 10000},
	}
	for _, e := range entries {
		if err := log.Append(e); err != nil {
			t.Fatal(err)
		}
	}

	m := monitor.New(monitor.Options{URL: "http://example.invalid", Now: func() time.Time { return now }}, log, nil)

	recent, err := m.Logs()
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("Logs() returned %d entries, want 3", len(recent))
	}

	stats, err := m.Stats()
	if err != nil {
		t.Fatal(err)
	}
	want := monitor.Stats{Total: 3, Successful: 2, Failed: 1, Uptime: "66.67", AvgResponseTime: 3434}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	got := monitor.Summarize(nil)
	if got != (monitor.Stats{Uptime: "0.00"}) {
		t.Errorf("Summarize(nil) = %+v", got)
	}
}
