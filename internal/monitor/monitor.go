// Package monitor probes a URL on a schedule and keeps a rolling uptime log.
package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// Probe outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Entry is one probe result. ResponseTime is in milliseconds.
type Entry struct {
	Timestamp    time.Time `json:"timestamp"`
	URL          string    `json:"url"`
	Status       string    `json:"status"`
	StatusCode   int       `json:"statusCode,omitempty"`
	ResponseTime int64     `json:"responseTime"`
	Error        string    `json:"error,omitempty"`
}

// Stats aggregates the entries inside the reporting window.
// Uptime is a percentage formatted with two decimals.
type Stats struct {
	Total           int    `json:"total"`
	Successful      int    `json:"successful"`
	Failed          int    `json:"failed"`
	Uptime          string `json:"uptime"`
	AvgResponseTime int64  `json:"avgResponseTime"`
}

// Options configures a Monitor.
type Options struct {
	URL     string
	Timeout time.Duration
	Window  time.Duration
	Client  *http.Client
	Now     func() time.Time
}

// Monitor runs probes and answers log and stats queries.
type Monitor struct {
	url     string
	client  *http.Client
	timeout time.Duration
	window  time.Duration
	now     func() time.Time
	log     *FileLog
	logger  *slog.Logger
}

// New creates a monitor writing to log.
func New(opts Options, log *FileLog, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Window <= 0 {
		opts.Window = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Monitor{
		url:     opts.URL,
		client:  client,
		timeout: opts.Timeout,
		window:  opts.Window,
		now:     opts.Now,
		log:     log,
		logger:  logger.With("component", "monitor"),
	}
}

// Probe requests the URL once, records the result and returns it.
// Any HTTP status is a completed probe; only 2xx counts as success.
func (m *Monitor) Probe(ctx context.Context) Entry {
	start := m.now()
	entry := Entry{Timestamp: start.UTC(), URL: m.url}

	statusCode, err := m.get(ctx)
	entry.ResponseTime = m.now().Sub(start).Milliseconds()
	switch {
	case err != nil:
		entry.Status = StatusError
		entry.Error = err.Error()
		m.logger.WarnContext(ctx, "Probe failed", "url", m.url, "error", err, "response_ms", entry.ResponseTime)
	default:
		entry.StatusCode = statusCode
		entry.Status = StatusError
		if statusCode >= 200 && statusCode < 300 {
			entry.Status = StatusSuccess
		}
		m.logger.InfoContext(ctx, "Probe finished", "url", m.url, "status_code", statusCode, "response_ms", entry.ResponseTime)
	}

	if err := m.log.Append(entry); err != nil {
		m.logger.ErrorContext(ctx, "Failed to record probe", "path", m.log.Path(), "error", err)
	}
	return entry
}

func (m *Monitor) get(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Logs returns the entries recorded within the window, oldest first.
func (m *Monitor) Logs() ([]Entry, error) {
	entries, err := m.log.Read()
	if err != nil {
		return nil, err
	}
	return m.recent(entries), nil
}

// Stats summarizes the entries recorded within the window.
func (m *Monitor) Stats() (Stats, error) {
	entries, err := m.Logs()
	if err != nil {
		return Stats{}, err
	}
	return Summarize(entries), nil
}

func (m *Monitor) recent(entries []Entry) []Entry {
	cutoff := m.now().Add(-m.window)
	recent := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			recent = append(recent, e)
		}
	}
	return recent
}

// Summarize computes counts, uptime and the rounded mean response time of entries.
func Summarize(entries []Entry) Stats {
	stats := Stats{Total: len(entries), Uptime: "0.00"}
	var totalMs int64
	for _, e := range entries {
		switch e.Status {
		case StatusSuccess:
			stats.Successful++
		case StatusError:
			stats.Failed++
		}
		totalMs += e.ResponseTime
	}
	if stats.Total > 0 {
		stats.Uptime = fmt.Sprintf("%.2f", float64(stats.Successful)/float64(stats.Total)*100)
		stats.AvgResponseTime = int64(math.Round(float64(totalMs) / float64(stats.Total)))
	}
	return stats
}
