// Package main is the chatdesk server: the local chat API, its SQLite store and the uptime monitor.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgard/chatdesk/internal/app"
	"github.com/edgard/chatdesk/internal/app/tasks"
	"github.com/edgard/chatdesk/internal/chat"
	"github.com/edgard/chatdesk/internal/config"
	"github.com/edgard/chatdesk/internal/database"
	"github.com/edgard/chatdesk/internal/gemini"
	"github.com/edgard/chatdesk/internal/httpapi"
	"github.com/edgard/chatdesk/internal/logger"
	"github.com/edgard/chatdesk/internal/monitor"
	"github.com/edgard/chatdesk/internal/notify"
	"github.com/edgard/chatdesk/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run builds every component, serves until ctx is cancelled and returns the exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	if cfg.Database.Seed {
		seeded, err := store.EnsureSeed(ctx, database.DefaultSeed())
		if err != nil {
			log.Error("Failed to seed database", "error", err)
			return 1
		}
		if seeded {
			log.Info("Seeded empty database with default users")
		}
	}

	notifier, err := buildNotifier(cfg.Notify, log)
	if err != nil {
		log.Error("Failed to set up notifications", "error", err)
		return 1
	}

	chatOpts := []chat.Option{chat.WithNotifier(notifier)}
	if cfg.Gemini.Enabled {
		gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			log.Error("Failed to initialize Gemini client", "error", err)
			return 1
		}
		chatOpts = append(chatOpts, chat.WithResponder(gemClient, cfg.Gemini.HistoryLimit, cfg.Gemini.Timeout))
		log.Info("Automatic bot replies enabled", "model", cfg.Gemini.ModelName)
	}
	chatService := chat.NewService(store, log, chatOpts...)

	mon := monitor.New(monitor.Options{
		URL:     cfg.Monitor.URL,
		Timeout: cfg.Monitor.Timeout,
		Window:  cfg.Monitor.Window,
	}, monitor.NewFileLog(cfg.Monitor.LogPath, cfg.Monitor.MaxEntries), log)

	router := httpapi.NewRouter(httpapi.Deps{
		Store:        store,
		Chat:         chatService,
		Monitor:      mon,
		Logger:       log,
		AllowOrigins: cfg.HTTP.AllowOrigins,
	})

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}
	if cfg.Monitor.URL != "" {
		tDeps.Monitor = mon
	}
	sched, err := app.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	log.Info("Starting chatdesk", "addr", cfg.HTTP.Addr, "database", cfg.Database.Path)
	if err := app.New(log, cfg.HTTP, router, sched, chatService).Run(ctx); err != nil {
		log.Error("chatdesk stopped due to error", "error", err)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("chatdesk stopped gracefully")
	return 0
}

func buildNotifier(cfg config.NotifyConfig, log *slog.Logger) (notify.Notifier, error) {
	var notifiers notify.Multi
	if cfg.Log {
		notifiers = append(notifiers, notify.NewLogNotifier(log))
	}
	if cfg.Telegram.Enabled {
		tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, telegram.NewNotifier(tg, cfg.Telegram.ChatID, log))
	}
	return notifiers, nil
}
