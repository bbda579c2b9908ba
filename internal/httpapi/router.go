// Package httpapi exposes the chat store over a local JSON HTTP API.
package httpapi

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgard/chatdesk/internal/chat"
	"github.com/edgard/chatdesk/internal/database"
	"github.com/edgard/chatdesk/internal/logger"
	"github.com/edgard/chatdesk/internal/monitor"
)

// MonitorReader serves uptime results. *monitor.Monitor implements it.
type MonitorReader interface {
	Logs() ([]monitor.Entry, error)
	Stats() (monitor.Stats, error)
}

// Deps are the collaborators of the API handlers.
type Deps struct {
	Store        database.Store
	Chat         *chat.Service
	Monitor      MonitorReader
	Logger       *slog.Logger
	AllowOrigins []string
}

// NewRouter builds the gin engine with middleware and all routes registered.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Chat == nil {
		deps.Chat = chat.NewService(deps.Store, deps.Logger)
	}
	useJSONFieldNames()

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(RequestID())
	r.Use(logger.Middleware(deps.Logger))
	r.Use(Recovery(deps.Logger))
	r.Use(CORS(deps.AllowOrigins))

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	h := &Handler{
		store:   deps.Store,
		chat:    deps.Chat,
		monitor: deps.Monitor,
		logger:  deps.Logger.With("component", "api"),
	}

	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.POST("/conversations", h.ListConversations)
	api.POST("/messages", h.ListMessages)
	api.POST("/send-message", h.SendMessage)
	api.POST("/clear-unread", h.ClearUnread)
	api.POST("/toggle-mute", h.ToggleMute)
	api.POST("/unread/total", h.TotalUnread)

	api.POST("/users", h.ListUsers)
	api.POST("/user/info", h.UserInfo)
	api.POST("/user/add", h.AddUser)
	api.POST("/user/update", h.UpdateUser)
	api.POST("/user/delete", h.DeleteUser)

	api.POST("/bot/send", h.BotSend)

	api.POST("/monitor/logs", h.MonitorLogs)
	api.POST("/monitor/stats", h.MonitorStats)

	return r
}
