package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"loanledger/backend/config"
	"loanledger/backend/internal/api/handler"
	"loanledger/backend/internal/api/middleware"
	"loanledger/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 提醒模块
		reminders := v1.Group("/reminders")
		{
			reminders.POST("", middleware.RateLimit(rdb, 60, time.Minute), h.Reminder.CreateReminder)
			reminders.GET("", h.Reminder.ListReminders)
			reminders.GET("/active", h.Reminder.ListActiveReminders)
			reminders.GET("/calendar.ics", h.Reminder.CalendarFeed)
			reminders.GET("/:id", h.Reminder.GetReminder)
			reminders.PUT("/:id", h.Reminder.UpdateReminder)
			reminders.PUT("/:id/complete", h.Reminder.CompleteReminder)
			reminders.POST("/:id/dismiss", h.Reminder.DismissReminder)
			reminders.POST("/:id/snooze", h.Reminder.SnoozeReminder)
		}

		// 闹钟子系统
		alarm := v1.Group("/alarm")
		{
			alarm.GET("/permissions", h.Alarm.GetPermissions)
			alarm.POST("/verify", h.Alarm.Verify)
		}
	}

	return r
}
