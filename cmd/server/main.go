package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"loanledger/backend/config"
	"loanledger/backend/internal/alarm"
	"loanledger/backend/internal/api/handler"
	"loanledger/backend/internal/api/router"
	"loanledger/backend/internal/platform/alarmclock"
	"loanledger/backend/internal/platform/media"
	"loanledger/backend/internal/repository"
	"loanledger/backend/internal/service"
	"loanledger/backend/pkg/database"
	applogger "loanledger/backend/pkg/logger"
	"loanledger/backend/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("manufacturer", cfg.Device.Manufacturer),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（触发器登记表所在，闹钟核心的硬依赖）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}

	// 5. 组装闹钟子系统
	// 分发表在冷启动期间完成入口注册，系统闹钟到点后按入口标识投递
	registry := alarm.NewRegistry(logger)
	clock := alarmclock.New(rdb, registry, alarm.EntryFire, logger)

	repo := repository.NewRepository(db)
	gate := alarm.NewStaticGate(&cfg.Capability)
	vendor := alarm.ClassifyVendor(cfg.Device.Manufacturer)
	device := media.NewDevice(&cfg.Device, logger)
	sound := alarm.NewSoundController(device.Audio(), device.Vibrator(), device, device, cfg.Alarm.VolumeLevel, logger)

	sched := alarm.NewScheduler(clock, gate, vendor, logger)
	bus := alarm.NewBus(rdb, logger)
	action := alarm.NewActionHandler(repo.Reminder, sched, sound, bus, cfg.Alarm.SnoozeDuration, logger)
	presenter := alarm.NewPresenter(action, sound, bus, cfg.Alarm.AutoStop, cfg.Alarm.BypassSilent, logger)
	backup := alarm.NewBackupHandler(clock, presenter, sound, logger)
	verifier := alarm.NewVerifier(repo.Reminder, sched, cfg.Alarm.VerifierInterval, cfg.Alarm.Retention, logger)

	registry.Register(alarm.EntryFire, presenter.HandleFire)
	registry.Register(alarm.EntryBackupFire, backup.HandleBackupFire)
	registry.Register(alarm.EntryVerify, verifier.HandleVerify)

	// 6. 后台循环：系统闹钟触发循环 + 周期校验
	bgCtx, bgCancel := context.WithCancel(context.Background())
	go clock.Run(bgCtx)
	go verifier.Run(bgCtx)

	// 6.1 启动即做一轮对账：进程死亡期间的调度漂移尽快修复
	if _, err := verifier.RunOnce(bgCtx); err != nil {
		logger.Warn("启动对账失败，等待周期节拍重试", zap.Error(err))
	}

	// 7. 依赖注入: Repository → Service → Handler
	svc := service.NewService(repo, sched, logger)
	h := handler.NewHandler(svc, action, verifier, gate, vendor)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, rdb, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止后台循环与响铃会话（响铃停止会释放唤醒锁）
	bgCancel()
	sound.Stop()

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	rdb.Close()

	logger.Info("服务器已关闭")
}
