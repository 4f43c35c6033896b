// 周期校验的独立执行上下文。
//
// 由外部调度器（systemd timer / cron，平台节拍下限 15 分钟）拉起，
// 与前台进程不共享任何内存：所有句柄仅从持久化配置重建，
// 执行一轮"应触发 vs 已登记"对账后退出。
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"loanledger/backend/config"
	"loanledger/backend/internal/alarm"
	"loanledger/backend/internal/platform/alarmclock"
	"loanledger/backend/internal/repository"
	"loanledger/backend/pkg/database"
	applogger "loanledger/backend/pkg/logger"
	"loanledger/backend/pkg/redis"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}
	defer rdb.Close()

	// 本上下文只做登记表读写与补注册，不消费投递，分发表保持空表即可
	registry := alarm.NewRegistry(logger)
	clock := alarmclock.New(rdb, registry, alarm.EntryFire, logger)

	repo := repository.NewRepository(db)
	gate := alarm.NewStaticGate(&cfg.Capability)
	vendor := alarm.ClassifyVendor(cfg.Device.Manufacturer)
	sched := alarm.NewScheduler(clock, gate, vendor, logger)
	verifier := alarm.NewVerifier(repo.Reminder, sched, cfg.Alarm.VerifierInterval, cfg.Alarm.Retention, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repaired, err := verifier.RunOnce(ctx)
	if err != nil {
		logger.Error("校验执行失败", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("校验执行完成", zap.Int("repaired", repaired))
}
