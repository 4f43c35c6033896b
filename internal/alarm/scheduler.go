package alarm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// initRun 一次初始化执行的共享结果
// 迟到的调用者等待 done 关闭后读取 err，而不是重新执行初始化
type initRun struct {
	done chan struct{}
	err  error
}

// Scheduler 主闹钟调度器
//
// 负责：向系统闹钟注册/取消精确触发器、权限协商、
// 在激进厂商上联动备份触发器。自身不写提醒表（调用方先持久化后调度）。
type Scheduler struct {
	trig   TriggerScheduler
	gate   PermissionGate
	vendor VendorProfile
	logger *zap.Logger

	initMu  sync.Mutex
	initOK  bool
	current *initRun // 非 nil 表示有初始化在途
}

// NewScheduler 创建主闹钟调度器
func NewScheduler(trig TriggerScheduler, gate PermissionGate, vendor VendorProfile, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		trig:   trig,
		gate:   gate,
		vendor: vendor,
		logger: logger,
	}
}

// Initialize 幂等初始化
//
// 单个在途令牌保护并发重入：首个调用者执行，迟到者等待同一次执行的结果。
// 成功后永久置位；失败后结果交付给本轮所有等待者，下一次调用重新发起。
func (s *Scheduler) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	if s.initOK {
		s.initMu.Unlock()
		return nil
	}
	if run := s.current; run != nil {
		s.initMu.Unlock()
		select {
		case <-run.done:
			return run.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	run := &initRun{done: make(chan struct{})}
	s.current = run
	s.initMu.Unlock()

	run.err = s.doInitialize(ctx)

	s.initMu.Lock()
	s.initOK = run.err == nil
	s.current = nil
	s.initMu.Unlock()
	close(run.done)

	return run.err
}

// doInitialize 一次性环境准备：探测系统闹钟面可达性 + 首轮权限探测
func (s *Scheduler) doInitialize(ctx context.Context) error {
	if _, err := s.trig.ListPendingTriggers(ctx); err != nil {
		return err
	}

	caps := s.gate.Check(ctx)
	s.logger.Info("闹钟调度器初始化完成",
		zap.String("vendor", s.vendor.Name),
		zap.Bool("engage_backup", s.vendor.EngageBackup),
		zap.Bool("notification", caps.Notification),
		zap.Bool("exact_alarm", caps.ExactAlarm),
		zap.Bool("battery_optimization", caps.BatteryOptimization),
	)
	return nil
}

// Schedule 注册主触发器，激进厂商上同时注册备份触发器
//
// 返回 false 的三种情况都是可预期的良性状态，不是错误：
//   - fireAt 不在未来（应用在目标时刻之后才被唤醒，属正常现象）
//   - 即时申请后关键权限仍缺失
//   - 平台拒绝注册
func (s *Scheduler) Schedule(ctx context.Context, notificationID int32, reminderID int64, title, description string, fireAt time.Time) bool {
	if !fireAt.After(time.Now()) {
		s.logger.Debug("计划时间已过，跳过注册",
			zap.Int32("notification_id", notificationID),
			zap.Time("fire_at", fireAt),
		)
		return false
	}

	if err := s.Initialize(ctx); err != nil {
		s.logger.Warn("调度器初始化失败", zap.Error(err))
		return false
	}

	caps := s.gate.Check(ctx)
	if !caps.CriticalGranted() {
		// 即时申请一次；仍缺失则放弃，提示性 UX 归外部协作方
		caps = s.gate.Request(ctx)
		if !caps.CriticalGranted() {
			s.logger.Warn("关键权限缺失，放弃注册",
				zap.Bool("notification", caps.Notification),
				zap.Bool("exact_alarm", caps.ExactAlarm),
			)
			return false
		}
	}

	payload := EncodePayload(notificationID, reminderID, title, description, fireAt)

	if !s.trig.RegisterExactTrigger(ctx, notificationID, fireAt, payload) {
		s.logger.Warn("主触发器注册被拒绝", zap.Int32("notification_id", notificationID))
		return false
	}

	if s.vendor.EngageBackup {
		backupID := BackupID(notificationID)
		if !s.trig.RegisterPersistentBackupTrigger(ctx, backupID, fireAt, EntryBackupFire, payload) {
			// 备份通道失败不影响主通道结果
			s.logger.Warn("备份触发器注册被拒绝", zap.Int32("backup_id", backupID))
		}
	}

	s.logger.Info("触发器注册成功",
		zap.Int32("notification_id", notificationID),
		zap.Int64("reminder_id", reminderID),
		zap.Time("fire_at", fireAt),
	)
	return true
}

// Cancel 取消指定触发器标识的主/备份触发器，尽力而为且幂等
func (s *Scheduler) Cancel(ctx context.Context, notificationID int32) {
	s.trig.CancelTrigger(ctx, notificationID)
	s.trig.CancelTrigger(ctx, BackupID(notificationID))
}

// CancelAll 取消由某个提醒派生的全部触发器
// 覆盖原始标识与稍后提醒标识两个空间（解除时无法得知当前处于哪个空间）
func (s *Scheduler) CancelAll(ctx context.Context, reminderID int64) {
	s.Cancel(ctx, SafeID(reminderID))
	s.Cancel(ctx, SnoozedID(reminderID))
}

// ListPending 列出系统闹钟中存活的主触发器
func (s *Scheduler) ListPending(ctx context.Context) ([]PendingTrigger, error) {
	return s.trig.ListPendingTriggers(ctx)
}
