package alarm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"loanledger/backend/internal/repository"
)

// verifierFloor 周期校验的平台最小节拍
const verifierFloor = 15 * time.Minute

// Verifier 周期校验 — 调度漂移的检测与自愈
//
// 对账算法：把"按持久化状态应当待触发"的提醒集合，与系统闹钟实际登记的
// 待触发集合做差，缺失者重新注册。运行在独立的后台执行上下文中，
// 不继承任何进程内状态，所有句柄由持久化配置重建（见 cmd/verifier）。
//
// 顺带承担清理通道：删除超过保留期的已完成/已停用提醒行。
type Verifier struct {
	repo      repository.ReminderRepository
	sched     *Scheduler
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewVerifier 创建周期校验器
func NewVerifier(repo repository.ReminderRepository, sched *Scheduler, interval, retention time.Duration, logger *zap.Logger) *Verifier {
	if interval < verifierFloor {
		interval = verifierFloor
	}
	return &Verifier{
		repo:      repo,
		sched:     sched,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// RunOnce 执行一轮对账，返回本轮补注册的触发器数
// 应用恢复前台时也会按需调用（比等下一个周期节拍收敛更快）
func (v *Verifier) RunOnce(ctx context.Context) (int, error) {
	now := time.Now()

	pending, err := v.repo.ListActive(ctx, now)
	if err != nil {
		v.logger.Error("校验：读取应触发提醒失败", zap.Error(err))
		return 0, err
	}

	system, err := v.sched.ListPending(ctx)
	if err != nil {
		v.logger.Error("校验：读取系统待触发列表失败", zap.Error(err))
		return 0, err
	}
	registered := make(map[int32]struct{}, len(system))
	for _, t := range system {
		registered[t.ID] = struct{}{}
	}

	repaired := 0
	for i := range pending {
		r := &pending[i]
		nid := r.NotificationID
		if nid == 0 {
			nid = SafeID(r.ID)
		}
		if _, ok := registered[nid]; ok {
			continue
		}
		// 登记缺失（进程被杀/重启/平台静默丢弃），按原计划时间补注册
		if v.sched.Schedule(ctx, nid, r.ID, r.Title, r.Description, r.ScheduledAt) {
			repaired++
			v.logger.Info("校验：补注册缺失触发器",
				zap.Int64("reminder_id", r.ID),
				zap.Int32("notification_id", nid),
				zap.Time("fire_at", r.ScheduledAt),
			)
		}
	}

	if v.retention > 0 {
		removed, err := v.repo.DeleteStaleCompleted(ctx, now.Add(-v.retention))
		if err != nil {
			v.logger.Warn("清理已完成提醒失败", zap.Error(err))
		} else if removed > 0 {
			v.logger.Info("清理已完成提醒", zap.Int64("removed", removed))
		}
	}

	v.logger.Info("校验完成",
		zap.Int("should_pending", len(pending)),
		zap.Int("system_pending", len(system)),
		zap.Int("repaired", repaired),
	)
	return repaired, nil
}

// Run 周期循环，间隔受 15 分钟下限钳制；ctx 取消后退出
func (v *Verifier) Run(ctx context.Context) {
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	v.logger.Info("周期校验启动", zap.Duration("interval", v.interval))
	for {
		select {
		case <-ctx.Done():
			v.logger.Info("周期校验退出")
			return
		case <-ticker.C:
			// 单轮失败只记日志，下一个节拍重试
			_, _ = v.RunOnce(ctx)
		}
	}
}

// HandleVerify 按需校验入口 — 注册为 EntryVerify
func (v *Verifier) HandleVerify(ctx context.Context, _ string) {
	_, _ = v.RunOnce(ctx)
}
