package alarm

import (
	"context"

	"go.uber.org/zap"
)

// BackupHandler 备份闹钟触发处理
//
// 备份触发器是为激进厂商准备的第二条独立投递通道，落盘持久化、
// 进程被杀与设备重启后仍存活。其入口是自由函数形态（见 dispatch.go）：
// 系统可能在一个从未跑过应用启动代码的进程里调用它。
type BackupHandler struct {
	trig      TriggerScheduler
	presenter *Presenter
	sound     *SoundController
	logger    *zap.Logger
}

// NewBackupHandler 创建备份触发处理器
func NewBackupHandler(trig TriggerScheduler, presenter *Presenter, sound *SoundController, logger *zap.Logger) *BackupHandler {
	return &BackupHandler{
		trig:      trig,
		presenter: presenter,
		sound:     sound,
		logger:    logger,
	}
}

// HandleBackupFire 备份触发入口 — 注册为 EntryBackupFire
//
// 自抑制算法：列出系统当前存活的主触发器，若原主标识仍在列表中，
// 说明主通道尚未投递 —— 取消这条过期的主注册并直接合成一次即时提醒；
// 若主标识已不在列表，说明主通道已投递，本次备份触发静默作废。
//
// 已知未决问题：主触发器"已投递"与"从待触发列表移除"并非原子，两者之间
// 存在一个窗口，主备两路可能各自判定应当提醒，造成重复通知。源设计未消解
// 该竞态（保证语义是"T 时刻或稍后至少一次"），此处保持原样而非擅自修补。
func (b *BackupHandler) HandleBackupFire(ctx context.Context, payload string) {
	// 顶层吸收一切故障：系统调用上下文没有上报失败的通道
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("备份触发处理 panic，已吸收", zap.Any("panic", rec))
		}
	}()

	p, err := DecodePayload(payload)
	if err != nil {
		b.logger.Warn("备份触发载荷解码失败", zap.Error(err))
		return
	}
	primary := p.NotificationID

	pending, err := b.trig.ListPendingTriggers(ctx)
	if err != nil {
		b.logger.Warn("读取待触发列表失败，备份触发作废", zap.Error(err))
		return
	}

	alive := false
	for _, t := range pending {
		if t.ID == primary {
			alive = true
			break
		}
	}

	if !alive {
		// 主通道已投递，备份静默作废
		b.logger.Debug("主触发器已投递，备份触发作废",
			zap.Int32("notification_id", primary),
		)
		return
	}

	// 主通道未投递：清掉过期的主注册，直接合成即时提醒
	b.trig.CancelTrigger(ctx, primary)
	b.logger.Info("主通道未投递，备份通道接管",
		zap.Int32("notification_id", primary),
		zap.Int64("reminder_id", p.ReminderID),
	)
	b.presenter.PresentNow(ctx, p)
}
