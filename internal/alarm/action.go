package alarm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"loanledger/backend/internal/repository"
)

// ActionHandler 通知动作处理 — 解除 / 稍后提醒
//
// 两个动作都是"存储变更 ∥ 调度变更"的并发扇出后汇合：二者之间没有顺序约束，
// 不变量只要求两者都被尝试。单边失败分别记日志后接受 —— 可能残留的孤儿触发器
// 是显式容忍的代价，因为触发处理方本就把"提醒行不存在"当作静默空操作。
type ActionHandler struct {
	repo   repository.ReminderRepository
	sched  *Scheduler
	sound  *SoundController
	bus    *Bus
	snooze time.Duration // 全局稍后提醒时长（单一全局值）
	logger *zap.Logger
}

// NewActionHandler 创建通知动作处理器
func NewActionHandler(repo repository.ReminderRepository, sched *Scheduler, sound *SoundController, bus *Bus, snooze time.Duration, logger *zap.Logger) *ActionHandler {
	if snooze <= 0 {
		snooze = 5 * time.Minute
	}
	return &ActionHandler{
		repo:   repo,
		sched:  sched,
		sound:  sound,
		bus:    bus,
		snooze: snooze,
		logger: logger,
	}
}

// Dismiss 解除提醒
//
// 解除即硬删除：行被永久删掉，派生的主/备份触发器全部取消，
// 没有"已解除但保留"的中间状态（存储最小化的刻意取舍）。
func (h *ActionHandler) Dismiss(ctx context.Context, id int64) error {
	h.sound.Stop()

	var g errgroup.Group
	g.Go(func() error {
		if err := h.repo.DeleteByID(ctx, id); err != nil {
			h.logger.Error("解除提醒：删除行失败", zap.Int64("reminder_id", id), zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		// 无法得知当前处于原始还是稍后提醒标识空间，两个空间一并取消
		h.sched.CancelAll(ctx, id)
		return nil
	})
	_ = g.Wait()

	h.publishActive(ctx)
	h.logger.Info("提醒已解除", zap.Int64("reminder_id", id))
	return nil
}

// Snooze 稍后提醒
//
// 新触发时刻 = 当前时刻 + 全局延迟；触发器换用 稍后提醒标识，
// 数据库 ID 作为关联键保持不变。提醒行已不存在时静默放弃
// （与并发解除竞争输掉属正常现象）。
func (h *ActionHandler) Snooze(ctx context.Context, id int64) error {
	h.sound.Stop()

	reminder, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Debug("稍后提醒：行已不存在，放弃", zap.Int64("reminder_id", id))
			return nil
		}
		h.logger.Error("稍后提醒：读取行失败", zap.Int64("reminder_id", id), zap.Error(err))
		return nil
	}

	newTime := time.Now().Add(h.snooze)
	newNID := SnoozedID(id)
	oldNID := reminder.NotificationID
	if oldNID == 0 {
		oldNID = SafeID(id)
	}

	var g errgroup.Group
	g.Go(func() error {
		// 计划时间与触发器标识在一条语句里一起推进
		if err := h.repo.Reschedule(ctx, id, newTime, newNID); err != nil {
			h.logger.Error("稍后提醒：更新行失败", zap.Int64("reminder_id", id), zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		h.sched.Cancel(ctx, oldNID)
		if !h.sched.Schedule(ctx, newNID, id, reminder.Title, reminder.Description, newTime) {
			h.logger.Warn("稍后提醒：新触发器注册失败，等待周期校验修复",
				zap.Int64("reminder_id", id),
				zap.Int32("notification_id", newNID),
			)
		}
		return nil
	})
	_ = g.Wait()

	h.publishActive(ctx)
	h.logger.Info("提醒已延后",
		zap.Int64("reminder_id", id),
		zap.Int32("notification_id", newNID),
		zap.Time("fire_at", newTime),
	)
	return nil
}

// publishActive 动作完成后向订阅者重新发布活动提醒列表
func (h *ActionHandler) publishActive(ctx context.Context) {
	active, err := h.repo.ListActive(ctx, time.Now())
	if err != nil {
		h.logger.Warn("读取活动提醒列表失败", zap.Error(err))
		return
	}
	h.bus.Publish(ctx, Event{Type: EventActiveList, Active: active})
}
