package alarm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Presenter 通知呈现 — 把已触发的触发器还原为用户可见的提醒
//
// 纯解码/呈现：从自描述载荷重建完整上下文（触发可能发生在与注册方
// 不共享内存的冷启动进程里）。解码失败时停掉铃声后静默作废，
// 绝不让触发上下文崩溃。
//
// 区分三种触发上下文：
//   - 前台点击：解码后发布触发事件，由前台展示全屏提醒
//   - 动作按钮：不展示界面，直接路由到 ActionHandler
//   - 冷启动后台投递：解码、响铃，并把事件重新发布到事件流，
//     前台恢复后据此补展示
type Presenter struct {
	action       *ActionHandler
	sound        *SoundController
	bus          *Bus
	autoStop     time.Duration
	bypassSilent bool
	logger       *zap.Logger
}

// NewPresenter 创建通知呈现器
func NewPresenter(action *ActionHandler, sound *SoundController, bus *Bus, autoStop time.Duration, bypassSilent bool, logger *zap.Logger) *Presenter {
	if autoStop <= 0 {
		autoStop = 60 * time.Second
	}
	return &Presenter{
		action:       action,
		sound:        sound,
		bus:          bus,
		autoStop:     autoStop,
		bypassSilent: bypassSilent,
		logger:       logger,
	}
}

// decode 统一的载荷解码入口：失败即停铃 + 静默作废
func (p *Presenter) decode(raw string) (*Payload, bool) {
	payload, err := DecodePayload(raw)
	if err != nil {
		p.sound.Stop()
		p.logger.Warn("触发器载荷解码失败，本次触发作废", zap.Error(err))
		return nil, false
	}
	return payload, true
}

// HandleForegroundTap 前台点击触发的通知
func (p *Presenter) HandleForegroundTap(ctx context.Context, raw string) {
	payload, ok := p.decode(raw)
	if !ok {
		return
	}
	p.bus.Publish(ctx, Event{
		Type:           EventFired,
		NotificationID: payload.NotificationID,
		Payload:        payload,
	})
}

// HandleAction 通知动作按钮（dismiss/snooze），不展示界面
func (p *Presenter) HandleAction(ctx context.Context, command, raw string) {
	payload, ok := p.decode(raw)
	if !ok {
		return
	}

	switch command {
	case ActionDismiss:
		_ = p.action.Dismiss(ctx, payload.ReminderID)
	case ActionSnooze:
		_ = p.action.Snooze(ctx, payload.ReminderID)
	default:
		p.logger.Warn("未知通知动作命令", zap.String("command", command))
	}
}

// HandleFire 主触发器投递入口 — 注册为 EntryFire
// 冷启动后台上下文：响铃并把事件重新发布到事件流
func (p *Presenter) HandleFire(ctx context.Context, raw string) {
	payload, ok := p.decode(raw)
	if !ok {
		return
	}
	p.PresentNow(ctx, payload)
}

// PresentNow 立即合成一次提醒呈现：响铃 + 发布触发事件
// 备份通道接管时也走这里（尽力而为的即时提醒）
func (p *Presenter) PresentNow(ctx context.Context, payload *Payload) {
	if err := p.sound.Play(p.autoStop, p.bypassSilent); err != nil {
		p.logger.Warn("响铃启动失败，仅保留可视提醒", zap.Error(err))
	}
	p.bus.Publish(ctx, Event{
		Type:           EventFired,
		NotificationID: payload.NotificationID,
		Payload:        payload,
	})
	p.logger.Info("提醒已触发",
		zap.Int32("notification_id", payload.NotificationID),
		zap.Int64("reminder_id", payload.ReminderID),
		zap.String("title", payload.Title),
	)
}
