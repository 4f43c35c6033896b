package alarm

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// 后台入口标识 — 平台回调不能闭包持有活对象，只能按稳定字符串键在冷启动时解析
const (
	EntryFire       = "alarm.fire"        // 主触发器投递
	EntryBackupFire = "alarm.backup_fire" // 备份触发器投递
	EntryVerify     = "alarm.verify"      // 周期校验
)

// 通知动作按钮暴露给系统动作机制的固定命令串
const (
	ActionDismiss = "dismiss_alarm"
	ActionSnooze  = "snooze_alarm"
)

// EntryPoint 自由函数形态的后台入口
// 入口内部绝不向上抛出：调用方（系统闹钟）没有任何上报失败的通道
type EntryPoint func(ctx context.Context, payload string)

// Registry 入口分发表
// 每个执行上下文在冷启动期间完成注册，之后只读
type Registry struct {
	mu      sync.RWMutex
	entries map[string]EntryPoint
	logger  *zap.Logger
}

// NewRegistry 创建入口分发表
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[string]EntryPoint),
		logger:  logger,
	}
}

// Register 登记入口，后注册者覆盖先注册者
func (r *Registry) Register(id string, fn EntryPoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = fn
}

// Dispatch 按标识分发到入口；未注册的标识记日志后丢弃
func (r *Registry) Dispatch(ctx context.Context, id string, payload string) {
	r.mu.RLock()
	fn, ok := r.entries[id]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("收到未注册入口的投递", zap.String("entry", id))
		return
	}

	// 入口故障一律就地吸收（对应系统回调无上报通道的约束）
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("后台入口 panic，已吸收",
				zap.String("entry", id),
				zap.Any("panic", rec),
			)
		}
	}()

	fn(ctx, payload)
}
