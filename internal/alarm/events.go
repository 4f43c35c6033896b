package alarm

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"loanledger/backend/internal/model"
	"loanledger/backend/pkg/redis"
)

// EventChannel 跨进程提醒事件使用的 Redis 频道
const EventChannel = "reminders:events"

// EventType 提醒事件类型
type EventType string

const (
	// EventFired 触发器已投递，前台应展示全屏提醒
	EventFired EventType = "reminder.fired"
	// EventActiveList 活动提醒列表已变化（解除/稍后提醒之后重新发布）
	EventActiveList EventType = "reminder.active_list"
)

// Event 提醒事件
type Event struct {
	Type           EventType        `json:"type"`
	NotificationID int32            `json:"notification_id,omitempty"`
	Payload        *Payload         `json:"payload,omitempty"`
	Active         []model.Reminder `json:"active,omitempty"`
}

// Bus 提醒事件总线
//
// 进程内：非阻塞扇出到所有订阅者（慢订阅者丢消息，不反压触发路径）。
// 跨进程：冷启动的后台上下文投递的事件同时发布到 Redis 频道，
// 前台进程恢复后据此补展示全屏提醒。
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int

	rdb    *redis.Client // 可为 nil：纯进程内模式（测试、verifier 单次运行）
	logger *zap.Logger
}

// NewBus 创建事件总线；rdb 传 nil 时仅做进程内扇出
func NewBus(rdb *redis.Client, logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]chan Event),
		rdb:    rdb,
		logger: logger,
	}
}

// Subscribe 订阅事件，返回只读通道与退订函数
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 16)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish 发布事件到进程内订阅者与跨进程频道
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// 订阅者积压时丢弃，触发路径不等待
		}
	}
	b.mu.RUnlock()

	if b.rdb == nil {
		return
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("事件序列化失败", zap.Error(err))
		return
	}
	if err := b.rdb.Publish(ctx, EventChannel, string(raw)); err != nil {
		// 跨进程通道故障不影响进程内投递
		b.logger.Warn("跨进程事件发布失败", zap.Error(err))
	}
}
