package alarm

import (
	"context"
	"time"
)

// PendingTrigger 系统闹钟中一条待触发的登记项
type PendingTrigger struct {
	ID     int32     `json:"id"`
	FireAt time.Time `json:"fire_at"`
}

// TriggerScheduler 系统闹钟调度面 — 外部平台契约
//
// 注册/取消均为布尔语义而非错误语义：注册失败是可预期的可恢复状态
// （权限缺失、平台拒绝），调用方以返回值降级处理；取消未知标识是无害空操作。
type TriggerScheduler interface {
	// RegisterExactTrigger 注册主触发器：精确时刻、绕过低电耗批处理
	RegisterExactTrigger(ctx context.Context, id int32, fireAt time.Time, payload string) bool
	// CancelTrigger 幂等取消，未知或已触发的标识为空操作
	CancelTrigger(ctx context.Context, id int32)
	// ListPendingTriggers 列出当前存活的主触发器
	ListPendingTriggers(ctx context.Context) ([]PendingTrigger, error)
	// RegisterPersistentBackupTrigger 注册备份触发器：落盘持久化，
	// 进程被杀或设备重启后仍会按 entryPoint 指定的入口投递
	RegisterPersistentBackupTrigger(ctx context.Context, id int32, fireAt time.Time, entryPoint string, payload string) bool
}
