package alarm

import (
	"context"

	"loanledger/backend/config"
)

// Capabilities 权限能力快照
type Capabilities struct {
	Notification        bool `json:"notification"`
	ExactAlarm          bool `json:"exact_alarm"`
	BatteryOptimization bool `json:"battery_optimization"`
}

// CriticalGranted 通知与精确闹钟是调度的硬前提；电池豁免只影响投递质量
func (c Capabilities) CriticalGranted() bool {
	return c.Notification && c.ExactAlarm
}

// PermissionGate 权限闸口
// Check 返回当前能力；Request 发起即时申请并返回申请后的能力
// （申请可能挂起等待用户交互，因此带 context）
type PermissionGate interface {
	Check(ctx context.Context) Capabilities
	Request(ctx context.Context) Capabilities
}

// ── 配置声明式实现 ──

// staticGate 由部署配置静态声明能力
// 无头部署没有系统授权弹窗，Request 与 Check 等价；提示性 UX 归外部协作方
type staticGate struct {
	caps Capabilities
}

// NewStaticGate 创建配置声明式权限闸口
func NewStaticGate(cfg *config.CapabilityConfig) PermissionGate {
	return &staticGate{caps: Capabilities{
		Notification:        cfg.Notification,
		ExactAlarm:          cfg.ExactAlarm,
		BatteryOptimization: cfg.BatteryOptimization,
	}}
}

func (g *staticGate) Check(_ context.Context) Capabilities   { return g.caps }
func (g *staticGate) Request(_ context.Context) Capabilities { return g.caps }
