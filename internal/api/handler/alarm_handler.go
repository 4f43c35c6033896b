package handler

import (
	"github.com/gin-gonic/gin"

	"loanledger/backend/internal/alarm"
	"loanledger/backend/pkg/response"
)

// AlarmHandler 闹钟子系统 HTTP 处理器
// 暴露权限能力视图与按需校验入口，供前台协作方使用
type AlarmHandler struct {
	gate     alarm.PermissionGate
	vendor   alarm.VendorProfile
	verifier *alarm.Verifier
}

// NewAlarmHandler 创建 AlarmHandler
func NewAlarmHandler(gate alarm.PermissionGate, vendor alarm.VendorProfile, verifier *alarm.Verifier) *AlarmHandler {
	return &AlarmHandler{gate: gate, vendor: vendor, verifier: verifier}
}

// GetPermissions 当前权限能力与厂商画像（含整改指引，供 UI 展示）
// GET /api/v1/alarm/permissions
func (h *AlarmHandler) GetPermissions(c *gin.Context) {
	caps := h.gate.Check(c.Request.Context())
	response.OK(c, gin.H{
		"capabilities": caps,
		"vendor":       h.vendor,
	})
}

// Verify 按需执行一轮调度对账
// POST /api/v1/alarm/verify
// 应用恢复前台时调用，比等待下一个周期节拍收敛更快
func (h *AlarmHandler) Verify(c *gin.Context) {
	repaired, err := h.verifier.RunOnce(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"repaired": repaired})
}
