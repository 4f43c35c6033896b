package handler

import (
	"loanledger/backend/internal/alarm"
	"loanledger/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Reminder *ReminderHandler
	Alarm    *AlarmHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, action *alarm.ActionHandler, verifier *alarm.Verifier, gate alarm.PermissionGate, vendor alarm.VendorProfile) *Handler {
	return &Handler{
		Reminder: NewReminderHandler(svc.Reminder, svc.Calendar, action),
		Alarm:    NewAlarmHandler(gate, vendor, verifier),
	}
}
