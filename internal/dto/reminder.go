package dto

import "time"

// ── 提醒模块请求 ──

// CreateReminderRequest 创建提醒
type CreateReminderRequest struct {
	LoanID      *int64    `json:"loan_id"     binding:"omitempty,min=1"`
	CustomerID  *int64    `json:"customer_id" binding:"omitempty,min=1"`
	Type        string    `json:"type"        binding:"omitempty,oneof=payment_due follow_up custom"`
	Title       string    `json:"title"       binding:"required,max=200"`
	Description string    `json:"description" binding:"omitempty,max=2000"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Recurrence  string    `json:"recurrence"  binding:"omitempty,oneof=once daily weekly monthly"`
}

// UpdateReminderRequest 更新提醒（nil 字段保持不变）
type UpdateReminderRequest struct {
	Type        *string    `json:"type"        binding:"omitempty,oneof=payment_due follow_up custom"`
	Title       *string    `json:"title"       binding:"omitempty,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Recurrence  *string    `json:"recurrence"  binding:"omitempty,oneof=once daily weekly monthly"`
}
