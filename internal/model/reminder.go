package model

import "time"

// ReminderType 提醒类型
type ReminderType string

const (
	ReminderTypePaymentDue ReminderType = "payment_due" // 还款到期
	ReminderTypeFollowUp   ReminderType = "follow_up"   // 客户跟进
	ReminderTypeCustom     ReminderType = "custom"      // 自定义
)

// Valid 校验提醒类型取值
func (t ReminderType) Valid() bool {
	switch t {
	case ReminderTypePaymentDue, ReminderTypeFollowUp, ReminderTypeCustom:
		return true
	}
	return false
}

// Recurrence 重复模式
// 当前仅实现单次触发；重复模式随实体持久化，展开逻辑留待后续迭代
type Recurrence string

const (
	RecurrenceOnce    Recurrence = "once"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// Valid 校验重复模式取值
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceOnce, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Reminder 提醒表 — 对应 reminders
//
// ID 是稳定的持久化标识，创建时分配且永不复用；NotificationID 是最近一次
// 注册到系统闹钟的触发器标识，与 ID 区分开：触发器标识空间有界（非负 int32），
// 且稍后提醒会换用新的触发器标识，而 ID 作为关联键永不变化。
type Reminder struct {
	ID             int64        `gorm:"primaryKey;autoIncrement"              json:"id"`
	LoanID         *int64       `gorm:"index"                                 json:"loan_id,omitempty"`
	CustomerID     *int64       `gorm:"index"                                 json:"customer_id,omitempty"`
	Type           ReminderType `gorm:"type:varchar(20);not null;default:custom" json:"type"`
	Title          string       `gorm:"type:varchar(200);not null"            json:"title"`
	Description    string       `gorm:"type:text;not null;default:''"         json:"description"`
	ScheduledAt    time.Time    `gorm:"not null"                              json:"scheduled_at"`
	Recurrence     Recurrence   `gorm:"type:varchar(10);not null;default:once" json:"recurrence"`
	IsActive       bool         `gorm:"not null;default:true"                 json:"is_active"`
	IsCompleted    bool         `gorm:"not null;default:false"                json:"is_completed"`
	NotificationID int32        `gorm:"not null;default:0"                    json:"notification_id"`
	BaseModel
}

// TableName 指定表名
func (Reminder) TableName() string { return "reminders" }

// Eligible 判断提醒在给定时刻是否具备触发资格
// 资格条件：激活、未完成、且计划时间严格在未来
func (r *Reminder) Eligible(now time.Time) bool {
	return r.IsActive && !r.IsCompleted && r.ScheduledAt.After(now)
}
