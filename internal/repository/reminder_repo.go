package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"loanledger/backend/internal/model"
	pkgerrors "loanledger/backend/pkg/errors"
)

// ReminderRepository 提醒数据访问接口
//
// 约束：提醒表会被多个互不协调的执行上下文并发访问（前台进程、通知动作处理进程、
// 周期校验进程），没有跨进程锁。因此所有变更都必须是按主键的单条条件语句，
// 禁止跨两次调用的读-改-写。
type ReminderRepository interface {
	Create(ctx context.Context, reminder *model.Reminder) error
	GetByID(ctx context.Context, id int64) (*model.Reminder, error)
	List(ctx context.Context, offset, limit int) ([]model.Reminder, int64, error)
	// ListActive 返回激活、未完成、计划时间在 now 之后的提醒
	ListActive(ctx context.Context, now time.Time) ([]model.Reminder, error)
	// UpdateContent 更新展示文本与计划时间（单条语句）
	UpdateContent(ctx context.Context, reminder *model.Reminder) error
	// UpdateNotificationID 记录最近一次使用的触发器标识
	UpdateNotificationID(ctx context.Context, id int64, notificationID int32) error
	// Reschedule 稍后提醒：一条语句同时推进计划时间并换用新触发器标识
	Reschedule(ctx context.Context, id int64, scheduledAt time.Time, notificationID int32) error
	// MarkCompleted 置为已完成（行保留，由清理通道删除）
	// 行不存在或已完成时返回 pkg/errors.ErrConditionalUpdate
	MarkCompleted(ctx context.Context, id int64) error
	// DeleteByID 硬删除（解除提醒即永久删除，无"已解除但保留"状态）
	DeleteByID(ctx context.Context, id int64) error
	// DeleteStaleCompleted 清理通道：删除在 before 之前更新过的已完成/已停用行
	DeleteStaleCompleted(ctx context.Context, before time.Time) (int64, error)
}

// ── Reminder Repository 实现 ──

type reminderRepo struct {
	db *gorm.DB
}

// NewReminderRepo 创建 ReminderRepository 实例
func NewReminderRepo(db *gorm.DB) ReminderRepository {
	return &reminderRepo{db: db}
}

func (r *reminderRepo) Create(ctx context.Context, reminder *model.Reminder) error {
	return r.db.WithContext(ctx).Create(reminder).Error
}

func (r *reminderRepo) GetByID(ctx context.Context, id int64) (*model.Reminder, error) {
	var reminder model.Reminder
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&reminder).Error
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (r *reminderRepo) List(ctx context.Context, offset, limit int) ([]model.Reminder, int64, error) {
	var reminders []model.Reminder
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Reminder{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("scheduled_at ASC").
		Find(&reminders).Error
	return reminders, total, err
}

func (r *reminderRepo) ListActive(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND is_completed = ? AND scheduled_at > ?", true, false, now).
		Order("scheduled_at ASC").
		Find(&reminders).Error
	return reminders, err
}

func (r *reminderRepo) UpdateContent(ctx context.Context, reminder *model.Reminder) error {
	return r.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("id = ?", reminder.ID).
		Updates(map[string]interface{}{
			"type":         reminder.Type,
			"title":        reminder.Title,
			"description":  reminder.Description,
			"scheduled_at": reminder.ScheduledAt,
			"recurrence":   reminder.Recurrence,
			"updated_at":   time.Now(),
		}).Error
}

func (r *reminderRepo) UpdateNotificationID(ctx context.Context, id int64, notificationID int32) error {
	return r.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"notification_id": notificationID,
			"updated_at":      time.Now(),
		}).Error
}

func (r *reminderRepo) Reschedule(ctx context.Context, id int64, scheduledAt time.Time, notificationID int32) error {
	return r.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"scheduled_at":    scheduledAt,
			"notification_id": notificationID,
			"updated_at":      time.Now(),
		}).Error
}

func (r *reminderRepo) MarkCompleted(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]interface{}{
			"is_completed": true,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrConditionalUpdate
	}
	return nil
}

func (r *reminderRepo) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Reminder{}).Error
}

func (r *reminderRepo) DeleteStaleCompleted(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("(is_completed = ? OR is_active = ?) AND updated_at < ?", true, false, before).
		Delete(&model.Reminder{})
	return result.RowsAffected, result.Error
}
