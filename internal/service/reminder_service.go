package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"loanledger/backend/internal/alarm"
	"loanledger/backend/internal/dto"
	"loanledger/backend/internal/model"
	"loanledger/backend/internal/repository"
	pkgerrors "loanledger/backend/pkg/errors"
)

// ── 提醒模块业务错误 ──

var (
	ErrReminderNotFound  = errors.New("提醒不存在")
	ErrReminderCompleted = errors.New("提醒已完成，不可修改")
)

// ReminderService 提醒业务接口
//
// 写路径的固定顺序是"先持久化，后调度"：行先落库，再注册触发器，
// 注册成功后把触发器标识回写到行上。调度失败不回滚持久化 ——
// 返回的 scheduled 标志向调用方暴露降级状态，周期校验随后会补注册。
type ReminderService interface {
	Create(ctx context.Context, req *dto.CreateReminderRequest) (*model.Reminder, bool, error)
	GetByID(ctx context.Context, id int64) (*model.Reminder, error)
	List(ctx context.Context, offset, limit int) ([]model.Reminder, int64, error)
	ListActive(ctx context.Context) ([]model.Reminder, error)
	Update(ctx context.Context, id int64, req *dto.UpdateReminderRequest) (*model.Reminder, bool, error)
	Complete(ctx context.Context, id int64) error
}

type reminderService struct {
	repo   *repository.Repository
	sched  *alarm.Scheduler
	logger *zap.Logger
}

// NewReminderService 创建 ReminderService 实例
func NewReminderService(repo *repository.Repository, sched *alarm.Scheduler, logger *zap.Logger) ReminderService {
	return &reminderService{repo: repo, sched: sched, logger: logger}
}

func (s *reminderService) Create(ctx context.Context, req *dto.CreateReminderRequest) (*model.Reminder, bool, error) {
	reminder := &model.Reminder{
		LoanID:      req.LoanID,
		CustomerID:  req.CustomerID,
		Type:        model.ReminderType(req.Type),
		Title:       req.Title,
		Description: req.Description,
		ScheduledAt: req.ScheduledAt,
		Recurrence:  model.Recurrence(req.Recurrence),
		IsActive:    true,
	}
	if reminder.Type == "" {
		reminder.Type = model.ReminderTypeCustom
	}
	if reminder.Recurrence == "" {
		reminder.Recurrence = model.RecurrenceOnce
	}

	// 1. 持久化
	if err := s.repo.Reminder.Create(ctx, reminder); err != nil {
		s.logger.Error("创建提醒失败", zap.Error(err))
		return nil, false, err
	}

	// 2. 调度（过去的时间返回 false，属正常降级，不是错误）
	scheduled := s.schedule(ctx, reminder)

	return reminder, scheduled, nil
}

// schedule 为提醒注册触发器，并把实际使用的触发器标识回写到行上
func (s *reminderService) schedule(ctx context.Context, reminder *model.Reminder) bool {
	nid := alarm.SafeID(reminder.ID)
	if !s.sched.Schedule(ctx, nid, reminder.ID, reminder.Title, reminder.Description, reminder.ScheduledAt) {
		return false
	}
	if err := s.repo.Reminder.UpdateNotificationID(ctx, reminder.ID, nid); err != nil {
		// 回写失败只影响周期校验的标识推断，不影响本次注册
		s.logger.Warn("回写触发器标识失败", zap.Int64("reminder_id", reminder.ID), zap.Error(err))
	}
	reminder.NotificationID = nid
	return true
}

func (s *reminderService) GetByID(ctx context.Context, id int64) (*model.Reminder, error) {
	reminder, err := s.repo.Reminder.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		s.logger.Error("查询提醒失败", zap.Int64("reminder_id", id), zap.Error(err))
		return nil, err
	}
	return reminder, nil
}

func (s *reminderService) List(ctx context.Context, offset, limit int) ([]model.Reminder, int64, error) {
	return s.repo.Reminder.List(ctx, offset, limit)
}

func (s *reminderService) ListActive(ctx context.Context) ([]model.Reminder, error) {
	return s.repo.Reminder.ListActive(ctx, time.Now())
}

func (s *reminderService) Update(ctx context.Context, id int64, req *dto.UpdateReminderRequest) (*model.Reminder, bool, error) {
	reminder, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if reminder.IsCompleted {
		return nil, false, ErrReminderCompleted
	}

	if req.Type != nil {
		reminder.Type = model.ReminderType(*req.Type)
	}
	if req.Title != nil {
		reminder.Title = *req.Title
	}
	if req.Description != nil {
		reminder.Description = *req.Description
	}
	if req.ScheduledAt != nil {
		reminder.ScheduledAt = *req.ScheduledAt
	}
	if req.Recurrence != nil {
		reminder.Recurrence = model.Recurrence(*req.Recurrence)
	}

	if err := s.repo.Reminder.UpdateContent(ctx, reminder); err != nil {
		s.logger.Error("更新提醒失败", zap.Int64("reminder_id", id), zap.Error(err))
		return nil, false, err
	}

	// 内容或时间变化后触发器重建：旧注册全部取消，再按新状态注册
	s.sched.CancelAll(ctx, id)
	scheduled := s.schedule(ctx, reminder)

	return reminder, scheduled, nil
}

func (s *reminderService) Complete(ctx context.Context, id int64) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Reminder.MarkCompleted(ctx, id); err != nil {
		// 条件更新未命中：读取之后行已被并发完成或删除
		if errors.Is(err, pkgerrors.ErrConditionalUpdate) {
			return ErrReminderCompleted
		}
		s.logger.Error("完成提醒失败", zap.Int64("reminder_id", id), zap.Error(err))
		return err
	}
	// 完成是终态：行保留（由清理通道按保留期删除），触发器全部取消
	s.sched.CancelAll(ctx, id)
	return nil
}
