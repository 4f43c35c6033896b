package service

import (
	"go.uber.org/zap"

	"loanledger/backend/internal/alarm"
	"loanledger/backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Reminder ReminderService
	Calendar CalendarService
}

// NewService 创建 Service 聚合
func NewService(repo *repository.Repository, sched *alarm.Scheduler, logger *zap.Logger) *Service {
	return &Service{
		Reminder: NewReminderService(repo, sched, logger),
		Calendar: NewCalendarService(repo, logger),
	}
}
