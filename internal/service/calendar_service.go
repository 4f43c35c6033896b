package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"loanledger/backend/internal/repository"
)

// CalendarService 日历订阅业务接口
//
// 把活动提醒输出为标准 iCalendar (RFC 5545) 订阅源，
// 供外部日历客户端订阅，作为应用内提醒之外的又一条展示通道。
type CalendarService interface {
	// ActiveFeed 生成活动提醒的 ICS 订阅内容
	ActiveFeed(ctx context.Context) (string, error)
}

type calendarService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, logger: logger}
}

// 提醒在日历中的默认展示时长
const calendarEventDuration = 15 * time.Minute

func (s *calendarService) ActiveFeed(ctx context.Context) (string, error) {
	reminders, err := s.repo.Reminder.ListActive(ctx, time.Now())
	if err != nil {
		s.logger.Error("查询活动提醒失败", zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//loanledger//reminders//ZH")

	for i := range reminders {
		r := &reminders[i]
		ev := cal.AddEvent(fmt.Sprintf("reminder-%d@loanledger", r.ID))
		ev.SetCreatedTime(r.CreatedAt)
		ev.SetDtStampTime(r.UpdatedAt)
		ev.SetStartAt(r.ScheduledAt)
		ev.SetEndAt(r.ScheduledAt.Add(calendarEventDuration))
		ev.SetSummary(r.Title)
		if r.Description != "" {
			ev.SetDescription(r.Description)
		}
	}

	return cal.Serialize(), nil
}
