package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"loanledger/backend/internal/alarm"
	"loanledger/backend/internal/dto"
	"loanledger/backend/internal/service"
	"loanledger/backend/pkg/response"
)

// ReminderHandler 提醒模块 HTTP 处理器
type ReminderHandler struct {
	reminderSvc service.ReminderService
	calendarSvc service.CalendarService
	action      *alarm.ActionHandler
}

// NewReminderHandler 创建 ReminderHandler
func NewReminderHandler(reminderSvc service.ReminderService, calendarSvc service.CalendarService, action *alarm.ActionHandler) *ReminderHandler {
	return &ReminderHandler{
		reminderSvc: reminderSvc,
		calendarSvc: calendarSvc,
		action:      action,
	}
}

// parseID 解析路径中的提醒 ID
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "提醒ID无效")
		return 0, false
	}
	return id, true
}

// handleReminderError 提醒模块错误到 HTTP 的统一映射
func (h *ReminderHandler) handleReminderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrReminderNotFound):
		response.NotFound(c, 20001, "提醒不存在")
	case errors.Is(err, service.ErrReminderCompleted):
		response.Conflict(c, 20002, "提醒已完成，不可修改")
	default:
		response.InternalError(c)
	}
}

// CreateReminder 创建提醒
// POST /api/v1/reminders
func (h *ReminderHandler) CreateReminder(c *gin.Context) {
	var req dto.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	reminder, scheduled, err := h.reminderSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleReminderError(c, err)
		return
	}

	response.Created(c, gin.H{"reminder": reminder, "scheduled": scheduled})
}

// ListReminders 分页获取提醒列表
// GET /api/v1/reminders
func (h *ReminderHandler) ListReminders(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	reminders, total, err := h.reminderSvc.List(c.Request.Context(), page.GetOffset(), page.GetPageSize())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, reminders, total, page.GetPage(), page.GetPageSize())
}

// ListActiveReminders 获取活动提醒列表
// GET /api/v1/reminders/active
func (h *ReminderHandler) ListActiveReminders(c *gin.Context) {
	reminders, err := h.reminderSvc.ListActive(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": reminders})
}

// GetReminder 获取提醒详情
// GET /api/v1/reminders/:id
func (h *ReminderHandler) GetReminder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	reminder, err := h.reminderSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleReminderError(c, err)
		return
	}

	response.OK(c, reminder)
}

// UpdateReminder 更新提醒
// PUT /api/v1/reminders/:id
func (h *ReminderHandler) UpdateReminder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	reminder, scheduled, err := h.reminderSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleReminderError(c, err)
		return
	}

	response.OK(c, gin.H{"reminder": reminder, "scheduled": scheduled})
}

// CompleteReminder 完成提醒
// PUT /api/v1/reminders/:id/complete
func (h *ReminderHandler) CompleteReminder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.reminderSvc.Complete(c.Request.Context(), id); err != nil {
		h.handleReminderError(c, err)
		return
	}

	response.OK(c, nil)
}

// DismissReminder 解除提醒（硬删除 + 取消全部触发器）
// POST /api/v1/reminders/:id/dismiss
func (h *ReminderHandler) DismissReminder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	// 解除语义是"尽力而为的原子迁移"，单边失败在内部吸收
	_ = h.action.Dismiss(c.Request.Context(), id)
	response.OK(c, nil)
}

// SnoozeReminder 稍后提醒
// POST /api/v1/reminders/:id/snooze
func (h *ReminderHandler) SnoozeReminder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	_ = h.action.Snooze(c.Request.Context(), id)
	response.OK(c, nil)
}

// CalendarFeed 活动提醒的 ICS 日历订阅源
// GET /api/v1/reminders/calendar.ics
func (h *ReminderHandler) CalendarFeed(c *gin.Context) {
	feed, err := h.calendarSvc.ActiveFeed(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="reminders.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}
