package service

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"loanledger/backend/internal/alarm"
	"loanledger/backend/internal/model"
	"loanledger/backend/internal/repository"
	pkgerrors "loanledger/backend/pkg/errors"
)

// ── Mock ReminderRepository ──

type mockReminderRepo struct {
	mu        sync.Mutex
	reminders map[int64]*model.Reminder
	nextID    int64

	createErr error // 模拟持久化失败
}

func newMockRepository() (*repository.Repository, *mockReminderRepo) {
	m := &mockReminderRepo{reminders: make(map[int64]*model.Reminder), nextID: 1}
	return &repository.Repository{Reminder: m}, m
}

func (m *mockReminderRepo) Create(_ context.Context, r *model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if r.ID == 0 {
		r.ID = m.nextID
		m.nextID++
	} else if r.ID >= m.nextID {
		m.nextID = r.ID + 1
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.reminders[r.ID] = &cp
	return nil
}

func (m *mockReminderRepo) GetByID(_ context.Context, id int64) (*model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reminders[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReminderRepo) List(_ context.Context, offset, limit int) ([]model.Reminder, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Reminder
	for _, r := range m.reminders {
		all = append(all, *r)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockReminderRepo) ListActive(_ context.Context, now time.Time) ([]model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Reminder
	for _, r := range m.reminders {
		if r.Eligible(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReminderRepo) UpdateContent(_ context.Context, r *model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.reminders[r.ID]; ok {
		cur.Type = r.Type
		cur.Title = r.Title
		cur.Description = r.Description
		cur.ScheduledAt = r.ScheduledAt
		cur.Recurrence = r.Recurrence
		cur.UpdatedAt = time.Now()
	}
	return nil
}

func (m *mockReminderRepo) UpdateNotificationID(_ context.Context, id int64, nid int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reminders[id]; ok {
		r.NotificationID = nid
		r.UpdatedAt = time.Now()
	}
	return nil
}

func (m *mockReminderRepo) Reschedule(_ context.Context, id int64, at time.Time, nid int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reminders[id]; ok {
		r.ScheduledAt = at
		r.NotificationID = nid
		r.UpdatedAt = time.Now()
	}
	return nil
}

func (m *mockReminderRepo) MarkCompleted(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reminders[id]; ok && !r.IsCompleted {
		r.IsCompleted = true
		r.UpdatedAt = time.Now()
		return nil
	}
	return pkgerrors.ErrConditionalUpdate
}

func (m *mockReminderRepo) DeleteByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reminders, id)
	return nil
}

func (m *mockReminderRepo) DeleteStaleCompleted(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.reminders {
		if (r.IsCompleted || !r.IsActive) && r.UpdatedAt.Before(before) {
			delete(m.reminders, id)
			n++
		}
	}
	return n, nil
}

// ── Mock TriggerScheduler ──

type fakeTriggerScheduler struct {
	mu      sync.Mutex
	pending map[int32]time.Time
	backups map[int32]time.Time
}

func newFakeTriggerScheduler() *fakeTriggerScheduler {
	return &fakeTriggerScheduler{
		pending: make(map[int32]time.Time),
		backups: make(map[int32]time.Time),
	}
}

func (f *fakeTriggerScheduler) RegisterExactTrigger(_ context.Context, id int32, fireAt time.Time, _ string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[id] = fireAt
	return true
}

func (f *fakeTriggerScheduler) RegisterPersistentBackupTrigger(_ context.Context, id int32, fireAt time.Time, _, _ string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backups[id] = fireAt
	return true
}

func (f *fakeTriggerScheduler) CancelTrigger(_ context.Context, id int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, id)
	delete(f.backups, id)
}

func (f *fakeTriggerScheduler) ListPendingTriggers(_ context.Context) ([]alarm.PendingTrigger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]alarm.PendingTrigger, 0, len(f.pending))
	for id, at := range f.pending {
		out = append(out, alarm.PendingTrigger{ID: id, FireAt: at})
	}
	return out, nil
}

func (f *fakeTriggerScheduler) hasPending(id int32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pending[id]
	return ok
}

// ── Mock PermissionGate ──

type fakeGate struct{}

func (fakeGate) Check(_ context.Context) alarm.Capabilities {
	return alarm.Capabilities{Notification: true, ExactAlarm: true}
}

func (fakeGate) Request(_ context.Context) alarm.Capabilities {
	return alarm.Capabilities{Notification: true, ExactAlarm: true}
}
