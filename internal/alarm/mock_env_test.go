package alarm

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"loanledger/backend/internal/model"
	pkgerrors "loanledger/backend/pkg/errors"
)

// ── Mock TriggerScheduler ──

type fakeTriggerEntry struct {
	fireAt  time.Time
	entry   string
	payload string
}

type fakeTriggerScheduler struct {
	mu      sync.Mutex
	pending map[int32]fakeTriggerEntry // 主触发器
	backups map[int32]fakeTriggerEntry // 备份触发器

	rejectRegister bool  // 模拟平台拒绝注册
	listErr        error // 模拟列表读取失败
}

func newFakeTriggerScheduler() *fakeTriggerScheduler {
	return &fakeTriggerScheduler{
		pending: make(map[int32]fakeTriggerEntry),
		backups: make(map[int32]fakeTriggerEntry),
	}
}

func (f *fakeTriggerScheduler) RegisterExactTrigger(_ context.Context, id int32, fireAt time.Time, payload string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectRegister {
		return false
	}
	f.pending[id] = fakeTriggerEntry{fireAt: fireAt, payload: payload}
	return true
}

func (f *fakeTriggerScheduler) RegisterPersistentBackupTrigger(_ context.Context, id int32, fireAt time.Time, entry, payload string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectRegister {
		return false
	}
	f.backups[id] = fakeTriggerEntry{fireAt: fireAt, entry: entry, payload: payload}
	return true
}

func (f *fakeTriggerScheduler) CancelTrigger(_ context.Context, id int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, id)
	delete(f.backups, id)
}

func (f *fakeTriggerScheduler) ListPendingTriggers(_ context.Context) ([]PendingTrigger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]PendingTrigger, 0, len(f.pending))
	for id, e := range f.pending {
		out = append(out, PendingTrigger{ID: id, FireAt: e.fireAt})
	}
	return out, nil
}

// evict 仅从待触发列表移除（模拟平台静默丢弃调度）
func (f *fakeTriggerScheduler) evict(id int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, id)
}

func (f *fakeTriggerScheduler) hasPending(id int32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pending[id]
	return ok
}

func (f *fakeTriggerScheduler) pendingFireAt(id int32) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.pending[id]
	return e.fireAt, ok
}

func (f *fakeTriggerScheduler) hasBackup(id int32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.backups[id]
	return ok
}

// ── Mock PermissionGate ──

type fakeGate struct {
	current     Capabilities
	afterPrompt *Capabilities // Request 后的能力；nil 表示申请无效果
	requests    int
}

func grantedGate() *fakeGate {
	return &fakeGate{current: Capabilities{Notification: true, ExactAlarm: true}}
}

func (g *fakeGate) Check(_ context.Context) Capabilities { return g.current }

func (g *fakeGate) Request(_ context.Context) Capabilities {
	g.requests++
	if g.afterPrompt != nil {
		g.current = *g.afterPrompt
	}
	return g.current
}

// ── Mock 媒体设备 ──

type fakeAudio struct {
	mu     sync.Mutex
	plays  int
	stops  int
	lastGa float64
}

func (a *fakeAudio) Play(gain float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.plays++
	a.lastGa = gain
	return nil
}

func (a *fakeAudio) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
}

type fakeVibrator struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (v *fakeVibrator) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.starts++
	return nil
}

func (v *fakeVibrator) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stops++
}

type fakeWakeLock struct {
	mu       sync.Mutex
	acquired int
	released int
}

func (l *fakeWakeLock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquired++
	return nil
}

func (l *fakeWakeLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released++
}

type fakeRinger struct {
	mu   sync.Mutex
	mode RingerMode
}

func (r *fakeRinger) RingerMode() RingerMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// ── Mock ReminderRepository ──

type mockReminderRepo struct {
	mu        sync.Mutex
	reminders map[int64]*model.Reminder
	nextID    int64
}

func newMockReminderRepo() *mockReminderRepo {
	return &mockReminderRepo{reminders: make(map[int64]*model.Reminder), nextID: 1}
}

func (m *mockReminderRepo) Create(_ context.Context, r *model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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
