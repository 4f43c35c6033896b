package alarm

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"loanledger/backend/internal/model"
)

type verifierFixture struct {
	repo  *mockReminderRepo
	trig  *fakeTriggerScheduler
	sched *Scheduler
	v     *Verifier
}

func newVerifierFixture(t *testing.T, retention time.Duration) *verifierFixture {
	t.Helper()
	f := &verifierFixture{
		repo: newMockReminderRepo(),
		trig: newFakeTriggerScheduler(),
	}
	f.sched = NewScheduler(f.trig, grantedGate(), ClassifyVendor("google"), zap.NewNop())
	f.v = NewVerifier(f.repo, f.sched, time.Hour, retention, zap.NewNop())
	return f
}

func (f *verifierFixture) seed(t *testing.T, id int64, fireAt time.Time, register bool) {
	t.Helper()
	r := &model.Reminder{
		ID:             id,
		Type:           model.ReminderTypePaymentDue,
		Title:          "还款提醒",
		ScheduledAt:    fireAt,
		IsActive:       true,
		NotificationID: SafeID(id),
	}
	if err := f.repo.Create(context.Background(), r); err != nil {
		t.Fatalf("写入提醒失败: %v", err)
	}
	if register {
		payload := EncodePayload(r.NotificationID, id, r.Title, "", fireAt)
		f.trig.RegisterExactTrigger(context.Background(), r.NotificationID, fireAt, payload)
	}
}

func TestRunOnceRepairsEvictedTrigger(t *testing.T) {
	f := newVerifierFixture(t, 0)
	ctx := context.Background()
	fireAt := time.Now().Add(time.Hour).Truncate(time.Second)
	f.seed(t, 7, fireAt, true)

	// 模拟平台静默丢弃调度（进程被杀/重启）
	f.trig.evict(7)

	repaired, err := f.v.RunOnce(ctx)
	if err != nil {
		t.Fatalf("对账失败: %v", err)
	}
	if repaired != 1 {
		t.Errorf("repaired = %d, 期望 1", repaired)
	}
	// 按原计划时间补注册，不改变触发时刻
	got, ok := f.trig.pendingFireAt(7)
	if !ok {
		t.Fatal("缺失的触发器未被补注册")
	}
	if !got.Equal(fireAt) {
		t.Errorf("补注册的触发时刻 %v, 期望原计划时间 %v", got, fireAt)
	}
}

func TestRunOnceConvergence(t *testing.T) {
	f := newVerifierFixture(t, 0)
	ctx := context.Background()

	// 5 条应触发提醒，其中 2 条登记缺失
	for i := int64(1); i <= 5; i++ {
		f.seed(t, i, time.Now().Add(time.Duration(i)*time.Hour), true)
	}
	f.trig.evict(2)
	f.trig.evict(4)

	repaired, err := f.v.RunOnce(ctx)
	if err != nil {
		t.Fatalf("对账失败: %v", err)
	}
	if repaired != 2 {
		t.Errorf("repaired = %d, 期望 2", repaired)
	}
	for i := int32(1); i <= 5; i++ {
		if !f.trig.hasPending(i) {
			t.Errorf("对账后触发器 %d 仍缺失", i)
		}
	}

	// 已收敛：再跑一轮不应产生任何补注册
	repaired, err = f.v.RunOnce(ctx)
	if err != nil {
		t.Fatalf("二次对账失败: %v", err)
	}
	if repaired != 0 {
		t.Errorf("收敛后 repaired = %d, 期望 0", repaired)
	}
}

func TestRunOnceSkipsIneligibleRows(t *testing.T) {
	f := newVerifierFixture(t, 0)
	ctx := context.Background()

	// 已完成 / 已停用 / 时刻已过 的行都不参与对账
	completed := &model.Reminder{ID: 1, Type: model.ReminderTypeCustom, Title: "a",
		ScheduledAt: time.Now().Add(time.Hour), IsActive: true, IsCompleted: true}
	inactive := &model.Reminder{ID: 2, Type: model.ReminderTypeCustom, Title: "b",
		ScheduledAt: time.Now().Add(time.Hour), IsActive: false}
	past := &model.Reminder{ID: 3, Type: model.ReminderTypeCustom, Title: "c",
		ScheduledAt: time.Now().Add(-time.Hour), IsActive: true}
	for _, r := range []*model.Reminder{completed, inactive, past} {
		if err := f.repo.Create(ctx, r); err != nil {
			t.Fatalf("写入提醒失败: %v", err)
		}
	}

	repaired, err := f.v.RunOnce(ctx)
	if err != nil {
		t.Fatalf("对账失败: %v", err)
	}
	if repaired != 0 {
		t.Errorf("不合条件的行不应补注册, repaired = %d", repaired)
	}
}

func TestRunOnceUsesSnoozedIDFromRow(t *testing.T) {
	f := newVerifierFixture(t, 0)
	ctx := context.Background()

	// 行内携带稍后提醒标识时，按行内标识对账，而非重新推导原始标识
	r := &model.Reminder{
		ID: 7, Type: model.ReminderTypePaymentDue, Title: "还款提醒",
		ScheduledAt: time.Now().Add(time.Hour), IsActive: true,
		NotificationID: SnoozedID(7),
	}
	if err := f.repo.Create(ctx, r); err != nil {
		t.Fatalf("写入提醒失败: %v", err)
	}

	repaired, err := f.v.RunOnce(ctx)
	if err != nil {
		t.Fatalf("对账失败: %v", err)
	}
	if repaired != 1 {
		t.Fatalf("repaired = %d, 期望 1", repaired)
	}
	if !f.trig.hasPending(1007) {
		t.Error("应按行内稍后提醒标识 1007 补注册")
	}
	if f.trig.hasPending(7) {
		t.Error("不应落回原始标识 7")
	}
}

func TestRunOnceCleansStaleRows(t *testing.T) {
	f := newVerifierFixture(t, time.Hour)
	ctx := context.Background()

	stale := &model.Reminder{ID: 1, Type: model.ReminderTypeCustom, Title: "旧",
		ScheduledAt: time.Now().Add(-48 * time.Hour), IsActive: true, IsCompleted: true}
	if err := f.repo.Create(ctx, stale); err != nil {
		t.Fatalf("写入提醒失败: %v", err)
	}
	// 回拨更新时间使其超过保留期
	f.repo.mu.Lock()
	f.repo.reminders[1].UpdatedAt = time.Now().Add(-2 * time.Hour)
	f.repo.mu.Unlock()

	if _, err := f.v.RunOnce(ctx); err != nil {
		t.Fatalf("对账失败: %v", err)
	}
	if _, err := f.repo.GetByID(ctx, 1); err == nil {
		t.Error("超过保留期的已完成行应被清理")
	}
}

func TestVerifierIntervalFloor(t *testing.T) {
	f := newVerifierFixture(t, 0)
	v := NewVerifier(f.repo, f.sched, time.Minute, 0, zap.NewNop())
	if v.interval != verifierFloor {
		t.Errorf("interval = %v, 平台节拍下限应钳制为 %v", v.interval, verifierFloor)
	}
}
