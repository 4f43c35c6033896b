package alarm

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	var gotEntry, gotPayload string
	r.Register(EntryFire, func(_ context.Context, payload string) {
		gotEntry = EntryFire
		gotPayload = payload
	})

	r.Dispatch(context.Background(), EntryFire, "载荷")
	if gotEntry != EntryFire || gotPayload != "载荷" {
		t.Errorf("分发结果不匹配: entry=%q payload=%q", gotEntry, gotPayload)
	}
}

func TestRegistryDispatchUnknownEntry(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	// 未注册的标识只记日志，不得 panic
	r.Dispatch(context.Background(), "alarm.unknown", "载荷")
}

func TestRegistryAbsorbsPanic(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(EntryFire, func(_ context.Context, _ string) {
		panic("入口故障")
	})
	// 系统回调没有上报失败的通道，panic 必须就地吸收
	r.Dispatch(context.Background(), EntryFire, "")
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	var called string
	r.Register(EntryVerify, func(_ context.Context, _ string) { called = "first" })
	r.Register(EntryVerify, func(_ context.Context, _ string) { called = "second" })

	r.Dispatch(context.Background(), EntryVerify, "")
	if called != "second" {
		t.Errorf("后注册者应覆盖先注册者, 实际命中 %q", called)
	}
}
