package alarm

import (
	"math"
	"testing"
)

func TestSafeID(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		want int32
	}{
		{"普通小 ID", 7, 7},
		{"零值", 0, 0},
		{"负 ID 取绝对值", -42, 42},
		{"恰好 MaxInt32 归零", math.MaxInt32, 0},
		{"超过 int32 区间取模", int64(math.MaxInt32) + 10, 10},
		{"极大 int64", math.MaxInt64, int32(math.MaxInt64 % math.MaxInt32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeID(tt.id)
			if got != tt.want {
				t.Errorf("SafeID(%d) = %d, 期望 %d", tt.id, got, tt.want)
			}
			if got < 0 {
				t.Errorf("SafeID(%d) = %d, 触发器标识必须非负", tt.id, got)
			}
		})
	}
}

func TestSnoozedID(t *testing.T) {
	// ID 7 的稍后提醒触发器标识应为 1007
	if got := SnoozedID(7); got != 1007 {
		t.Errorf("SnoozedID(7) = %d, 期望 1007", got)
	}
	// 稍后提醒标识与原始标识不得相同
	if SnoozedID(7) == SafeID(7) {
		t.Error("稍后提醒标识与原始标识碰撞")
	}
}

func TestBackupIDRoundTrip(t *testing.T) {
	for _, primary := range []int32{0, 1, 7, 1007, 123456, math.MaxInt32 - 1} {
		backup := BackupID(primary)
		if backup == primary {
			t.Errorf("BackupID(%d) 与主标识碰撞", primary)
		}
		if backup < 0 {
			t.Errorf("BackupID(%d) = %d, 标识必须非负", primary, backup)
		}
		if got := PrimaryFromBackup(backup); got != primary {
			t.Errorf("PrimaryFromBackup(BackupID(%d)) = %d, 期望还原主标识", primary, got)
		}
	}
}

func TestBackupIDAvoidsSnoozeSpace(t *testing.T) {
	// 备份偏移远大于稍后提醒偏移：常规 ID 的备份标识不会落进稍后提醒空间
	for id := int64(1); id <= 1000; id++ {
		backup := BackupID(SafeID(id))
		if backup == SnoozedID(id) {
			t.Fatalf("ID %d 的备份标识与稍后提醒标识碰撞", id)
		}
	}
}
