package alarm

import "math"

// 触发器标识空间约定：
//   - 系统闹钟的触发器标识必须落在非负 int32 区间（平台标识空间有界）
//   - 稍后提醒使用 原标识+snoozeIDOffset，数据库 ID 作为关联键不变
//   - 备份触发器使用 主标识+backupIDOffset，偏移量远大于稍后提醒区间，避免碰撞
const (
	snoozeIDOffset int64 = 1000
	backupIDOffset int32 = 1_000_000
)

// SafeID 把任意数据库 ID 规约到非负 int32 触发器标识空间
func SafeID(id int64) int32 {
	v := id % math.MaxInt32
	if v < 0 {
		v = -v
	}
	return int32(v)
}

// SnoozedID 计算稍后提醒使用的触发器标识
func SnoozedID(id int64) int32 {
	return SafeID(id + snoozeIDOffset)
}

// BackupID 由主触发器标识派生备份触发器标识
func BackupID(primary int32) int32 {
	return SafeID(int64(primary) + int64(backupIDOffset))
}

// PrimaryFromBackup 由备份触发器标识还原主触发器标识
// 与 BackupID 互逆（在未发生 int32 回绕的常规区间内）
func PrimaryFromBackup(backup int32) int32 {
	p := backup - backupIDOffset
	if p < 0 {
		p += math.MaxInt32
	}
	return p
}
