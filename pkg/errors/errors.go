package errors

import "errors"

// ErrConditionalUpdate 条件更新未命中：记录不存在或条件不满足
// 跨进程场景下没有全局锁，所有变更都是按主键的单条条件语句，未命中即表示已被并发方处理
var ErrConditionalUpdate = errors.New("记录不存在或已被其他操作处理")
