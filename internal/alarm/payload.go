package alarm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Payload 触发器自描述载荷 — 跨进程边界契约
//
// 接收触发的执行上下文可能是冷启动的新进程，与注册方不共享任何内存，
// 因此载荷必须携带重建完整上下文所需的全部字段。
//
// v2 为带版本号的结构化编码（JSON），取代早期的竖线分隔字符串：
// 分隔符编码在标题/描述含 "|" 时会错位，结构化编码彻底消除该风险。
// 解码侧仍接受 v1 格式，用于消化升级时仍在途的旧触发器。
type Payload struct {
	Version        int       `json:"v"`
	NotificationID int32     `json:"nid"`  // 触发器标识
	ReminderID     int64     `json:"rid"`  // 数据库主键（关联键）
	Title          string    `json:"title"`
	Description    string    `json:"desc"`
	ScheduledAt    time.Time `json:"at"`
}

const payloadVersion = 2

// legacyFieldCount v1 格式固定五段：nid|rid|title|desc|iso 时间戳
const legacyFieldCount = 5

// ErrPayloadInvalid 载荷无法解码
var ErrPayloadInvalid = errors.New("触发器载荷格式无效")

// EncodePayload 编码为 v2 载荷
func EncodePayload(notificationID int32, reminderID int64, title, description string, scheduledAt time.Time) string {
	p := Payload{
		Version:        payloadVersion,
		NotificationID: notificationID,
		ReminderID:     reminderID,
		Title:          title,
		Description:    description,
		ScheduledAt:    scheduledAt,
	}
	// 字段全部为可序列化的基础类型，Marshal 不会失败
	b, _ := json.Marshal(p)
	return string(b)
}

// DecodePayload 解码触发器载荷，v2 优先，退回 v1 分隔串
func DecodePayload(raw string) (*Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrPayloadInvalid
	}

	if strings.HasPrefix(raw, "{") {
		var p Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
		}
		if p.Version != payloadVersion || p.ReminderID <= 0 {
			return nil, ErrPayloadInvalid
		}
		return &p, nil
	}

	return decodeLegacyPayload(raw)
}

// decodeLegacyPayload 解析 v1 五段分隔串
// SplitN 保证描述段之后的时间戳独立成段；标题/描述本身含分隔符的旧载荷无法挽救，
// 按解码失败处理（触发侧对解码失败静默降级，不会崩溃）
func decodeLegacyPayload(raw string) (*Payload, error) {
	parts := strings.SplitN(raw, "|", legacyFieldCount)
	if len(parts) != legacyFieldCount {
		return nil, ErrPayloadInvalid
	}

	nid, err := strconv.ParseInt(parts[0], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: 触发器标识 %q", ErrPayloadInvalid, parts[0])
	}
	rid, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || rid <= 0 {
		return nil, fmt.Errorf("%w: 数据库标识 %q", ErrPayloadInvalid, parts[1])
	}
	at, err := time.Parse(time.RFC3339, parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: 时间戳 %q", ErrPayloadInvalid, parts[4])
	}

	return &Payload{
		Version:        1,
		NotificationID: int32(nid),
		ReminderID:     rid,
		Title:          parts[2],
		Description:    parts[3],
		ScheduledAt:    at,
	}, nil
}
