package alarmclock

import (
	"context"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"loanledger/backend/internal/alarm"
	"loanledger/backend/pkg/redis"
)

// Redis 键布局
//
//	alarmclock:pending        ZSET  主触发器  member=标识  score=触发时刻(毫秒)
//	alarmclock:backup         ZSET  备份触发器 同上
//	alarmclock:trig:<id>      HASH  payload / entry / fire_at
//
// 登记表整体落在 Redis：触发器在进程被杀、设备重启后依然存在，
// 新进程启动后由触发循环直接从登记表接管，天然具备重启恢复能力。
const (
	keyPending    = "alarmclock:pending"
	keyBackup     = "alarmclock:backup"
	keyTrigPrefix = "alarmclock:trig:"
)

// safetyPoll 兜底轮询间隔：覆盖其他进程直接写登记表的情况
const safetyPoll = 30 * time.Second

// Service 系统闹钟 — alarm.TriggerScheduler 的平台实现
//
// 登记在 Redis，触发靠进程内定时器；到点后按登记的入口标识
// 经分发表投递（入口在每个进程冷启动时注册，见 cmd/*）。
type Service struct {
	rdb      *redis.Client
	registry *alarm.Registry
	logger   *zap.Logger

	primaryEntry string
	wake         chan struct{}
}

// New 创建系统闹钟服务
// primaryEntry 为主触发器的默认投递入口标识
func New(rdb *redis.Client, registry *alarm.Registry, primaryEntry string, logger *zap.Logger) *Service {
	return &Service{
		rdb:          rdb,
		registry:     registry,
		logger:       logger,
		primaryEntry: primaryEntry,
		wake:         make(chan struct{}, 1),
	}
}

var _ alarm.TriggerScheduler = (*Service)(nil)

// ── TriggerScheduler 实现 ──

// RegisterExactTrigger 登记主触发器
func (s *Service) RegisterExactTrigger(ctx context.Context, id int32, fireAt time.Time, payload string) bool {
	return s.register(ctx, keyPending, id, fireAt, s.primaryEntry, payload)
}

// RegisterPersistentBackupTrigger 登记备份触发器（持久化语义由 Redis 承担）
func (s *Service) RegisterPersistentBackupTrigger(ctx context.Context, id int32, fireAt time.Time, entryPoint string, payload string) bool {
	return s.register(ctx, keyBackup, id, fireAt, entryPoint, payload)
}

func (s *Service) register(ctx context.Context, zset string, id int32, fireAt time.Time, entry, payload string) bool {
	member := strconv.FormatInt(int64(id), 10)
	pipe := s.rdb.DB().TxPipeline()
	pipe.ZAdd(ctx, zset, goredis.Z{
		Score:  float64(fireAt.UnixMilli()),
		Member: member,
	})
	pipe.HSet(ctx, keyTrigPrefix+member, map[string]interface{}{
		"payload": payload,
		"entry":   entry,
		"fire_at": fireAt.Format(time.RFC3339Nano),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("触发器登记失败", zap.Int32("id", id), zap.Error(err))
		return false
	}
	s.kick()
	return true
}

// CancelTrigger 幂等取消：未知标识下所有删除都是空操作
func (s *Service) CancelTrigger(ctx context.Context, id int32) {
	member := strconv.FormatInt(int64(id), 10)
	pipe := s.rdb.DB().TxPipeline()
	pipe.ZRem(ctx, keyPending, member)
	pipe.ZRem(ctx, keyBackup, member)
	pipe.Del(ctx, keyTrigPrefix+member)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("触发器取消失败", zap.Int32("id", id), zap.Error(err))
	}
}

// ListPendingTriggers 列出存活的主触发器
func (s *Service) ListPendingTriggers(ctx context.Context) ([]alarm.PendingTrigger, error) {
	entries, err := s.rdb.DB().ZRangeWithScores(ctx, keyPending, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]alarm.PendingTrigger, 0, len(entries))
	for _, e := range entries {
		member, _ := e.Member.(string)
		id, err := strconv.ParseInt(member, 10, 32)
		if err != nil {
			continue
		}
		out = append(out, alarm.PendingTrigger{
			ID:     int32(id),
			FireAt: time.UnixMilli(int64(e.Score)),
		})
	}
	return out, nil
}

// ── 触发循环 ──

// Run 触发循环：睡到最近一个到期时刻，逐条认领并投递；ctx 取消后退出
//
// 到期认领用 ZREM 的返回值仲裁：删除成功者拥有这次投递，
// 多进程同时扫描登记表也不会重复投递同一条。
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("系统闹钟触发循环启动")
	for {
		s.fireDue(ctx)

		wait := s.untilNext(ctx)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("系统闹钟触发循环退出")
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// kick 有新登记时唤醒触发循环重算下一个到期时刻
func (s *Service) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// untilNext 距离下一个到期触发器的时长，空表时退化为兜底轮询间隔
func (s *Service) untilNext(ctx context.Context) time.Duration {
	next := safetyPoll
	for _, zset := range []string{keyPending, keyBackup} {
		entries, err := s.rdb.DB().ZRangeWithScores(ctx, zset, 0, 0).Result()
		if err != nil || len(entries) == 0 {
			continue
		}
		d := time.UnixMilli(int64(entries[0].Score)).Sub(time.Now())
		if d < 0 {
			d = 0
		}
		if d < next {
			next = d
		}
	}
	return next
}

// fireDue 认领并投递所有已到期的触发器
func (s *Service) fireDue(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	for _, zset := range []string{keyPending, keyBackup} {
		members, err := s.rdb.DB().ZRangeByScore(ctx, zset, &goredis.ZRangeBy{
			Min: "-inf", Max: now,
		}).Result()
		if err != nil {
			s.logger.Warn("扫描到期触发器失败", zap.Error(err))
			continue
		}
		for _, member := range members {
			removed, err := s.rdb.DB().ZRem(ctx, zset, member).Result()
			if err != nil || removed == 0 {
				// 已被并发方认领
				continue
			}
			s.deliver(ctx, member)
		}
	}
}

// deliver 读取登记项并经分发表投递，随后清理登记项
func (s *Service) deliver(ctx context.Context, member string) {
	key := keyTrigPrefix + member
	fields, err := s.rdb.DB().HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		s.logger.Warn("触发器登记项缺失，投递作废", zap.String("id", member))
		return
	}
	s.rdb.DB().Del(ctx, key)

	entry := fields["entry"]
	if entry == "" {
		entry = s.primaryEntry
	}
	s.logger.Info("触发器到期投递",
		zap.String("id", member),
		zap.String("entry", entry),
	)
	s.registry.Dispatch(ctx, entry, fields["payload"])
}
