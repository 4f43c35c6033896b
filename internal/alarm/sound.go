package alarm

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// RingerMode 设备铃声模式
type RingerMode string

const (
	RingerSilent  RingerMode = "silent"
	RingerVibrate RingerMode = "vibrate"
	RingerNormal  RingerMode = "normal"
)

// ── 设备接口 ──

// AudioPlayer 音频播放设备
type AudioPlayer interface {
	Play(gain float64) error
	Stop()
}

// Vibrator 振动设备
type Vibrator interface {
	Start() error
	Stop()
}

// WakeLock 唤醒锁 — 全局唯一共享资源
// Acquire/Release 必须严格配对；SoundController 保证每个播放会话恰好释放一次
type WakeLock interface {
	Acquire() error
	Release()
}

// RingerReader 读取设备当前铃声模式
type RingerReader interface {
	RingerMode() RingerMode
}

// volumeGain 把离散音量档位 1-5 映射为连续增益
func volumeGain(level int) float64 {
	if level < 1 {
		level = 1
	}
	if level > 5 {
		level = 5
	}
	return float64(level) / 5.0
}

// SoundController 铃声/振动控制器
//
// 单一共享的 playing 标志而非按提醒计数：同一时刻只有一个提醒的响铃有意义，
// 已在播放时直接拒绝新会话，比引用计数简单且足够。
type SoundController struct {
	audio  AudioPlayer
	vib    Vibrator
	lock   WakeLock
	ringer RingerReader
	logger *zap.Logger

	volumeLevel int

	mu          sync.Mutex
	playing     bool
	autoStop    *time.Timer
	releaseOnce *sync.Once // 当前会话的唤醒锁释放保护
	audioOn     bool
	vibOn       bool
}

// NewSoundController 创建铃声控制器
func NewSoundController(audio AudioPlayer, vib Vibrator, lock WakeLock, ringer RingerReader, volumeLevel int, logger *zap.Logger) *SoundController {
	return &SoundController{
		audio:       audio,
		vib:         vib,
		lock:        lock,
		ringer:      ringer,
		logger:      logger,
		volumeLevel: volumeLevel,
	}
}

// Play 按铃声模式播放提醒铃声与振动
//
//   - 已在播放：立即返回，不叠加会话
//   - silent：不响不振（可视通知已足够），除非 bypassSilent 走真闹钟级投递
//   - vibrate：仅振动
//   - normal：按音量档位响铃 + 振动
//
// 每个启动成功的会话持有唤醒锁，并挂一个自动停止兜底定时器，
// 防止解除/停止路径永远没被调用。
func (s *SoundController) Play(duration time.Duration, bypassSilent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing {
		return nil
	}

	mode := s.ringer.RingerMode()
	if mode == RingerSilent && !bypassSilent {
		// 静音且非闹钟级：零音频零振动，正常返回
		return nil
	}

	if err := s.lock.Acquire(); err != nil {
		s.logger.Error("获取唤醒锁失败", zap.Error(err))
		return err
	}
	once := &sync.Once{}
	s.releaseOnce = once

	release := func() { once.Do(s.lock.Release) }

	var audioOn, vibOn bool
	switch mode {
	case RingerVibrate:
		if err := s.vib.Start(); err != nil {
			s.logger.Warn("启动振动失败", zap.Error(err))
		} else {
			vibOn = true
		}
	default: // normal，以及 bypassSilent 下的 silent
		gain := volumeGain(s.volumeLevel)
		if err := s.audio.Play(gain); err != nil {
			s.logger.Warn("启动铃声失败", zap.Error(err))
		} else {
			audioOn = true
		}
		if err := s.vib.Start(); err != nil {
			s.logger.Warn("启动振动失败", zap.Error(err))
		} else {
			vibOn = true
		}
	}

	if !audioOn && !vibOn {
		// 任何反馈通道都没起来，不算进入播放态
		release()
		s.releaseOnce = nil
		return nil
	}

	s.playing = true
	s.audioOn = audioOn
	s.vibOn = vibOn
	s.autoStop = time.AfterFunc(duration, s.Stop)

	s.logger.Info("提醒响铃开始",
		zap.String("ringer_mode", string(mode)),
		zap.Bool("audio", audioOn),
		zap.Bool("vibrate", vibOn),
		zap.Duration("auto_stop", duration),
	)
	return nil
}

// Stop 幂等停止：取消兜底定时器、停止音频/振动、恰好释放一次唤醒锁
func (s *SoundController) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return
	}

	if s.autoStop != nil {
		s.autoStop.Stop()
		s.autoStop = nil
	}
	if s.audioOn {
		s.audio.Stop()
		s.audioOn = false
	}
	if s.vibOn {
		s.vib.Stop()
		s.vibOn = false
	}
	if s.releaseOnce != nil {
		s.releaseOnce.Do(s.lock.Release)
		s.releaseOnce = nil
	}
	s.playing = false

	s.logger.Info("提醒响铃停止")
}
