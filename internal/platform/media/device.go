package media

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"loanledger/backend/config"
	"loanledger/backend/internal/alarm"
)

// Device 本机媒体设备适配器
//
// 实现 SoundController 依赖的四个设备接口（音频、振动、唤醒锁、铃声模式）。
// 无头部署下没有真实扬声器/马达，播放动作表现为状态位 + 结构化日志，
// 供前端轮询或事件流消费；接口形状与真实硬件适配器一致，可整体替换。
type Device struct {
	logger *zap.Logger

	mu        sync.RWMutex
	mode      alarm.RingerMode
	audioOn   bool
	vibOn     bool
	lockCount atomic.Int32
}

// NewDevice 按设备配置创建适配器
func NewDevice(cfg *config.DeviceConfig, logger *zap.Logger) *Device {
	return &Device{
		logger: logger,
		mode:   alarm.RingerMode(cfg.RingerMode),
	}
}

// ── AudioPlayer ──

func (d *Device) Play(gain float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.audioOn {
		return errors.New("音频通道已占用")
	}
	d.audioOn = true
	d.logger.Info("音频播放开始", zap.Float64("gain", gain))
	return nil
}

func (d *Device) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.audioOn {
		return
	}
	d.audioOn = false
	d.logger.Info("音频播放停止")
}

// ── Vibrator ──

func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vibOn = true
	d.logger.Info("振动开始")
	return nil
}

// StopVibration 停止振动
// 与 AudioPlayer.Stop 同名冲突，SoundController 通过组合包装分别取用
func (d *Device) StopVibration() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.vibOn {
		return
	}
	d.vibOn = false
	d.logger.Info("振动停止")
}

// ── WakeLock ──

func (d *Device) Acquire() error {
	n := d.lockCount.Add(1)
	d.logger.Debug("唤醒锁获取", zap.Int32("held", n))
	return nil
}

func (d *Device) Release() {
	n := d.lockCount.Add(-1)
	if n < 0 {
		// 释放次数超过获取次数属编程错误，纠偏并告警
		d.lockCount.Store(0)
		d.logger.Error("唤醒锁释放次数超过获取次数")
		return
	}
	d.logger.Debug("唤醒锁释放", zap.Int32("held", n))
}

// ── RingerReader ──

func (d *Device) RingerMode() alarm.RingerMode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mode
}

// SetRingerMode 切换铃声模式（测试与运维开关）
func (d *Device) SetRingerMode(mode alarm.RingerMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = mode
}

// ── SoundController 接口适配 ──

// audioAdapter / vibAdapter 把同一台设备拆成 SoundController 需要的两个窄接口
type audioAdapter struct{ d *Device }

func (a audioAdapter) Play(gain float64) error { return a.d.Play(gain) }
func (a audioAdapter) Stop()                   { a.d.Stop() }

type vibAdapter struct{ d *Device }

func (v vibAdapter) Start() error { return v.d.Start() }
func (v vibAdapter) Stop()        { v.d.StopVibration() }

// Audio 返回音频播放接口
func (d *Device) Audio() alarm.AudioPlayer { return audioAdapter{d} }

// Vibrator 返回振动接口
func (d *Device) Vibrator() alarm.Vibrator { return vibAdapter{d} }
