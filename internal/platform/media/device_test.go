package media

import (
	"testing"

	"go.uber.org/zap"

	"loanledger/backend/config"
	"loanledger/backend/internal/alarm"
)

func newTestDevice(mode string) *Device {
	return NewDevice(&config.DeviceConfig{RingerMode: mode}, zap.NewNop())
}

func TestDeviceAudioExclusive(t *testing.T) {
	d := newTestDevice("normal")

	if err := d.Play(0.6); err != nil {
		t.Fatalf("首次播放失败: %v", err)
	}
	if err := d.Play(0.6); err == nil {
		t.Error("音频通道占用中再次播放应报错")
	}
	d.Stop()
	if err := d.Play(0.6); err != nil {
		t.Errorf("停止后应可重新播放: %v", err)
	}
	d.Stop()
	// 重复停止为空操作
	d.Stop()
}

func TestDeviceWakeLockUnderflowCorrected(t *testing.T) {
	d := newTestDevice("normal")

	if err := d.Acquire(); err != nil {
		t.Fatalf("获取唤醒锁失败: %v", err)
	}
	d.Release()
	// 多余的释放纠偏归零，不得变成负计数
	d.Release()
	if err := d.Acquire(); err != nil {
		t.Fatalf("纠偏后获取唤醒锁失败: %v", err)
	}
	if n := d.lockCount.Load(); n != 1 {
		t.Errorf("持有计数 = %d, 期望 1", n)
	}
}

func TestDeviceRingerModeSwitch(t *testing.T) {
	d := newTestDevice("silent")
	if d.RingerMode() != alarm.RingerSilent {
		t.Errorf("初始模式 = %s, 期望 silent", d.RingerMode())
	}
	d.SetRingerMode(alarm.RingerVibrate)
	if d.RingerMode() != alarm.RingerVibrate {
		t.Errorf("切换后模式 = %s, 期望 vibrate", d.RingerMode())
	}
}

func TestDeviceAdaptersSplitChannels(t *testing.T) {
	d := newTestDevice("normal")

	audio := d.Audio()
	vib := d.Vibrator()

	if err := audio.Play(1.0); err != nil {
		t.Fatalf("适配器播放失败: %v", err)
	}
	if err := vib.Start(); err != nil {
		t.Fatalf("适配器振动失败: %v", err)
	}
	// 振动停止不应影响音频通道
	vib.Stop()
	if err := audio.Play(1.0); err == nil {
		t.Error("音频通道应仍被占用")
	}
	audio.Stop()
}
