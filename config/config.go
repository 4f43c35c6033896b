package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	Alarm      AlarmConfig      `mapstructure:"alarm"`
	Device     DeviceConfig     `mapstructure:"device"`
	Capability CapabilityConfig `mapstructure:"capability"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	BaseURL string     `mapstructure:"base_url"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
// Redis 承担三个职责：闹钟触发器的持久化登记表、跨进程提醒事件通道、接口限流窗口
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AlarmConfig 提醒闹钟核心配置
type AlarmConfig struct {
	SnoozeDuration   time.Duration `mapstructure:"snooze_duration"`   // 稍后提醒的全局延迟（单一全局值，不区分提醒）
	AutoStop         time.Duration `mapstructure:"auto_stop"`         // 响铃自动停止兜底时长
	VolumeLevel      int           `mapstructure:"volume_level"`      // 音量档位 1-5
	BypassSilent     bool          `mapstructure:"bypass_silent"`     // 静音模式下是否仍按闹钟级别响铃
	VerifierInterval time.Duration `mapstructure:"verifier_interval"` // 周期校验间隔，运行时钳制到 15 分钟下限
	Retention        time.Duration `mapstructure:"retention"`         // 已完成提醒的保留时长，超期由清理通道删除
}

// DeviceConfig 设备环境配置
// 厂商名用于判定是否启用备份闹钟通道；铃声模式为设备初始状态
type DeviceConfig struct {
	Manufacturer string `mapstructure:"manufacturer"`
	RingerMode   string `mapstructure:"ringer_mode"` // silent | vibrate | normal
}

// CapabilityConfig 权限能力声明
// 无头部署下没有系统授权弹窗，能力由部署环境静态声明
type CapabilityConfig struct {
	Notification        bool `mapstructure:"notification"`
	ExactAlarm          bool `mapstructure:"exact_alarm"`
	BatteryOptimization bool `mapstructure:"battery_optimization"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "loan_ledger")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("alarm.snooze_duration", "5m")
	v.SetDefault("alarm.auto_stop", "60s")
	v.SetDefault("alarm.volume_level", 4)
	v.SetDefault("alarm.bypass_silent", false)
	v.SetDefault("alarm.verifier_interval", "15m")
	v.SetDefault("alarm.retention", "720h") // 30 天

	v.SetDefault("device.manufacturer", "generic")
	v.SetDefault("device.ringer_mode", "normal")

	v.SetDefault("capability.notification", true)
	v.SetDefault("capability.exact_alarm", true)
	v.SetDefault("capability.battery_optimization", false)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Alarm.VolumeLevel < 1 || c.Alarm.VolumeLevel > 5 {
		return fmt.Errorf("配置校验失败: alarm.volume_level 必须在 1-5 之间")
	}
	if c.Alarm.SnoozeDuration <= 0 {
		return fmt.Errorf("配置校验失败: alarm.snooze_duration 必须为正")
	}
	if c.Alarm.AutoStop <= 0 {
		return fmt.Errorf("配置校验失败: alarm.auto_stop 必须为正")
	}
	switch c.Device.RingerMode {
	case "silent", "vibrate", "normal":
	default:
		return fmt.Errorf("配置校验失败: device.ringer_mode 必须为 silent/vibrate/normal 之一")
	}
	return nil
}
