package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 1780
	defaultRedisAddr       = "localhost:6379"
	defaultLogLevel        = "info"
	defaultQueueSize       = 1024
	defaultShutdownGrace   = 5
	defaultIdleTimeout     = 30
	defaultJanitorInterval = 60
	defaultMaxCodeAttempts = 100
	defaultMonitorInterval = 30
	defaultDrainTimeout    = 60
)

// Config 服务端配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Lobby     LobbyConfig     `yaml:"lobby"`
}

// ServerConfig 指标服务监听配置
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	MonitorInterval int    `yaml:"monitor_interval"` // 状态日志间隔（秒）
	DrainTimeout    int    `yaml:"drain_timeout"`    // 关闭前等待对局结束的时间（秒）
}

// MonitorIntervalDuration 返回状态日志间隔
func (c *ServerConfig) MonitorIntervalDuration() time.Duration {
	return time.Duration(c.MonitorInterval) * time.Second
}

// DrainTimeoutDuration 返回等待对局结束的时长
func (c *ServerConfig) DrainTimeoutDuration() time.Duration {
	return time.Duration(c.DrainTimeout) * time.Second
}

// Addr 返回监听地址
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// RedisConfig Redis 镜像配置
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string `yaml:"level"`
	File        string `yaml:"file"`
	Development bool   `yaml:"development"`
}

// SchedulerConfig 调度器配置
type SchedulerConfig struct {
	Workers       int `yaml:"workers"`        // 0 表示按 CPU 数自动选择
	QueueSize     int `yaml:"queue_size"`     // 待执行任务队列长度
	ShutdownGrace int `yaml:"shutdown_grace"` // 关闭等待时间（秒）
}

// ShutdownGraceDuration 返回关闭等待时长
func (c *SchedulerConfig) ShutdownGraceDuration() time.Duration {
	return time.Duration(c.ShutdownGrace) * time.Second
}

// LobbyConfig 大厅配置
type LobbyConfig struct {
	IdleTimeout     int `yaml:"idle_timeout"`      // 未开局大厅闲置超时（分钟）
	JanitorInterval int `yaml:"janitor_interval"`  // 清理间隔（秒）
	MaxCodeAttempts int `yaml:"max_code_attempts"` // 生成大厅代码的最大尝试次数
}

// IdleTimeoutDuration 返回闲置超时时长
func (c *LobbyConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Minute
}

// JanitorIntervalDuration 返回清理间隔
func (c *LobbyConfig) JanitorIntervalDuration() time.Duration {
	return time.Duration(c.JanitorInterval) * time.Second
}

// Load 加载配置文件，随后应用默认值与环境变量
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.ApplyEnv()

	return &cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.MonitorInterval == 0 {
		c.Server.MonitorInterval = defaultMonitorInterval
	}
	if c.Server.DrainTimeout == 0 {
		c.Server.DrainTimeout = defaultDrainTimeout
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = defaultRedisAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Scheduler.QueueSize == 0 {
		c.Scheduler.QueueSize = defaultQueueSize
	}
	if c.Scheduler.ShutdownGrace == 0 {
		c.Scheduler.ShutdownGrace = defaultShutdownGrace
	}
	if c.Lobby.IdleTimeout == 0 {
		c.Lobby.IdleTimeout = defaultIdleTimeout
	}
	if c.Lobby.JanitorInterval == 0 {
		c.Lobby.JanitorInterval = defaultJanitorInterval
	}
	if c.Lobby.MaxCodeAttempts == 0 {
		c.Lobby.MaxCodeAttempts = defaultMaxCodeAttempts
	}
}

// ApplyEnv 使用环境变量覆盖配置
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	envInt("SERVER_PORT", &c.Server.Port)
	envInt("SERVER_DRAIN_TIMEOUT", &c.Server.DrainTimeout)

	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		c.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	envInt("REDIS_DB", &c.Redis.DB)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.Log.File = v
	}

	envInt("SCHEDULER_WORKERS", &c.Scheduler.Workers)
	envInt("SCHEDULER_SHUTDOWN_GRACE", &c.Scheduler.ShutdownGrace)
	envInt("LOBBY_IDLE_TIMEOUT", &c.Lobby.IdleTimeout)
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		*dst = n
	}
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
