// Package config 按 wfunc-slot-game/internal/config 的方式加载服务配置：
// viper 读取 YAML + 环境变量覆盖 + 热重载，默认值全部显式 SetDefault。
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 是进程启动时加载的全部配置。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Room     RoomConfig     `mapstructure:"room"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig 描述 HTTP/WebSocket 监听参数。
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig 描述房间记录使用的 sqlite 文件。
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RoomConfig 承载房间actor的行为参数。
type RoomConfig struct {
	Grace time.Duration `mapstructure:"grace"`
}

// LogConfig 镜像 internal/logging.Config，便于从 YAML 直接解析。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

var (
	mu  sync.RWMutex
	cfg *Config
	v   *viper.Viper
)

// Load 从 configPath（为空时在 ./config 与当前目录按 config.yaml 查找）
// 加载配置；配置文件缺失时静默回退到默认值。
func Load(configPath string) (*Config, error) {
	v = viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ROOMSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	parsed := &Config{}
	if err := v.Unmarshal(parsed); err != nil {
		return nil, err
	}

	mu.Lock()
	cfg = parsed
	mu.Unlock()

	return parsed, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_buffer_size", 1024)
	v.SetDefault("server.write_buffer_size", 1024)
	v.SetDefault("server.max_message_size", 4096)
	v.SetDefault("server.ping_interval", "54s")
	v.SetDefault("server.pong_timeout", "60s")
	v.SetDefault("server.write_timeout", "10s")

	v.SetDefault("database.path", "data/roomserver.db")

	v.SetDefault("room.grace", "3m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
}

// Get 返回最近一次加载的配置快照；Load 之前调用返回 nil。
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 在配置文件变更时重新解析并回调；必须先调用过 Load。
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}
	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		parsed := &Config{}
		if err := v.Unmarshal(parsed); err != nil {
			return
		}
		mu.Lock()
		cfg = parsed
		mu.Unlock()
		if callback != nil {
			callback(parsed)
		}
	})
}
