package config

import (
	"fmt"
	"github.com/spf13/viper"
)

type Config struct {
	Backend    BackendConfig
	Realtime   RealtimeConfig
	Console    ConsoleConfig
	Logger     LoggerConfig
	MockServer MockServerConfig `mapstructure:"mock_server"`
}

type BackendConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	WorkspaceID string `mapstructure:"workspace_id"`
	Timeout     int    `mapstructure:"timeout"` // 秒
}

type RealtimeConfig struct {
	// 重连间隔（秒），断线后每隔该时间重试一次
	RetryInterval int `mapstructure:"retry_interval"`
	// 单个应用节拍内允许的事件突发上限，超过则按任务合并进度事件
	BurstThreshold int `mapstructure:"burst_threshold"`
}

type ConsoleConfig struct {
	// 日志缓冲区容量，超出后淘汰最旧条目
	LogCapacity int `mapstructure:"log_capacity"`
	// 通知持久化文件路径（尽力而为的本地缓存）
	NotifyPath string `mapstructure:"notify_path"`
	ToastLimit int    `mapstructure:"toast_limit"`
	ToastTTL   int    `mapstructure:"toast_ttl"` // 秒
}

type LoggerConfig struct {
	Mode       string
	Level      string
	Path       string
	MaxSize    int `mapstructure:"max_size"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAge     int `mapstructure:"max_age"`
	Compress   bool
}

type MockServerConfig struct {
	Port   string
	DBPath string `mapstructure:"db_path"`
}

// 全局配置变量
var Cfg *Config

// LoadConfig 从 pkg/config/config.yaml 加载配置
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./pkg/config")
	viper.AddConfigPath(".")

	// 合理的默认值，保证缺省配置下控制台也能运行
	viper.SetDefault("backend.base_url", "http://127.0.0.1:8080")
	viper.SetDefault("backend.timeout", 15)
	viper.SetDefault("realtime.retry_interval", 5)
	viper.SetDefault("realtime.burst_threshold", 50)
	viper.SetDefault("console.log_capacity", 1000)
	viper.SetDefault("console.toast_limit", 5)
	viper.SetDefault("console.toast_ttl", 5)
	viper.SetDefault("console.notify_path", "notifications.json")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	Cfg = &cfg
	return &cfg, nil
}
