// =============================================================================
// 📦 Artiflow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.Load("config.yaml")
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量（ARTIFLOW_ 前缀）
// =============================================================================
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是服务的完整配置结构
type Config struct {
	// Server 服务器配置
	Server ServerConfig `yaml:"server"`

	// Database 数据库配置
	Database DatabaseConfig `yaml:"database"`

	// Assets 模型资源缓存配置
	Assets AssetsConfig `yaml:"assets"`

	// Log 日志配置
	Log LogConfig `yaml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// 监听地址
	Addr string `yaml:"addr"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// 认证代理写入已验证身份的请求头
	IdentityHeader string `yaml:"identity_header"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动: postgres | sqlite
	Driver string `yaml:"driver"`
	// 连接串（sqlite 时为文件路径）
	DSN string `yaml:"dsn"`
}

// AssetsConfig 3D 模型资源缓存配置
type AssetsConfig struct {
	// 本地缓存目录
	Dir string `yaml:"dir"`
	// 对外服务路径前缀
	PublicPrefix string `yaml:"public_prefix"`
	// 代理允许的远端主机名后缀
	AllowedHostSuffix string `yaml:"allowed_host_suffix"`
	// 服务端完成监视器的超时；0 表示禁用
	WatchTimeout time.Duration `yaml:"watch_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 级别: debug, info, warn, error
	Level string `yaml:"level"`
	// 格式: json, console
	Format string `yaml:"format"`
}

// Default 返回默认配置
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    150 * time.Second, // 覆盖二进制下载耗时
			ShutdownTimeout: 30 * time.Second,
			IdentityHeader:  "X-User-ID",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "artiflow.db",
		},
		Assets: AssetsConfig{
			Dir:               "data/models",
			PublicPrefix:      "/api/models",
			AllowedHostSuffix: "meshy.ai",
			WatchTimeout:      10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load 读取 YAML 文件（可不存在）并应用环境变量覆盖。
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if uerr := yaml.Unmarshal(data, &cfg); uerr != nil {
				return cfg, fmt.Errorf("parse config file: %w", uerr)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

// applyEnv 应用 ARTIFLOW_ 前缀的环境变量覆盖。
func applyEnv(cfg *Config) {
	envString("ARTIFLOW_SERVER_ADDR", &cfg.Server.Addr)
	envDuration("ARTIFLOW_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envString("ARTIFLOW_SERVER_IDENTITY_HEADER", &cfg.Server.IdentityHeader)
	envString("ARTIFLOW_DATABASE_DRIVER", &cfg.Database.Driver)
	envString("ARTIFLOW_DATABASE_DSN", &cfg.Database.DSN)
	envString("ARTIFLOW_ASSETS_DIR", &cfg.Assets.Dir)
	envString("ARTIFLOW_ASSETS_ALLOWED_HOST_SUFFIX", &cfg.Assets.AllowedHostSuffix)
	envDuration("ARTIFLOW_ASSETS_WATCH_TIMEOUT", &cfg.Assets.WatchTimeout)
	envString("ARTIFLOW_LOG_LEVEL", &cfg.Log.Level)
	envString("ARTIFLOW_LOG_FORMAT", &cfg.Log.Format)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envDuration(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	// 纯数字按秒解释
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
	}
}

// Validate 检查配置的基本一致性。
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.Assets.Dir == "" {
		return fmt.Errorf("assets dir is required")
	}
	return nil
}
