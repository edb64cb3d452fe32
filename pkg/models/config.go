package models

import "time"

// Config 保存 mcversion 的全局配置，由 internal/config 从默认值、配置文件、环境变量与命令行参数合并得到。
type Config struct {
	RootDir     string        `mapstructure:"root_dir"`     // 数据根目录，默认 ~/.mcversion
	Endpoint    string        `mapstructure:"endpoint"`     // 版本服务地址，例如 http://localhost:15608
	Interval    time.Duration `mapstructure:"interval"`     // 轮询间隔
	KnownFile   string        `mapstructure:"known_file"`   // 已知版本文件，默认 <root>/known_versions.txt
	HTTPTimeout time.Duration `mapstructure:"http_timeout"` // 单次 HTTP 请求超时

	Log       LogConfig       `mapstructure:"log"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Companion CompanionConfig `mapstructure:"companion"`
	Install   InstallConfig   `mapstructure:"install"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // 为空或 console 时输出到终端
}

// NotifyConfig 桌面通知配置。
type NotifyConfig struct {
	AppName string `mapstructure:"app_name"`
}

// CompanionConfig 描述内置版本服务。
type CompanionConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Listen      string        `mapstructure:"listen"`
	ManifestURL string        `mapstructure:"manifest_url"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

// InstallConfig 描述安装器的下载源与安装目标。
type InstallConfig struct {
	DownloadURL string `mapstructure:"download_url"`
	Checksum    string `mapstructure:"checksum"` // 可选的 SHA256
	Dir         string `mapstructure:"dir"`
	BinaryName  string `mapstructure:"binary_name"`
	Autostart   string `mapstructure:"autostart"` // script 或 service
}
