// Package config 从默认值、配置文件、环境变量与命令行参数合并出 models.Config。
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/liangyou/mcversion/internal/autostart"
	"github.com/liangyou/mcversion/internal/companion"
	"github.com/liangyou/mcversion/internal/installer"
	"github.com/liangyou/mcversion/internal/notify"
	"github.com/liangyou/mcversion/internal/remote"
	"github.com/liangyou/mcversion/internal/storage"
	"github.com/liangyou/mcversion/internal/watch"
	"github.com/liangyou/mcversion/pkg/models"
)

const (
	KeyRootDir     = "root_dir"
	KeyEndpoint    = "endpoint"
	KeyInterval    = "interval"
	KeyKnownFile   = "known_file"
	KeyHTTPTimeout = "http_timeout"

	KeyLogLevel = "log.level"
	KeyLogFile  = "log.file"

	KeyNotifyAppName = "notify.app_name"

	KeyCompanionEnabled     = "companion.enabled"
	KeyCompanionListen      = "companion.listen"
	KeyCompanionManifestURL = "companion.manifest_url"
	KeyCompanionCacheTTL    = "companion.cache_ttl"

	KeyInstallDownloadURL = "install.download_url"
	KeyInstallChecksum    = "install.checksum"
	KeyInstallDir         = "install.dir"
	KeyInstallBinaryName  = "install.binary_name"
	KeyInstallAutostart   = "install.autostart"
)

const (
	envPrefix      = "MCVERSION"
	rootDirName    = ".mcversion"
	configFileName = "config.yaml"
)

// flagKeys 把命令行参数名映射到配置键，未注册的参数会被忽略。
var flagKeys = map[string]string{
	"endpoint":     KeyEndpoint,
	"interval":     KeyInterval,
	"known-file":   KeyKnownFile,
	"http-timeout": KeyHTTPTimeout,
	"log-level":    KeyLogLevel,
	"log-file":     KeyLogFile,
	"companion":    KeyCompanionEnabled,
	"listen":       KeyCompanionListen,
	"manifest-url": KeyCompanionManifestURL,
	"download-url": KeyInstallDownloadURL,
	"checksum":     KeyInstallChecksum,
	"dir":          KeyInstallDir,
	"autostart":    KeyInstallAutostart,
}

type loadSettings struct {
	configFile string
	flags      *pflag.FlagSet
	homeFn     func() (string, error)
}

// Option 配置 Load 行为。
type Option func(*loadSettings)

// WithConfigFile 指定配置文件，为空时使用 ~/.mcversion/config.yaml。
func WithConfigFile(path string) Option {
	return func(s *loadSettings) {
		s.configFile = path
	}
}

// WithFlags 绑定命令行参数。
func WithFlags(fs *pflag.FlagSet) Option {
	return func(s *loadSettings) {
		s.flags = fs
	}
}

// WithHomeDir 覆盖用户主目录，主要用于测试。
func WithHomeDir(fn func() (string, error)) Option {
	return func(s *loadSettings) {
		if fn != nil {
			s.homeFn = fn
		}
	}
}

// Load 按 默认值 < 配置文件 < 环境变量 < 命令行参数 的顺序合并配置。
func Load(opts ...Option) (models.Config, error) {
	settings := loadSettings{homeFn: os.UserHomeDir}
	for _, opt := range opts {
		opt(&settings)
	}

	root, err := defaultRootDir(settings.homeFn)
	if err != nil {
		return models.Config{}, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, root)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	configFile := strings.TrimSpace(settings.configFile)
	explicit := configFile != ""
	if !explicit {
		configFile = filepath.Join(root, configFileName)
	}
	if err := mergeConfigFile(v, configFile, explicit); err != nil {
		return models.Config{}, fmt.Errorf("config: load %s: %w", configFile, err)
	}

	if err := bindFlags(v, settings.flags); err != nil {
		return models.Config{}, err
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return models.Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return finalize(cfg), nil
}

// Path 返回默认配置文件路径。
func Path() (string, error) {
	root, err := defaultRootDir(os.UserHomeDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, configFileName), nil
}

func setDefaults(v *viper.Viper, root string) {
	v.SetDefault(KeyRootDir, root)
	v.SetDefault(KeyEndpoint, remote.DefaultEndpoint)
	v.SetDefault(KeyInterval, watch.DefaultInterval)
	v.SetDefault(KeyKnownFile, "")
	v.SetDefault(KeyHTTPTimeout, remote.DefaultTimeout)

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "console")

	v.SetDefault(KeyNotifyAppName, notify.DefaultAppName)

	v.SetDefault(KeyCompanionEnabled, true)
	v.SetDefault(KeyCompanionListen, companion.DefaultListenAddr)
	v.SetDefault(KeyCompanionManifestURL, companion.DefaultManifestURL)
	v.SetDefault(KeyCompanionCacheTTL, companion.DefaultCacheTTL)

	v.SetDefault(KeyInstallDownloadURL, installer.DefaultDownloadURL(runtime.GOOS))
	v.SetDefault(KeyInstallChecksum, "")
	v.SetDefault(KeyInstallDir, "")
	v.SetDefault(KeyInstallBinaryName, installer.DefaultBinaryName(runtime.GOOS))
	v.SetDefault(KeyInstallAutostart, autostart.ModeScript)
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("config: bind flag %s: %w", name, err)
		}
	}
	return nil
}

func mergeConfigFile(v *viper.Viper, path string, required bool) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return v.MergeConfig(bytes.NewReader(data))
}

func defaultRootDir(homeFn func() (string, error)) (string, error) {
	home, err := homeFn()
	if err != nil {
		return "", fmt.Errorf("config: determine user home: %w", err)
	}
	return filepath.Join(home, rootDirName), nil
}

// finalize 补全依赖其他字段的派生值。
func finalize(cfg models.Config) models.Config {
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.KnownFile == "" {
		cfg.KnownFile = filepath.Join(cfg.RootDir, storage.DefaultKnownFile)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = watch.DefaultInterval
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = remote.DefaultTimeout
	}
	return cfg
}
