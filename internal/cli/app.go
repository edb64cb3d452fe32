// Package cli 组装 mcversion 与 mcversion-installer 的命令行。
package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/liangyou/mcversion/internal/article"
	"github.com/liangyou/mcversion/internal/autostart"
	"github.com/liangyou/mcversion/internal/config"
	"github.com/liangyou/mcversion/internal/installer"
	"github.com/liangyou/mcversion/internal/logging"
	"github.com/liangyou/mcversion/internal/notify"
	"github.com/liangyou/mcversion/pkg/models"
)

// App 保存命令共享的依赖，便于测试替换。
type App struct {
	out     io.Writer
	version string

	configFile string
	homeFn     func() (string, error)

	newNotifier  func(appName string) notify.Notifier
	opener       article.Opener
	newRegistrar func(mode, name string) (autostart.Registrar, error)
	launcher     installer.Launcher
	prompter     Prompter
	checker      DirChecker
}

// DirChecker 校验安装目录。
type DirChecker interface {
	Validate(dir string) error
}

// Option 配置 App。
type Option func(*App)

// WithNotifierFactory 替换通知实现。
func WithNotifierFactory(fn func(appName string) notify.Notifier) Option {
	return func(a *App) {
		a.newNotifier = fn
	}
}

// WithOpener 替换浏览器打开方式。
func WithOpener(o article.Opener) Option {
	return func(a *App) {
		a.opener = o
	}
}

// WithRegistrarFactory 替换自启动登记实现。
func WithRegistrarFactory(fn func(mode, name string) (autostart.Registrar, error)) Option {
	return func(a *App) {
		a.newRegistrar = fn
	}
}

// WithLauncher 替换安装完成后的启动方式。
func WithLauncher(l installer.Launcher) Option {
	return func(a *App) {
		a.launcher = l
	}
}

// WithPrompter 替换交互式向导。
func WithPrompter(p Prompter) Option {
	return func(a *App) {
		a.prompter = p
	}
}

// WithDirChecker 替换安装前的平台检查。
func WithDirChecker(c DirChecker) Option {
	return func(a *App) {
		a.checker = c
	}
}

// WithHomeDir 覆盖用户主目录。
func WithHomeDir(fn func() (string, error)) Option {
	return func(a *App) {
		a.homeFn = fn
	}
}

// NewApp 创建 CLI 应用实例。
func NewApp(out io.Writer, version string, opts ...Option) *App {
	if out == nil {
		out = os.Stdout
	}
	a := &App{
		out:          out,
		version:      version,
		homeFn:       os.UserHomeDir,
		newNotifier:  notify.NewDesktopNotifier,
		opener:       article.BrowserOpener,
		newRegistrar: autostart.New,
		launcher:     installer.ProcessLauncher{},
		prompter:     huhPrompter{},
		checker:      installer.NewChecker(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// loadConfig 合并配置并初始化日志。
func (a *App) loadConfig(cmd *cobra.Command) (models.Config, error) {
	cfg, err := config.Load(
		config.WithConfigFile(a.configFile),
		config.WithFlags(cmd.Flags()),
		config.WithHomeDir(a.homeFn),
	)
	if err != nil {
		return models.Config{}, err
	}
	if err := logging.InitLog(cfg.Log.Level, cfg.Log.File); err != nil {
		return models.Config{}, err
	}
	return cfg, nil
}

func (a *App) addCommonFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (default ~/.mcversion/config.yaml)")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	flags.String("log-file", "", "log file path, console for stderr")
}
