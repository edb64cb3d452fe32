// Package installer 实现下载、复制、登记自启动并启动程序的安装流程。
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/liangyou/mcversion/internal/autostart"
)

const windowsDownloadURL = "https://tggamesyt.github.io/mcversion/mcversion.exe"

// ErrNoDownloadURL 表示当前平台没有可用的预编译程序地址。
var ErrNoDownloadURL = errors.New("installer: no prebuilt executable for this platform, set install.download_url")

// DefaultDownloadURL 返回平台对应的预编译程序地址。目前只发布 Windows 版本，其他平台返回空串。
func DefaultDownloadURL(goos string) string {
	if goos == "windows" {
		return windowsDownloadURL
	}
	return ""
}

// Step 标识安装流程中的步骤。
type Step int

const (
	StepDownload Step = iota
	StepCopy
	StepRegister
	StepLaunch
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepDownload:
		return "download"
	case StepCopy:
		return "copy"
	case StepRegister:
		return "register"
	case StepLaunch:
		return "launch"
	default:
		return "done"
	}
}

// StepFunc 在每一步开始时回调，用于界面展示进度。
type StepFunc func(step Step, detail string)

// ArtifactDownloader 用于获取可执行文件。
type ArtifactDownloader interface {
	Download(ctx context.Context, artifact Artifact) (string, error)
}

// Option 配置 Installer。
type Option func(*Installer)

// WithStepFunc 设置步骤回调。
func WithStepFunc(fn StepFunc) Option {
	return func(i *Installer) {
		i.onStep = fn
	}
}

// WithLauncher 替换程序启动方式。
func WithLauncher(l Launcher) Option {
	return func(i *Installer) {
		i.launcher = l
	}
}

// Installer 负责把可执行文件安装到用户选择的目录。
type Installer struct {
	artifact   Artifact
	downloader ArtifactDownloader
	registrar  autostart.Registrar
	launcher   Launcher
	onStep     StepFunc
}

// NewInstaller 创建 Installer。
func NewInstaller(artifact Artifact, downloader ArtifactDownloader, registrar autostart.Registrar, opts ...Option) *Installer {
	if artifact.FileName == "" {
		artifact.FileName = DefaultBinaryName(runtime.GOOS)
	}
	i := &Installer{
		artifact:   artifact,
		downloader: downloader,
		registrar:  registrar,
		launcher:   ProcessLauncher{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// DefaultBinaryName 返回平台对应的可执行文件名。
func DefaultBinaryName(goos string) string {
	if goos == "windows" {
		return "mcversion.exe"
	}
	return "mcversion"
}

// Target 返回在 dir 中安装后的可执行文件路径。
func (i *Installer) Target(dir string) string {
	return filepath.Join(dir, i.artifact.FileName)
}

// Install 依次执行下载、复制、登记自启动与启动，任一步失败即中止，不回滚已完成的步骤。
func (i *Installer) Install(ctx context.Context, dir string) (string, error) {
	if i.downloader == nil || i.registrar == nil {
		return "", errors.New("installer: missing dependencies")
	}
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("installer: install dir is required")
	}
	if strings.TrimSpace(i.artifact.URL) == "" {
		return "", ErrNoDownloadURL
	}

	i.step(StepDownload, i.artifact.URL)
	tempPath, err := i.downloader.Download(ctx, i.artifact)
	if err != nil {
		return "", err
	}
	defer os.Remove(tempPath)

	target := i.Target(dir)
	i.step(StepCopy, dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("installer: prepare install dir: %w", err)
	}
	if err := copyExecutable(tempPath, target); err != nil {
		return "", err
	}

	location, _ := i.registrar.Location()
	i.step(StepRegister, location)
	if err := i.registrar.Register(target); err != nil {
		return "", fmt.Errorf("installer: register autostart: %w", err)
	}

	i.step(StepLaunch, target)
	if i.launcher != nil {
		if err := i.launcher.Launch(target); err != nil {
			return "", fmt.Errorf("installer: launch: %w", err)
		}
	}

	i.step(StepDone, target)
	return target, nil
}

// Uninstall 删除自启动登记与已安装的可执行文件。
func (i *Installer) Uninstall(dir string) error {
	if i.registrar == nil {
		return errors.New("installer: missing dependencies")
	}
	if strings.TrimSpace(dir) == "" {
		return errors.New("installer: install dir is required")
	}
	if err := i.registrar.Unregister(); err != nil {
		return fmt.Errorf("installer: unregister autostart: %w", err)
	}
	target := i.Target(dir)
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("installer: remove %s: %w", target, err)
	}
	return nil
}

func (i *Installer) step(step Step, detail string) {
	log.WithField("step", step.String()).Info(detail)
	if i.onStep != nil {
		i.onStep(step, detail)
	}
}

func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("installer: open download: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("installer: create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("installer: copy to %s: %w", dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("installer: sync %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("installer: close %s: %w", dst, err)
	}
	return os.Chmod(dst, 0o755)
}
