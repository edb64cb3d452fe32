package installer

import (
	"fmt"
	"os/exec"
	"path/filepath"
)

// Launcher 启动已安装的程序，不等待其退出。
type Launcher interface {
	Launch(path string) error
}

// ProcessLauncher 以独立进程启动程序。
type ProcessLauncher struct{}

// Launch 启动进程后立即释放句柄。
func (ProcessLauncher) Launch(path string) error {
	cmd := exec.Command(path)
	cmd.Dir = filepath.Dir(path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launcher: start %s: %w", path, err)
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("launcher: release %s: %w", path, err)
	}
	return nil
}
