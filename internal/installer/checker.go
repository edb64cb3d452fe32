package installer

import (
	"fmt"
	"os"
	"runtime"
)

var supportedOS = map[string]struct{}{
	"windows": {},
	"linux":   {},
	"darwin":  {},
}

// Checker 校验当前系统与安装目录是否满足安装要求。
type Checker struct {
	goos func() string
}

// NewChecker 创建平台检测器。
func NewChecker() *Checker {
	return &Checker{goos: func() string { return runtime.GOOS }}
}

// Validate 校验操作系统并确认目录可写。
func (c *Checker) Validate(dir string) error {
	if _, ok := supportedOS[c.goos()]; !ok {
		return fmt.Errorf("platform: unsupported operating system %s", c.goos())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("platform: cannot access install directory %s: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".mcversion-write-*")
	if err != nil {
		return fmt.Errorf("platform: install directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}
