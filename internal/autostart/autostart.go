// Package autostart 负责把已安装的程序登记为登录后自动启动。
package autostart

import "fmt"

// DefaultName 是启动项与服务的默认名称。
const DefaultName = "mcversion"

// 支持的登记方式。
const (
	ModeScript  = "script"
	ModeService = "service"
)

// Registrar 定义自启动登记能力。
type Registrar interface {
	Register(exePath string) error
	Unregister() error
	Location() (string, error)
}

// New 根据模式创建 Registrar，mode 为空时使用启动脚本。
func New(mode, name string) (Registrar, error) {
	switch mode {
	case "", ModeScript:
		return NewScriptRegistrar(name), nil
	case ModeService:
		return NewServiceRegistrar(name), nil
	default:
		return nil, fmt.Errorf("autostart: unsupported mode %q", mode)
	}
}
