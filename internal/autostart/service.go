package autostart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kardianos/service"
)

// ServiceConfig 返回以当前用户身份运行的服务配置，exePath 为空时由服务库使用当前可执行文件。
func ServiceConfig(name, exePath string) *service.Config {
	if name == "" {
		name = DefaultName
	}
	return &service.Config{
		Name:        name,
		DisplayName: "MCVersion",
		Description: "Notifies about new Minecraft versions",
		Executable:  exePath,
		Option:      service.KeyValue{"UserService": true},
	}
}

// ServiceRegistrar 通过系统服务管理器登记为用户服务（systemd --user、launchd agent 等）。
type ServiceRegistrar struct {
	name       string
	newService func(cfg *service.Config) (service.Service, error)
}

// NewServiceRegistrar 创建服务登记器。
func NewServiceRegistrar(name string) *ServiceRegistrar {
	return &ServiceRegistrar{
		name: name,
		newService: func(cfg *service.Config) (service.Service, error) {
			return service.New(noopProgram{}, cfg)
		},
	}
}

// Location 返回服务描述。
func (r *ServiceRegistrar) Location() (string, error) {
	cfg := ServiceConfig(r.name, "")
	return "service:" + cfg.Name, nil
}

// Register 安装用户服务，下次登录时由服务管理器启动。
func (r *ServiceRegistrar) Register(exePath string) error {
	if strings.TrimSpace(exePath) == "" {
		return errors.New("autostart: executable path is required")
	}
	s, err := r.newService(ServiceConfig(r.name, exePath))
	if err != nil {
		return fmt.Errorf("autostart: create service: %w", err)
	}
	if err := s.Install(); err != nil {
		return fmt.Errorf("autostart: install service: %w", err)
	}
	return nil
}

// Unregister 卸载用户服务，未安装时视为成功。
func (r *ServiceRegistrar) Unregister() error {
	s, err := r.newService(ServiceConfig(r.name, ""))
	if err != nil {
		return fmt.Errorf("autostart: create service: %w", err)
	}
	status, err := s.Status()
	if errors.Is(err, service.ErrNotInstalled) {
		return nil
	}
	if err == nil && status == service.StatusRunning {
		if err := s.Stop(); err != nil {
			return fmt.Errorf("autostart: stop service: %w", err)
		}
	}
	if err := s.Uninstall(); err != nil {
		return fmt.Errorf("autostart: uninstall service: %w", err)
	}
	return nil
}

type noopProgram struct{}

func (noopProgram) Start(service.Service) error { return nil }
func (noopProgram) Stop(service.Service) error  { return nil }
