package autostart

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ScriptRegistrar 在平台的启动目录中写入启动文件：
// Windows 为 Startup 目录下的 .bat，macOS 为 LaunchAgent，其它平台为 XDG autostart 条目。
type ScriptRegistrar struct {
	name string

	goos   string
	homeFn func() (string, error)
	envFn  func(string) string
}

// NewScriptRegistrar 创建启动脚本登记器。
func NewScriptRegistrar(name string) *ScriptRegistrar {
	if name == "" {
		name = DefaultName
	}
	return &ScriptRegistrar{
		name:   name,
		goos:   runtime.GOOS,
		homeFn: os.UserHomeDir,
		envFn:  os.Getenv,
	}
}

// Location 返回启动文件路径。
func (r *ScriptRegistrar) Location() (string, error) {
	home, err := r.homeFn()
	if err != nil {
		return "", fmt.Errorf("autostart: home dir: %w", err)
	}

	switch r.goos {
	case "windows":
		appData := r.envFn("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Microsoft", "Windows", "Start Menu", "Programs", "Startup", r.name+"_startup.bat"), nil
	case "darwin":
		return filepath.Join(home, "Library", "LaunchAgents", "io.github."+r.name+".plist"), nil
	default:
		configHome := r.envFn("XDG_CONFIG_HOME")
		if configHome == "" {
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "autostart", r.name+".desktop"), nil
	}
}

// Register 写入启动文件，已存在时覆盖。
func (r *ScriptRegistrar) Register(exePath string) error {
	if strings.TrimSpace(exePath) == "" {
		return errors.New("autostart: executable path is required")
	}

	location, err := r.Location()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
		return fmt.Errorf("autostart: ensure startup dir: %w", err)
	}

	content, err := r.render(exePath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(location, []byte(content), 0o644); err != nil {
		return fmt.Errorf("autostart: write %s: %w", location, err)
	}
	return nil
}

// Unregister 删除启动文件，文件不存在时视为成功。
func (r *ScriptRegistrar) Unregister() error {
	location, err := r.Location()
	if err != nil {
		return err
	}
	if err := os.Remove(location); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("autostart: remove %s: %w", location, err)
	}
	return nil
}

func (r *ScriptRegistrar) render(exePath string) (string, error) {
	switch r.goos {
	case "windows":
		return fmt.Sprintf("start \"\" \"%s\"\n", exePath), nil
	case "darwin":
		return r.launchAgent(exePath)
	default:
		lines := []string{
			"[Desktop Entry]",
			"Type=Application",
			"Name=MCVersion",
			"Comment=Notifies about new Minecraft versions",
			"Exec=" + quoteExec(exePath),
			"Terminal=false",
			"X-GNOME-Autostart-enabled=true",
		}
		return strings.Join(lines, "\n") + "\n", nil
	}
}

func (r *ScriptRegistrar) launchAgent(exePath string) (string, error) {
	var label, exe bytes.Buffer
	if err := xml.EscapeText(&label, []byte("io.github."+r.name)); err != nil {
		return "", fmt.Errorf("autostart: escape label: %w", err)
	}
	if err := xml.EscapeText(&exe, []byte(exePath)); err != nil {
		return "", fmt.Errorf("autostart: escape path: %w", err)
	}
	lines := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">`,
		`<plist version="1.0">`,
		`<dict>`,
		`  <key>Label</key>`,
		`  <string>` + label.String() + `</string>`,
		`  <key>ProgramArguments</key>`,
		`  <array>`,
		`    <string>` + exe.String() + `</string>`,
		`  </array>`,
		`  <key>RunAtLoad</key>`,
		`  <true/>`,
		`</dict>`,
		`</plist>`,
	}
	return strings.Join(lines, "\n") + "\n", nil
}

// quoteExec 按 desktop entry 规范给 Exec 参数加引号并转义保留字符。
func quoteExec(path string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + replacer.Replace(path) + `"`
}
