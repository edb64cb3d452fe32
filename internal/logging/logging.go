// Package logging 初始化全局 logrus 日志。
package logging

import (
	"fmt"
	"io"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// InitLog 设置日志级别，logPath 为空或 console 时输出到终端，否则按大小滚动写入文件。
func InitLog(logLevel string, logPath string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("logging: parse level %q: %w", logLevel, err)
	}

	if logPath != "" && logPath != "console" {
		log.SetOutput(io.Writer(newRotatingWriter(logPath)))
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(level)
	return nil
}

func newRotatingWriter(logPath string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.ToSlash(logPath),
		MaxSize:    5, // MB
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}
}
