// Package notify 负责桌面通知以及通知点击回调的分发。
package notify

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// DefaultAppName 是通知来源显示的应用名。
const DefaultAppName = "Minecraft Version Watcher"

// ActionFunc 是通知被点击时执行的处理函数。
type ActionFunc func(ctx context.Context, version string)

// Action 是绑定了版本值的点击回调记录。版本以值的形式保存在记录里，
// 每条通知持有自己的记录，不依赖循环变量的闭包捕获。
type Action struct {
	Version string
	Handle  ActionFunc
}

// Invoke 执行回调。
func (a Action) Invoke(ctx context.Context) {
	if a.Handle == nil {
		return
	}
	a.Handle(ctx, a.Version)
}

// Notification 是一条待显示的桌面通知。
type Notification struct {
	Title  string
	Body   string
	Action *Action
}

// Notifier 定义桌面通知能力。
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
	Close() error
}

// LogNotifier 仅把通知写入日志，用于没有桌面会话的环境。
type LogNotifier struct{}

// Notify 记录通知内容。
func (LogNotifier) Notify(_ context.Context, n Notification) error {
	entry := log.WithField("title", n.Title)
	if n.Action != nil {
		entry = entry.WithField("version", n.Action.Version)
	}
	entry.Info(n.Body)
	return nil
}

// Close 无需释放资源。
func (LogNotifier) Close() error { return nil }
