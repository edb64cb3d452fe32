//go:build windows || darwin

package notify

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	log "github.com/sirupsen/logrus"
)

const fyneAppID = "io.github.mcversion"

// FyneNotifier 通过系统通知中心显示通知（Windows toast、macOS 通知中心）。
// 系统通知不回传点击事件，因此绑定的回调不会被触发。
type FyneNotifier struct {
	appName string
	send    func(*fyne.Notification)
}

// NewDesktopNotifier 返回基于 fyne 的系统通知。
func NewDesktopNotifier(appName string) Notifier {
	a := app.NewWithID(fyneAppID)
	return newFyneNotifier(appName, a.SendNotification)
}

func newFyneNotifier(appName string, send func(*fyne.Notification)) *FyneNotifier {
	if appName == "" {
		appName = DefaultAppName
	}
	return &FyneNotifier{appName: appName, send: send}
}

// Notify 显示通知。
func (n *FyneNotifier) Notify(ctx context.Context, note Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	title := note.Title
	if title == "" {
		title = n.appName
	}
	n.send(fyne.NewNotification(title, note.Body))
	if note.Action != nil {
		log.WithField("version", note.Action.Version).Debug("notification shown without click action")
	}
	return nil
}

// Close 无需释放资源。
func (n *FyneNotifier) Close() error { return nil }
