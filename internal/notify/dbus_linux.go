//go:build linux

package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	log "github.com/sirupsen/logrus"
)

const (
	dbusDest            = "org.freedesktop.Notifications"
	dbusPath            = dbus.ObjectPath("/org/freedesktop/Notifications")
	dbusIface           = "org.freedesktop.Notifications"
	signalActionInvoked = dbusIface + ".ActionInvoked"
	signalClosed        = dbusIface + ".NotificationClosed"
	defaultActionKey    = "default"
	defaultExpire       = int32(-1)
)

// DBusNotifier 通过 freedesktop 通知规范在会话总线上显示通知，并把 ActionInvoked 信号派发给对应的回调记录。
type DBusNotifier struct {
	appName string
	obj     dbus.BusObject
	conn    *dbus.Conn
	signals chan *dbus.Signal

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	actions map[uint32]Action
	clicks  sync.WaitGroup
}

// NewDesktopNotifier 优先使用会话总线通知，不可用时退化为日志通知。
func NewDesktopNotifier(appName string) Notifier {
	n, err := NewDBusNotifier(appName)
	if err != nil {
		log.Warnf("desktop notifications unavailable, falling back to log output: %v", err)
		return LogNotifier{}
	}
	return n
}

// NewDBusNotifier 连接会话总线并开始监听通知信号。
func NewDBusNotifier(appName string) (*DBusNotifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("notify: connect session bus: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(dbusPath),
		dbus.WithMatchInterface(dbusIface),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: subscribe signals: %w", err)
	}

	n := newDBusNotifier(appName, conn.Object(dbusDest, dbusPath))
	n.conn = conn
	conn.Signal(n.signals)
	go n.dispatch()
	return n, nil
}

func newDBusNotifier(appName string, obj dbus.BusObject) *DBusNotifier {
	if appName == "" {
		appName = DefaultAppName
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DBusNotifier{
		appName: appName,
		obj:     obj,
		signals: make(chan *dbus.Signal, 16),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		actions: make(map[uint32]Action),
	}
}

// Notify 显示通知，并在带有回调时登记默认动作。
func (n *DBusNotifier) Notify(ctx context.Context, note Notification) error {
	var actions []string
	if note.Action != nil {
		actions = []string{defaultActionKey, "Open"}
	}

	var id uint32
	call := n.obj.CallWithContext(ctx, dbusIface+".Notify", 0,
		n.appName, uint32(0), "", note.Title, note.Body,
		actions, map[string]dbus.Variant{}, defaultExpire)
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify: send notification: %w", err)
	}

	if note.Action != nil {
		n.mu.Lock()
		n.actions[id] = *note.Action
		n.mu.Unlock()
	}
	return nil
}

// Close 停止信号派发并关闭总线连接。
func (n *DBusNotifier) Close() error {
	n.cancel()
	if n.conn == nil {
		n.clicks.Wait()
		return nil
	}
	n.conn.RemoveSignal(n.signals)
	<-n.done
	n.clicks.Wait()
	return n.conn.Close()
}

func (n *DBusNotifier) dispatch() {
	defer close(n.done)
	for {
		select {
		case <-n.ctx.Done():
			return
		case sig, ok := <-n.signals:
			if !ok {
				return
			}
			n.handleSignal(sig)
		}
	}
}

func (n *DBusNotifier) handleSignal(sig *dbus.Signal) {
	if sig == nil || len(sig.Body) == 0 {
		return
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}

	switch sig.Name {
	case signalActionInvoked:
		n.mu.Lock()
		action, found := n.actions[id]
		n.mu.Unlock()
		if !found {
			return
		}
		log.WithField("version", action.Version).Debug("notification clicked")
		// 点击处理可能较慢，不阻塞后续信号
		n.clicks.Add(1)
		go func() {
			defer n.clicks.Done()
			action.Invoke(n.ctx)
		}()
	case signalClosed:
		n.mu.Lock()
		delete(n.actions, id)
		n.mu.Unlock()
	}
}
