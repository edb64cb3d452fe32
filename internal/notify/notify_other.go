//go:build !linux && !windows && !darwin

package notify

// NewDesktopNotifier 在未实现原生通知的平台上返回日志通知。
func NewDesktopNotifier(string) Notifier {
	return LogNotifier{}
}
