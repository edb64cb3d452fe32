// Package watch 实现版本轮询：拉取版本列表，与已知集合求差，通知并持久化新版本。
package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/liangyou/mcversion/internal/notify"
	"github.com/liangyou/mcversion/internal/storage"
	"github.com/liangyou/mcversion/pkg/models"
)

// DefaultInterval 是两次轮询之间的等待时间。
const DefaultInterval = 60 * time.Second

// VersionLister 提供当前版本列表。
type VersionLister interface {
	FetchVersions(ctx context.Context) (models.VersionSet, error)
}

// State 描述轮询所处阶段。
type State int

const (
	// StateSeeding 表示已知版本文件尚未建立。
	StateSeeding State = iota
	// StateSteady 表示已有基线，正常轮询。
	StateSteady
)

func (s State) String() string {
	if s == StateSteady {
		return "steady"
	}
	return "seeding"
}

// Option 用于配置 Watcher。
type Option func(*Watcher)

// WithInterval 设置轮询间隔。
func WithInterval(interval time.Duration) Option {
	return func(w *Watcher) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithClickHandler 设置通知被点击时的处理函数。
func WithClickHandler(fn notify.ActionFunc) Option {
	return func(w *Watcher) {
		w.onClick = fn
	}
}

// WithTimer 替换等待函数，便于测试。
func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(w *Watcher) {
		if after != nil {
			w.after = after
		}
	}
}

// Watcher 持有内存中的已知版本集合并驱动轮询循环。
type Watcher struct {
	source   VersionLister
	store    storage.KnownStore
	notifier notify.Notifier
	onClick  notify.ActionFunc
	interval time.Duration
	after    func(time.Duration) <-chan time.Time

	mu    sync.Mutex
	known models.VersionSet
	state State
}

// New 创建 Watcher。
func New(source VersionLister, store storage.KnownStore, notifier notify.Notifier, opts ...Option) *Watcher {
	w := &Watcher{
		source:   source,
		store:    store,
		notifier: notifier,
		interval: DefaultInterval,
		after:    time.After,
		known:    models.VersionSet{},
		state:    StateSeeding,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State 返回当前阶段。
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Known 返回已知版本集合的副本。
func (w *Watcher) Known() models.VersionSet {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.known.Clone()
}

// FetchVersions 拉取当前版本集合，任何失败都记录日志并返回空集合。
func (w *Watcher) FetchVersions(ctx context.Context) models.VersionSet {
	versions, err := w.source.FetchVersions(ctx)
	if err != nil {
		log.Errorf("failed to fetch versions: %v", err)
		return models.VersionSet{}
	}
	return versions
}

// LoadKnownVersions 读取已知版本。文件不存在时视为首次运行：拉取当前版本写入文件并作为基线返回，不发送通知。
// 首次拉取为空时不建立文件，保持 seeding 阶段，下一次轮询会重试。
func (w *Watcher) LoadKnownVersions(ctx context.Context) (models.VersionSet, error) {
	if w.store == nil || w.source == nil {
		return nil, errors.New("watch: missing dependencies")
	}

	known, err := w.store.Load()
	switch {
	case err == nil:
		w.setBaseline(known)
		return known.Clone(), nil
	case !errors.Is(err, storage.ErrNotSeeded):
		return nil, fmt.Errorf("watch: load known versions: %w", err)
	}

	log.Infof("%s not found, initializing with current versions", w.store.Path())
	current := w.FetchVersions(ctx)
	if len(current) == 0 {
		log.Warn("no versions fetched, known versions file not initialized yet")
		return models.VersionSet{}, nil
	}
	if err := w.store.Seed(current); err != nil {
		return nil, fmt.Errorf("watch: seed known versions: %w", err)
	}
	log.Infof("initialized known versions file with %d entries", len(current))
	w.setBaseline(current)
	return current.Clone(), nil
}

// SaveNewVersions 把新版本按字典序追加到已知版本文件。
func (w *Watcher) SaveNewVersions(versions models.VersionSet) error {
	if err := w.store.Append(versions); err != nil {
		return fmt.Errorf("watch: save new versions: %w", err)
	}
	return nil
}

// Poll 执行一次轮询并返回本次通知的新版本（字典序）。
// 先通知再持久化：两步之间崩溃会导致下次运行重复通知。
func (w *Watcher) Poll(ctx context.Context) ([]string, error) {
	if w.State() == StateSeeding {
		_, err := w.LoadKnownVersions(ctx)
		return nil, err
	}

	current := w.FetchVersions(ctx)

	w.mu.Lock()
	fresh := current.Difference(w.known)
	w.mu.Unlock()

	if len(fresh) == 0 {
		return nil, nil
	}

	ordered := fresh.Sorted()
	for _, version := range ordered {
		w.notifyVersion(ctx, version)
	}

	saveErr := w.SaveNewVersions(fresh)

	// 写入失败时仍并入内存，避免每个周期重复通知同一批版本
	w.mu.Lock()
	w.known.Merge(fresh)
	w.mu.Unlock()

	return ordered, saveErr
}

// Run 加载基线后按固定间隔轮询，直到 ctx 被取消。
func (w *Watcher) Run(ctx context.Context) error {
	known, err := w.LoadKnownVersions(ctx)
	if err != nil {
		return err
	}

	log.Infof("watching for new versions, currently known: %d", len(known))
	for _, version := range known.Sorted() {
		log.Debugf(" - %s", version)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.after(w.interval):
		}

		if _, err := w.Poll(ctx); err != nil {
			log.Errorf("poll failed: %v", err)
		}
	}
}

func (w *Watcher) notifyVersion(ctx context.Context, version string) {
	log.WithField("version", version).Info("new version found")
	if w.notifier == nil {
		return
	}

	note := notify.Notification{
		Title: "New Minecraft version",
		Body:  fmt.Sprintf("New Minecraft version: %s", version),
	}
	if w.onClick != nil {
		note.Action = &notify.Action{Version: version, Handle: w.onClick}
	}

	if err := w.notifier.Notify(ctx, note); err != nil {
		log.WithField("version", version).Errorf("failed to show notification: %v", err)
	}
}

func (w *Watcher) setBaseline(known models.VersionSet) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.known = known.Clone()
	w.state = StateSteady
}
