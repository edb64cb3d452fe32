// Package article 根据版本类型拼出官网文章地址，并处理通知点击。
package article

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"

	"github.com/liangyou/mcversion/pkg/models"
)

const (
	releaseArticleBase  = "https://www.minecraft.net/en-us/article/minecraft-java-edition-"
	snapshotArticleBase = "https://www.minecraft.net/en-us/article/minecraft-snapshot-"
)

// URL 返回版本对应的文章地址。正式版把版本号中的点替换为连字符，其余类型直接拼接。
func URL(id, versionType string) string {
	if (models.Version{Type: versionType}).IsRelease() {
		return releaseArticleBase + strings.ReplaceAll(id, ".", "-")
	}
	return snapshotArticleBase + id
}

// DetailSource 提供版本详情查询。
type DetailSource interface {
	FetchVersion(ctx context.Context, id string) (models.Version, error)
}

// Opener 在浏览器中打开地址。
type Opener interface {
	Open(url string) error
}

// OpenerFunc 适配普通函数为 Opener。
type OpenerFunc func(url string) error

// Open 调用函数本身。
func (f OpenerFunc) Open(url string) error { return f(url) }

// BrowserOpener 使用系统默认浏览器。
var BrowserOpener Opener = OpenerFunc(open.Run)

// Linker 查询版本类型并打开文章页面。
type Linker struct {
	source DetailSource
	opener Opener
}

// NewLinker 创建 Linker，opener 为空时使用系统浏览器。
func NewLinker(source DetailSource, opener Opener) *Linker {
	if opener == nil {
		opener = BrowserOpener
	}
	return &Linker{source: source, opener: opener}
}

// Resolve 返回版本的文章地址。
func (l *Linker) Resolve(ctx context.Context, version string) (string, error) {
	if l.source == nil {
		return "", fmt.Errorf("article: detail source is required")
	}
	detail, err := l.source.FetchVersion(ctx, version)
	if err != nil {
		return "", fmt.Errorf("article: fetch detail: %w", err)
	}
	return URL(version, detail.Type), nil
}

// HandleClick 是通知点击回调，失败只记录日志。
func (l *Linker) HandleClick(ctx context.Context, version string) {
	target, err := l.Resolve(ctx, version)
	if err != nil {
		log.WithField("version", version).Errorf("failed to fetch or open article: %v", err)
		return
	}
	if err := l.opener.Open(target); err != nil {
		log.WithField("version", version).Errorf("failed to open %s: %v", target, err)
		return
	}
	log.WithField("version", version).Infof("opened %s", target)
}
