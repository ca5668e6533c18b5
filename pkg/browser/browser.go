package browser

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"filebrowser/internal/log"
	"filebrowser/pkg/fileobject"
	"filebrowser/pkg/storage"
)

// Browser 在某个存储后端上提供浏览和变更操作。
// Site 返回的副本共享后端、配置和观察者列表。
type Browser struct {
	fs        storage.Storage
	settings  *Settings
	directory string
	observers *observerList
	now       func() time.Time
}

func New(fs storage.Storage, settings *Settings) *Browser {
	return &Browser{
		fs:        fs,
		settings:  settings,
		directory: settings.SiteDirectory(""),
		observers: &observerList{},
		now:       time.Now,
	}
}

// Site 返回指定站点的视图；未开启按站点隔离时目录不变
func (b *Browser) Site(id string) *Browser {
	c := *b
	c.directory = b.settings.SiteDirectory(id)
	return &c
}

func (b *Browser) Settings() *Settings { return b.settings }

func (b *Browser) Storage() storage.Storage { return b.fs }

// Directory 当前站点的根目录，带末尾斜杠
func (b *Browser) Directory() string { return b.directory }

func (b *Browser) Observe(o Observer) {
	b.observers.add(o)
}

func (b *Browser) fileObject(p string) *fileobject.FileObject {
	return fileobject.New(b.fs, p, b.settings.Tables)
}

var volumeRe = regexp.MustCompile(`^[A-Za-z]:`)

// ResolvePath 校验相对目录；任何拒绝都返回 false 而不是错误
func (b *Browser) ResolvePath(ctx context.Context, dir string) (string, bool) {
	if strings.HasPrefix(dir, ".") || isAbs(dir) {
		return "", false
	}
	for _, part := range strings.FieldsFunc(dir, isSep) {
		if part == ".." {
			return "", false
		}
	}
	ok, err := b.fs.IsDir(ctx, joinPath(b.directory, dir))
	if err != nil {
		log.Logger.Debugf("Resolve %q failed: %v", dir, err)
		return "", false
	}
	if !ok {
		return "", false
	}
	return dir, true
}

func isAbs(p string) bool {
	return strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") || volumeRe.MatchString(p)
}

func isSep(r rune) bool { return r == '/' || r == '\\' }

// joinPath 以 "/" 拼接存储路径，去掉各段首尾斜杠并忽略空段
func joinPath(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}

// checkRoot 站点根目录必须存在
func (b *Browser) checkRoot(ctx context.Context) error {
	if _, ok := b.ResolvePath(ctx, ""); !ok {
		return ErrRootMissing
	}
	return nil
}

type observerList struct {
	mu    sync.RWMutex
	items []Observer
}

func (l *observerList) add(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, o)
}

func (l *observerList) snapshot() []Observer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Observer(nil), l.items...)
}
