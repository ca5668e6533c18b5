package service

import (
	"context"
	"io"
	"sync"
	"time"

	"filebrowser/internal/cache"
	"filebrowser/internal/log"
	"filebrowser/internal/metrics"
	"filebrowser/pkg/browser"
	"filebrowser/pkg/fileobject"
)

// BrowserService 在 Browser 之上加列表缓存和指标。
// 变更操作之间互斥，任何变更都会清空缓存。
type BrowserService struct {
	browser *browser.Browser
	cache   cache.Cache
	ttl     time.Duration
	mu      sync.RWMutex
}

// NewBrowserService c 为 nil 时不缓存
func NewBrowserService(b *browser.Browser, c cache.Cache, ttl time.Duration) *BrowserService {
	return &BrowserService{
		browser: b,
		cache:   c,
		ttl:     ttl,
	}
}

func (s *BrowserService) Browser() *browser.Browser { return s.browser }

func (s *BrowserService) site(id string) *browser.Browser {
	if id == "" {
		return s.browser
	}
	return s.browser.Site(id)
}

func (s *BrowserService) Browse(ctx context.Context, site string, q browser.Query) (*browser.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics.IncrementBrowses()
	key := site + "\x00" + q.Key()
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.(*browser.Listing), nil
		}
	}

	listing, err := s.site(site).Browse(ctx, q)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, listing, s.ttl)
	}
	return listing, nil
}

func (s *BrowserService) MakeDir(ctx context.Context, site, dir, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics.IncrementMkdirs()
	err := s.site(site).MakeDir(ctx, dir, name)
	s.finish("mkdir", err)
	return err
}

func (s *BrowserService) Rename(ctx context.Context, site, dir, filename, newName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics.IncrementRenames()
	renamed, err := s.site(site).Rename(ctx, dir, filename, newName)
	s.finish("rename", err)
	return renamed, err
}

func (s *BrowserService) Delete(ctx context.Context, site, dir, filename, filetype string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics.IncrementDeletes()
	err := s.site(site).Delete(ctx, dir, filename, filetype)
	s.finish("delete", err)
	return err
}

func (s *BrowserService) Upload(ctx context.Context, site, folder, filename string, r io.Reader) (*fileobject.FileObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics.IncrementUploads()
	fo, err := s.site(site).Upload(ctx, folder, filename, r)
	s.finish("upload", err)
	return fo, err
}

func (s *BrowserService) CheckFiles(ctx context.Context, site, folder string, names map[string]string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.site(site).CheckFiles(ctx, folder, names)
}

// Ready 站点根目录可访问即就绪
func (s *BrowserService) Ready(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.browser.ResolvePath(ctx, ""); !ok {
		return browser.ErrRootMissing
	}
	return nil
}

// finish 失败的变更也可能留下部分结果，所以总是清缓存
func (s *BrowserService) finish(kind string, err error) {
	metrics.RecordMutation(kind, err == nil)
	if s.cache != nil {
		s.cache.Clear()
	}
	if err != nil {
		log.Logger.Debugf("%s failed: %v", kind, err)
	}
}

func (s *BrowserService) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}
