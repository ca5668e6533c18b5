package browser

import (
	"context"

	"filebrowser/internal/log"
)

type EventKind string

const (
	EventMkdir  EventKind = "mkdir"
	EventUpload EventKind = "upload"
	EventDelete EventKind = "delete"
	EventRename EventKind = "rename"
)

// Event 描述一次变更。Path 为相对目录，Name 为操作对象，NewName 仅用于重命名。
type Event struct {
	Kind    EventKind
	Path    string
	Name    string
	NewName string
}

// Observer 在变更前后被同步调用，不影响操作结果
type Observer interface {
	Before(ctx context.Context, e Event)
	After(ctx context.Context, e Event)
}

// ObserverFuncs 用函数实现 Observer，nil 字段忽略
type ObserverFuncs struct {
	BeforeFunc func(ctx context.Context, e Event)
	AfterFunc  func(ctx context.Context, e Event)
}

func (o ObserverFuncs) Before(ctx context.Context, e Event) {
	if o.BeforeFunc != nil {
		o.BeforeFunc(ctx, e)
	}
}

func (o ObserverFuncs) After(ctx context.Context, e Event) {
	if o.AfterFunc != nil {
		o.AfterFunc(ctx, e)
	}
}

// LoggingObserver 把变更写入日志
type LoggingObserver struct{}

func (LoggingObserver) Before(ctx context.Context, e Event) {
	log.Logger.Debugf("Before %s: path=%s name=%s new=%s", e.Kind, e.Path, e.Name, e.NewName)
}

func (LoggingObserver) After(ctx context.Context, e Event) {
	log.Logger.Infof("Finished %s: path=%s name=%s new=%s", e.Kind, e.Path, e.Name, e.NewName)
}

func (b *Browser) fireBefore(ctx context.Context, e Event) {
	for _, o := range b.observers.snapshot() {
		safeCall(e, "before", func() { o.Before(ctx, e) })
	}
}

func (b *Browser) fireAfter(ctx context.Context, e Event) {
	for _, o := range b.observers.snapshot() {
		safeCall(e, "after", func() { o.After(ctx, e) })
	}
}

func safeCall(e Event, phase string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Warnf("Observer panicked during %s %s: %v", phase, e.Kind, r)
		}
	}()
	fn()
}
