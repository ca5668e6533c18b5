package storage

import (
	"context"
	"io"
	"time"
)

// Storage 是所有存储后端的统一能力接口。
// IsDir 与 IsFile 对同一路径互斥，不存在的路径两者皆为 false。
type Storage interface {
	Exists(ctx context.Context, name string) (bool, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Save 写入内容，name 已被占用时选择一个可用的新名字并返回
	Save(ctx context.Context, name string, reader io.Reader) (string, error)
	Delete(ctx context.Context, name string) error
	Size(ctx context.Context, name string) (int64, error)
	ModTime(ctx context.Context, name string) (time.Time, error)
	URL(name string) string
	// ListDir 返回直接子目录和文件的名字（不含前缀）
	ListDir(ctx context.Context, name string) (dirs []string, files []string, err error)

	IsDir(ctx context.Context, name string) (bool, error)
	IsFile(ctx context.Context, name string) (bool, error)
	Move(ctx context.Context, oldName, newName string, allowOverwrite bool) error
	MakeDirs(ctx context.Context, name string) error
	RmTree(ctx context.Context, name string) error

	Type() StorageType
	Close() error
}

// Options 传给后端构造函数
type Options struct {
	Root     string            // 本地根目录或 mindb 数据路径
	MediaURL string            // URL() 使用的公共前缀
	Config   map[string]string // 后端特有配置
}

func (o Options) Get(key, def string) string {
	if v, ok := o.Config[key]; ok && v != "" {
		return v
	}
	return def
}
