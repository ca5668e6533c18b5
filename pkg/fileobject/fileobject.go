package fileobject

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"filebrowser/internal/utils"
	"filebrowser/pkg/storage"
)

// ErrEncodingChanged 目录下出现了无法按 UTF-8 解码的名字
var ErrEncodingChanged = errors.New("file system encoding changed")

// FileObject 表示存储中的一个文件或目录。
// 元数据首次访问时从后端读取并缓存，之后不再变化。
type FileObject struct {
	Path          string
	Head          string
	Filename      string
	FilenameLower string
	FilenameRoot  string
	Extension     string
	MimeType      string

	fs     storage.Storage
	tables *Tables

	exists   *bool
	isFolder *bool
	fileType *string
	size     *int64
	date     *time.Time
	loaded   struct{ size, date bool }
}

func New(fs storage.Storage, p string, tables *Tables) *FileObject {
	p = strings.ReplaceAll(p, "\\", "/")
	head, filename := path.Split(p)
	ext := path.Ext(filename)
	if tables == nil {
		tables = DefaultTables()
	}
	return &FileObject{
		Path:          p,
		Head:          strings.TrimSuffix(head, "/"),
		Filename:      filename,
		FilenameLower: strings.ToLower(filename),
		FilenameRoot:  strings.TrimSuffix(filename, ext),
		Extension:     ext,
		MimeType:      MimeType(filename),
		fs:            fs,
		tables:        tables,
	}
}

func (f *FileObject) String() string { return f.Path }

func (f *FileObject) Exists(ctx context.Context) (bool, error) {
	if f.exists != nil {
		return *f.exists, nil
	}
	ok, err := f.fs.Exists(ctx, f.Path)
	if err != nil {
		return false, err
	}
	f.exists = &ok
	return ok, nil
}

func (f *FileObject) IsFolder(ctx context.Context) (bool, error) {
	if f.isFolder != nil {
		return *f.isFolder, nil
	}
	ok, err := f.fs.IsDir(ctx, f.Path)
	if err != nil {
		return false, err
	}
	f.isFolder = &ok
	return ok, nil
}

// FileType 目录为 Folder，其余按扩展名分类
func (f *FileObject) FileType(ctx context.Context) (string, error) {
	if f.fileType != nil {
		return *f.fileType, nil
	}
	folder, err := f.IsFolder(ctx)
	if err != nil {
		return "", err
	}
	ft := Folder
	if !folder {
		ft = f.tables.Classify(f.Filename)
	}
	f.fileType = &ft
	return ft, nil
}

// FileSize 条目不存在时 ok 为 false
func (f *FileObject) FileSize(ctx context.Context) (size int64, ok bool, err error) {
	if f.loaded.size {
		if f.size == nil {
			return 0, false, nil
		}
		return *f.size, true, nil
	}
	exists, err := f.Exists(ctx)
	if err != nil {
		return 0, false, err
	}
	if exists {
		n, err := f.fs.Size(ctx, f.Path)
		if err != nil && !errors.Is(err, storage.ErrNotExist) {
			return 0, false, err
		}
		if err == nil {
			f.size = &n
		}
	}
	f.loaded.size = true
	return f.FileSize(ctx)
}

// Date 最后修改时间，条目不存在时 ok 为 false
func (f *FileObject) Date(ctx context.Context) (t time.Time, ok bool, err error) {
	if f.loaded.date {
		if f.date == nil {
			return time.Time{}, false, nil
		}
		return *f.date, true, nil
	}
	exists, err := f.Exists(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	if exists {
		mt, err := f.fs.ModTime(ctx, f.Path)
		if err != nil && !errors.Is(err, storage.ErrNotExist) {
			return time.Time{}, false, err
		}
		if err == nil {
			f.date = &mt
		}
	}
	f.loaded.date = true
	return f.Date(ctx)
}

// IsEmpty 只对目录有意义，非目录总是 false；hidden 返回 true 的名字不计入目录内容
func (f *FileObject) IsEmpty(ctx context.Context, hidden func(name string) bool) (bool, error) {
	folder, err := f.IsFolder(ctx)
	if err != nil || !folder {
		return false, err
	}
	dirs, files, err := f.fs.ListDir(ctx, f.Path)
	if err != nil {
		return false, err
	}
	empty := true
	for _, names := range [][]string{dirs, files} {
		for _, n := range names {
			if !utf8.ValidString(n) {
				return false, ErrEncodingChanged
			}
			if hidden == nil || !hidden(n) {
				empty = false
			}
		}
	}
	return empty, nil
}

func (f *FileObject) URL() string {
	return f.fs.URL(f.Path)
}

// Selectable 返回文件可用于哪些选择格式
func (f *FileObject) Selectable() []string {
	return f.tables.IsSelectable(f.Filename)
}

// Directory 相对 root 的路径
func (f *FileObject) Directory(root string) string {
	return utils.StripRoot(f.Path, root)
}

// PathRelativeDirectory 与 Directory 相同但去掉开头的斜杠
func (f *FileObject) PathRelativeDirectory(root string) string {
	return strings.TrimLeft(f.Directory(root), "/")
}

// Folder 所在目录相对 root 的路径
func (f *FileObject) Folder(root string) string {
	rel := utils.StripRoot(f.Head+"/", root)
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		return rel[:i]
	}
	return ""
}
