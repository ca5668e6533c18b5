package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"filebrowser/internal/log"
	"filebrowser/internal/utils"
	"filebrowser/pkg/storage"
)

func init() {
	storage.Register(storage.Local, NewLocalStorage, "filesystem", "file")
}

type LocalStorage struct {
	basePath string
	baseURL  string
}

func NewLocalStorage(opts storage.Options) (storage.Storage, error) {
	if opts.Root == "" {
		return nil, errors.New("local storage requires a root path")
	}
	basePath, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", opts.Root, err)
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create root %s: %w", basePath, err)
	}
	return &LocalStorage{
		basePath: basePath,
		baseURL:  opts.MediaURL,
	}, nil
}

func (l *LocalStorage) Type() storage.StorageType { return storage.Local }

// fullPath 把名字映射到根目录下的绝对路径，越界返回 ErrNotAllowed
func (l *LocalStorage) fullPath(op, name string) (string, error) {
	full := filepath.Join(l.basePath, filepath.FromSlash(storage.CleanName(name)))
	if !isPathUnderRoot(l.basePath, full) {
		return "", &storage.PathError{Op: op, Path: name, Err: storage.ErrNotAllowed}
	}
	return full, nil
}

func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (l *LocalStorage) stat(ctx context.Context, op, name string) (fs.FileInfo, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	full, err := l.fullPath(op, name)
	if err != nil {
		return nil, err
	}
	return os.Stat(full)
}

func (l *LocalStorage) Exists(ctx context.Context, name string) (bool, error) {
	_, err := l.stat(ctx, "exists", name)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, storage.Wrap("exists", name, err)
	}
	return true, nil
}

func (l *LocalStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	full, err := l.fullPath("open", name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(full)
	if err != nil {
		log.Logger.Debugf("Failed to open file %s: %v", full, err)
		return nil, storage.Wrap("open", name, err)
	}
	return file, nil
}

// Save 先写临时文件再 rename，保证读者不会看到写了一半的文件
func (l *LocalStorage) Save(ctx context.Context, name string, reader io.Reader) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	name, err := storage.AvailableName(ctx, l.Exists, storage.CleanName(name))
	if err != nil {
		return "", err
	}
	full, err := l.fullPath("save", name)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", storage.Wrap("save", name, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", storage.Wrap("save", name, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", storage.Wrap("save", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", storage.Wrap("save", name, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return "", storage.Wrap("save", name, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return "", storage.Wrap("save", name, err)
	}

	log.Logger.Debugf("Saved %s", full)
	return name, nil
}

// Delete 删除单个文件，文件不存在时不报错
func (l *LocalStorage) Delete(ctx context.Context, name string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	full, err := l.fullPath("delete", name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return storage.Wrap("delete", name, err)
	}
	return nil
}

func (l *LocalStorage) Size(ctx context.Context, name string) (int64, error) {
	info, err := l.stat(ctx, "size", name)
	if err != nil {
		return 0, storage.Wrap("size", name, err)
	}
	return info.Size(), nil
}

func (l *LocalStorage) ModTime(ctx context.Context, name string) (time.Time, error) {
	info, err := l.stat(ctx, "modtime", name)
	if err != nil {
		return time.Time{}, storage.Wrap("modtime", name, err)
	}
	return info.ModTime(), nil
}

func (l *LocalStorage) URL(name string) string {
	return utils.JoinURL(l.baseURL, storage.CleanName(name))
}

func (l *LocalStorage) ListDir(ctx context.Context, name string) ([]string, []string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, nil, err
	}
	full, err := l.fullPath("listdir", name)
	if err != nil {
		return nil, nil, err
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, nil, storage.Wrap("listdir", name, err)
	}

	var dirs, files []string
	for _, entry := range entries {
		isDir := entry.IsDir()

		// 软链接按目标类型归类，断开或指向根目录之外的跳过
		if entry.Type()&fs.ModeSymlink != 0 {
			target := filepath.Join(full, entry.Name())
			realPath, err := filepath.EvalSymlinks(target)
			if err != nil {
				log.Logger.Debugf("Warning: broken symlink %s: %v", target, err)
				continue
			}
			if !l.underRealRoot(realPath) {
				log.Logger.Warnf("Symlink %s points outside base directory: %s", target, realPath)
				continue
			}
			info, err := os.Stat(realPath)
			if err != nil {
				log.Logger.Debugf("Warning: failed to stat symlink target %s: %v", realPath, err)
				continue
			}
			isDir = info.IsDir()
		}

		if isDir {
			dirs = append(dirs, entry.Name())
		} else {
			files = append(files, entry.Name())
		}
	}
	return dirs, files, nil
}

func (l *LocalStorage) underRealRoot(realPath string) bool {
	realBase, err := filepath.EvalSymlinks(l.basePath)
	if err != nil {
		realBase = l.basePath
	}
	return isPathUnderRoot(realBase, realPath)
}

func (l *LocalStorage) IsDir(ctx context.Context, name string) (bool, error) {
	info, err := l.stat(ctx, "isdir", name)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, storage.Wrap("isdir", name, err)
	}
	return info.IsDir(), nil
}

func (l *LocalStorage) IsFile(ctx context.Context, name string) (bool, error) {
	info, err := l.stat(ctx, "isfile", name)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, storage.Wrap("isfile", name, err)
	}
	return info.Mode().IsRegular(), nil
}

// Move 同一文件系统上直接 rename，跨设备时退化为复制后删除
func (l *LocalStorage) Move(ctx context.Context, oldName, newName string, allowOverwrite bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	src, err := l.fullPath("move", oldName)
	if err != nil {
		return err
	}
	dst, err := l.fullPath("move", newName)
	if err != nil {
		return err
	}
	if src == dst {
		return nil
	}

	if _, err := os.Stat(dst); err == nil {
		if !allowOverwrite {
			return &storage.PathError{Op: "move", Path: newName, Err: storage.ErrConflict}
		}
		if err := os.RemoveAll(dst); err != nil {
			return storage.Wrap("move", newName, err)
		}
	} else if !os.IsNotExist(err) {
		return storage.Wrap("move", newName, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return storage.Wrap("move", newName, err)
	}

	err = os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return storage.Wrap("move", oldName, err)
	}

	log.Logger.Debugf("Cross-device move %s -> %s, falling back to copy", src, dst)
	if err := copyTree(src, dst); err != nil {
		return storage.Wrap("move", oldName, err)
	}
	return storage.Wrap("move", oldName, os.RemoveAll(src))
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (l *LocalStorage) MakeDirs(ctx context.Context, name string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	full, err := l.fullPath("makedirs", name)
	if err != nil {
		return err
	}
	return storage.Wrap("makedirs", name, os.MkdirAll(full, 0755))
}

func (l *LocalStorage) RmTree(ctx context.Context, name string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	full, err := l.fullPath("rmtree", name)
	if err != nil {
		return err
	}
	if full == l.basePath {
		return &storage.PathError{Op: "rmtree", Path: name, Err: storage.ErrNotAllowed}
	}
	return storage.Wrap("rmtree", name, os.RemoveAll(full))
}

func (l *LocalStorage) Close() error { return nil }
