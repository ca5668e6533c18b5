package embedded

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic-io/mindb"

	"filebrowser/internal/log"
	"filebrowser/internal/metrics"
	"filebrowser/internal/utils"
	"filebrowser/pkg/storage"
)

func init() {
	storage.Register(storage.MinDB, NewMinDBStorage, "embedded")
}

const (
	defaultBucket = "filebrowser"
	pageSize      = 1000
)

// MinDBStorage 基于嵌入式对象存储，目录由 key 前缀推断
type MinDBStorage struct {
	db      *mindb.DB
	bucket  string
	prefix  string
	baseURL string
}

// NewMinDBStorage opts.Root 为数据目录
func NewMinDBStorage(opts storage.Options) (storage.Storage, error) {
	if opts.Root == "" {
		return nil, errors.New("mindb storage requires a data path")
	}
	db, err := mindb.New(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("create mindb at %s: %w", opts.Root, err)
	}

	m := &MinDBStorage{
		db:      db,
		bucket:  opts.Get("bucket", defaultBucket),
		prefix:  strings.Trim(opts.Get("prefix", ""), "/"),
		baseURL: opts.MediaURL,
	}

	exists, err := db.BucketExists(m.bucket)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if !exists {
		if err := db.CreateBucket(m.bucket); err != nil {
			db.Close()
			return nil, fmt.Errorf("create bucket %s: %w", m.bucket, err)
		}
		log.Logger.Infof("Created mindb bucket %s", m.bucket)
	}

	return m, nil
}

func (m *MinDBStorage) Type() storage.StorageType { return storage.MinDB }

func (m *MinDBStorage) key(name string) string {
	return storage.ObjectKey(m.prefix, name)
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStorageOperation(string(storage.MinDB), op, time.Since(start), err == nil)
}

func (m *MinDBStorage) objectExists(key string) bool {
	if key == "" || strings.HasSuffix(key, "/") {
		return false
	}
	_, err := m.db.GetObject(m.bucket, key)
	return err == nil
}

// listKeys 扁平列举 prefix 下的 key，max <= 0 表示全部
func (m *MinDBStorage) listKeys(prefix string, max int) ([]string, error) {
	var keys []string
	var marker string
	for {
		objects, _, err := m.db.ListObjects(m.bucket, prefix, marker, "", pageSize)
		if err != nil {
			return nil, err
		}
		for _, obj := range objects {
			if !strings.HasPrefix(obj.Key, prefix) {
				continue
			}
			keys = append(keys, obj.Key)
			if max > 0 && len(keys) >= max {
				return keys, nil
			}
		}
		if len(objects) < pageSize {
			return keys, nil
		}
		marker = objects[len(objects)-1].Key
	}
}

func (m *MinDBStorage) Exists(ctx context.Context, name string) (bool, error) {
	isFile, err := m.IsFile(ctx, name)
	if err != nil || isFile {
		return isFile, err
	}
	return m.IsDir(ctx, name)
}

func (m *MinDBStorage) Open(ctx context.Context, name string) (rc io.ReadCloser, err error) {
	start := time.Now()
	defer func() { observe("open", start, err) }()

	obj, err := m.db.GetObject(m.bucket, m.key(name))
	if err != nil {
		return nil, &storage.PathError{Op: "open", Path: name, Err: storage.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

func (m *MinDBStorage) Save(ctx context.Context, name string, reader io.Reader) (saved string, err error) {
	start := time.Now()
	defer func() { observe("save", start, err) }()

	name, err = storage.AvailableName(ctx, m.Exists, storage.CleanName(name))
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", storage.Wrap("save", name, err)
	}
	if err := m.put(m.key(name), data); err != nil {
		return "", storage.Wrap("save", name, err)
	}
	return name, nil
}

func (m *MinDBStorage) put(key string, data []byte) error {
	now := time.Now()
	return m.db.PutObject(m.bucket, &mindb.ObjectData{
		Key:         key,
		Data:        data,
		Size:        int64(len(data)),
		ContentType: storage.ContentType(key),
		Metadata: map[string]string{
			"upload-time": now.UTC().Format(time.RFC3339),
		},
		LastModified: now,
	})
}

func (m *MinDBStorage) Delete(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { observe("delete", start, err) }()

	key := m.key(name)
	if !m.objectExists(key) {
		return nil
	}
	if err := m.db.DeleteObject(m.bucket, key); err != nil {
		return storage.Wrap("delete", name, err)
	}
	return nil
}

func (m *MinDBStorage) Size(ctx context.Context, name string) (int64, error) {
	key := m.key(name)
	if !m.objectExists(key) {
		return 0, &storage.PathError{Op: "size", Path: name, Err: storage.ErrNotExist}
	}
	obj, err := m.db.GetObject(m.bucket, key)
	if err != nil {
		return 0, storage.Wrap("size", name, err)
	}
	return obj.Size, nil
}

func (m *MinDBStorage) ModTime(ctx context.Context, name string) (time.Time, error) {
	key := m.key(name)
	if !m.objectExists(key) {
		return time.Time{}, &storage.PathError{Op: "modtime", Path: name, Err: storage.ErrNotExist}
	}
	obj, err := m.db.GetObject(m.bucket, key)
	if err != nil {
		return time.Time{}, storage.Wrap("modtime", name, err)
	}
	return obj.LastModified, nil
}

func (m *MinDBStorage) URL(name string) string {
	return utils.JoinURL(m.baseURL, storage.CleanName(name))
}

func (m *MinDBStorage) ListDir(ctx context.Context, name string) (dirs []string, files []string, err error) {
	start := time.Now()
	defer func() { observe("listdir", start, err) }()

	prefix := storage.DirPrefix(m.key(name))
	keys, err := m.listKeys(prefix, 0)
	if err != nil {
		return nil, nil, storage.Wrap("listdir", name, err)
	}
	dirs, files = storage.SplitChildren(prefix, keys)
	return dirs, files, nil
}

func (m *MinDBStorage) IsDir(ctx context.Context, name string) (bool, error) {
	name = storage.CleanName(name)
	if strings.Trim(name, "/") == "" {
		return true, nil
	}
	if isFile, err := m.IsFile(ctx, name); err != nil || isFile {
		return false, err
	}

	keys, err := m.listKeys(storage.DirPrefix(m.key(name)), 1)
	if err != nil {
		return false, storage.Wrap("isdir", name, err)
	}
	return len(keys) > 0, nil
}

func (m *MinDBStorage) IsFile(ctx context.Context, name string) (bool, error) {
	name = storage.CleanName(name)
	if name == "" || strings.HasSuffix(name, "/") {
		return false, nil
	}
	return m.objectExists(m.key(name)), nil
}

// Move 复制后删除原对象，非原子；目录按前缀逐个移动
func (m *MinDBStorage) Move(ctx context.Context, oldName, newName string, allowOverwrite bool) (err error) {
	start := time.Now()
	defer func() { observe("move", start, err) }()

	exists, err := m.Exists(ctx, newName)
	if err != nil {
		return err
	}
	if exists {
		if !allowOverwrite {
			return &storage.PathError{Op: "move", Path: newName, Err: storage.ErrConflict}
		}
		// 目标是目录时按前缀整体删除
		isDir, err := m.IsDir(ctx, newName)
		if err != nil {
			return err
		}
		if isDir {
			err = m.RmTree(ctx, newName)
		} else {
			err = m.Delete(ctx, newName)
		}
		if err != nil {
			return err
		}
	}

	oldKey, newKey := m.key(oldName), m.key(newName)
	if m.objectExists(oldKey) {
		return m.moveObject(oldKey, newKey)
	}

	oldPrefix := storage.DirPrefix(oldKey)
	keys, err := m.listKeys(oldPrefix, 0)
	if err != nil {
		return storage.Wrap("move", oldName, err)
	}
	if len(keys) == 0 {
		return &storage.PathError{Op: "move", Path: oldName, Err: storage.ErrNotExist}
	}
	newPrefix := storage.DirPrefix(newKey)
	for _, key := range keys {
		if err := m.moveObject(key, newPrefix+strings.TrimPrefix(key, oldPrefix)); err != nil {
			return err
		}
	}
	return nil
}

func (m *MinDBStorage) moveObject(oldKey, newKey string) error {
	obj, err := m.db.GetObject(m.bucket, oldKey)
	if err != nil {
		return storage.Wrap("move", oldKey, err)
	}
	if err := m.put(newKey, obj.Data); err != nil {
		return storage.Wrap("move", newKey, err)
	}
	if err := m.db.DeleteObject(m.bucket, oldKey); err != nil {
		return storage.Wrap("move", oldKey, err)
	}
	return nil
}

// MakeDirs 写入零字节占位对象 name/.folder
func (m *MinDBStorage) MakeDirs(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { observe("makedirs", start, err) }()

	key := storage.DirPrefix(m.key(name)) + ".folder"
	return storage.Wrap("makedirs", name, m.put(key, []byte{}))
}

// RmTree 删除前缀下的所有对象，中途失败会留下部分内容
func (m *MinDBStorage) RmTree(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { observe("rmtree", start, err) }()

	prefix := storage.DirPrefix(m.key(name))
	if strings.Trim(storage.CleanName(name), "/") == "" {
		return &storage.PathError{Op: "rmtree", Path: name, Err: storage.ErrNotAllowed}
	}

	var marker string
	for {
		objects, _, err := m.db.ListObjects(m.bucket, prefix, marker, "", pageSize)
		if err != nil {
			return storage.Wrap("rmtree", name, err)
		}
		for _, obj := range objects {
			if err := m.db.DeleteObject(m.bucket, obj.Key); err != nil {
				return storage.Wrap("rmtree", obj.Key, err)
			}
		}
		if len(objects) < pageSize {
			break
		}
		marker = objects[len(objects)-1].Key
	}
	return nil
}

func (m *MinDBStorage) Close() error {
	return m.db.Close()
}
