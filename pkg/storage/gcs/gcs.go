package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"filebrowser/internal/log"
	"filebrowser/internal/metrics"
	"filebrowser/internal/utils"
	"filebrowser/pkg/storage"
)

func init() {
	storage.Register(storage.GCS, NewGCSStorage, "google")
}

type GCSStorage struct {
	client  *gstorage.Client
	bucket  *gstorage.BucketHandle
	prefix  string
	baseURL string
}

// NewGCSStorage 读取 bucket/prefix/credentials-file/endpoint/anonymous 配置
func NewGCSStorage(opts storage.Options) (storage.Storage, error) {
	bucket := opts.Get("bucket", "")
	if bucket == "" {
		return nil, errors.New("gcs storage requires a bucket")
	}

	var clientOpts []option.ClientOption
	if f := opts.Get("credentials-file", ""); f != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(f))
	}
	if ep := opts.Get("endpoint", ""); ep != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(ep))
	}
	if opts.Get("anonymous", "false") == "true" {
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	}

	client, err := gstorage.NewClient(context.Background(), clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	log.Logger.Infof("GCS storage ready: bucket=%s", bucket)
	return &GCSStorage{
		client:  client,
		bucket:  client.Bucket(bucket),
		prefix:  strings.Trim(opts.Get("prefix", ""), "/"),
		baseURL: opts.MediaURL,
	}, nil
}

func (g *GCSStorage) Type() storage.StorageType { return storage.GCS }

func (g *GCSStorage) key(name string) string {
	return storage.ObjectKey(g.prefix, name)
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStorageOperation(string(storage.GCS), op, time.Since(start), err == nil)
}

func mapError(op, path string, err error) error {
	if errors.Is(err, gstorage.ErrObjectNotExist) || errors.Is(err, gstorage.ErrBucketNotExist) {
		return &storage.PathError{Op: op, Path: path, Err: storage.ErrNotExist}
	}
	return storage.Wrap(op, path, err)
}

func (g *GCSStorage) attrs(ctx context.Context, op, name string) (*gstorage.ObjectAttrs, error) {
	start := time.Now()
	attrs, err := g.bucket.Object(g.key(name)).Attrs(ctx)
	observe("attrs", start, err)
	if err != nil {
		return nil, mapError(op, name, err)
	}
	return attrs, nil
}

func (g *GCSStorage) Exists(ctx context.Context, name string) (bool, error) {
	isFile, err := g.IsFile(ctx, name)
	if err != nil || isFile {
		return isFile, err
	}
	return g.IsDir(ctx, name)
}

func (g *GCSStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	start := time.Now()
	r, err := g.bucket.Object(g.key(name)).NewReader(ctx)
	observe("read", start, err)
	if err != nil {
		return nil, mapError("open", name, err)
	}
	return r, nil
}

func (g *GCSStorage) Save(ctx context.Context, name string, reader io.Reader) (string, error) {
	name, err := storage.AvailableName(ctx, g.Exists, storage.CleanName(name))
	if err != nil {
		return "", err
	}
	if err := g.write(ctx, g.key(name), reader); err != nil {
		return "", mapError("save", name, err)
	}
	return name, nil
}

func (g *GCSStorage) write(ctx context.Context, key string, reader io.Reader) (err error) {
	start := time.Now()
	defer func() { observe("write", start, err) }()

	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = storage.ContentType(key)
	if _, err = io.Copy(w, reader); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (g *GCSStorage) Delete(ctx context.Context, name string) error {
	start := time.Now()
	err := g.bucket.Object(g.key(name)).Delete(ctx)
	observe("delete", start, err)
	if err != nil && !errors.Is(err, gstorage.ErrObjectNotExist) {
		return mapError("delete", name, err)
	}
	return nil
}

func (g *GCSStorage) Size(ctx context.Context, name string) (int64, error) {
	attrs, err := g.attrs(ctx, "size", name)
	if err != nil {
		return 0, err
	}
	return attrs.Size, nil
}

func (g *GCSStorage) ModTime(ctx context.Context, name string) (time.Time, error) {
	attrs, err := g.attrs(ctx, "modtime", name)
	if err != nil {
		return time.Time{}, err
	}
	return attrs.Updated, nil
}

func (g *GCSStorage) URL(name string) string {
	return utils.JoinURL(g.baseURL, storage.CleanName(name))
}

func (g *GCSStorage) ListDir(ctx context.Context, name string) ([]string, []string, error) {
	prefix := storage.DirPrefix(g.key(name))
	it := g.bucket.Objects(ctx, &gstorage.Query{Prefix: prefix, Delimiter: "/"})

	start := time.Now()
	var dirs, files []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			observe("list", start, err)
			return nil, nil, mapError("listdir", name, err)
		}
		if attrs.Prefix != "" {
			if d := strings.TrimSuffix(strings.TrimPrefix(attrs.Prefix, prefix), "/"); d != "" {
				dirs = append(dirs, d)
			}
			continue
		}
		if f := strings.TrimPrefix(attrs.Name, prefix); f != "" {
			files = append(files, f)
		}
	}
	observe("list", start, nil)
	return dirs, files, nil
}

// keys 扁平列出 prefix 下的对象，max 为 0 表示不限
func (g *GCSStorage) keys(ctx context.Context, prefix string, max int) ([]string, error) {
	it := g.bucket.Objects(ctx, &gstorage.Query{Prefix: prefix})

	start := time.Now()
	var keys []string
	for max == 0 || len(keys) < max {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			observe("list", start, err)
			return nil, err
		}
		keys = append(keys, attrs.Name)
	}
	observe("list", start, nil)
	return keys, nil
}

func (g *GCSStorage) IsDir(ctx context.Context, name string) (bool, error) {
	name = storage.CleanName(name)
	if strings.Trim(name, "/") == "" {
		return true, nil
	}
	if isFile, err := g.IsFile(ctx, name); err != nil || isFile {
		return false, err
	}
	keys, err := g.keys(ctx, storage.DirPrefix(g.key(name)), 1)
	if err != nil {
		return false, mapError("isdir", name, err)
	}
	return len(keys) > 0, nil
}

func (g *GCSStorage) IsFile(ctx context.Context, name string) (bool, error) {
	name = storage.CleanName(name)
	if name == "" || strings.HasSuffix(name, "/") {
		return false, nil
	}
	_, err := g.attrs(ctx, "isfile", name)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *GCSStorage) Move(ctx context.Context, oldName, newName string, allowOverwrite bool) error {
	exists, err := g.Exists(ctx, newName)
	if err != nil {
		return err
	}
	if exists {
		if !allowOverwrite {
			return &storage.PathError{Op: "move", Path: newName, Err: storage.ErrConflict}
		}
		// 目标是目录时按前缀整体删除
		isDir, err := g.IsDir(ctx, newName)
		if err != nil {
			return err
		}
		if isDir {
			err = g.RmTree(ctx, newName)
		} else {
			err = g.Delete(ctx, newName)
		}
		if err != nil {
			return err
		}
	}

	isFile, err := g.IsFile(ctx, oldName)
	if err != nil {
		return err
	}
	if isFile {
		return g.moveObject(ctx, g.key(oldName), g.key(newName))
	}

	oldPrefix := storage.DirPrefix(g.key(oldName))
	newPrefix := storage.DirPrefix(g.key(newName))
	keys, err := g.keys(ctx, oldPrefix, 0)
	if err != nil {
		return mapError("move", oldName, err)
	}
	if len(keys) == 0 {
		return &storage.PathError{Op: "move", Path: oldName, Err: storage.ErrNotExist}
	}
	for _, k := range keys {
		if err := g.moveObject(ctx, k, newPrefix+strings.TrimPrefix(k, oldPrefix)); err != nil {
			return err
		}
	}
	return nil
}

func (g *GCSStorage) moveObject(ctx context.Context, oldKey, newKey string) error {
	start := time.Now()
	src := g.bucket.Object(oldKey)
	_, err := g.bucket.Object(newKey).CopierFrom(src).Run(ctx)
	observe("copy", start, err)
	if err != nil {
		return mapError("move", oldKey, err)
	}

	start = time.Now()
	err = src.Delete(ctx)
	observe("delete", start, err)
	if err != nil {
		return mapError("move", oldKey, err)
	}
	return nil
}

func (g *GCSStorage) MakeDirs(ctx context.Context, name string) error {
	key := storage.DirPrefix(g.key(name)) + ".folder"
	if err := g.write(ctx, key, strings.NewReader("")); err != nil {
		return mapError("makedirs", name, err)
	}
	return nil
}

func (g *GCSStorage) RmTree(ctx context.Context, name string) error {
	name = strings.TrimSuffix(storage.CleanName(name), "/")
	if name == "" {
		return &storage.PathError{Op: "rmtree", Path: name, Err: storage.ErrNotAllowed}
	}

	keys, err := g.keys(ctx, storage.DirPrefix(g.key(name)), 0)
	if err != nil {
		return mapError("rmtree", name, err)
	}
	for _, k := range keys {
		start := time.Now()
		err := g.bucket.Object(k).Delete(ctx)
		observe("delete", start, err)
		if err != nil && !errors.Is(err, gstorage.ErrObjectNotExist) {
			log.Logger.Warnf("Failed to delete %s: %v", k, err)
			return mapError("rmtree", name, err)
		}
	}
	return nil
}

func (g *GCSStorage) Close() error {
	return g.client.Close()
}
