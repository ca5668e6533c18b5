package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"filebrowser/internal/log"
	"filebrowser/internal/metrics"
	"filebrowser/internal/utils"
	"filebrowser/pkg/storage"
)

func init() {
	storage.Register(storage.S3, NewS3Storage, "minio", "aws")
}

// api 是本后端用到的 S3 客户端方法子集
type api interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type S3Storage struct {
	client  api
	bucket  string
	prefix  string
	baseURL string
}

// NewS3Storage 读取 endpoint/region/bucket/access-key/secret-key/prefix/path-style 配置
func NewS3Storage(opts storage.Options) (storage.Storage, error) {
	bucket := opts.Get("bucket", "")
	if bucket == "" {
		return nil, errors.New("s3 storage requires a bucket")
	}

	ctx := context.Background()
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Get("region", "us-east-1")),
	}
	if ak := opts.Get("access-key", ""); ak != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ak, opts.Get("secret-key", ""), ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := opts.Get("endpoint", "")
	pathStyle := opts.Get("path-style", "false") == "true" || endpoint != ""
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = pathStyle
	})

	log.Logger.Infof("S3 storage ready: bucket=%s endpoint=%s", bucket, endpoint)
	return newWithClient(client, bucket, opts.Get("prefix", ""), opts.MediaURL), nil
}

func newWithClient(client api, bucket, prefix, baseURL string) *S3Storage {
	return &S3Storage{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		baseURL: baseURL,
	}
}

func (s *S3Storage) Type() storage.StorageType { return storage.S3 }

func (s *S3Storage) key(name string) string {
	return storage.ObjectKey(s.prefix, name)
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStorageOperation(string(storage.S3), op, time.Since(start), err == nil)
}

func mapS3Error(op, path string, err error) error {
	var nsk *types.NoSuchKey
	var notFound *types.NotFound

	if errors.As(err, &nsk) || errors.As(err, &notFound) {
		return &storage.PathError{Op: op, Path: path, Err: storage.ErrNotExist}
	}
	return &storage.PathError{Op: op, Path: path, Err: err}
}

func (s *S3Storage) head(ctx context.Context, op, name string) (*s3.HeadObjectOutput, error) {
	start := time.Now()
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		err = mapS3Error(op, name, err)
		observe("head", start, err)
		return nil, err
	}
	observe("head", start, nil)
	return out, nil
}

func (s *S3Storage) objectExists(ctx context.Context, name string) (bool, error) {
	_, err := s.head(ctx, "exists", name)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Storage) Exists(ctx context.Context, name string) (bool, error) {
	isFile, err := s.IsFile(ctx, name)
	if err != nil || isFile {
		return isFile, err
	}
	return s.IsDir(ctx, name)
}

func (s *S3Storage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	start := time.Now()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		err = mapS3Error("open", name, err)
		observe("get_object", start, err)
		return nil, err
	}
	observe("get_object", start, nil)
	return out.Body, nil
}

func (s *S3Storage) Save(ctx context.Context, name string, reader io.Reader) (string, error) {
	name, err := storage.AvailableName(ctx, s.Exists, storage.CleanName(name))
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", storage.Wrap("save", name, err)
	}
	if err := s.put(ctx, s.key(name), data); err != nil {
		return "", mapS3Error("save", name, err)
	}
	return name, nil
}

func (s *S3Storage) put(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(storage.ContentType(key)),
	})
	observe("put_object", start, err)
	return err
}

func (s *S3Storage) Delete(ctx context.Context, name string) error {
	start := time.Now()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	observe("delete_object", start, err)
	if err != nil {
		return mapS3Error("delete", name, err)
	}
	return nil
}

func (s *S3Storage) Size(ctx context.Context, name string) (int64, error) {
	out, err := s.head(ctx, "size", name)
	if err != nil {
		return 0, err
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *S3Storage) ModTime(ctx context.Context, name string) (time.Time, error) {
	out, err := s.head(ctx, "modtime", name)
	if err != nil {
		return time.Time{}, err
	}
	return aws.ToTime(out.LastModified), nil
}

func (s *S3Storage) URL(name string) string {
	return utils.JoinURL(s.baseURL, storage.CleanName(name))
}

func (s *S3Storage) ListDir(ctx context.Context, name string) ([]string, []string, error) {
	prefix := storage.DirPrefix(s.key(name))
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var dirs, files []string
	for paginator.HasMorePages() {
		start := time.Now()
		page, err := paginator.NextPage(ctx)
		observe("list_objects", start, err)
		if err != nil {
			return nil, nil, mapS3Error("listdir", name, err)
		}
		for _, cp := range page.CommonPrefixes {
			dir := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if dir != "" {
				dirs = append(dirs, dir)
			}
		}
		for _, obj := range page.Contents {
			file := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if file != "" && !strings.Contains(file, "/") {
				files = append(files, file)
			}
		}
	}
	return dirs, files, nil
}

func (s *S3Storage) IsDir(ctx context.Context, name string) (bool, error) {
	name = storage.CleanName(name)
	if strings.Trim(name, "/") == "" {
		return true, nil
	}
	if isFile, err := s.IsFile(ctx, name); err != nil || isFile {
		return false, err
	}

	start := time.Now()
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(storage.DirPrefix(s.key(name))),
		MaxKeys: aws.Int32(1),
	})
	observe("list_objects", start, err)
	if err != nil {
		return false, mapS3Error("isdir", name, err)
	}
	return len(out.Contents) > 0, nil
}

func (s *S3Storage) IsFile(ctx context.Context, name string) (bool, error) {
	name = storage.CleanName(name)
	if name == "" || strings.HasSuffix(name, "/") {
		return false, nil
	}
	return s.objectExists(ctx, name)
}

// Move 目标存在时按 allowOverwrite 删除或报冲突，然后复制再删除原对象
func (s *S3Storage) Move(ctx context.Context, oldName, newName string, allowOverwrite bool) error {
	exists, err := s.Exists(ctx, newName)
	if err != nil {
		return err
	}
	if exists {
		if !allowOverwrite {
			return &storage.PathError{Op: "move", Path: newName, Err: storage.ErrConflict}
		}
		// 目标是目录时按前缀整体删除
		isDir, err := s.IsDir(ctx, newName)
		if err != nil {
			return err
		}
		if isDir {
			err = s.RmTree(ctx, newName)
		} else {
			err = s.Delete(ctx, newName)
		}
		if err != nil {
			return err
		}
	}

	isFile, err := s.IsFile(ctx, oldName)
	if err != nil {
		return err
	}
	if isFile {
		return s.moveObject(ctx, s.key(oldName), s.key(newName))
	}

	// 目录：递归移动子项
	dirs, files, err := s.ListDir(ctx, oldName)
	if err != nil {
		return err
	}
	if len(dirs) == 0 && len(files) == 0 {
		return &storage.PathError{Op: "move", Path: oldName, Err: storage.ErrNotExist}
	}
	for _, f := range files {
		if err := s.moveObject(ctx, s.key(oldName+"/"+f), s.key(newName+"/"+f)); err != nil {
			return err
		}
	}
	for _, d := range dirs {
		if err := s.Move(ctx, oldName+"/"+d, newName+"/"+d, allowOverwrite); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3Storage) moveObject(ctx context.Context, oldKey, newKey string) error {
	start := time.Now()
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(newKey),
		CopySource: aws.String(s.bucket + "/" + escapeKey(oldKey)),
	})
	observe("copy_object", start, err)
	if err != nil {
		return mapS3Error("move", oldKey, err)
	}

	start = time.Now()
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(oldKey),
	})
	observe("delete_object", start, err)
	if err != nil {
		return mapS3Error("move", oldKey, err)
	}
	return nil
}

func escapeKey(key string) string {
	return strings.ReplaceAll(url.PathEscape(key), "%2F", "/")
}

func (s *S3Storage) MakeDirs(ctx context.Context, name string) error {
	key := storage.DirPrefix(s.key(name)) + ".folder"
	if err := s.put(ctx, key, []byte{}); err != nil {
		return mapS3Error("makedirs", name, err)
	}
	return nil
}

// RmTree 逐级列举并删除，非原子
func (s *S3Storage) RmTree(ctx context.Context, name string) error {
	name = strings.TrimSuffix(storage.CleanName(name), "/")
	if name == "" {
		return &storage.PathError{Op: "rmtree", Path: name, Err: storage.ErrNotAllowed}
	}

	dirs, files, err := s.ListDir(ctx, name)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.Delete(ctx, name+"/"+f); err != nil {
			return err
		}
	}
	for _, d := range dirs {
		if err := s.RmTree(ctx, name+"/"+d); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3Storage) Close() error { return nil }
