package storage

import (
	"context"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// CleanName 规范化名字，兼容 Windows 风格路径。
// 保留末尾斜杠，"." 映射为空串。
func CleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" {
		return ""
	}
	clean := path.Clean(name)
	if strings.HasSuffix(name, "/") && !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	if clean == "." || clean == "./" {
		clean = ""
	}
	return clean
}

// AvailableName 在 name 已存在时追加随机后缀，直到找到空闲的名字
func AvailableName(ctx context.Context, exists func(context.Context, string) (bool, error), name string) (string, error) {
	dir, file := path.Split(name)
	ext := path.Ext(file)
	root := strings.TrimSuffix(file, ext)

	for {
		ok, err := exists(ctx, name)
		if err != nil {
			return "", err
		}
		if !ok {
			return name, nil
		}
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
		name = dir + root + "_" + suffix + ext
	}
}

// ObjectKey 把名字转换成对象存储 key：去掉开头斜杠并加上前缀
func ObjectKey(prefix, name string) string {
	name = strings.TrimPrefix(CleanName(name), "/")
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

// DirPrefix 返回目录在对象存储中的列举前缀，根目录为空串
func DirPrefix(key string) string {
	key = strings.TrimSuffix(key, "/")
	if key == "" {
		return ""
	}
	return key + "/"
}

// SplitChildren 根据扁平 key 列表计算 prefix 下的直接子目录和文件
func SplitChildren(prefix string, keys []string) ([]string, []string) {
	dirSet := make(map[string]struct{})
	var files []string

	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rel := strings.TrimPrefix(key, prefix)
		if rel == "" {
			continue
		}
		if i := strings.Index(rel, "/"); i >= 0 {
			if i > 0 {
				dirSet[rel[:i]] = struct{}{}
			}
			continue
		}
		files = append(files, rel)
	}

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	sort.Strings(files)
	return dirs, files
}

// ContentType 根据扩展名推断对象的内容类型
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".csv", ".py":
		return "text/plain"
	case ".json":
		return "application/json"
	case ".xml":
		return "application/xml"
	case ".html", ".htm":
		return "text/html"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".pdf":
		return "application/pdf"
	case ".mp3":
		return "audio/mpeg"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}
