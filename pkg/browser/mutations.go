package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"path"
	"strings"

	"filebrowser/internal/log"
	"filebrowser/pkg/fileobject"
	"filebrowser/pkg/storage"
)

// MakeDir 在 dir 下创建名为 name 的目录
func (b *Browser) MakeDir(ctx context.Context, dir, name string) error {
	dir, ok := b.ResolvePath(ctx, dir)
	if !ok {
		return ErrFolderNotFound
	}
	absPath := joinPath(b.directory, dir)

	if name == "" {
		return fieldError("dir_name", "This field is required.")
	}
	if !b.settings.FolderRegex.MatchString(name) {
		return fieldError("dir_name", allowedCharsMsg)
	}
	serverPath := joinPath(absPath, name)
	exists, err := b.fs.IsDir(ctx, serverPath)
	if err != nil {
		return &ValidationError{Field: "dir_name", Message: "Error creating folder.", Err: err}
	}
	if exists {
		return fieldError("dir_name", "The Folder already exists.")
	}

	e := Event{Kind: EventMkdir, Path: dir, Name: name}
	b.fireBefore(ctx, e)
	if err := b.fs.MakeDirs(ctx, serverPath); err != nil {
		msg := "Error creating folder."
		if errors.Is(err, storage.ErrPermission) {
			msg = "Permission denied."
		}
		return &ValidationError{Field: "dir_name", Message: msg, Err: err}
	}
	b.fireAfter(ctx, e)
	return nil
}

// Rename 把 dir/filename 改名为 newName 加原扩展名，返回新文件名
func (b *Browser) Rename(ctx context.Context, dir, filename, newName string) (string, error) {
	dir, ok := b.ResolvePath(ctx, dir)
	if !ok {
		return "", ErrFolderNotFound
	}
	absPath := joinPath(b.directory, dir)

	oldPath := joinPath(absPath, filename)
	if filename == "" || strings.ContainsAny(filename, "/\\") {
		return "", ErrFileNotFound
	}
	exists, err := b.fs.Exists(ctx, oldPath)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrFileNotFound
	}

	ext := strings.ToLower(path.Ext(filename))
	if newName == "" {
		return "", fieldError("name", "This field is required.")
	}
	if !b.settings.FolderRegex.MatchString(newName) || !b.settings.FolderRegex.MatchString(absPath) {
		return "", fieldError("name", allowedCharsMsg)
	}
	if isDir, err := b.fs.IsDir(ctx, joinPath(absPath, newName)); err != nil {
		return "", err
	} else if isDir {
		return "", fieldError("name", "The Folder already exists.")
	}
	if isFile, err := b.fs.IsFile(ctx, joinPath(absPath, newName+ext)); err != nil {
		return "", err
	} else if isFile {
		return "", fieldError("name", "The File already exists.")
	}

	newFilename := newName + ext
	newPath := joinPath(absPath, newFilename)

	e := Event{Kind: EventRename, Path: dir, Name: filename, NewName: newFilename}
	b.fireBefore(ctx, e)
	b.RemoveThumbnails(ctx, newPath)
	if err := b.fs.Move(ctx, oldPath, newPath, false); err != nil {
		return "", &ValidationError{Field: "name", Message: "Error.", Err: err}
	}
	b.fireAfter(ctx, e)
	return newFilename, nil
}

// Delete 删除文件；filetype 为 Folder 时递归删除目录
func (b *Browser) Delete(ctx context.Context, dir, filename, filetype string) error {
	dir, ok := b.ResolvePath(ctx, dir)
	if !ok {
		return ErrFolderNotFound
	}
	if filename == "" {
		return ErrFileNotFound
	}
	if strings.ContainsAny(filename, "/\\") {
		return ErrSecurity
	}
	absPath := joinPath(b.directory, dir)

	normalized := path.Join(b.directory, dir, filename)
	if !within(normalized, strings.Trim(b.directory, "/")) || strings.Contains(normalized, "..") ||
		normalized == path.Clean(absPath) {
		return ErrSecurity
	}

	target := joinPath(absPath, filename)
	e := Event{Kind: EventDelete, Path: dir, Name: filename}
	b.fireBefore(ctx, e)

	var err error
	if filetype == fileobject.Folder {
		err = b.fs.RmTree(ctx, target)
	} else {
		err = b.fs.Delete(ctx, target)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", target, err)
	}
	b.fireAfter(ctx, e)
	return nil
}

// within 判断 p 是否位于 root 之下（不含 root 本身），root 为空表示存储根
func within(p, root string) bool {
	if root == "" {
		return p != "." && p != ".." && !path.IsAbs(p) && !strings.HasPrefix(p, "../")
	}
	return strings.HasPrefix(p, root+"/")
}

// Upload 把 r 的内容保存为 folder/filename，同名文件会被覆盖
func (b *Browser) Upload(ctx context.Context, folder, filename string, r io.Reader) (*fileobject.FileObject, error) {
	if strings.Contains(folder, ".") {
		return nil, ErrSecurity
	}
	if _, ok := b.ResolvePath(ctx, folder); !ok {
		return nil, ErrFolderNotFound
	}

	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" {
		return nil, fieldError("file", "This field is required.")
	}
	if ft := b.settings.Tables.Classify(filename); ft == "" || ft == fileobject.Folder {
		return nil, fieldError("file", "File type is not allowed.")
	}

	data, err := io.ReadAll(io.LimitReader(r, b.settings.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > b.settings.MaxUploadSize {
		return nil, ErrTooLarge
	}

	e := Event{Kind: EventUpload, Path: folder, Name: filename}
	b.fireBefore(ctx, e)

	// 原名和转换后的名字都可能残留缩略图
	b.RemoveThumbnails(ctx, joinPath(b.directory, folder, filename))
	filename = fileobject.ConvertFilename(filename, b.settings.NormalizeFilename, b.settings.ConvertFilename)
	filePath := joinPath(b.directory, folder, filename)
	b.RemoveThumbnails(ctx, filePath)

	if b.escaped(filePath) {
		data = []byte(html.EscapeString(string(data)))
	}

	saved, err := b.fs.Save(ctx, filePath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", filePath, err)
	}
	if saved != filePath {
		exists, err := b.fs.Exists(ctx, filePath)
		if err != nil {
			return nil, err
		}
		if exists {
			if err := b.fs.Move(ctx, saved, filePath, true); err != nil {
				return nil, fmt.Errorf("replace %s: %w", filePath, err)
			}
		} else {
			filePath = saved
		}
	}

	e.Name = path.Base(filePath)
	b.fireAfter(ctx, e)
	return b.fileObject(filePath), nil
}

func (b *Browser) escaped(p string) bool {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	return ext != "" && b.settings.EscapedExtensions[strings.ToLower(ext)]
}

// CheckFiles 返回 names 中已经存在于 folder 下的项
func (b *Browser) CheckFiles(ctx context.Context, folder string, names map[string]string) (map[string]string, error) {
	if strings.Contains(folder, "..") || isAbs(folder) {
		return nil, ErrSecurity
	}
	for key, name := range names {
		if key != "folder" && (isAbs(name) || hasDotDot(name)) {
			return nil, ErrSecurity
		}
	}
	existing := make(map[string]string)
	for key, name := range names {
		if key == "folder" || name == "" {
			continue
		}
		ok, err := b.fs.Exists(ctx, joinPath(b.directory, folder, name))
		if err != nil {
			return nil, err
		}
		if ok {
			existing[key] = name
		}
	}
	return existing, nil
}

func hasDotDot(name string) bool {
	for _, part := range strings.FieldsFunc(name, isSep) {
		if part == ".." {
			return true
		}
	}
	return false
}

// RemoveThumbnails 删除 filePath 对应的缩略图目录，失败只记录日志
func (b *Browser) RemoveThumbnails(ctx context.Context, filePath string) {
	if b.settings.ThumbnailsDir == "" {
		return
	}
	dir, file := path.Split(filePath)
	thumbs := joinPath(dir, b.settings.ThumbnailsDir, file)
	if err := b.fs.RmTree(ctx, thumbs); err != nil && !errors.Is(err, storage.ErrNotExist) {
		log.Logger.Debugf("Failed to remove thumbnails %s: %v", thumbs, err)
	}
}
