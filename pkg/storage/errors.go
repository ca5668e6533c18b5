package storage

import (
	"errors"
	"io/fs"
)

var (
	ErrNotExist   = fs.ErrNotExist
	ErrExist      = fs.ErrExist
	ErrPermission = fs.ErrPermission

	// ErrConflict: Move 的目标已存在且不允许覆盖
	ErrConflict = errors.New("destination already exists and overwrite is not allowed")
	// ErrNotAllowed: 路径越出后端根目录
	ErrNotAllowed = errors.New("path not allowed")
)

// PathError 记录失败的操作和路径
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error { return e.Err }

// Wrap 供各后端包装底层错误，已是 *PathError 的保持原样
func Wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	return &PathError{Op: op, Path: path, Err: err}
}
