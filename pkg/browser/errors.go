package browser

import (
	"errors"

	"filebrowser/pkg/fileobject"
	"filebrowser/pkg/storage"
)

var (
	ErrFolderNotFound = errors.New("folder not found")
	ErrFileNotFound   = errors.New("file not found")
	// ErrRootMissing 配置的根目录本身不存在，继续重定向会造成死循环
	ErrRootMissing = errors.New("upload folder not found")
	ErrSecurity    = errors.New("path rejected")
	ErrTooLarge    = errors.New("upload exceeds max size")
)

// ValidationError 绑定到某个输入字段的校验失败
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Field + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// Message 返回面向用户的提示，安全类错误刻意不区分原因
func Message(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, ErrFolderNotFound):
		return "The requested Folder does not exist."
	case errors.Is(err, ErrFileNotFound):
		return "The requested File does not exist."
	case errors.Is(err, ErrRootMissing):
		return "Error finding Upload-Folder. Maybe it does not exist?"
	case errors.Is(err, fileobject.ErrEncodingChanged):
		return "The file system encoding changed. Names in this folder could not be decoded."
	case errors.Is(err, ErrTooLarge):
		return "The file is too large."
	case errors.Is(err, storage.ErrConflict):
		return "The destination already exists."
	default:
		return "An error occurred"
	}
}
