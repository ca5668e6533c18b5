package fileobject

import (
	"path"
	"strings"
)

const (
	Folder   = "Folder"
	Image    = "Image"
	Video    = "Video"
	Document = "Document"
	Audio    = "Audio"
	Code     = "Code"
)

// Category 一个文件类别及其扩展名，扩展名带点
type Category struct {
	Name       string   `yaml:"name"`
	Extensions []string `yaml:"extensions"`
}

// Format 选择格式，由若干类别组成
type Format struct {
	Name       string   `yaml:"name"`
	Categories []string `yaml:"categories"`
}

// Tables 扩展名分类表和选择格式表，启动后只读
type Tables struct {
	Categories []Category
	Formats    []Format
}

func DefaultCategories() []Category {
	return []Category{
		{Name: Folder, Extensions: []string{""}},
		{Name: Image, Extensions: []string{".jpg", ".jpeg", ".gif", ".png", ".tif", ".tiff", ".svg"}},
		{Name: Video, Extensions: []string{".mov", ".wmv", ".mpeg", ".mpg", ".avi", ".rm", ".mp4"}},
		{Name: Document, Extensions: []string{".pdf", ".doc", ".rtf", ".txt", ".xls", ".csv", ".docx"}},
		{Name: Audio, Extensions: []string{".mp3", ".wav", ".aiff", ".midi", ".m4p"}},
		{Name: Code, Extensions: []string{".html", ".py", ".js", ".css"}},
	}
}

func DefaultFormats() []Format {
	return []Format{
		{Name: "File", Categories: []string{Folder, Document}},
		{Name: "Image", Categories: []string{Image}},
		{Name: "Media", Categories: []string{Video, Audio}},
		{Name: "Document", Categories: []string{Document}},
		{Name: "image", Categories: []string{Image}},
		{Name: "file", Categories: []string{Folder, Image, Document}},
		{Name: "media", Categories: []string{Video, Audio}},
	}
}

func DefaultTables() *Tables {
	return &Tables{
		Categories: DefaultCategories(),
		Formats:    DefaultFormats(),
	}
}

// Classify 按小写扩展名查表，第一个匹配的类别胜出，没有匹配返回空串
func (t *Tables) Classify(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	for _, c := range t.Categories {
		for _, e := range c.Extensions {
			if ext == strings.ToLower(e) {
				return c.Name
			}
		}
	}
	return ""
}

// IsSelectable 返回文件所属的全部选择格式
func (t *Tables) IsSelectable(filename string) []string {
	category := t.Classify(filename)
	if category == "" {
		return nil
	}
	var formats []string
	for _, f := range t.Formats {
		if contains(f.Categories, category) {
			formats = append(formats, f.Name)
		}
	}
	return formats
}

// Selectable 判断 fileType 能否在 format 下被选中；未指定任一方时总是可选
func (t *Tables) Selectable(fileType, format string) bool {
	if fileType == "" || format == "" {
		return true
	}
	for _, f := range t.Formats {
		if f.Name == format {
			return contains(f.Categories, fileType)
		}
	}
	return false
}

// Format 按名字查找选择格式
func (t *Tables) Format(name string) (Format, bool) {
	for _, f := range t.Formats {
		if f.Name == name {
			return f, true
		}
	}
	return Format{}, false
}

func (t *Tables) CategoryNames() []string {
	names := make([]string, 0, len(t.Categories))
	for _, c := range t.Categories {
		names = append(names, c.Name)
	}
	return names
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
