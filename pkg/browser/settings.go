package browser

import (
	"fmt"
	"regexp"
	"strings"

	"filebrowser/internal/config"
	"filebrowser/pkg/fileobject"
)

const allowedCharsMsg = "Only letters, numbers, underscores, spaces and hyphens are allowed."

// Settings 启动时构造一次，之后只读
type Settings struct {
	Directory           string
	MediaURL            string
	PerSite             bool
	Tables              *fileobject.Tables
	Exclude             []*regexp.Regexp
	EscapedExtensions   map[string]bool
	MaxUploadSize       int64
	NormalizeFilename   bool
	ConvertFilename     bool
	ListPerPage         int
	DefaultSortingBy    string
	DefaultSortingOrder string
	FolderRegex         *regexp.Regexp
	ThumbnailsDir       string
}

func NewSettings(cfg config.BrowserConfig, mediaURL string) (*Settings, error) {
	tables := &fileobject.Tables{
		Categories: cfg.Extensions,
		Formats:    cfg.SelectFormats,
	}
	if len(tables.Categories) == 0 {
		tables.Categories = fileobject.DefaultCategories()
	}
	if len(tables.Formats) == 0 {
		tables.Formats = fileobject.DefaultFormats()
	}

	folderRe, err := regexp.Compile(cfg.FolderRegex)
	if err != nil {
		return nil, fmt.Errorf("compile folder regex: %w", err)
	}

	patterns := cfg.Exclude
	if len(patterns) == 0 {
		patterns = []string{thumbnailPattern(tables)}
	}
	exclude := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", p, err)
		}
		exclude = append(exclude, re)
	}

	escaped := make(map[string]bool, len(cfg.EscapedExtensions))
	for _, ext := range cfg.EscapedExtensions {
		escaped[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	directory := strings.TrimPrefix(cfg.Directory, "/")
	if directory != "" && !strings.HasSuffix(directory, "/") {
		directory += "/"
	}

	return &Settings{
		Directory:           directory,
		MediaURL:            mediaURL,
		PerSite:             cfg.MediaLibraryPerSite,
		Tables:              tables,
		Exclude:             exclude,
		EscapedExtensions:   escaped,
		MaxUploadSize:       cfg.MaxUploadSize,
		NormalizeFilename:   cfg.NormalizeFilename,
		ConvertFilename:     cfg.ConvertFilename,
		ListPerPage:         cfg.ListPerPage,
		DefaultSortingBy:    cfg.DefaultSortingBy,
		DefaultSortingOrder: cfg.DefaultSortingOrder,
		FolderRegex:         folderRe,
		ThumbnailsDir:       cfg.ThumbnailsDir,
	}, nil
}

// thumbnailPattern 匹配缩略图文件名，如 photo_jpg_100x100_q85.jpg
func thumbnailPattern(tables *fileobject.Tables) string {
	var exts []string
	for _, c := range tables.Categories {
		for _, e := range c.Extensions {
			if e = strings.TrimPrefix(e, "."); e != "" {
				exts = append(exts, regexp.QuoteMeta(e))
			}
		}
	}
	group := strings.Join(exts, "|")
	return `_(` + group + `)_.*_q\d{1,3}\.(` + group + `)`
}

// SiteDirectory 按站点隔离时返回 directory/site-<id>/
func (s *Settings) SiteDirectory(site string) string {
	if !s.PerSite {
		return s.Directory
	}
	if site == "" {
		site = "1"
	}
	return s.Directory + "site-" + site + "/"
}

func (s *Settings) excluded(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return true
	}
	for _, re := range s.Exclude {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
