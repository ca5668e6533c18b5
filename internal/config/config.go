package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v2"

	"filebrowser/pkg/fileobject"
)

type Config struct {
	Listen   string        `yaml:"listen"`
	MediaURL string        `yaml:"media-url"`
	Storage  StorageConfig `yaml:"storage"`
	Browser  BrowserConfig `yaml:"browser"`
	Auth     AuthConfig    `yaml:"auth"`
	Cache    CacheConfig   `yaml:"cache"`
	Limits   LimitsConfig  `yaml:"limits"`
	DevMode  bool          `yaml:"dev-mode"`
	Log      string        `yaml:"log"`
	LogLevel string        `yaml:"log-level"`
}

type StorageConfig struct {
	Type   string            `yaml:"type"` // local, mindb, s3, gcs
	Path   string            `yaml:"path"` // local 根目录或 mindb 数据目录
	Config map[string]string `yaml:"config"`
}

// BrowserConfig 浏览和变更操作的可配置项
type BrowserConfig struct {
	Directory           string                `yaml:"directory"`
	MediaLibraryPerSite bool                  `yaml:"media-library-per-site"`
	Extensions          []fileobject.Category `yaml:"extensions"`
	SelectFormats       []fileobject.Format   `yaml:"select-formats"`
	Exclude             []string              `yaml:"exclude"`
	EscapedExtensions   []string              `yaml:"escaped-extensions"`
	MaxUploadSize       int64                 `yaml:"max-upload-size"` // bytes
	NormalizeFilename   bool                  `yaml:"normalize-filename"`
	ConvertFilename     bool                  `yaml:"convert-filename"`
	ListPerPage         int                   `yaml:"list-per-page"`
	DefaultSortingBy    string                `yaml:"default-sorting-by"`
	DefaultSortingOrder string                `yaml:"default-sorting-order"`
	FolderRegex         string                `yaml:"folder-regex"`
	ThumbnailsDir       string                `yaml:"thumbnails-dir"`
}

type AuthConfig struct {
	Enabled     bool     `yaml:"enabled"`
	StaffTokens []string `yaml:"staff-tokens"`
	APIKey      string   `yaml:"api-key"`
	Cookie      string   `yaml:"cookie"`
	LoginURL    string   `yaml:"login-url"`
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	TTL     string `yaml:"ttl"`
	MaxSize int    `yaml:"max-size"`
}

type LimitsConfig struct {
	MaxRequestBodySize int    `yaml:"max-request-body-size"` // bytes
	ReadTimeout        string `yaml:"read-timeout"`
	WriteTimeout       string `yaml:"write-timeout"`
}

var (
	sortKeys   = map[string]bool{"date": true, "filesize": true, "filename_lower": true, "filetype": true, "filename": true}
	sortOrders = map[string]bool{"asc": true, "desc": true}
)

func Default() *Config {
	return &Config{
		Listen:   ":8080",
		MediaURL: "/media/",
		Storage: StorageConfig{
			Type: "local",
			Path: "./media",
		},
		Browser: BrowserConfig{
			Directory:           "uploads/",
			Extensions:          fileobject.DefaultCategories(),
			SelectFormats:       fileobject.DefaultFormats(),
			EscapedExtensions:   []string{"html", "svg"},
			MaxUploadSize:       10 << 20,
			ConvertFilename:     true,
			ListPerPage:         50,
			DefaultSortingBy:    "date",
			DefaultSortingOrder: "desc",
			FolderRegex:         `^[\sa-zA-Z0-9_/-]+$`,
			ThumbnailsDir:       ".thumbnails",
		},
		Auth: AuthConfig{
			Cookie:   "filebrowser_session",
			LoginURL: "/admin/login/",
		},
		Cache: CacheConfig{
			TTL:     "30s",
			MaxSize: 1000,
		},
		Limits: LimitsConfig{
			MaxRequestBodySize: 64 << 20,
			ReadTimeout:        "60s",
			WriteTimeout:       "60s",
		},
		LogLevel: "info",
	}
}

// LoadConfig 在默认值之上叠加 yaml 文件
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Storage.Type == "" {
		return fmt.Errorf("storage type is required")
	}

	b := &c.Browser
	if _, err := regexp.Compile(b.FolderRegex); err != nil {
		return fmt.Errorf("invalid folder-regex: %w", err)
	}
	for _, exp := range b.Exclude {
		if _, err := regexp.Compile(exp); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", exp, err)
		}
	}
	if !sortKeys[b.DefaultSortingBy] {
		return fmt.Errorf("invalid default-sorting-by: %s", b.DefaultSortingBy)
	}
	if !sortOrders[b.DefaultSortingOrder] {
		return fmt.Errorf("invalid default-sorting-order: %s", b.DefaultSortingOrder)
	}
	if b.ListPerPage <= 0 {
		return fmt.Errorf("list-per-page must be positive")
	}
	if b.MaxUploadSize <= 0 {
		return fmt.Errorf("max-upload-size must be positive")
	}
	if len(b.Extensions) == 0 {
		return fmt.Errorf("at least one extension category is required")
	}

	for name, d := range map[string]string{
		"cache.ttl":            c.Cache.TTL,
		"limits.read-timeout":  c.Limits.ReadTimeout,
		"limits.write-timeout": c.Limits.WriteTimeout,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// Duration 解析配置中的时长，空串或非法时返回 def
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
