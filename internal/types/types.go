package types

import (
	"io"

	"filebrowser/internal/utils"
)

type Status struct {
	Server  string `json:"server"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (r *Status) WriteTo(w io.Writer) (int64, error) { return utils.WriteTo(r, w) }

type ReadyCheck struct {
	Status Status `json:"status"`
	Checks Checks `json:"checks"`
}

func (r *ReadyCheck) WriteTo(w io.Writer) (int64, error) { return utils.WriteTo(r, w) }

type Checks struct {
	Storage string `json:"storage"`
}

type Metrics struct {
	Requests    Requests    `json:"requests"`
	Performance Performance `json:"performance"`
	Memory      Memory      `json:"memory"`
}

func (r *Metrics) WriteTo(w io.Writer) (int64, error) { return utils.WriteTo(r, w) }

type Performance struct {
	ResponseTimeMs int64 `json:"response_time_ms"`
	Goroutines     int   `json:"goroutines"`
}

type Requests struct {
	Total   int64 `json:"total"`
	Browses int64 `json:"browses"`
	Uploads int64 `json:"uploads"`
	Deletes int64 `json:"deletes"`
	Renames int64 `json:"renames"`
	Mkdirs  int64 `json:"mkdirs"`
	Errors  int64 `json:"errors"`
	Active  int64 `json:"active"`
}

type Memory struct {
	AllocMB      uint64 `json:"alloc_mb"`
	TotalAllocMB uint64 `json:"total_alloc_mb"`
	SysMB        uint64 `json:"sys_mb"`
	GCCycles     uint32 `json:"gc_cycles"`
}

// FileEntry 列表中的一项；Size/Date 未知时省略
type FileEntry struct {
	Filename   string   `json:"filename"`
	Path       string   `json:"path"`
	Folder     string   `json:"folder"`
	URL        string   `json:"url"`
	FileType   string   `json:"filetype"`
	Extension  string   `json:"extension"`
	MimeType   string   `json:"mimetype"`
	Size       *int64   `json:"filesize,omitempty"`
	Date       *float64 `json:"date,omitempty"`
	Selectable bool     `json:"selectable"`
	IsEmpty    bool     `json:"is_empty"`
	Formats    []string `json:"formats"`
}

type Counters struct {
	ResultsTotal   int `json:"results_total"`
	ResultsCurrent int `json:"results_current"`
	DeleteTotal    int `json:"delete_total"`
	ImagesTotal    int `json:"images_total"`
	SelectTotal    int `json:"select_total"`
}

type PageInfo struct {
	Number      int  `json:"number"`
	NumPages    int  `json:"num_pages"`
	Count       int  `json:"count"`
	PerPage     int  `json:"per_page"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// CategoryCount 按分类名统计，保持分类表的顺序
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Listing struct {
	Dir         string          `json:"dir"`
	Query       string          `json:"query"`
	Files       []FileEntry     `json:"files"`
	Counter     []CategoryCount `json:"counter"`
	Counters    Counters        `json:"counters"`
	Page        PageInfo        `json:"page"`
	Order       string          `json:"o"`
	OrderType   string          `json:"ot"`
	Breadcrumbs []Breadcrumb    `json:"breadcrumbs"`
}

func (r *Listing) WriteTo(w io.Writer) (int64, error) { return utils.WriteTo(r, w) }

// Result 变更操作的结果，Redirect 指向操作后应返回的浏览页
type Result struct {
	Status   Status `json:",inline"`
	Redirect string `json:"redirect,omitempty"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
}

func (r *Result) WriteTo(w io.Writer) (int64, error) { return utils.WriteTo(r, w) }

// FormErrors 表单校验失败，键为字段名
type FormErrors struct {
	Status Status            `json:",inline"`
	Errors map[string]string `json:"errors"`
}

func (r *FormErrors) WriteTo(w io.Writer) (int64, error) { return utils.WriteTo(r, w) }

// ExistingFiles check_file 的响应，只包含已存在的项
type ExistingFiles map[string]string

func (r ExistingFiles) WriteTo(w io.Writer) (int64, error) { return utils.WriteTo(r, w) }

type Category struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

type Settings struct {
	Directory           string     `json:"directory"`
	MediaURL            string     `json:"media_url"`
	Extensions          []Category `json:"extensions"`
	SelectFormats       []Category `json:"select_formats"`
	EscapedExtensions   []string   `json:"escaped_extensions"`
	MaxUploadSize       int64      `json:"max_upload_size"`
	NormalizeFilename   bool       `json:"normalize_filename"`
	ConvertFilename     bool       `json:"convert_filename"`
	ListPerPage         int        `json:"list_per_page"`
	DefaultSortingBy    string     `json:"default_sorting_by"`
	DefaultSortingOrder string     `json:"default_sorting_order"`
}

func (r *Settings) WriteTo(w io.Writer) (int64, error) { return utils.WriteTo(r, w) }
