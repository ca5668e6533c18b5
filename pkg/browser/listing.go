package browser

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"filebrowser/internal/log"
	"filebrowser/internal/utils"
	"filebrowser/pkg/fileobject"
)

const (
	secondsPerMonth = 2592000
	secondsPerWeek  = 604800
)

// Query 一次浏览请求的参数，空字段表示未指定
type Query struct {
	Dir          string
	FilterType   string
	FilterDate   string
	Search       string
	SelectFormat string
	Order        string
	OrderType    string
	Page         string
}

// Key 规范化后的查询串，用作缓存键
func (q Query) Key() string {
	return strings.Join([]string{q.Dir, q.FilterType, q.FilterDate, q.Search, q.SelectFormat, q.Order, q.OrderType, q.Page}, "\x00")
}

type Entry struct {
	*fileobject.FileObject
	FileType   string
	Size       int64
	HasSize    bool
	Date       time.Time
	HasDate    bool
	URL        string
	Selectable bool
	IsEmpty    bool
}

type Counters struct {
	ResultsTotal   int
	ResultsCurrent int
	DeleteTotal    int
	ImagesTotal    int
	SelectTotal    int
}

type Page struct {
	Number      int
	NumPages    int
	Count       int
	PerPage     int
	HasNext     bool
	HasPrevious bool
}

type Listing struct {
	Dir         string
	Entries     []*Entry
	Counters    Counters
	Counter     map[string]int
	Page        Page
	Order       string
	OrderType   string
	Breadcrumbs []utils.Breadcrumb
}

// Browse 列出目录、过滤、排序并分页
func (b *Browser) Browse(ctx context.Context, q Query) (*Listing, error) {
	dir, ok := b.ResolvePath(ctx, q.Dir)
	if !ok {
		if err := b.checkRoot(ctx); err != nil {
			return nil, err
		}
		return nil, ErrFolderNotFound
	}
	absPath := joinPath(b.directory, dir)

	dirs, files, err := b.fs.ListDir(ctx, absPath)
	if err != nil {
		return nil, err
	}

	listing := &Listing{
		Dir:         dir,
		Counter:     make(map[string]int),
		Breadcrumbs: utils.Breadcrumbs(dir),
	}
	for _, name := range b.settings.Tables.CategoryNames() {
		listing.Counter[name] = 0
	}

	search := compileSearch(q.Search)
	now := b.now()

	var entries []*Entry
	for _, name := range append(dirs, files...) {
		if b.settings.excluded(name) {
			continue
		}
		listing.Counters.ResultsTotal++

		fo := b.fileObject(joinPath(absPath, name))
		ft, err := fo.FileType(ctx)
		if err != nil {
			log.Logger.Debugf("Skip %s: %v", fo.Path, err)
			continue
		}

		appendIt := false
		if q.FilterType == "" || ft == q.FilterType {
			if ft == fileobject.Folder {
				appendIt = true
			} else if q.FilterDate == "" {
				appendIt = true
			} else {
				date, has, err := fo.Date(ctx)
				if err != nil {
					log.Logger.Debugf("Skip %s: %v", fo.Path, err)
					continue
				}
				appendIt = has && filterDate(q.FilterDate, date, now)
			}
		}
		if search != nil && !search.MatchString(strings.ToLower(name)) {
			appendIt = false
		}

		if appendIt {
			entry, err := b.entry(ctx, fo, ft, q.SelectFormat)
			if errors.Is(err, fileobject.ErrEncodingChanged) {
				return nil, err
			}
			if err != nil {
				// 有问题的条目直接跳过，也不计入类型统计
				log.Logger.Debugf("Skip %s: %v", fo.Path, err)
				continue
			}
			listing.Counters.DeleteTotal++
			if ft == fileobject.Image {
				listing.Counters.ImagesTotal++
			}
			if b.countsAsSelectable(ft, q.SelectFormat) {
				listing.Counters.SelectTotal++
			}
			entries = append(entries, entry)
			listing.Counters.ResultsCurrent++
		}

		if ft != "" {
			listing.Counter[ft]++
		}
	}

	listing.Order = q.Order
	if listing.Order == "" {
		listing.Order = b.settings.DefaultSortingBy
	}
	listing.OrderType = q.OrderType
	if listing.OrderType == "" {
		listing.OrderType = b.settings.DefaultSortingOrder
	}
	desc := q.OrderType == "desc" || (q.OrderType == "" && b.settings.DefaultSortingOrder == "desc")
	sortEntries(entries, listing.Order, desc)

	listing.Entries, listing.Page = paginate(entries, b.settings.ListPerPage, q.Page)
	return listing, nil
}

func (b *Browser) entry(ctx context.Context, fo *fileobject.FileObject, ft, format string) (*Entry, error) {
	size, hasSize, err := fo.FileSize(ctx)
	if err != nil {
		return nil, err
	}
	date, hasDate, err := fo.Date(ctx)
	if err != nil {
		return nil, err
	}
	var empty bool
	if ft == fileobject.Folder {
		// 被列表隐藏的名字（缩略图目录、.folder 占位对象）不算内容
		if empty, err = fo.IsEmpty(ctx, b.settings.excluded); err != nil {
			return nil, err
		}
	}
	return &Entry{
		FileObject: fo,
		IsEmpty:    empty,
		FileType:   ft,
		Size:       size,
		HasSize:    hasSize,
		Date:       date,
		HasDate:    hasDate,
		URL:        fo.URL(),
		Selectable: b.settings.Tables.Selectable(ft, format),
	}, nil
}

func (b *Browser) countsAsSelectable(ft, format string) bool {
	if format == "" {
		return true
	}
	f, ok := b.settings.Tables.Format(format)
	if !ok {
		return false
	}
	for _, c := range f.Categories {
		if c == ft {
			return true
		}
	}
	return false
}

// compileSearch 搜索词按不区分大小写的正则解释，非法正则退化为字面量
func compileSearch(q string) *regexp.Regexp {
	if q == "" {
		return nil
	}
	q = strings.ToLower(q)
	re, err := regexp.Compile("(?im)" + q)
	if err != nil {
		re = regexp.MustCompile("(?im)" + regexp.QuoteMeta(q))
	}
	return re
}

// filterDate today/thisyear 比较本地日历字段，thismonth/past7days 比较秒数
func filterDate(filter string, t, now time.Time) bool {
	lt, ln := t.Local(), now.Local()
	switch filter {
	case "":
		return true
	case "today":
		return lt.Year() == ln.Year() && lt.YearDay() == ln.YearDay()
	case "thismonth":
		return t.Unix() >= now.Unix()-secondsPerMonth
	case "thisyear":
		return lt.Year() == ln.Year()
	case "past7days":
		return t.Unix() >= now.Unix()-secondsPerWeek
	default:
		return false
	}
}

// sortEntries 稳定升序排序，降序时整体反转
func sortEntries(entries []*Entry, key string, desc bool) {
	var less func(a, b *Entry) bool
	switch key {
	case "date":
		less = func(a, b *Entry) bool { return unixOrZero(a) < unixOrZero(b) }
	case "filesize":
		less = func(a, b *Entry) bool { return sizeOrZero(a) < sizeOrZero(b) }
	case "filetype":
		less = func(a, b *Entry) bool { return a.FileType < b.FileType }
	case "filename":
		less = func(a, b *Entry) bool { return a.Filename < b.Filename }
	default:
		less = func(a, b *Entry) bool { return a.FilenameLower < b.FilenameLower }
	}
	sort.SliceStable(entries, func(i, j int) bool { return less(entries[i], entries[j]) })

	if desc {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
}

func unixOrZero(e *Entry) float64 {
	if !e.HasDate {
		return 0
	}
	return float64(e.Date.UnixNano()) / float64(time.Second)
}

func sizeOrZero(e *Entry) int64 {
	if !e.HasSize {
		return 0
	}
	return e.Size
}

// paginate 页码从 1 开始；非数字或越界的页码落到最后一页
func paginate(entries []*Entry, perPage int, raw string) ([]*Entry, Page) {
	if perPage <= 0 {
		perPage = len(entries)
		if perPage == 0 {
			perPage = 1
		}
	}
	count := len(entries)
	numPages := (count + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}

	number := 1
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > numPages {
			n = numPages
		}
		number = n
	}

	start := (number - 1) * perPage
	end := start + perPage
	if end > count {
		end = count
	}
	return entries[start:end], Page{
		Number:      number,
		NumPages:    numPages,
		Count:       count,
		PerPage:     perPage,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
}
