package types

import (
	"sort"

	"github.com/mailru/easyjson/jwriter"
)

// 手写的 easyjson 编码器，字段顺序与结构体声明一致

type object struct {
	w     *jwriter.Writer
	first bool
}

func begin(w *jwriter.Writer) *object {
	w.RawByte('{')
	return &object{w: w, first: true}
}

func (o *object) key(name string) *jwriter.Writer {
	if !o.first {
		o.w.RawByte(',')
	}
	o.first = false
	o.w.String(name)
	o.w.RawByte(':')
	return o.w
}

func (o *object) end() { o.w.RawByte('}') }

func marshal(fn func(w *jwriter.Writer)) ([]byte, error) {
	w := jwriter.Writer{}
	fn(&w)
	return w.BuildBytes()
}

func stringSlice(w *jwriter.Writer, items []string) {
	if items == nil {
		w.RawString("[]")
		return
	}
	w.RawByte('[')
	for i, s := range items {
		if i > 0 {
			w.RawByte(',')
		}
		w.String(s)
	}
	w.RawByte(']')
}

func stringMap(w *jwriter.Writer, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	o := begin(w)
	for _, k := range keys {
		o.key(k).String(m[k])
	}
	o.end()
}

func (v *Status) fields(o *object) {
	o.key("server").String(v.Server)
	o.key("status").String(v.Status)
	o.key("message").String(v.Message)
	o.key("code").Int(v.Code)
}

func (v *Status) MarshalEasyJSON(w *jwriter.Writer) {
	o := begin(w)
	v.fields(o)
	o.end()
}

func (v Status) MarshalJSON() ([]byte, error) { return marshal(v.MarshalEasyJSON) }

func (v *ReadyCheck) MarshalEasyJSON(w *jwriter.Writer) {
	o := begin(w)
	v.Status.MarshalEasyJSON(o.key("status"))
	c := begin(o.key("checks"))
	c.key("storage").String(v.Checks.Storage)
	c.end()
	o.end()
}

func (v ReadyCheck) MarshalJSON() ([]byte, error) { return marshal(v.MarshalEasyJSON) }

func (v *Metrics) MarshalEasyJSON(w *jwriter.Writer) {
	o := begin(w)

	r := begin(o.key("requests"))
	r.key("total").Int64(v.Requests.Total)
	r.key("browses").Int64(v.Requests.Browses)
	r.key("uploads").Int64(v.Requests.Uploads)
	r.key("deletes").Int64(v.Requests.Deletes)
	r.key("renames").Int64(v.Requests.Renames)
	r.key("mkdirs").Int64(v.Requests.Mkdirs)
	r.key("errors").Int64(v.Requests.Errors)
	r.key("active").Int64(v.Requests.Active)
	r.end()

	p := begin(o.key("performance"))
	p.key("response_time_ms").Int64(v.Performance.ResponseTimeMs)
	p.key("goroutines").Int(v.Performance.Goroutines)
	p.end()

	m := begin(o.key("memory"))
	m.key("alloc_mb").Uint64(v.Memory.AllocMB)
	m.key("total_alloc_mb").Uint64(v.Memory.TotalAllocMB)
	m.key("sys_mb").Uint64(v.Memory.SysMB)
	m.key("gc_cycles").Uint32(v.Memory.GCCycles)
	m.end()

	o.end()
}

func (v Metrics) MarshalJSON() ([]byte, error) { return marshal(v.MarshalEasyJSON) }

func (v *FileEntry) MarshalEasyJSON(w *jwriter.Writer) {
	o := begin(w)
	o.key("filename").String(v.Filename)
	o.key("path").String(v.Path)
	o.key("folder").String(v.Folder)
	o.key("url").String(v.URL)
	o.key("filetype").String(v.FileType)
	o.key("extension").String(v.Extension)
	o.key("mimetype").String(v.MimeType)
	if v.Size != nil {
		o.key("filesize").Int64(*v.Size)
	}
	if v.Date != nil {
		o.key("date").Float64(*v.Date)
	}
	o.key("selectable").Bool(v.Selectable)
	o.key("is_empty").Bool(v.IsEmpty)
	stringSlice(o.key("formats"), v.Formats)
	o.end()
}

func (v FileEntry) MarshalJSON() ([]byte, error) { return marshal(v.MarshalEasyJSON) }

func (v *Counters) MarshalEasyJSON(w *jwriter.Writer) {
	o := begin(w)
	o.key("results_total").Int(v.ResultsTotal)
	o.key("results_current").Int(v.ResultsCurrent)
	o.key("delete_total").Int(v.DeleteTotal)
	o.key("images_total").Int(v.ImagesTotal)
	o.key("select_total").Int(v.SelectTotal)
	o.end()
}

func (v *PageInfo) MarshalEasyJSON(w *jwriter.Writer) {
	o := begin(w)
	o.key("number").Int(v.Number)
	o.key("num_pages").Int(v.NumPages)
	o.key("count").Int(v.Count)
	o.key("per_page").Int(v.PerPage)
	o.key("has_next").Bool(v.HasNext)
	o.key("has_previous").Bool(v.HasPrevious)
	o.end()
}

func (v *Listing) MarshalEasyJSON(w *jwriter.Writer) {
	o := begin(w)
	o.key("dir").String(v.Dir)
	o.key("query").String(v.Query)

	fw := o.key("files")
	fw.RawByte('[')
	for i := range v.Files {
		if i > 0 {
			fw.RawByte(',')
		}
		v.Files[i].MarshalEasyJSON(fw)
	}
	fw.RawByte(']')

	cw := o.key("counter")
	cw.RawByte('[')
	for i, c := range v.Counter {
		if i > 0 {
			cw.RawByte(',')
		}
		co := begin(cw)
		co.key("name").String(c.Name)
		co.key("count").Int(c.Count)
		co.end()
	}
	cw.RawByte(']')

	v.Counters.MarshalEasyJSON(o.key("counters"))
	v.Page.MarshalEasyJSON(o.key("page"))
	o.key("o").String(v.Order)
	o.key("ot").String(v.OrderType)

	bw := o.key("breadcrumbs")
	bw.RawByte('[')
	for i, b := range v.Breadcrumbs {
		if i > 0 {
			bw.RawByte(',')
		}
		bo := begin(bw)
		bo.key("name").String(b.Name)
		bo.key("path").String(b.Path)
		bo.end()
	}
	bw.RawByte(']')
	o.end()
}

func (v Listing) MarshalJSON() ([]byte, error) { return marshal(v.MarshalEasyJSON) }

func (v *Result) MarshalEasyJSON(w *jwriter.Writer) {
	o := begin(w)
	v.Status.fields(o)
	if v.Redirect != "" {
		o.key("redirect").String(v.Redirect)
	}
	if v.Filename != "" {
		o.key("filename").String(v.Filename)
	}
	if v.URL != "" {
		o.key("url").String(v.URL)
	}
	o.end()
}

func (v Result) MarshalJSON() ([]byte, error) { return marshal(v.MarshalEasyJSON) }

func (v *FormErrors) MarshalEasyJSON(w *jwriter.Writer) {
	o := begin(w)
	v.Status.fields(o)
	stringMap(o.key("errors"), v.Errors)
	o.end()
}

func (v FormErrors) MarshalJSON() ([]byte, error) { return marshal(v.MarshalEasyJSON) }

func (v ExistingFiles) MarshalEasyJSON(w *jwriter.Writer) { stringMap(w, v) }

func (v ExistingFiles) MarshalJSON() ([]byte, error) { return marshal(v.MarshalEasyJSON) }

func categories(w *jwriter.Writer, items []Category) {
	w.RawByte('[')
	for i, c := range items {
		if i > 0 {
			w.RawByte(',')
		}
		o := begin(w)
		o.key("name").String(c.Name)
		stringSlice(o.key("extensions"), c.Extensions)
		o.end()
	}
	w.RawByte(']')
}

func (v *Settings) MarshalEasyJSON(w *jwriter.Writer) {
	o := begin(w)
	o.key("directory").String(v.Directory)
	o.key("media_url").String(v.MediaURL)
	categories(o.key("extensions"), v.Extensions)
	categories(o.key("select_formats"), v.SelectFormats)
	stringSlice(o.key("escaped_extensions"), v.EscapedExtensions)
	o.key("max_upload_size").Int64(v.MaxUploadSize)
	o.key("normalize_filename").Bool(v.NormalizeFilename)
	o.key("convert_filename").Bool(v.ConvertFilename)
	o.key("list_per_page").Int(v.ListPerPage)
	o.key("default_sorting_by").String(v.DefaultSortingBy)
	o.key("default_sorting_order").String(v.DefaultSortingOrder)
	o.end()
}

func (v Settings) MarshalJSON() ([]byte, error) { return marshal(v.MarshalEasyJSON) }
