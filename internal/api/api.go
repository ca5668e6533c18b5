package api

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"runtime"
	"sort"
	"strings"
	"time"

	"filebrowser/internal/config"
	"filebrowser/internal/log"
	"filebrowser/internal/metrics"
	"filebrowser/internal/service"
	"filebrowser/internal/types"
	"filebrowser/internal/utils"
	"filebrowser/pkg/browser"
	"filebrowser/pkg/fileobject"

	"github.com/valyala/fasthttp"
)

const (
	serverName = "filebrowser"
	browseURL  = "/browse/"
	uploadURL  = "/upload/"
)

type API struct {
	service *service.BrowserService
	config  *config.Config
}

func NewAPI(s *service.BrowserService, config *config.Config) *API {
	return &API{
		service: s,
		config:  config,
	}
}

// siteID 优先取 X-Site-ID 头，其次取 site 参数
func siteID(ctx *fasthttp.RequestCtx) string {
	if id := string(ctx.Request.Header.Peek("X-Site-ID")); id != "" {
		return id
	}
	return string(ctx.QueryArgs().Peek("site"))
}

func queryValues(ctx *fasthttp.RequestCtx) url.Values {
	values := url.Values{}
	ctx.QueryArgs().VisitAll(func(k, v []byte) {
		values.Add(string(k), string(v))
	})
	return values
}

func queryArg(ctx *fasthttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

// formValue 只读表单字段，不回落到查询串
func formValue(ctx *fasthttp.RequestCtx, key string) string {
	if v := ctx.PostArgs().Peek(key); v != nil {
		return string(v)
	}
	if form, err := ctx.MultipartForm(); err == nil {
		if vs := form.Value[key]; len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

func (h *API) Browse(ctx *fasthttp.RequestCtx) {
	q := browser.Query{
		Dir:          queryArg(ctx, "dir"),
		FilterType:   queryArg(ctx, "filter_type"),
		FilterDate:   queryArg(ctx, "filter_date"),
		Search:       queryArg(ctx, "q"),
		SelectFormat: queryArg(ctx, "type"),
		Order:        queryArg(ctx, "o"),
		OrderType:    queryArg(ctx, "ot"),
		Page:         queryArg(ctx, "p"),
	}
	site := siteID(ctx)

	listing, err := h.service.Browse(ctx, site, q)
	switch {
	case errors.Is(err, browser.ErrFolderNotFound):
		h.sendRedirect(ctx, browseURL+utils.QueryString(queryValues(ctx), "", "dir"), "error", browser.Message(err))
		return
	case errors.Is(err, fileobject.ErrEncodingChanged):
		log.Logger.Errorf("Browse %q: %v", q.Dir, err)
		h.sendJSONError(ctx, browser.Message(err), fasthttp.StatusInternalServerError)
		return
	case errors.Is(err, browser.ErrRootMissing):
		log.Logger.Errorf("Upload folder %s is missing", h.service.Browser().Site(site).Directory())
		h.sendJSONError(ctx, browser.Message(err), fasthttp.StatusInternalServerError)
		return
	case err != nil:
		log.Logger.Debugf("Browse %q failed: %v", q.Dir, err)
		h.sendJSONError(ctx, browser.Message(err), fasthttp.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(ctx, h.toListing(listing, site, ctx.QueryArgs().String()), fasthttp.StatusOK)
}

func (h *API) toListing(l *browser.Listing, site, query string) *types.Listing {
	b := h.service.Browser().Site(site)
	out := &types.Listing{
		Dir:       l.Dir,
		Query:     query,
		Files:     make([]types.FileEntry, 0, len(l.Entries)),
		Order:     l.Order,
		OrderType: l.OrderType,
		Counters: types.Counters{
			ResultsTotal:   l.Counters.ResultsTotal,
			ResultsCurrent: l.Counters.ResultsCurrent,
			DeleteTotal:    l.Counters.DeleteTotal,
			ImagesTotal:    l.Counters.ImagesTotal,
			SelectTotal:    l.Counters.SelectTotal,
		},
		Page: types.PageInfo{
			Number:      l.Page.Number,
			NumPages:    l.Page.NumPages,
			Count:       l.Page.Count,
			PerPage:     l.Page.PerPage,
			HasNext:     l.Page.HasNext,
			HasPrevious: l.Page.HasPrevious,
		},
	}

	for _, e := range l.Entries {
		fe := types.FileEntry{
			Filename:   e.Filename,
			Path:       e.PathRelativeDirectory(b.Directory()),
			Folder:     e.Folder(b.Directory()),
			URL:        e.URL,
			FileType:   e.FileType,
			Extension:  e.Extension,
			MimeType:   e.MimeType,
			Selectable: e.Selectable,
			IsEmpty:    e.IsEmpty,
			Formats:    e.FileObject.Selectable(),
		}
		if e.HasSize {
			size := e.Size
			fe.Size = &size
		}
		if e.HasDate {
			date := float64(e.Date.UnixNano()) / float64(time.Second)
			fe.Date = &date
		}
		out.Files = append(out.Files, fe)
	}

	for _, name := range b.Settings().Tables.CategoryNames() {
		out.Counter = append(out.Counter, types.CategoryCount{Name: name, Count: l.Counter[name]})
	}
	for _, c := range l.Breadcrumbs {
		out.Breadcrumbs = append(out.Breadcrumbs, types.Breadcrumb{Name: c.Name, Path: c.Path})
	}
	return out
}

func (h *API) MakeDir(ctx *fasthttp.RequestCtx) {
	query := queryValues(ctx)
	name := formValue(ctx, "dir_name")

	err := h.service.MakeDir(ctx, siteID(ctx), query.Get("dir"), name)
	if err != nil {
		h.mutationError(ctx, err, browseURL)
		return
	}

	// 按日期倒序并去掉过滤和分页，新目录显示在最前
	target := browseURL + utils.QueryString(query, "ot=desc,o=date", "ot,o,filter_type,filter_date,q,p")
	h.sendRedirect(ctx, target, "success", fmt.Sprintf("The Folder %s was successfully created.", name))
}

func (h *API) Rename(ctx *fasthttp.RequestCtx) {
	query := queryValues(ctx)

	newFilename, err := h.service.Rename(ctx, siteID(ctx), query.Get("dir"), query.Get("filename"), formValue(ctx, "name"))
	if err != nil {
		h.mutationError(ctx, err, browseURL)
		return
	}

	h.sendRedirect(ctx, browseURL+utils.QueryString(query, "", "filename"), "success", "Renaming was successful.", newFilename)
}

func (h *API) Delete(ctx *fasthttp.RequestCtx) {
	query := queryValues(ctx)
	filename := query.Get("filename")
	filetype := query.Get("filetype")
	target := browseURL + utils.QueryString(query, "", "filename,filetype")

	err := h.service.Delete(ctx, siteID(ctx), query.Get("dir"), filename, filetype)
	switch {
	case errors.Is(err, browser.ErrFolderNotFound), errors.Is(err, browser.ErrFileNotFound):
		h.sendRedirect(ctx, browseURL, "error", browser.Message(err))
	case err != nil:
		log.Logger.Warnf("Delete %s failed: %v", filename, err)
		h.sendRedirect(ctx, target, "error", browser.Message(err))
	case filetype == fileobject.Folder:
		h.sendRedirect(ctx, target, "success", fmt.Sprintf("The folder %s was successfully deleted.", strings.ToLower(filename)))
	default:
		h.sendRedirect(ctx, target, "success", fmt.Sprintf("The file %s was successfully deleted.", strings.ToLower(filename)))
	}
}

// CheckFile 除 folder 外的每个表单字段都是待检查的文件名
func (h *API) CheckFile(ctx *fasthttp.RequestCtx) {
	names := make(map[string]string)
	ctx.PostArgs().VisitAll(func(k, v []byte) {
		names[string(k)] = string(v)
	})
	if form, err := ctx.MultipartForm(); err == nil {
		for k, vs := range form.Value {
			if len(vs) > 0 {
				names[k] = vs[0]
			}
		}
	}
	folder := uploadFolder(names["folder"])

	existing, err := h.service.CheckFiles(ctx, siteID(ctx), folder, names)
	if err != nil {
		h.sendJSONError(ctx, browser.Message(err), fasthttp.StatusBadRequest)
		return
	}
	h.sendJSONResponse(ctx, types.ExistingFiles(existing), fasthttp.StatusOK)
}

func (h *API) UploadFile(ctx *fasthttp.RequestCtx) {
	folder := uploadFolder(formValue(ctx, "folder"))

	fileHeader, err := ctx.FormFile("Filedata")
	if err != nil {
		h.sendJSONError(ctx, "No file uploaded", fasthttp.StatusBadRequest)
		return
	}
	defer ctx.Request.RemoveMultipartFormFiles()

	file, err := fileHeader.Open()
	if err != nil {
		h.sendJSONError(ctx, "Failed to open uploaded file", fasthttp.StatusInternalServerError)
		return
	}
	defer file.Close()

	fo, err := h.service.Upload(ctx, siteID(ctx), folder, fileHeader.Filename, file)
	if err != nil {
		log.Logger.Debugf("Upload %s to %q failed: %v", fileHeader.Filename, folder, err)
		status := fasthttp.StatusBadRequest
		switch {
		case errors.Is(err, browser.ErrTooLarge):
			status = fasthttp.StatusRequestEntityTooLarge
		case errors.Is(err, browser.ErrFolderNotFound):
			status = fasthttp.StatusNotFound
		case !isClientError(err):
			status = fasthttp.StatusInternalServerError
		}
		h.sendJSONError(ctx, browser.Message(err), status)
		return
	}

	if params := formValue(ctx, "get_params"); params != "" {
		h.sendRedirect(ctx, browseURL+params, "success", "Upload was successful.", fo.Filename)
		return
	}
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString("True")
}

// uploadFolder 上传页把自身地址拼在目录前面，去掉最后一个 /upload/ 及之前的部分
func uploadFolder(folder string) string {
	if i := strings.LastIndex(folder, uploadURL); i >= 0 {
		return folder[i+len(uploadURL):]
	}
	return folder
}

func isClientError(err error) bool {
	var ve *browser.ValidationError
	return errors.As(err, &ve) || errors.Is(err, browser.ErrSecurity)
}

// mutationError 找不到目录或文件时回到浏览页，校验失败返回字段错误
func (h *API) mutationError(ctx *fasthttp.RequestCtx, err error, fallback string) {
	var ve *browser.ValidationError
	switch {
	case errors.Is(err, browser.ErrFolderNotFound), errors.Is(err, browser.ErrFileNotFound):
		h.sendRedirect(ctx, fallback, "error", browser.Message(err))
	case errors.As(err, &ve):
		if ve.Err != nil {
			log.Logger.Warnf("%s: %v", ve.Message, ve.Err)
		}
		h.sendFormErrors(ctx, map[string]string{ve.Field: ve.Message})
	default:
		log.Logger.Warnf("Mutation failed: %v", err)
		h.sendJSONError(ctx, browser.Message(err), fasthttp.StatusInternalServerError)
	}
}

func (h *API) Settings(ctx *fasthttp.RequestCtx) {
	b := h.service.Browser().Site(siteID(ctx))
	s := b.Settings()

	response := &types.Settings{
		Directory:           b.Directory(),
		MediaURL:            s.MediaURL,
		MaxUploadSize:       s.MaxUploadSize,
		NormalizeFilename:   s.NormalizeFilename,
		ConvertFilename:     s.ConvertFilename,
		ListPerPage:         s.ListPerPage,
		DefaultSortingBy:    s.DefaultSortingBy,
		DefaultSortingOrder: s.DefaultSortingOrder,
	}
	for _, c := range s.Tables.Categories {
		response.Extensions = append(response.Extensions, types.Category{Name: c.Name, Extensions: c.Extensions})
	}
	for _, f := range s.Tables.Formats {
		response.SelectFormats = append(response.SelectFormats, types.Category{Name: f.Name, Extensions: f.Categories})
	}
	for ext := range s.EscapedExtensions {
		response.EscapedExtensions = append(response.EscapedExtensions, ext)
	}
	sort.Strings(response.EscapedExtensions)

	h.sendJSONResponse(ctx, response, fasthttp.StatusOK)
}

// Media 从存储后端读取文件内容
func (h *API) Media(ctx *fasthttp.RequestCtx, name string) {
	name = strings.TrimPrefix(name, "/")
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			ctx.Error("Forbidden", fasthttp.StatusForbidden)
			return
		}
	}

	fs := h.service.Browser().Storage()
	ok, err := fs.IsFile(ctx, name)
	if err != nil || !ok {
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}
	size, err := fs.Size(ctx, name)
	if err != nil {
		size = -1
	}
	rc, err := fs.Open(ctx, name)
	if err != nil {
		log.Logger.Debugf("Open %s failed: %v", name, err)
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}

	if ct := fileobject.MimeType(name); ct != "" {
		ctx.SetContentType(ct)
	} else {
		ctx.SetContentType("application/octet-stream")
	}
	if ctx.IsHead() {
		rc.Close()
		ctx.Response.Header.SetContentLength(int(size))
		return
	}
	ctx.SetBodyStream(rc, int(size))
}

// 发送重定向，body 同时带上结果便于非浏览器客户端读取
func (h *API) sendRedirect(ctx *fasthttp.RequestCtx, location, status, message string, filename ...string) {
	ctx.Response.Header.Set("Location", location)
	response := &types.Result{
		Status: types.Status{
			Server:  serverName,
			Status:  status,
			Message: message,
			Code:    fasthttp.StatusFound,
		},
		Redirect: location,
	}
	if len(filename) > 0 {
		response.Filename = filename[0]
	}
	h.sendJSONResponse(ctx, response, fasthttp.StatusFound)
}

func (h *API) sendFormErrors(ctx *fasthttp.RequestCtx, fields map[string]string) {
	response := &types.FormErrors{
		Status: types.Status{
			Server:  serverName,
			Status:  "error",
			Message: "Please correct the errors below.",
			Code:    fasthttp.StatusBadRequest,
		},
		Errors: fields,
	}
	h.sendJSONResponse(ctx, response, fasthttp.StatusBadRequest)
}

// 发送 JSON 成功响应
func (h *API) sendJSONResponse(ctx *fasthttp.RequestCtx, data io.WriterTo, statusCode int) {
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.SetStatusCode(statusCode)

	if _, err := data.WriteTo(ctx); err != nil {
		log.Logger.Debugf("Failed to encode JSON response: %v", err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"status":"error","message":"Internal server error"}`)
	}
}

// 发送 JSON 错误响应
func (h *API) sendJSONError(ctx *fasthttp.RequestCtx, message string, statusCode int) {
	response := types.Status{
		Server:  serverName,
		Status:  "error",
		Message: message,
		Code:    statusCode,
	}

	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.SetStatusCode(statusCode)

	if _, err := response.WriteTo(ctx); err != nil {
		log.Logger.Debugf("Failed to encode JSON error response: %v", err)
		ctx.SetBodyString(fmt.Sprintf(`{"status":"error","message":%q}`, message))
	}
}

func (h *API) Health(ctx *fasthttp.RequestCtx) {
	response := &types.Status{
		Status: "healthy",
		Server: serverName,
	}

	h.sendJSONResponse(ctx, response, fasthttp.StatusOK)
}

func (h *API) Metrics(ctx *fasthttp.RequestCtx) {
	m := metrics.GetMetrics()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := &types.Metrics{
		Requests: types.Requests{
			Total:   m.RequestCount,
			Browses: m.BrowseCount,
			Uploads: m.UploadCount,
			Deletes: m.DeleteCount,
			Renames: m.RenameCount,
			Mkdirs:  m.MkdirCount,
			Errors:  m.ErrorCount,
			Active:  m.ActiveRequests,
		},
		Performance: types.Performance{
			ResponseTimeMs: m.ResponseTime,
			Goroutines:     runtime.NumGoroutine(),
		},
		Memory: types.Memory{
			AllocMB:      memStats.Alloc / 1024 / 1024,
			TotalAllocMB: memStats.TotalAlloc / 1024 / 1024,
			SysMB:        memStats.Sys / 1024 / 1024,
			GCCycles:     memStats.NumGC,
		},
	}

	h.sendJSONResponse(ctx, response, fasthttp.StatusOK)
}

func (h *API) Ready(ctx *fasthttp.RequestCtx) {
	// 检查存储和上传目录是否可用
	if err := h.service.Ready(ctx); err != nil {
		log.Logger.Warnf("Not ready: %v", err)
		h.sendJSONError(ctx, "Service not ready", fasthttp.StatusServiceUnavailable)
		return
	}

	response := &types.ReadyCheck{
		Status: types.Status{
			Status: "ready",
			Server: serverName,
		},
		Checks: types.Checks{
			Storage: "ok",
		},
	}

	h.sendJSONResponse(ctx, response, fasthttp.StatusOK)
}
