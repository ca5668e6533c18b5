package utils

import (
	"encoding/json"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
)

// JoinURL 用 "/" 拼接各段，折叠重复分隔符。
// 首段带 http(s):// 时保留协议，否则以 "/" 开头；末段像文件名时去掉末尾斜杠。
func JoinURL(segments ...string) string {
	if len(segments) == 0 {
		return "/"
	}

	result := "/"
	switch {
	case strings.HasPrefix(segments[0], "http://"):
		result = "http://"
	case strings.HasPrefix(segments[0], "https://"):
		result = "https://"
	}

	for _, seg := range segments {
		seg = strings.ReplaceAll(seg, "\\", "/")
		for _, elem := range strings.Split(seg, "/") {
			if elem == "" || elem == "http:" || elem == "https:" {
				continue
			}
			result += elem + "/"
		}
	}

	last := strings.ReplaceAll(segments[len(segments)-1], "\\", "/")
	if path.Ext(last) != "" {
		result = strings.TrimRight(result, "/")
	}
	return result
}

// StripRoot 忽略大小写去掉 root 前缀，不匹配时原样返回
func StripRoot(p, root string) string {
	if p == "" || root == "" {
		return p
	}
	np := strings.ReplaceAll(p, "\\", "/")
	nr := strings.ReplaceAll(root, "\\", "/")
	if len(np) >= len(nr) && strings.EqualFold(np[:len(nr)], nr) {
		return np[len(nr):]
	}
	return p
}

type Breadcrumb struct {
	Name string
	Path string
}

// Breadcrumbs 把目录拆成逐级累加的路径
func Breadcrumbs(dir string) []Breadcrumb {
	var crumbs []Breadcrumb
	acc := ""
	for _, item := range strings.Split(strings.ReplaceAll(dir, "\\", "/"), "/") {
		if item == "" {
			continue
		}
		acc = path.Join(acc, item)
		crumbs = append(crumbs, Breadcrumb{Name: item, Path: acc})
	}
	return crumbs
}

// QueryString 在 params 上增删参数后重新编码。
// add 形如 "k=v,k2=v2"，remove 形如 "k,k2"，按键名精确匹配。
func QueryString(params url.Values, add, remove string) string {
	p := url.Values{}
	for k, v := range params {
		p[k] = append([]string(nil), v...)
	}

	for _, r := range splitList(remove) {
		p.Del(r)
	}
	for _, kv := range splitList(add) {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		p.Set(k, v)
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range p[k] {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return "?" + strings.Join(parts, "&")
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func WriteTo(m json.Marshaler, w io.Writer) (int64, error) {
	b, err := m.MarshalJSON()
	if err != nil {
		return -1, err
	}
	n, err := w.Write(b)
	if err != nil {
		return int64(n), err
	}
	return int64(n), nil
}
