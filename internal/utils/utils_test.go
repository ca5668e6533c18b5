package utils

import (
	"net/url"
	"testing"
)

func TestJoinURL(t *testing.T) {
	testCases := []struct {
		segments []string
		expected string
		desc     string
	}{
		{[]string{"media", "uploads"}, "/media/uploads/", "默认以斜杠开头"},
		{[]string{"/media/", "/uploads/", "a.jpg"}, "/media/uploads/a.jpg", "文件名去掉末尾斜杠"},
		{[]string{"http://cdn.example.com/media/", "uploads"}, "http://cdn.example.com/media/uploads/", "保留 http 协议"},
		{[]string{"https://cdn.example.com", "a.pdf"}, "https://cdn.example.com/a.pdf", "保留 https 协议"},
		{[]string{"media\\uploads", "2024\\x.txt"}, "/media/uploads/2024/x.txt", "反斜杠转换"},
		{[]string{"media//", "", "uploads"}, "/media/uploads/", "丢弃空段"},
		{[]string{""}, "/", "全部为空"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			result := JoinURL(tc.segments...)
			if result != tc.expected {
				t.Errorf("JoinURL(%q) = %q, expected %q", tc.segments, result, tc.expected)
			}
		})
	}
}

func TestStripRoot(t *testing.T) {
	testCases := []struct {
		path     string
		root     string
		expected string
	}{
		{"uploads/2024/a.jpg", "uploads/", "2024/a.jpg"},
		{"Uploads/2024/a.jpg", "uploads/", "2024/a.jpg"},
		{"other/a.jpg", "uploads/", "other/a.jpg"},
		{"", "uploads/", ""},
		{"uploads/a.jpg", "", "uploads/a.jpg"},
	}

	for _, tc := range testCases {
		if result := StripRoot(tc.path, tc.root); result != tc.expected {
			t.Errorf("StripRoot(%q, %q) = %q, expected %q", tc.path, tc.root, result, tc.expected)
		}
	}
}

func TestBreadcrumbs(t *testing.T) {
	crumbs := Breadcrumbs("2024/reports/q1")
	expected := []Breadcrumb{
		{Name: "2024", Path: "2024"},
		{Name: "reports", Path: "2024/reports"},
		{Name: "q1", Path: "2024/reports/q1"},
	}
	if len(crumbs) != len(expected) {
		t.Fatalf("Expected %d breadcrumbs, got %d", len(expected), len(crumbs))
	}
	for i := range expected {
		if crumbs[i] != expected[i] {
			t.Errorf("breadcrumb %d = %+v, expected %+v", i, crumbs[i], expected[i])
		}
	}

	if crumbs := Breadcrumbs(""); len(crumbs) != 0 {
		t.Errorf("Expected no breadcrumbs for root, got %v", crumbs)
	}
}

func TestQueryString(t *testing.T) {
	params := url.Values{
		"dir":         {"2024"},
		"filter_type": {"Image"},
		"p":           {"3"},
	}

	result := QueryString(params, "ot=desc,o=date", "filter_type,p")
	if result != "?dir=2024&o=date&ot=desc" {
		t.Errorf("unexpected query string: %s", result)
	}

	// 原参数不应被修改
	if params.Get("p") != "3" {
		t.Errorf("QueryString modified its input")
	}

	if result := QueryString(url.Values{}, "", ""); result != "?" {
		t.Errorf("empty query string = %q, expected ?", result)
	}

	if result := QueryString(url.Values{"dir": {"a b"}}, "", ""); result != "?dir=a+b" {
		t.Errorf("escaped query string = %q", result)
	}
}
