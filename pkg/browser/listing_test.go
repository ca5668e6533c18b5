package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"filebrowser/internal/config"
	"filebrowser/pkg/fileobject"
	"filebrowser/pkg/storage"
)

func TestBrowseRootMissing(t *testing.T) {
	b, root := newTestBrowser(t)
	ctx := context.Background()

	if _, err := b.Browse(ctx, Query{Dir: "nope"}); !errors.Is(err, ErrFolderNotFound) {
		t.Errorf("expected ErrFolderNotFound, got %v", err)
	}

	if err := os.RemoveAll(root + "/uploads"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Browse(ctx, Query{Dir: "nope"}); !errors.Is(err, ErrRootMissing) {
		t.Errorf("expected ErrRootMissing, got %v", err)
	}
}

func TestBrowseExclusionAndCounters(t *testing.T) {
	b, root := newTestBrowser(t)
	ctx := context.Background()

	put(t, root, "a.jpg", "img")
	put(t, root, "b.pdf", "doc")
	put(t, root, "notes.xyz", "unknown")
	put(t, root, ".hidden", "x")
	put(t, root, "a_jpg_100x100_q85.jpg", "thumb")
	put(t, root, "sub/inner.txt", "x")
	put(t, root, ".thumbnails/a.jpg/x.jpg", "x")

	listing, err := b.Browse(ctx, Query{Order: "filename", OrderType: "asc"})
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}

	expected := []string{"a.jpg", "b.pdf", "notes.xyz", "sub"}
	if got := names(listing.Entries); !reflect.DeepEqual(got, expected) {
		t.Errorf("entries = %v, expected %v", got, expected)
	}

	c := listing.Counters
	if c.ResultsTotal != 4 || c.ResultsCurrent != 4 || c.DeleteTotal != 4 || c.ImagesTotal != 1 || c.SelectTotal != 4 {
		t.Errorf("unexpected counters %+v", c)
	}
	if listing.Counter[fileobject.Image] != 1 || listing.Counter[fileobject.Document] != 1 || listing.Counter[fileobject.Folder] != 1 {
		t.Errorf("unexpected per-type counter %v", listing.Counter)
	}
	if _, ok := listing.Counter[fileobject.Audio]; !ok {
		t.Errorf("counter should contain every category, got %v", listing.Counter)
	}

	// 过滤只影响当前结果，不影响总数和分类计数
	filtered, err := b.Browse(ctx, Query{FilterType: fileobject.Image})
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if got := names(filtered.Entries); !reflect.DeepEqual(got, []string{"a.jpg"}) {
		t.Errorf("filtered entries = %v", got)
	}
	if filtered.Counters.ResultsTotal != 4 || filtered.Counters.ResultsCurrent != 1 {
		t.Errorf("unexpected filtered counters %+v", filtered.Counters)
	}
	if !reflect.DeepEqual(filtered.Counter, listing.Counter) {
		t.Errorf("per-type counter changed under filter: %v vs %v", filtered.Counter, listing.Counter)
	}
}

func TestBrowseEntryFields(t *testing.T) {
	b, root := newTestBrowser(t)
	ctx := context.Background()
	put(t, root, "2024/Report.PDF", "12345")

	listing, err := b.Browse(ctx, Query{Dir: "2024"})
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if len(listing.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(listing.Entries))
	}
	e := listing.Entries[0]
	if e.FileType != fileobject.Document {
		t.Errorf("FileType = %s", e.FileType)
	}
	if !e.HasSize || e.Size != 5 {
		t.Errorf("Size = %d (%v)", e.Size, e.HasSize)
	}
	if !e.HasDate || e.Date.IsZero() {
		t.Errorf("Date missing")
	}
	if e.URL != "/media/uploads/2024/Report.PDF" {
		t.Errorf("URL = %s", e.URL)
	}
	if e.FilenameLower != "report.pdf" {
		t.Errorf("FilenameLower = %s", e.FilenameLower)
	}
	if listing.Dir != "2024" || len(listing.Breadcrumbs) != 1 {
		t.Errorf("Dir = %s, breadcrumbs = %v", listing.Dir, listing.Breadcrumbs)
	}
}

func TestBrowseSearch(t *testing.T) {
	b, root := newTestBrowser(t)
	ctx := context.Background()
	put(t, root, "Invoice_2024.pdf", "x")
	put(t, root, "report.pdf", "x")
	put(t, root, "old-INVOICE.txt", "x")

	testCases := []struct {
		search   string
		expected []string
	}{
		{"invoice", []string{"Invoice_2024.pdf", "old-INVOICE.txt"}},
		{"INVOICE", []string{"Invoice_2024.pdf", "old-INVOICE.txt"}},
		{"^report", []string{"report.pdf"}},
		{"[", nil},
		{"", []string{"Invoice_2024.pdf", "old-INVOICE.txt", "report.pdf"}},
	}

	for _, tc := range testCases {
		t.Run(tc.search, func(t *testing.T) {
			listing, err := b.Browse(ctx, Query{Search: tc.search, Order: "filename_lower", OrderType: "asc"})
			if err != nil {
				t.Fatalf("Browse failed: %v", err)
			}
			got := names(listing.Entries)
			if len(got) == 0 {
				got = nil
			}
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("search %q = %v, expected %v", tc.search, got, tc.expected)
			}
			if listing.Counters.ResultsTotal != 3 {
				t.Errorf("ResultsTotal = %d", listing.Counters.ResultsTotal)
			}
		})
	}
}

func TestBrowseSortReverse(t *testing.T) {
	b, root := newTestBrowser(t)
	ctx := context.Background()
	put(t, root, "a.txt", "1")
	put(t, root, "b.txt", "22")
	put(t, root, "c.txt", "22")
	put(t, root, "d.txt", "333")

	asc, err := b.Browse(ctx, Query{Order: "filesize", OrderType: "asc"})
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	desc, err := b.Browse(ctx, Query{Order: "filesize", OrderType: "desc"})
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}

	ascNames := names(asc.Entries)
	if !reflect.DeepEqual(ascNames, []string{"a.txt", "b.txt", "c.txt", "d.txt"}) {
		t.Errorf("asc = %v", ascNames)
	}
	// 相同大小的条目在降序中顺序也完全反转
	reversed := make([]string, len(ascNames))
	for i, n := range ascNames {
		reversed[len(ascNames)-1-i] = n
	}
	if got := names(desc.Entries); !reflect.DeepEqual(got, reversed) {
		t.Errorf("desc = %v, expected %v", got, reversed)
	}
}

func TestBrowseDefaultOrder(t *testing.T) {
	b, root := newTestBrowser(t)
	ctx := context.Background()

	old := put(t, root, "old.txt", "x")
	recent := put(t, root, "new.txt", "x")
	mid := put(t, root, "mid.txt", "x")
	for p, ts := range map[string]time.Time{
		old:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		mid:    time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		recent: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		if err := os.Chtimes(p, ts, ts); err != nil {
			t.Fatal(err)
		}
	}

	listing, err := b.Browse(ctx, Query{})
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if got := names(listing.Entries); !reflect.DeepEqual(got, []string{"new.txt", "mid.txt", "old.txt"}) {
		t.Errorf("default order = %v", got)
	}
	if listing.Order != "date" || listing.OrderType != "desc" {
		t.Errorf("Order = %s %s", listing.Order, listing.OrderType)
	}

	asc, err := b.Browse(ctx, Query{OrderType: "asc"})
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if got := names(asc.Entries); !reflect.DeepEqual(got, []string{"old.txt", "mid.txt", "new.txt"}) {
		t.Errorf("asc order = %v", got)
	}
}

func TestBrowseFilterDate(t *testing.T) {
	b, root := newTestBrowser(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	b.now = func() time.Time { return now }

	for name, ts := range map[string]time.Time{
		"today.txt":    now.Add(-time.Hour),
		"lastweek.txt": now.Add(-5 * 24 * time.Hour),
		"spring.txt":   time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local),
		"ancient.txt":  time.Date(2019, 3, 1, 0, 0, 0, 0, time.Local),
	} {
		p := put(t, root, name, "x")
		if err := os.Chtimes(p, ts, ts); err != nil {
			t.Fatal(err)
		}
	}
	put(t, root, "folder/x.txt", "x")

	testCases := []struct {
		filter   string
		expected []string
	}{
		{"today", []string{"folder", "today.txt"}},
		{"past7days", []string{"folder", "lastweek.txt", "today.txt"}},
		{"thismonth", []string{"folder", "lastweek.txt", "today.txt"}},
		{"thisyear", []string{"folder", "lastweek.txt", "spring.txt", "today.txt"}},
		{"bogus", []string{"folder"}},
	}

	for _, tc := range testCases {
		t.Run(tc.filter, func(t *testing.T) {
			listing, err := b.Browse(ctx, Query{FilterDate: tc.filter, Order: "filename", OrderType: "asc"})
			if err != nil {
				t.Fatalf("Browse failed: %v", err)
			}
			if got := names(listing.Entries); !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("filter %s = %v, expected %v", tc.filter, got, tc.expected)
			}
		})
	}
}

func TestBrowsePagination(t *testing.T) {
	b, root := newTestBrowser(t, func(c *config.BrowserConfig) { c.ListPerPage = 2 })
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		put(t, root, fmt.Sprintf("f%d.txt", i), "x")
	}

	testCases := []struct {
		page     string
		number   int
		expected []string
	}{
		{"", 1, []string{"f0.txt", "f1.txt"}},
		{"2", 2, []string{"f2.txt", "f3.txt"}},
		{"3", 3, []string{"f4.txt"}},
		{"9", 3, []string{"f4.txt"}},
		{"0", 3, []string{"f4.txt"}},
		{"abc", 3, []string{"f4.txt"}},
	}

	for _, tc := range testCases {
		t.Run("page="+tc.page, func(t *testing.T) {
			listing, err := b.Browse(ctx, Query{Page: tc.page, Order: "filename", OrderType: "asc"})
			if err != nil {
				t.Fatalf("Browse failed: %v", err)
			}
			p := listing.Page
			if p.Number != tc.number || p.NumPages != 3 || p.Count != 5 {
				t.Errorf("page = %+v", p)
			}
			if p.HasNext != (tc.number < 3) || p.HasPrevious != (tc.number > 1) {
				t.Errorf("next/previous wrong for %+v", p)
			}
			if got := names(listing.Entries); !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("entries = %v, expected %v", got, tc.expected)
			}
		})
	}
}

func TestBrowseEmptyDirectory(t *testing.T) {
	b, _ := newTestBrowser(t)
	listing, err := b.Browse(context.Background(), Query{Page: "4"})
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if len(listing.Entries) != 0 || listing.Page.Number != 1 || listing.Page.NumPages != 1 {
		t.Errorf("unexpected empty listing %+v", listing.Page)
	}
}

func TestBrowseIdempotent(t *testing.T) {
	b, root := newTestBrowser(t)
	ctx := context.Background()
	put(t, root, "a.jpg", "x")
	put(t, root, "b.mp3", "xx")
	put(t, root, "c/d.txt", "x")

	q := Query{Order: "filetype", Search: "."}
	first, err := b.Browse(ctx, q)
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	second, err := b.Browse(ctx, q)
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if !reflect.DeepEqual(names(first.Entries), names(second.Entries)) {
		t.Errorf("listings differ: %v vs %v", names(first.Entries), names(second.Entries))
	}
	if first.Counters != second.Counters || !reflect.DeepEqual(first.Counter, second.Counter) {
		t.Errorf("counters differ")
	}
}

func TestBrowseSelectFormat(t *testing.T) {
	b, root := newTestBrowser(t)
	ctx := context.Background()
	put(t, root, "a.jpg", "x")
	put(t, root, "b.pdf", "x")
	put(t, root, "sub/x.txt", "x")

	listing, err := b.Browse(ctx, Query{SelectFormat: "image", Order: "filename", OrderType: "asc"})
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if listing.Counters.SelectTotal != 1 {
		t.Errorf("SelectTotal = %d", listing.Counters.SelectTotal)
	}
	selectable := make(map[string]bool)
	for _, e := range listing.Entries {
		selectable[e.Filename] = e.Selectable
	}
	expected := map[string]bool{"a.jpg": true, "b.pdf": false, "sub": false}
	if !reflect.DeepEqual(selectable, expected) {
		t.Errorf("selectable = %v", selectable)
	}

	unknown, err := b.Browse(ctx, Query{SelectFormat: "nonsense"})
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if unknown.Counters.SelectTotal != 0 {
		t.Errorf("unknown format SelectTotal = %d", unknown.Counters.SelectTotal)
	}
}

func TestQueryKey(t *testing.T) {
	a := Query{Dir: "a", Search: "b"}
	b := Query{Dir: "a", FilterType: "b"}
	if a.Key() == b.Key() {
		t.Errorf("distinct queries share a key")
	}
	if !strings.Contains(a.Key(), "a") || a.Key() != (Query{Dir: "a", Search: "b"}).Key() {
		t.Errorf("key not stable")
	}
}

func BenchmarkBrowse(b *testing.B) {
	br, root := newTestBrowser(b)
	for i := 0; i < 200; i++ {
		put(b, root, fmt.Sprintf("dir/file%03d.jpg", i), strings.Repeat("x", i))
	}
	ctx := context.Background()
	q := Query{Dir: "dir", Order: "filesize", Search: "file1", FilterType: fileobject.Image}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := br.Browse(ctx, q); err != nil {
			b.Fatal(err)
		}
	}
}

// sizeFailStorage 对指定文件的 Size 调用返回错误
type sizeFailStorage struct {
	storage.Storage
	name string
}

func (s *sizeFailStorage) Size(ctx context.Context, name string) (int64, error) {
	if name == s.name {
		return 0, errors.New("stat failed")
	}
	return s.Storage.Size(ctx, name)
}

func TestBrowseSkipsBrokenEntry(t *testing.T) {
	b, root := newTestBrowser(t)
	put(t, root, "ok.txt", "ok")
	put(t, root, "broken.txt", "broken")

	broken := New(&sizeFailStorage{Storage: b.Storage(), name: "uploads/broken.txt"}, b.Settings())
	listing, err := broken.Browse(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}

	if got := names(listing.Entries); !reflect.DeepEqual(got, []string{"ok.txt"}) {
		t.Errorf("entries = %v", got)
	}
	if listing.Counter[fileobject.Document] != 1 {
		t.Errorf("Document counter = %d, expected 1", listing.Counter[fileobject.Document])
	}
	if listing.Counters.ResultsTotal != 2 || listing.Counters.ResultsCurrent != 1 {
		t.Errorf("unexpected counters %+v", listing.Counters)
	}
}

func TestBrowseEmptyFolderFlag(t *testing.T) {
	b, root := newTestBrowser(t)
	if err := os.MkdirAll(filepath.Join(root, "uploads", "empty", ".thumbnails"), 0755); err != nil {
		t.Fatal(err)
	}
	put(t, root, "full/a.txt", "a")
	put(t, root, "b.txt", "b")

	listing, err := b.Browse(context.Background(), Query{Order: "filename", OrderType: "asc"})
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	got := make(map[string]bool)
	for _, e := range listing.Entries {
		got[e.Filename] = e.IsEmpty
	}
	expected := map[string]bool{"b.txt": false, "empty": true, "full": false}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("is_empty = %v, expected %v", got, expected)
	}
}

func TestBrowseEncodingChanged(t *testing.T) {
	b, root := newTestBrowser(t)
	put(t, root, "sub/ok.txt", "ok")
	if err := os.WriteFile(filepath.Join(root, "uploads", "sub", "bad\xff.txt"), []byte("x"), 0644); err != nil {
		t.Skipf("file system rejects non UTF-8 names: %v", err)
	}

	if _, err := b.Browse(context.Background(), Query{}); !errors.Is(err, fileobject.ErrEncodingChanged) {
		t.Errorf("expected ErrEncodingChanged, got %v", err)
	}
}
