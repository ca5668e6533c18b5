package fileobject

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"filebrowser/pkg/storage"
	"filebrowser/pkg/storage/local"
)

// countingStorage 统计后端调用次数
type countingStorage struct {
	storage.Storage
	isDir, exists, size int
	listDir             func() ([]string, []string, error)
}

func (c *countingStorage) IsDir(ctx context.Context, name string) (bool, error) {
	c.isDir++
	return c.Storage.IsDir(ctx, name)
}

func (c *countingStorage) Exists(ctx context.Context, name string) (bool, error) {
	c.exists++
	return c.Storage.Exists(ctx, name)
}

func (c *countingStorage) Size(ctx context.Context, name string) (int64, error) {
	c.size++
	return c.Storage.Size(ctx, name)
}

func (c *countingStorage) ListDir(ctx context.Context, name string) ([]string, []string, error) {
	if c.listDir != nil {
		return c.listDir()
	}
	return c.Storage.ListDir(ctx, name)
}

func newLocal(t *testing.T) (string, storage.Storage) {
	t.Helper()
	dir := t.TempDir()
	s, err := local.NewLocalStorage(storage.Options{Root: dir, MediaURL: "/media/"})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	return dir, s
}

func TestClassify(t *testing.T) {
	tables := DefaultTables()

	testCases := []struct {
		filename string
		expected string
	}{
		{"a.jpg", Image},
		{"a.JPG", Image},
		{"movie.Mp4", Video},
		{"report.pdf", Document},
		{"song.mp3", Audio},
		{"index.html", Code},
		{"archive.zip", ""},
		{"Makefile", Folder},
	}

	for _, tc := range testCases {
		t.Run(tc.filename, func(t *testing.T) {
			if got := tables.Classify(tc.filename); got != tc.expected {
				t.Errorf("Classify(%s) = %q, expected %q", tc.filename, got, tc.expected)
			}
		})
	}

	if tables.Classify("a.JPG") != tables.Classify("a.jpg") {
		t.Errorf("classification must ignore case")
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	tables := &Tables{Categories: []Category{
		{Name: "First", Extensions: []string{".x"}},
		{Name: "Second", Extensions: []string{".X"}},
	}}
	if got := tables.Classify("f.x"); got != "First" {
		t.Errorf("expected first category, got %s", got)
	}
}

func TestIsSelectable(t *testing.T) {
	tables := DefaultTables()

	if got := tables.IsSelectable("photo.png"); !reflect.DeepEqual(got, []string{"Image", "image", "file"}) {
		t.Errorf("IsSelectable(photo.png) = %v", got)
	}
	if got := tables.IsSelectable("clip.avi"); !reflect.DeepEqual(got, []string{"Media", "media"}) {
		t.Errorf("IsSelectable(clip.avi) = %v", got)
	}
	if got := tables.IsSelectable("unknown.zip"); got != nil {
		t.Errorf("IsSelectable(unknown.zip) = %v", got)
	}
}

func TestSelectable(t *testing.T) {
	tables := DefaultTables()

	testCases := []struct {
		fileType string
		format   string
		expected bool
	}{
		{Image, "image", true},
		{Document, "image", false},
		{Folder, "file", true},
		{Video, "", true},
		{"", "image", true},
		{Image, "missing", false},
	}

	for _, tc := range testCases {
		if got := tables.Selectable(tc.fileType, tc.format); got != tc.expected {
			t.Errorf("Selectable(%q, %q) = %v, expected %v", tc.fileType, tc.format, got, tc.expected)
		}
	}
}

func TestConvertFilename(t *testing.T) {
	testCases := []struct {
		name      string
		normalize bool
		convert   bool
		expected  string
	}{
		{"My Photo.JPG", false, true, "my_photo.jpg"},
		{"My Photo.JPG", false, false, "My Photo.JPG"},
		{"Café Menü.pdf", true, false, "Cafe Menu.pdf"},
		{"Résumé (final)!.doc", true, true, "resume_final.doc"},
		{"日本.txt", true, false, ".txt"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConvertFilename(tc.name, tc.normalize, tc.convert); got != tc.expected {
				t.Errorf("ConvertFilename(%q) = %q, expected %q", tc.name, got, tc.expected)
			}
		})
	}
}

func TestDerivedFields(t *testing.T) {
	_, fs := newLocal(t)
	f := New(fs, "uploads/2024/Report.Final.PDF", nil)

	if f.Head != "uploads/2024" {
		t.Errorf("Head = %s", f.Head)
	}
	if f.Filename != "Report.Final.PDF" || f.FilenameLower != "report.final.pdf" {
		t.Errorf("Filename = %s / %s", f.Filename, f.FilenameLower)
	}
	if f.FilenameRoot != "Report.Final" || f.Extension != ".PDF" {
		t.Errorf("FilenameRoot = %s, Extension = %s", f.FilenameRoot, f.Extension)
	}
	if f.MimeType != "application/pdf" {
		t.Errorf("MimeType = %s", f.MimeType)
	}
	if f.Directory("uploads/") != "2024/Report.Final.PDF" {
		t.Errorf("Directory = %s", f.Directory("uploads/"))
	}
	if f.Folder("uploads/") != "2024" {
		t.Errorf("Folder = %s", f.Folder("uploads/"))
	}
	if f.URL() != "/media/uploads/2024/Report.Final.PDF" {
		t.Errorf("URL = %s", f.URL())
	}
}

func TestLazyMetadata(t *testing.T) {
	dir, fs := newLocal(t)
	if err := os.MkdirAll(filepath.Join(dir, "docs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docs", "a.txt"), []byte("12345"), 0644); err != nil {
		t.Fatal(err)
	}

	counting := &countingStorage{Storage: fs}
	ctx := context.Background()
	f := New(counting, "docs/a.txt", nil)

	for i := 0; i < 3; i++ {
		ft, err := f.FileType(ctx)
		if err != nil || ft != Document {
			t.Fatalf("FileType = %s, %v", ft, err)
		}
		size, ok, err := f.FileSize(ctx)
		if err != nil || !ok || size != 5 {
			t.Fatalf("FileSize = %d, %v, %v", size, ok, err)
		}
		date, ok, err := f.Date(ctx)
		if err != nil || !ok || time.Since(date) > time.Hour {
			t.Fatalf("Date = %v, %v, %v", date, ok, err)
		}
	}

	if counting.isDir != 1 || counting.exists != 1 || counting.size != 1 {
		t.Errorf("metadata fetched more than once: isDir=%d exists=%d size=%d",
			counting.isDir, counting.exists, counting.size)
	}
}

func TestMissingEntry(t *testing.T) {
	_, fs := newLocal(t)
	ctx := context.Background()
	f := New(fs, "ghost.pdf", nil)

	if ok, _ := f.Exists(ctx); ok {
		t.Errorf("ghost.pdf should not exist")
	}
	if _, ok, err := f.FileSize(ctx); ok || err != nil {
		t.Errorf("FileSize for missing entry: ok=%v err=%v", ok, err)
	}
	if _, ok, err := f.Date(ctx); ok || err != nil {
		t.Errorf("Date for missing entry: ok=%v err=%v", ok, err)
	}
}

func TestFolderAndIsEmpty(t *testing.T) {
	dir, fs := newLocal(t)
	ctx := context.Background()
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "full", "child"), 0755); err != nil {
		t.Fatal(err)
	}

	empty := New(fs, "empty", nil)
	if ft, _ := empty.FileType(ctx); ft != Folder {
		t.Errorf("FileType = %s, expected Folder", ft)
	}
	if ok, err := empty.IsEmpty(ctx, nil); err != nil || !ok {
		t.Errorf("IsEmpty(empty) = %v, %v", ok, err)
	}
	if ok, err := New(fs, "full", nil).IsEmpty(ctx, nil); err != nil || ok {
		t.Errorf("IsEmpty(full) = %v, %v", ok, err)
	}
	if ok, err := New(fs, "missing", nil).IsEmpty(ctx, nil); err != nil || ok {
		t.Errorf("IsEmpty(missing) = %v, %v", ok, err)
	}

	broken := &countingStorage{Storage: fs, listDir: func() ([]string, []string, error) {
		return nil, []string{"bad\xff"}, nil
	}}
	if _, err := New(broken, "empty", nil).IsEmpty(ctx, nil); err != ErrEncodingChanged {
		t.Errorf("expected ErrEncodingChanged, got %v", err)
	}
}

func TestIsEmptyHidden(t *testing.T) {
	dir, fs := newLocal(t)
	ctx := context.Background()
	if err := os.MkdirAll(filepath.Join(dir, "photos", ".thumbnails"), 0755); err != nil {
		t.Fatal(err)
	}
	hidden := func(name string) bool { return strings.HasPrefix(name, ".") }

	f := New(fs, "photos", nil)
	if ok, err := f.IsEmpty(ctx, nil); err != nil || ok {
		t.Errorf("IsEmpty = %v, %v", ok, err)
	}
	if ok, err := f.IsEmpty(ctx, hidden); err != nil || !ok {
		t.Errorf("IsEmpty with only hidden names = %v, %v", ok, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "photos", "a.jpg"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if ok, err := f.IsEmpty(ctx, hidden); err != nil || ok {
		t.Errorf("IsEmpty with a visible file = %v, %v", ok, err)
	}
}
