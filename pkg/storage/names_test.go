package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCleanName(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{"", ""},
		{".", ""},
		{"./", ""},
		{"a/b/../c", "a/c"},
		{"a\\b\\c.txt", "a/b/c.txt"},
		{"folder/", "folder/"},
		{"a//b", "a/b"},
	}

	for _, tc := range testCases {
		if got := CleanName(tc.in); got != tc.expected {
			t.Errorf("CleanName(%q) = %q, expected %q", tc.in, got, tc.expected)
		}
	}
}

func TestAvailableName(t *testing.T) {
	taken := map[string]bool{"dir/photo.jpg": true}
	exists := func(_ context.Context, name string) (bool, error) {
		return taken[name], nil
	}
	ctx := context.Background()

	name, err := AvailableName(ctx, exists, "dir/free.jpg")
	if err != nil || name != "dir/free.jpg" {
		t.Errorf("free name changed: %s, %v", name, err)
	}

	name, err = AvailableName(ctx, exists, "dir/photo.jpg")
	if err != nil {
		t.Fatalf("AvailableName failed: %v", err)
	}
	if !strings.HasPrefix(name, "dir/photo_") || !strings.HasSuffix(name, ".jpg") {
		t.Errorf("unexpected name %s", name)
	}
	if len(name) != len("dir/photo_1234567.jpg") {
		t.Errorf("unexpected suffix length in %s", name)
	}

	boom := errors.New("boom")
	_, err = AvailableName(ctx, func(context.Context, string) (bool, error) { return false, boom }, "x")
	if !errors.Is(err, boom) {
		t.Errorf("expected exists error to propagate, got %v", err)
	}
}

func TestObjectKeyAndDirPrefix(t *testing.T) {
	if got := ObjectKey("", "/a/b.txt"); got != "a/b.txt" {
		t.Errorf("ObjectKey no prefix = %s", got)
	}
	if got := ObjectKey("site/", "a/b.txt"); got != "site/a/b.txt" {
		t.Errorf("ObjectKey prefix = %s", got)
	}
	if got := DirPrefix(""); got != "" {
		t.Errorf("DirPrefix root = %q", got)
	}
	if got := DirPrefix("a/b/"); got != "a/b/" {
		t.Errorf("DirPrefix = %q", got)
	}
}

func TestSplitChildren(t *testing.T) {
	keys := []string{
		"p/z.txt",
		"p/a.txt",
		"p/sub/x.txt",
		"p/sub/deeper/y.txt",
		"p/other/.folder",
		"q/ignored.txt",
	}
	dirs, files := SplitChildren("p/", keys)
	if strings.Join(dirs, ",") != "other,sub" {
		t.Errorf("dirs = %v", dirs)
	}
	if strings.Join(files, ",") != "a.txt,z.txt" {
		t.Errorf("files = %v", files)
	}
}

func TestPathError(t *testing.T) {
	err := Wrap("move", "a.txt", ErrConflict)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("wrapped error lost its cause")
	}
	if err.Error() != "move a.txt: "+ErrConflict.Error() {
		t.Errorf("unexpected message %q", err.Error())
	}
	if Wrap("x", "y", nil) != nil {
		t.Errorf("Wrap(nil) should be nil")
	}
	if Wrap("other", "z", err) != err {
		t.Errorf("existing PathError should be kept")
	}
}

func TestCreateUnknown(t *testing.T) {
	if _, err := Create("nope", Options{}); err == nil {
		t.Errorf("expected error for unknown type")
	}
	if _, err := CreateByLabel("nope", Options{}); err == nil {
		t.Errorf("expected error for unknown label")
	}
}
