package gcs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	gstorage "cloud.google.com/go/storage"

	"filebrowser/pkg/storage"
)

func TestNewGCSStorageRequiresBucket(t *testing.T) {
	if _, err := NewGCSStorage(storage.Options{}); err == nil {
		t.Errorf("expected error without bucket")
	}
}

func TestMapError(t *testing.T) {
	testCases := []struct {
		err      error
		expected error
	}{
		{gstorage.ErrObjectNotExist, storage.ErrNotExist},
		{fmt.Errorf("attrs: %w", gstorage.ErrBucketNotExist), storage.ErrNotExist},
	}
	for _, tc := range testCases {
		if err := mapError("open", "a.txt", tc.err); !errors.Is(err, tc.expected) {
			t.Errorf("mapError(%v) = %v", tc.err, err)
		}
	}

	other := errors.New("boom")
	err := mapError("open", "a.txt", other)
	var pe *storage.PathError
	if !errors.As(err, &pe) || pe.Op != "open" || !errors.Is(err, other) {
		t.Errorf("unexpected wrapping: %v", err)
	}
}

func TestKeyAndURL(t *testing.T) {
	g := &GCSStorage{prefix: "site", baseURL: "https://cdn.example.com/media/"}

	if got := g.key("uploads/a.txt"); got != "site/uploads/a.txt" {
		t.Errorf("key = %s", got)
	}
	if got := g.URL("uploads/a b.txt"); got != "https://cdn.example.com/media/uploads/a b.txt" {
		t.Errorf("URL = %s", got)
	}
}

func TestRmTreeRoot(t *testing.T) {
	g := &GCSStorage{}
	for _, name := range []string{"", "/"} {
		if err := g.RmTree(context.Background(), name); !errors.Is(err, storage.ErrNotAllowed) {
			t.Errorf("RmTree(%q) = %v", name, err)
		}
	}
}
