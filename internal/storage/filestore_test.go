package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestUploadReturnsPublicURL(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "http://localhost:8080/blobs/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := s.Upload(context.Background(), "proofs", "order-abc.jpg", []byte("jpegdata"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "http://localhost:8080/blobs/proofs/order-abc.jpg" {
		t.Fatalf("url = %s", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "proofs", "order-abc.jpg"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "jpegdata" {
		t.Fatalf("data = %q", data)
	}
}

func TestUploadRejectsTraversal(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "http://x")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for _, bad := range [][2]string{
		{"..", "k"},
		{"b", "../escape"},
		{"a/b", "k"},
		{"", "k"},
		{"b", ""},
	} {
		if _, err := s.Upload(context.Background(), bad[0], bad[1], nil); err == nil {
			t.Fatalf("upload(%q, %q) should fail", bad[0], bad[1])
		}
	}
}
