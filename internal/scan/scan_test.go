package scan

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscover_Directory(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.jpg"))
	touch(t, filepath.Join(dir, "a.png"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "nested", "c.webp"))

	files, err := Discover([]string{dir})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.jpg"),
		filepath.Join(dir, "nested", "c.webp"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Discover() = %v, want %v", files, want)
	}
}

func TestDiscover_ExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	second := filepath.Join(dir, "second.jpg")
	first := filepath.Join(dir, "first.png")
	touch(t, second)
	touch(t, first)

	// Explicit arguments keep their position, not sorted.
	files, err := Discover([]string{second, first})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := []string{second, first}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Discover() = %v, want %v", files, want)
	}
}

func TestDiscover_UnsupportedExplicitFile(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.pdf")
	touch(t, doc)

	if _, err := Discover([]string{doc}); err == nil {
		t.Error("Expected error for explicitly named unsupported file")
	}
}

func TestDiscover_MissingPath(t *testing.T) {
	if _, err := Discover([]string{"/does/not/exist"}); err == nil {
		t.Error("Expected error for missing path")
	}
}
