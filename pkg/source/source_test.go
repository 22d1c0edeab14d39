package source

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a.java"), []byte("class A {}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src := NewDir(dir)
	content, err := src.Read("pkg/a.java")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if string(content) != "class A {}" {
		t.Errorf("Read() = %q", content)
	}

	if _, err := src.Read("pkg/missing.java"); err == nil {
		t.Error("Read() on missing file should error")
	}
}

func TestMapSource(t *testing.T) {
	src := MapSource{
		"b.js": []byte("let x;"),
		"a.js": []byte("let y;"),
	}

	content, err := src.Read("a.js")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if string(content) != "let y;" {
		t.Errorf("Read() = %q", content)
	}

	if _, err := src.Read("c.js"); err == nil {
		t.Error("Read() on missing key should error")
	}

	if got, want := src.Paths(), []string{"a.js", "b.js"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}
}
