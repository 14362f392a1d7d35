package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "secret.key")
	if err := WriteFileAtomic(path, []byte("payload"), 0600); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected content %q", data)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Fatalf("perm = %v, want 0600", info.Mode().Perm())
	}

	// No leftover temp files next to the target.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, found %d entries", len(entries))
	}
}

func TestForceSymlinkReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "libyara.so.3")
	if err := ForceSymlink("/usr/local/lib/libyara.so.3.6.3", link); err != nil {
		t.Fatal(err)
	}
	if err := ForceSymlink("/opt/ms/lib/libyara.so.3.6.3", link); err != nil {
		t.Fatalf("replacing an existing link failed: %v", err)
	}
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatal(err)
	}
	if target != "/opt/ms/lib/libyara.so.3.6.3" {
		t.Fatalf("link points at %q", target)
	}
}

func TestIsReadableFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cert.pem")
	if err := os.WriteFile(file, []byte("PEM"), 0600); err != nil {
		t.Fatal(err)
	}
	if !IsReadableFile(file) {
		t.Fatal("regular readable file reported unreadable")
	}
	if IsReadableFile(dir) {
		t.Fatal("directory reported as readable file")
	}
	if IsReadableFile(filepath.Join(dir, "missing")) {
		t.Fatal("missing path reported readable")
	}
}
