//go:build !windows

package filesystem

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"slowniki/pkg/contract"
)

// TestOpenNonRegular 非常规文件被拒绝 (Unix only - uses mkfifo)
func TestOpenNonRegular(t *testing.T) {
	root := t.TempDir()
	if err := syscall.Mkfifo(filepath.Join(root, "fifo"), 0o644); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}
	if _, err := New(root, nil).Open(context.Background(), "fifo"); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("expect ErrInvalidInput, got %v", err)
	}
}

// TestOpenSymlink 测试符号链接 (Unix only)
func TestOpenSymlink(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "t.txt"), []byte("ok"), 0o644)
	os.Symlink(filepath.Join(dir, "t.txt"), filepath.Join(dir, "l.txt"))
	rc, err := New(dir, nil).Open(context.Background(), "l.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "ok" {
		t.Fatalf("unexpected %q", string(b))
	}
}

// TestOpenSymlinkDir 符号链接指向目录时拒绝 (Unix only)
func TestOpenSymlinkDir(t *testing.T) {
	root := t.TempDir()
	realDir := filepath.Join(root, "real")
	os.Mkdir(realDir, 0o755)
	os.Symlink(realDir, filepath.Join(root, "ln"))
	if _, err := New(root, nil).Open(context.Background(), "ln"); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("expect ErrInvalidInput, got %v", err)
	}
}

// TestOpenSymlinkDangling 符号链接失效视为缺失 (Unix only)
func TestOpenSymlinkDangling(t *testing.T) {
	dir := t.TempDir()
	os.Symlink(filepath.Join(dir, "no"), filepath.Join(dir, "dangling"))
	if _, err := New(dir, nil).Open(context.Background(), "dangling"); !errors.Is(err, contract.ErrInputMissing) {
		t.Fatalf("expect ErrInputMissing, got %v", err)
	}
}
