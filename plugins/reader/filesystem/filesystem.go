package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"slowniki/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
}

// FileSystem 实现基于数据根目录的 Reader。
type FileSystem struct {
	root    string
	bufSize int
}

// New 创建 FileSystem Reader；root 为数据根目录（空串表示当前目录）。
func New(root string, opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	if opts != nil && opts.BufSize > 0 {
		b = opts.BufSize
	}
	if root == "" {
		root = "."
	}
	return &FileSystem{root: root, bufSize: b}
}

// Open 打开 root 下的 id。
// 允许指向常规文件的符号链接；目录与非常规文件返回 ErrInvalidInput；
// 不存在（含失效符号链接）返回 ErrInputMissing。
func (r *FileSystem) Open(ctx context.Context, id contract.FileID) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	p, _, err := Resolve(r.root, id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, classify(id, err)
	}
	return newBufferedCloser(f, r.bufSize), nil
}

// Resolve 将 id 映射为 root 下的本地路径并校验目标为常规文件（跟随符号链接）。
func Resolve(root string, id contract.FileID) (string, fs.FileInfo, error) {
	p, err := contract.LocalPath(root, id)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return "", nil, classify(id, err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("%s: not a regular file: %w", id, contract.ErrInvalidInput)
	}
	return p, info, nil
}

func classify(id contract.FileID, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", id, contract.ErrInputMissing)
	}
	return fmt.Errorf("%s: %w", id, err)
}

// bufferedCloser 将 bufio.Reader 与底层 Closer 组合为 ReadCloser。
type bufferedCloser struct {
	*bufio.Reader
	c io.Closer
}

func newBufferedCloser(c io.ReadCloser, bufSize int) *bufferedCloser {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	return &bufferedCloser{Reader: bufio.NewReaderSize(c, bufSize), c: c}
}

func (b *bufferedCloser) Close() error { return b.c.Close() }

var _ contract.Reader = (*FileSystem)(nil)
