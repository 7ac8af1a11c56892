package mmap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	mmapgo "github.com/edsrzf/mmap-go"

	"slowniki/pkg/contract"
	rfs "slowniki/plugins/reader/filesystem"
)

// Options 为内存映射 Reader 的可选配置。
type Options struct {
	// MinBytes: 小于该大小的文件直接读入内存，不做映射。默认 0（总是映射非空文件）。
	MinBytes int64 `json:"min_bytes"`
}

// Reader 以只读内存映射方式打开数据根目录下的文件。
type Reader struct {
	root     string
	minBytes int64
}

// New 创建内存映射 Reader；root 为数据根目录。
func New(root string, opts *Options) *Reader {
	if root == "" {
		root = "."
	}
	r := &Reader{root: root}
	if opts != nil && opts.MinBytes > 0 {
		r.minBytes = opts.MinBytes
	}
	return r
}

// Open 映射 id 对应的文件；Close 时解除映射。空文件返回空读取器。
func (r *Reader) Open(ctx context.Context, id contract.FileID) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	p, info, err := rfs.Resolve(r.root, id)
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	if info.Size() < r.minBytes {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		return io.NopCloser(bytes.NewReader(b)), nil
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	// 映射建立后即可关闭文件描述符
	defer f.Close()
	m, err := mmapgo.Map(f, mmapgo.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: mmap: %w", id, err)
	}
	return &mapped{Reader: bytes.NewReader(m), m: m}, nil
}

// mapped: 映射区上的只读流；Close 幂等。
type mapped struct {
	*bytes.Reader
	m    mmapgo.MMap
	once sync.Once
	err  error
}

func (m *mapped) Close() error {
	m.once.Do(func() {
		m.Reader = bytes.NewReader(nil)
		m.err = m.m.Unmap()
	})
	return m.err
}

var _ contract.Reader = (*Reader)(nil)
