package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"slowniki/pkg/contract"
)

// Options: 本地输出选项。
type Options struct {
	// OutputDir: 输出根目录；为空时使用数据根目录。
	OutputDir string `json:"output_dir"`
	// Atomic: 同目录临时文件 + rename；缺省为 true，显式 false 直接覆盖写。
	Atomic *bool `json:"atomic,omitempty"`
	// PermFile/PermDir: 为 0 时取 0644/0755。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	BufSize  int         `json:"buf_size,omitempty"`
}

// FS 将单词表、扩展表与页面写入本地目录，布局与数据根目录一致。
// 读者（render、verify 或下一次运行）只会看到完整文件。
type FS struct {
	root    string
	atomic  bool
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
}

// New 创建文件系统 Writer；opts.OutputDir 为空时写入 root。
func New(root string, opts *Options) (*FS, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	dir := strings.TrimSpace(o.OutputDir)
	if dir == "" {
		dir = strings.TrimSpace(root)
	}
	if dir == "" {
		return nil, fmt.Errorf("writer fs: output dir required: %w", contract.ErrInvalidInput)
	}
	w := &FS{root: dir, atomic: o.Atomic == nil || *o.Atomic, permF: o.PermFile, permD: o.PermDir, bufSize: o.BufSize}
	if w.permF == 0 {
		w.permF = 0o644
	}
	if w.permD == 0 {
		w.permD = 0o755
	}
	if w.bufSize <= 0 {
		w.bufSize = 64 * 1024
	}
	return w, nil
}

var _ contract.Writer = (*FS)(nil)

// Root 返回输出根目录。
func (w *FS) Root() string { return w.root }

// Write 将 r 的全部字节写入 id 对应的路径，已存在时整体替换。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := w.mapPath(id)
	if err != nil {
		return err
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, w.permD); err != nil {
		return err
	}
	if !w.atomic {
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
		if err != nil {
			return err
		}
		if err := w.copyTo(ctx, f, r); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, w.permF)
	if err := w.copyTo(ctx, tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := osReplace(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = syncDir(dir)
	return nil
}

func (w *FS) mapPath(id contract.ArtifactID) (string, error) {
	return contract.LocalPath(w.root, id)
}

// copyTo 带缓冲拷贝并落盘；每次 Read 前检查 ctx。
func (w *FS) copyTo(ctx context.Context, f *os.File, r io.Reader) error {
	bw := bufio.NewWriterSize(f, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
