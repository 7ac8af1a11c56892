package diag

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	currentLog     = "slowniki-current.txt"
	defaultLogSize = 10 << 20
)

// RotatingFile: logx 的输出目标。始终写 <dir>/slowniki-current.txt，
// 追加一行会超过 maxBytes 时先把它改名为 slowniki-<UTC 时间戳>.txt。
type RotatingFile struct {
	mu       sync.Mutex
	dir      string
	maxBytes int64
	f        *os.File
	size     int64
}

func NewRotatingFile(dir string, maxBytes int64) *RotatingFile {
	if dir == "" {
		dir = "logs"
	}
	if maxBytes <= 0 {
		maxBytes = defaultLogSize
	}
	return &RotatingFile{dir: dir, maxBytes: maxBytes}
}

// Write 视 p 为一行，末尾换行可有可无。
func (w *RotatingFile) Write(p []byte) (int, error) {
	if err := w.WriteLine(bytes.TrimSuffix(p, []byte{'\n'})); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteLine 追加 b 与换行。
func (w *RotatingFile) WriteLine(b []byte) error {
	line := append(append(make([]byte, 0, len(b)+1), b...), '\n')
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		if err := w.open(); err != nil {
			return err
		}
	}
	if w.size > 0 && w.size+int64(len(line)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return err
		}
	}
	n, err := w.f.Write(line)
	w.size += int64(n)
	return err
}

func (w *RotatingFile) open() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(w.dir, currentLog), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.f, w.size = f, 0
	if st, err := f.Stat(); err == nil {
		w.size = st.Size()
	}
	return nil
}

func (w *RotatingFile) rotate() error {
	_ = w.f.Close()
	w.f = nil
	// 纳秒精度，同秒内多次轮转不互相覆盖
	name := fmt.Sprintf("slowniki-%s.txt", time.Now().UTC().Format("20060102-150405.000000000"))
	if err := os.Rename(filepath.Join(w.dir, currentLog), filepath.Join(w.dir, name)); err != nil {
		return fmt.Errorf("rotate log: %w", err)
	}
	return w.open()
}

// Close 关闭当前文件；之后的写入会重新打开。
func (w *RotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
