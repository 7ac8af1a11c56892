package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Terminal: 面向操作者的运行提示，不进日志。
// TTY 下进度单行 \r 覆盖；非 TTY（含 CI）只在任务起止打一行。
// 写失败后静默。
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	isTTY   bool

	concurrency int
	runStart    time.Time
	jobs        int
	failed      int

	stage  string
	job    string
	chunks int

	inline    int // 当前行已写的可见宽度
	lastFlush time.Time
}

var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal 设置进程级终端，pipeline 经 GetTerminal 旁路汇报；nil 清除。
func SetTerminal(t *Terminal) {
	termMu.Lock()
	defer termMu.Unlock()
	term = t
}

func GetTerminal() *Terminal {
	termMu.RLock()
	defer termMu.RUnlock()
	return term
}

// NewTerminal 构造终端；enabled=false 时所有方法为 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	if f, ok := w.(*os.File); ok && os.Getenv("CI") == "" {
		if fi, err := f.Stat(); err == nil {
			t.isTTY = fi.Mode()&os.ModeCharDevice != 0
		}
	}
	return t
}

// do 在锁内执行 fn；nil 或已禁用时跳过。
func (t *Terminal) do(fn func()) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled {
		fn()
	}
}

// RunStart 重置计数并打印并发度与阶段。
func (t *Terminal) RunStart(concurrency int, stages []string) {
	t.do(func() {
		t.concurrency, t.jobs, t.failed, t.runStart = concurrency, 0, 0, time.Now()
		t.line(fmt.Sprintf("[run] 并发=%d | 阶段=%s", concurrency, oneLine(strings.Join(stages, ","))))
	})
}

// JobStart 切换到 (阶段, 词典/长度) 任务，chunks 为计划分片数。
func (t *Terminal) JobStart(stage, job string, chunks int) {
	t.do(func() {
		t.stage, t.job, t.chunks = oneLine(stage), clip(oneLine(job), 48), chunks
		if !t.isTTY {
			t.line(fmt.Sprintf("[%s] %s | 计划分片=%d", t.stage, t.job, chunks))
		}
	})
}

// JobProgress 仅 TTY 输出，100ms 节流。
func (t *Terminal) JobProgress(done, total int) {
	t.do(func() {
		if !t.isTTY {
			return
		}
		t.chunks = total
		now := time.Now()
		if now.Sub(t.lastFlush) < 100*time.Millisecond {
			return
		}
		t.lastFlush = now
		t.overwrite(fmt.Sprintf("[%s] %s | 进度 %d/%d | 失败任务 %d | 并发 %d | 用时 %s",
			t.stage, t.job, done, total, t.failed, t.concurrency, formatDur(time.Since(t.runStart))))
	})
}

// JobFinish 清掉进度行并打印任务结果。
func (t *Terminal) JobFinish(ok bool, dur time.Duration) {
	t.do(func() {
		t.jobs++
		status := "done"
		if !ok {
			status = "fail"
			t.failed++
		}
		if t.isTTY && t.inline > 0 {
			t.overwrite("")
		}
		t.line(fmt.Sprintf("[%s] %s %s | 分片 %d | 用时 %s", status, t.stage, t.job, t.chunks, formatDur(dur)))
	})
}

// RunFinish 打印总览。
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	t.do(func() {
		tag := "ok"
		if !ok {
			tag = "fail"
		}
		t.line(fmt.Sprintf("[%s] 全部完成 | 任务 %d | 失败 %d | 总用时 %s", tag, t.jobs, t.failed, formatDur(dur)))
	})
}

func (t *Terminal) line(s string) {
	t.emit(s + "\n")
	t.inline = 0
}

// overwrite 回到行首重写；新内容更短时以空格覆盖残留。
func (t *Terminal) overwrite(s string) {
	n := len([]rune(s))
	pad := max(t.inline-n, 0)
	if t.emit("\r" + s + strings.Repeat(" ", pad)) {
		t.inline = n
	}
}

func (t *Terminal) emit(s string) bool {
	if _, err := io.WriteString(t.w, s); err != nil {
		t.enabled = false
		return false
	}
	return true
}

// clip 按字符数截断，末尾加省略号。
func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:max(n-1, 1)]) + "…"
}

func oneLine(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

func formatDur(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", max(d.Milliseconds(), 0))
	}
	return fmt.Sprintf("%.1fs", float64(d.Milliseconds())/1000)
}
