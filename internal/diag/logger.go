package diag

import (
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

// 级别定义
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Logger 为结构化事件日志器：事件经 go-zero logx 以 JSON 字段输出，
// 输出位置由 SetupSink 决定（默认 logx 控制台）。级别过滤在本层完成。
type Logger struct {
	corrID string
	level  Level
}

// NewLogger 通过配置的 level 初始化。
func NewLogger(corrID, level string) *Logger {
	return &Logger{corrID: corrID, level: ParseLevel(strings.TrimSpace(level))}
}

// ParseLevel 解析级别名；未知值视为 info。
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// SetupSink 将 logx 输出导向 dir 下按大小轮转的文件（slowniki-current.txt）。
// 返回的 RotatingFile 由调用方在退出前 Close。
func SetupSink(dir string, maxBytes int64) *RotatingFile {
	sink := NewRotatingFile(dir, maxBytes)
	logx.SetWriter(logx.NewWriter(sink))
	logx.SetLevel(logx.DebugLevel)
	return sink
}

// ResetSink 解除 logx 与 sink 的绑定并关闭 sink。
func ResetSink(sink *RotatingFile) {
	logx.Reset()
	if sink != nil {
		_ = sink.Close()
	}
}

// CorrID 返回本次运行的关联 ID。
func (l *Logger) CorrID() string { return l.corrID }

// Enabled 报告给定级别是否输出。
func (l *Logger) Enabled(lv Level) bool { return l != nil && lv >= l.level }

// Event 为标准事件结构（logx 输出行的解码视图）。
type Event struct {
	Level  string            `json:"level"`
	TS     string            `json:"@timestamp"`
	CorrID string            `json:"corr_id"`
	Comp   string            `json:"comp"`
	Stage  string            `json:"stage"` // start|finish|error|skip
	Code   string            `json:"code,omitempty"`
	DurMS  int64             `json:"dur_ms,omitempty"`
	Count  int64             `json:"count,omitempty"`
	FileID string            `json:"file_id,omitempty"`
	Chunk  string            `json:"chunk_id,omitempty"`
	Msg    string            `json:"content"`
	KV     map[string]string `json:"kv,omitempty"`
}

func (ev Event) fields() []logx.LogField {
	fs := make([]logx.LogField, 0, 9)
	fs = append(fs, logx.Field("corr_id", ev.CorrID), logx.Field("comp", ev.Comp), logx.Field("stage", ev.Stage))
	if ev.Code != "" {
		fs = append(fs, logx.Field("code", ev.Code))
	}
	if ev.DurMS != 0 {
		fs = append(fs, logx.Field("dur_ms", ev.DurMS))
	}
	if ev.Count != 0 {
		fs = append(fs, logx.Field("count", ev.Count))
	}
	if ev.FileID != "" {
		fs = append(fs, logx.Field("file_id", ev.FileID))
	}
	if ev.Chunk != "" {
		fs = append(fs, logx.Field("chunk_id", ev.Chunk))
	}
	if len(ev.KV) > 0 {
		fs = append(fs, logx.Field("kv", ev.KV))
	}
	return fs
}

// log 按级别过滤后交给 logx。
func (l *Logger) log(lv Level, ev Event) {
	if !l.Enabled(lv) {
		return
	}
	ev.CorrID = l.corrID
	switch lv {
	case Debug:
		logx.Debugw(ev.Msg, ev.fields()...)
	case Error:
		logx.Errorw(ev.Msg, ev.fields()...)
	case Warn:
		logx.Infow(ev.Msg, append(ev.fields(), logx.Field("severity", "warn"))...)
	default:
		logx.Infow(ev.Msg, ev.fields()...)
	}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", Msg: msg})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWith 记录带 file_id/chunk_id 的 start。
func (l *Logger) StartWith(comp, msg, fileID, chunk string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", FileID: fileID, Chunk: chunk, Msg: msg})
	return &Timer{l: l, comp: comp, fileID: fileID, chunk: chunk, t0: time.Now()}
}

// StartWithKV 记录带 file_id/chunk_id 与键值的 start。
func (l *Logger) StartWithKV(comp, msg, fileID, chunk string, kv map[string]string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", FileID: fileID, Chunk: chunk, Msg: msg, KV: kv})
	return &Timer{l: l, comp: comp, fileID: fileID, chunk: chunk, t0: time.Now()}
}

// Skip 记录被跳过的任务（warn 级别）。
func (l *Logger) Skip(comp, msg, fileID string) {
	l.log(Warn, Event{Comp: comp, Stage: "skip", FileID: fileID, Msg: msg})
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, "", "", nil)
}

// ErrorWith 支持 file_id/chunk_id。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, fileID, chunk string) {
	l.ErrorWithKV(comp, code, msg, durSince, fileID, chunk, nil)
}

// ErrorWithKV 支持附带键值对（例如不一致位置、期望值/实际值）。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, fileID, chunk string, kv map[string]string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(Error, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg, FileID: fileID, Chunk: chunk, KV: kv})
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	l.log(Info, Event{Comp: comp, Stage: "finish", DurMS: time.Since(start).Milliseconds(), Count: count, Msg: msg})
}

// DebugStart 输出调试级别的“start”类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, fileID, chunk string, kv map[string]string) {
	l.log(Debug, Event{Comp: comp, Stage: "start", FileID: fileID, Chunk: chunk, Msg: msg, KV: kv})
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	chunk  string
	t0     time.Time
}

// Since 返回起点，供 ErrorWith 计算耗时。
func (t *Timer) Since() *time.Time {
	if t == nil {
		return nil
	}
	return &t.t0
}

// Finish 记录 finish；可选 count。同时上报耗时指标。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	dur := time.Since(t.t0).Milliseconds()
	ObserveDuration(t.comp, "finish", dur)
	t.l.log(Info, Event{Comp: t.comp, Stage: "finish", DurMS: dur, Count: count, FileID: t.fileID, Chunk: t.chunk, Msg: msg})
}
