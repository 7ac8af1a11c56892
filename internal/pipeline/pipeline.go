package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"slowniki/internal/diag"
	"slowniki/internal/extension"
	"slowniki/internal/wordlist"
	"slowniki/pkg/contract"
)

// - 固定阶段顺序：split → extend → render → verify；未选中的阶段跳过。
// - 任务隔离：(词典, 长度) 为独立任务，单个任务失败只记录并计数，其余继续；阶段结果为 errors.Join。
// - 单点并发：任务串行执行，每个任务内部由 extension.Driver 的 worker 池并行；其余组件均为同步实现。
// - 取消：ctx 取消后立即返回，不再启动新任务。

// 阶段名
const (
	StageSplit  = "split"
	StageExtend = "extend"
	StageRender = "render"
	StageVerify = "verify"
)

// Stages 为固定执行顺序。
var Stages = []string{StageSplit, StageExtend, StageRender, StageVerify}

// DefaultHeader 为渲染表头。
var DefaultHeader = contract.Row{"Left Extensions", "Word", "Right Extensions"}

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader    contract.Reader
	Loader    contract.Loader
	Chunker   contract.Chunker
	Assembler contract.Assembler
	Writer    contract.Writer
	Renderer  contract.Renderer
}

// Dict 为一个词典：名称即数据根下的目录名。
type Dict struct {
	Name string
	// Master: 主词表文件名（相对词典目录），空则取 <name>.txt。
	Master string
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	Dicts []Dict
	// Stages: 需执行的阶段（顺序无关，总按 Stages 顺序执行）；空表示全部。
	Stages    []string
	// MinLength/MaxLength: 任务长度范围；旁路长度恒为 contract.MaxLength。
	MinLength int
	MaxLength int
	// Concurrency: 扩展阶段 worker 数。
	Concurrency int
	ChunkSize   int
	// Header: 渲染表头，空则取 DefaultHeader。
	Header contract.Row
}

// Run 执行选中的阶段。返回所有失败任务错误的 errors.Join；ctx 取消时返回取消错误。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) error {
	if err := sanity(comp, &set); err != nil {
		return fmt.Errorf("sanity: %w", err)
	}
	r := &runner{comp: comp, set: set, log: logger}
	r.driver = extension.NewDriver(comp.Chunker, extension.Options{
		Workers:   set.Concurrency,
		ChunkSize: set.ChunkSize,
		MaxLength: contract.MaxLength,
		Progress: func(done, total int) {
			if t := diag.GetTerminal(); t != nil {
				t.JobProgress(done, total)
			}
		},
	})

	selected := make(map[string]bool, len(set.Stages))
	for _, s := range set.Stages {
		selected[s] = true
	}
	var errs []error
	for _, stage := range Stages {
		if len(selected) > 0 && !selected[stage] {
			continue
		}
		err := r.stage(ctx, stage)
		if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("%s: %w", stage, cerr)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", stage, err))
		}
	}
	return errors.Join(errs...)
}

type runner struct {
	comp   Components
	set    Settings
	log    *diag.Logger
	driver *extension.Driver
}

// job 为一个 (词典, 长度) 任务；split 阶段 n 为 0。
type job struct {
	dict Dict
	n    int
}

func (j job) id() string {
	if j.n == 0 {
		return j.dict.Name
	}
	return contract.JobID(j.dict.Name, j.n)
}

// errSkip: 任务输入不存在，跳过（不计失败）。
var errSkip = errors.New("skip")

func (r *runner) stage(ctx context.Context, stage string) error {
	var jobs []job
	for _, d := range r.set.Dicts {
		if stage == StageSplit {
			jobs = append(jobs, job{dict: d})
			continue
		}
		for n := r.set.MinLength; n <= r.set.MaxLength; n++ {
			jobs = append(jobs, job{dict: d, n: n})
		}
	}
	st := r.log.Start("pipeline", stage)
	var errs []error
	failed := 0
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := r.runJob(ctx, stage, j)
		switch {
		case err == nil:
		case errors.Is(err, errSkip):
			r.log.Skip(stage, err.Error(), j.id())
			diag.IncOp(stage, "skip", "skip")
		default:
			failed++
			code := diag.Classify(err)
			r.log.ErrorWith(stage, string(code), err.Error(), nil, j.id(), "")
			diag.IncOp(stage, "error", "error")
			errs = append(errs, fmt.Errorf("%s: %w", j.id(), err))
		}
	}
	if failed == 0 {
		st.Finish(stage, int64(len(jobs)))
		diag.IncOp("pipeline", "finish", "success")
		return nil
	}
	r.log.ErrorWithKV("pipeline", string(diag.CodeUnknown), stage+" failed", st.Since(), "", "", map[string]string{
		"jobs":   strconv.Itoa(len(jobs)),
		"failed": strconv.Itoa(failed),
	})
	return errors.Join(errs...)
}

// runJob 执行单个任务并维护终端状态。
func (r *runner) runJob(ctx context.Context, stage string, j job) (err error) {
	start := time.Now()
	term := diag.GetTerminal()
	started := false
	begin := func(total int) {
		started = true
		if term != nil {
			term.JobStart(stage, j.id(), total)
		}
	}
	defer func() {
		if started && term != nil {
			term.JobFinish(err == nil, time.Since(start))
		}
	}()
	switch stage {
	case StageSplit:
		return r.split(ctx, j, begin)
	case StageExtend:
		return r.extend(ctx, j, begin)
	case StageRender:
		return r.render(ctx, j, begin)
	case StageVerify:
		return r.verify(ctx, j, begin)
	}
	return fmt.Errorf("unknown stage %q: %w", stage, contract.ErrInvalidInput)
}

// split: 主词表按长度拆分，组内按波兰语排序，保留原大小写。
func (r *runner) split(ctx context.Context, j job, begin func(int)) error {
	id := contract.MasterFileID(j.dict.Name, j.dict.Master)
	lines, err := r.readLines(ctx, id, j.id())
	if err != nil {
		return err
	}
	groups := wordlist.GroupByLength(lines)
	lengths := wordlist.Lengths(groups)
	begin(len(lengths))
	for i, n := range lengths {
		if err := r.write(ctx, contract.WordsFileID(j.dict.Name, n), wordlist.Encode(groups[n]), j.id()); err != nil {
			return err
		}
		if t := diag.GetTerminal(); t != nil {
			t.JobProgress(i+1, len(lengths))
		}
	}
	return nil
}

// extend: 由 n 与 n+1 长度单词表生成扩展表。
func (r *runner) extend(ctx context.Context, j job, begin func(int)) error {
	base, err := r.load(ctx, contract.WordsFileID(j.dict.Name, j.n), j.id())
	if errors.Is(err, contract.ErrInputMissing) {
		return fmt.Errorf("%w: no %d-letter words", errSkip, j.n)
	}
	if err != nil {
		return err
	}
	// 即便 n 为任务范围上限，仍需 n+1 长度单词表；空表无需
	var extended contract.WordList
	if len(base) > 0 && j.n < contract.MaxLength {
		extended, err = r.load(ctx, contract.WordsFileID(j.dict.Name, j.n+1), j.id())
		if err != nil {
			return fmt.Errorf("extended words: %w", err)
		}
	}
	size := r.set.ChunkSize
	if size <= 0 {
		size = extension.DefaultChunkSize
	}
	begin((len(base) + size - 1) / size)

	t := r.log.StartWithKV("extension", "run", j.id(), "", map[string]string{
		"base":     strconv.Itoa(len(base)),
		"extended": strconv.Itoa(len(extended)),
	})
	lines, err := r.driver.Run(ctx, contract.FileID(j.id()), base, extended)
	if err != nil {
		return r.fail("extension", "run failed", j.id(), t.Since(), err)
	}
	r.finish(t, "extension", "run", len(lines))
	return r.assemble(ctx, contract.ExtensionsFileID(j.dict.Name, j.n), lines, j.id())
}

// render: 扩展表 → 三列表格 → PNG 分页。
func (r *runner) render(ctx context.Context, j job, begin func(int)) error {
	lines, err := r.readLines(ctx, contract.ExtensionsFileID(j.dict.Name, j.n), j.id())
	if errors.Is(err, contract.ErrInputMissing) {
		return fmt.Errorf("%w: no %d-letter extensions", errSkip, j.n)
	}
	if err != nil {
		return err
	}
	rows := make([]contract.Row, 0, len(lines))
	for _, line := range lines {
		if rec, ok := extension.Parse(line, j.n); ok {
			rows = append(rows, extension.Row(rec))
		}
	}
	table := contract.Table{
		Title:  strings.ToUpper(j.dict.Name) + strconv.Itoa(j.n),
		Header: r.set.Header,
		Rows:   rows,
	}
	t := r.log.StartWith("renderer", "render", j.id(), "")
	pages, err := r.comp.Renderer.Render(ctx, table)
	if err != nil {
		return r.fail("renderer", "render failed", j.id(), t.Since(), err)
	}
	r.finish(t, "renderer", "render", len(pages))
	begin(len(pages))
	for i, p := range pages {
		if err := r.write(ctx, contract.PageFileID(j.dict.Name, j.n, p.Index), bytes.NewReader(p.Data), j.id()); err != nil {
			return err
		}
		if t := diag.GetTerminal(); t != nil {
			t.JobProgress(i+1, len(pages))
		}
	}
	return nil
}

// verify: 扩展表中按序还原的单词必须与单词表逐一相同。
func (r *runner) verify(ctx context.Context, j job, begin func(int)) error {
	want, err := r.load(ctx, contract.WordsFileID(j.dict.Name, j.n), j.id())
	if errors.Is(err, contract.ErrInputMissing) {
		return fmt.Errorf("%w: no %d-letter words", errSkip, j.n)
	}
	if err != nil {
		return err
	}
	lines, err := r.readLines(ctx, contract.ExtensionsFileID(j.dict.Name, j.n), j.id())
	if err != nil {
		return err
	}
	begin(1)
	t := r.log.StartWith("verify", "compare", j.id(), "")
	got := make(contract.WordList, 0, len(lines))
	for i, line := range lines {
		rec, ok := extension.Parse(line, j.n)
		if !ok {
			err := fmt.Errorf("line %d: %q: %w", i+1, line, contract.ErrMalformedRecord)
			return r.fail("verify", "malformed record", j.id(), t.Since(), err)
		}
		got = append(got, strings.ToUpper(rec.Word))
	}
	if pos := contract.SameWords(want, got); pos >= 0 {
		kv := map[string]string{"pos": strconv.Itoa(pos), "want": at(want, pos), "got": at(got, pos)}
		r.log.ErrorWithKV("verify", string(diag.CodeInconsistent), "words mismatch", t.Since(), j.id(), "", kv)
		diag.IncOp("verify", "error", "error")
		diag.IncError("verify", string(diag.CodeInconsistent))
		return fmt.Errorf("position %d: want %q got %q: %w", pos, kv["want"], kv["got"], contract.ErrInconsistent)
	}
	r.finish(t, "verify", "compare", len(got))
	if term := diag.GetTerminal(); term != nil {
		term.JobProgress(1, 1)
	}
	return nil
}

func at(ws contract.WordList, i int) string {
	if i < len(ws) {
		return ws[i]
	}
	return ""
}

// open 打开输入；调用方负责关闭。
func (r *runner) open(ctx context.Context, id contract.FileID, job string) (io.ReadCloser, error) {
	t := r.log.StartWith("reader", "open", string(id), job)
	rc, err := r.comp.Reader.Open(ctx, id)
	if err != nil {
		if errors.Is(err, contract.ErrInputMissing) {
			return nil, err
		}
		return nil, r.fail("reader", "open failed", job, t.Since(), err)
	}
	r.finish(t, "reader", "open", 0)
	return rc, nil
}

// readLines 读取文本行（保留大小写）。
func (r *runner) readLines(ctx context.Context, id contract.FileID, job string) ([]string, error) {
	rc, err := r.open(ctx, id, job)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	lines, err := wordlist.ReadLines(rc, 0)
	if err != nil {
		return nil, r.fail("reader", "read failed", job, nil, fmt.Errorf("%s: %w", id, err))
	}
	return lines, nil
}

// load 经 Loader 读取大写单词表。
func (r *runner) load(ctx context.Context, id contract.FileID, job string) (contract.WordList, error) {
	rc, err := r.open(ctx, id, job)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	t := r.log.StartWith("loader", "load", string(id), job)
	words, err := r.comp.Loader.Load(ctx, id, rc)
	if err != nil {
		return nil, r.fail("loader", "load failed", job, t.Since(), err)
	}
	r.finish(t, "loader", "load", len(words))
	return words, nil
}

// assemble 拼接记录行并写出。
func (r *runner) assemble(ctx context.Context, id contract.FileID, lines []contract.Line, job string) error {
	t := r.log.StartWith("assembler", "assemble", string(id), job)
	rd, err := r.comp.Assembler.Assemble(ctx, id, lines)
	if err != nil {
		return r.fail("assembler", "assemble failed", job, t.Since(), err)
	}
	r.finish(t, "assembler", "assemble", len(lines))
	return r.write(ctx, id, rd, job)
}

func (r *runner) write(ctx context.Context, id contract.FileID, rd io.Reader, job string) error {
	t := r.log.StartWith("writer", "write", string(id), job)
	if err := r.comp.Writer.Write(ctx, contract.ArtifactID(id), rd); err != nil {
		return r.fail("writer", "write failed", job, t.Since(), err)
	}
	r.finish(t, "writer", "write", 1)
	return nil
}

// fail 记录错误事件与指标，原样返回 err。
func (r *runner) fail(comp, msg, job string, since *time.Time, err error) error {
	code := diag.Classify(err)
	r.log.ErrorWithKV(comp, string(code), msg, since, job, "", map[string]string{"err": err.Error()})
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
	return err
}

func (r *runner) finish(t *diag.Timer, comp, msg string, n int) {
	t.Finish(msg, int64(n))
	diag.IncOp(comp, "finish", "success")
}

func sanity(c Components, s *Settings) error {
	if c.Reader == nil || c.Loader == nil || c.Chunker == nil || c.Assembler == nil || c.Writer == nil || c.Renderer == nil {
		return errors.New("pipeline: missing components")
	}
	if len(s.Dicts) == 0 {
		return errors.New("pipeline: no dictionaries")
	}
	for _, st := range s.Stages {
		if !lo.Contains(Stages, st) {
			return fmt.Errorf("pipeline: unknown stage %q: %w", st, contract.ErrInvalidInput)
		}
	}
	if s.MinLength <= 0 {
		s.MinLength = contract.MinLength
	}
	if s.MaxLength <= 0 {
		s.MaxLength = contract.MaxLength
	}
	if s.MinLength > s.MaxLength {
		return fmt.Errorf("pipeline: min_length %d > max_length %d: %w", s.MinLength, s.MaxLength, contract.ErrInvalidInput)
	}
	if s.Concurrency < 1 {
		s.Concurrency = 1
	}
	if s.Header == (contract.Row{}) {
		s.Header = DefaultHeader
	}
	return nil
}

