package extension

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"unicode/utf8"

	"github.com/zeromicro/go-zero/core/mr"

	"slowniki/pkg/contract"
)

// DefaultChunkSize: 每个分片的默认单词数。
const DefaultChunkSize = 1000

// Options: 批处理驱动配置。零值字段取默认值。
type Options struct {
	// Workers: 并发度，默认 runtime.NumCPU()。
	Workers int
	// ChunkSize: 每片单词数，默认 DefaultChunkSize。
	ChunkSize int
	// MaxLength: 最大建模长度；该长度的单词走旁路，默认 contract.MaxLength。
	MaxLength int
	// Progress: 可选进度回调（已完成分片数, 分片总数），可能被并发调用。
	Progress func(done, total int)
}

// Driver: 将基础单词表分片并行格式化，再按分片序拼接。
// 输出与分片大小、并发度无关。
type Driver struct {
	chunker contract.Chunker
	opts    Options
}

// NewDriver 创建驱动；chunker 负责分片。
func NewDriver(chunker contract.Chunker, opts Options) *Driver {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = contract.MaxLength
	}
	return &Driver{chunker: chunker, opts: opts}
}

type chunkLines struct {
	index int64
	lines []contract.Line
}

// Run 为 base 中每个单词产出一条扩展记录，顺序与 base 一致。
//   - base 为空：返回空结果；
//   - base 单词长度为 MaxLength：不建索引，每个单词输出 " W \n"，extended 被忽略；
//   - 否则 extended 为 nil 返回 ErrInputMissing；非 nil 的空表合法（全部记录两侧为空）。
//
// 基础长度取 base[0] 的字符数。ctx 取消时整体失败，不返回部分结果。
func (d *Driver) Run(ctx context.Context, id contract.FileID, base, extended contract.WordList) ([]contract.Line, error) {
	if len(base) == 0 {
		return nil, nil
	}
	n := utf8.RuneCountInString(base[0])
	if n >= d.opts.MaxLength {
		out := make([]contract.Line, len(base))
		for i, w := range base {
			out[i] = Format(w, nil, nil)
		}
		return out, nil
	}
	if extended == nil {
		return nil, fmt.Errorf("extension: %s: words of length %d: %w", id, n+1, contract.ErrInputMissing)
	}

	ix := Build(extended, n)

	chunks, err := d.chunker.Make(ctx, id, base, contract.ChunkLimit{Size: d.opts.ChunkSize})
	if err != nil {
		return nil, fmt.Errorf("chunker make: %w", err)
	}
	if err := contract.ValidateChunks(id, base, chunks); err != nil {
		return nil, fmt.Errorf("chunker make: %w", err)
	}

	total := len(chunks)
	var done atomic.Int64
	slots, err := mr.MapReduce(func(source chan<- contract.Chunk) {
		for _, c := range chunks {
			select {
			case source <- c:
			case <-ctx.Done():
				return
			}
		}
	}, func(c contract.Chunk, writer mr.Writer[chunkLines], cancel func(error)) {
		if err := ctx.Err(); err != nil {
			cancel(err)
			return
		}
		lines := make([]contract.Line, len(c.Words))
		for i, w := range c.Words {
			lines[i] = ix.Line(w)
		}
		writer.Write(chunkLines{index: c.Index, lines: lines})
		if d.opts.Progress != nil {
			d.opts.Progress(int(done.Add(1)), total)
		}
	}, func(pipe <-chan chunkLines, writer mr.Writer[[][]contract.Line], cancel func(error)) {
		// 按分片序落位，与完成顺序无关
		slots := make([][]contract.Line, total)
		for r := range pipe {
			slots[r.index] = r.lines
		}
		writer.Write(slots)
	}, mr.WithContext(ctx), mr.WithWorkers(d.opts.Workers))
	if err != nil {
		if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
			return nil, errors.Join(err, cerr)
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]contract.Line, 0, len(base))
	for i, s := range slots {
		if s == nil {
			return nil, fmt.Errorf("chunk %d missing: %w", i, contract.ErrInvariantViolation)
		}
		out = append(out, s...)
	}
	return out, nil
}
