package fixed

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"slowniki/pkg/contract"
)

// Options 为定长分片器的可选配置（最小必要）。
type Options struct {
	// MinChunk: 分片下限；limit.Size 小于该值时按 MinChunk 切分。<=0 视为 1。
	MinChunk int `json:"min_chunk"`
	// MaxChunks: 分片数上限；超过时自动放大分片（仍保持连续）。<=0 表示不限制。
	MaxChunks int `json:"max_chunks"`
}

// Chunker 将单词表按固定大小连续切分。
type Chunker struct {
	minChunk  int
	maxChunks int
}

// New 创建定长 Chunker。
func New(opts *Options) *Chunker {
	minChunk := 1
	maxChunks := 0
	if opts != nil {
		if opts.MinChunk > 0 {
			minChunk = opts.MinChunk
		}
		if opts.MaxChunks > 0 {
			maxChunks = opts.MaxChunks
		}
	}
	return &Chunker{minChunk: minChunk, maxChunks: maxChunks}
}

// Make 按 limit.Size 连续切分：
// - 不重排、不丢失；
// - Chunk.Index 为 0..n-1；
// - 空输入返回 nil。
func (c *Chunker) Make(ctx context.Context, id contract.FileID, words contract.WordList, limit contract.ChunkLimit) ([]contract.Chunk, error) {
	if limit.Size <= 0 {
		return nil, fmt.Errorf("chunker: size must be > 0: %w", contract.ErrInvalidInput)
	}
	if len(words) == 0 {
		return nil, nil
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	size := c.effectiveSize(len(words), limit.Size)
	parts := lo.Chunk(words, size)
	chunks := make([]contract.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = contract.Chunk{FileID: id, Index: int64(i), Words: p}
	}
	if len(chunks) == 0 {
		return nil, errors.New("chunker: no chunk produced for non-empty input")
	}
	return chunks, nil
}

// effectiveSize 应用下限与分片数上限。
func (c *Chunker) effectiveSize(n, size int) int {
	if size < c.minChunk {
		size = c.minChunk
	}
	if c.maxChunks > 0 && (n+size-1)/size > c.maxChunks {
		size = (n + c.maxChunks - 1) / c.maxChunks
	}
	return size
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

var _ contract.Chunker = (*Chunker)(nil)
