package contract

import "context"

// ChunkLimit: 分片上限。
type ChunkLimit struct {
	// Size: 每片最多单词数，必须为正数。
	Size int
}

// Chunker: 将基础单词表切分为若干连续 Chunk。
// 约束：
//  1. 不重排、不丢失、不重叠；
//  2. Chunk.Index 在同一 FileID 内为 0..n-1；
//  3. 空输入返回空结果（非错误）。
type Chunker interface {
	Make(ctx context.Context, id FileID, words WordList, limit ChunkLimit) ([]Chunk, error)
}
