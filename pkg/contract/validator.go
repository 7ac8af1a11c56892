package contract

// 校验库函数（纯函数，无 I/O）。

// ValidateChunks 校验分片对 words 的覆盖：
// - 同一 FileID；
// - Index 自 0 连续递增；
// - 非空且首尾相接，内容依序等于 words。
func ValidateChunks(id FileID, words WordList, chunks []Chunk) error {
	off := 0
	for i, c := range chunks {
		if c.FileID != id || c.Index != int64(i) || len(c.Words) == 0 {
			return ErrSeqInvalid
		}
		end := off + len(c.Words)
		if end > len(words) || SameWords(words[off:end], c.Words) >= 0 {
			return ErrSeqInvalid
		}
		off = end
	}
	if off != len(words) {
		return ErrSeqInvalid
	}
	return nil
}

// SameWords 比较两个单词序列，返回首个不一致的位置；一致时返回 -1。
// 长度不同且公共前缀一致时，返回较短序列的长度。
func SameWords(a, b WordList) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
